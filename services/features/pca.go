package features

import (
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/upb/bandit-router/services"
)

// Projection is a fitted PCA projection loaded from disk. It maps
// embedding vectors from the input dimension down to the component
// count via y = C * (x - mean).
type Projection struct {
	mean       *mat.VecDense
	components *mat.Dense
	inputDim   int
	outputDim  int
}

type projectionFile struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

// LoadProjection reads a fitted projection from a JSON file produced
// by the offline fitting job. The file holds the training mean and the
// component matrix, one row per retained component.
func LoadProjection(path string) (*Projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "reading pca projection", err)
	}
	return ParseProjection(data)
}

// ParseProjection decodes and validates projection JSON.
func ParseProjection(data []byte) (*Projection, error) {
	var pf projectionFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "parsing pca projection", err)
	}

	if len(pf.Mean) == 0 || len(pf.Components) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeConfiguration, "pca projection missing mean or components", nil)
	}
	inputDim := len(pf.Mean)
	outputDim := len(pf.Components)
	if outputDim > inputDim {
		return nil, services.NewDomainError(services.ErrorTypeConfiguration, "pca projection has more components than input dimensions", nil).
			WithDetail("input_dim", inputDim).
			WithDetail("components", outputDim)
	}

	flat := make([]float64, 0, outputDim*inputDim)
	for i, row := range pf.Components {
		if len(row) != inputDim {
			return nil, services.ErrDimensionMismatch.
				WithDetail("component", i).
				WithDetail("expected", inputDim).
				WithDetail("got", len(row))
		}
		flat = append(flat, row...)
	}

	return &Projection{
		mean:       mat.NewVecDense(inputDim, append([]float64(nil), pf.Mean...)),
		components: mat.NewDense(outputDim, inputDim, flat),
		inputDim:   inputDim,
		outputDim:  outputDim,
	}, nil
}

// InputDim returns the embedding dimension the projection was fitted on.
func (p *Projection) InputDim() int { return p.inputDim }

// OutputDim returns the reduced dimension.
func (p *Projection) OutputDim() int { return p.outputDim }

// Apply centers x and projects it onto the retained components. The
// input is not modified.
func (p *Projection) Apply(x []float64) []float64 {
	centered := mat.NewVecDense(p.inputDim, append([]float64(nil), x...))
	centered.SubVec(centered, p.mean)

	out := mat.NewVecDense(p.outputDim, nil)
	out.MulVec(p.components, centered)
	return out.RawVector().Data
}
