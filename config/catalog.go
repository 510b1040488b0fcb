package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/upb/bandit-router/models"
)

// catalogFile is the on-disk shape of the backend catalog.
type catalogFile struct {
	Backends []models.Backend `yaml:"backends"`
}

// LoadCatalog reads the backend catalog from a YAML file and validates
// it. The catalog defines the full set of routable arms; its order is
// the deterministic tie-break order used by every selection algorithm.
func LoadCatalog(path string) ([]models.Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML content.
func ParseCatalog(data []byte) ([]models.Backend, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse backend catalog: %w", err)
	}

	if len(file.Backends) == 0 {
		return nil, fmt.Errorf("backend catalog is empty")
	}

	seen := make(map[string]bool, len(file.Backends))
	for i, b := range file.Backends {
		if b.ID == "" {
			return nil, fmt.Errorf("backend at index %d has no id", i)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("duplicate backend id: %s", b.ID)
		}
		seen[b.ID] = true
		if b.CostPerInputToken < 0 || b.CostPerOutputToken < 0 {
			return nil, fmt.Errorf("backend %s has negative token cost", b.ID)
		}
		if b.ExpectedQuality < 0 || b.ExpectedQuality > 1 {
			return nil, fmt.Errorf("backend %s expected quality must be in [0,1], got %g", b.ID, b.ExpectedQuality)
		}
	}

	return file.Backends, nil
}
