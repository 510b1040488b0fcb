package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/upb/bandit-router/services"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "not found",
			err:        services.ErrDecisionNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid feedback",
			err:        services.ErrInvalidFeedback,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "validation",
			err:        services.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "dimension mismatch",
			err:        services.ErrDimensionMismatch.WithDetail("expected", 19),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "version conflict",
			err:        services.ErrStateVersionConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "configuration",
			err:        services.ErrEmptyBackendCatalog,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, zap.NewNop())
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, nil, zap.NewNop())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}
