package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

func TestWriteServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{"invalid reference", models.NewValidationError("panel", "panel does not exist", models.ErrInvalidReference), 422, "invalid_reference", "panel"},
		{"validation", models.NewValidationError("email", "is required", nil), 400, "validation_failed", "email"},
		{"efficiency", fmt.Errorf("%w: 0.9", models.ErrInvalidEfficiency), 400, "validation_failed", "efficiency"},
		{"billing mode", fmt.Errorf("%w: weekly", models.ErrInvalidBillingMode), 400, "validation_failed", "billing_mode"},
		{"token", models.ErrInvalidToken, 400, "invalid_token", ""},
		{"forbidden", models.ErrForbidden, 403, "forbidden", ""},
		{"not found", fmt.Errorf("wrapped: %w", models.ErrNotFound), 404, "not_found", ""},
		{"conflict", models.ErrConflict, 409, "conflict", ""},
		{"unknown", errors.New("db exploded"), 500, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.wantDetail, resp.Details)
			assert.NotContains(t, resp.Message, "db exploded")
		})
	}
}

func TestWriteServiceError_ConflictMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"bare", models.ErrConflict, "Resource already exists"},
		{"constraint name", fmt.Errorf("%w: %s", models.ErrConflict, "users_email_lower_idx"), "Resource already exists"},
		{"service message", models.NewConflictError("entry is used by a project sizing"), "entry is used by a project sizing"},
		{"wrapped service message", fmt.Errorf("delete panel: %w", models.NewConflictError("email already registered")), "email already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			assert.Equal(t, 409, w.Code)
			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.NotContains(t, resp.Message, "_idx")
		})
	}
}

func TestValidateRequest_UsesJSONFieldNames(t *testing.T) {
	type form struct {
		BillingMode string  `json:"billing_mode" validate:"required,billing_mode"`
		Efficiency  float64 `json:"efficiency" validate:"efficiency"`
	}

	err := ValidateRequest(form{BillingMode: "weekly", Efficiency: 0.8})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "billing_mode", ve.Field)
	assert.Equal(t, "must be monthly or bimonthly", ve.Message)

	err = ValidateRequest(form{BillingMode: "Bimonthly", Efficiency: 0.7})
	assert.NoError(t, err)

	err = ValidateRequest(form{BillingMode: "monthly", Efficiency: 0.85})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "efficiency", ve.Field)
}

func TestPaging_FallsBackOnInvalidValues(t *testing.T) {
	limit, offset := paging(httptest.NewRequest("GET", "/x?limit=9999&offset=-3", nil), 50, 200)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = paging(httptest.NewRequest("GET", "/x?limit=25&offset=75", nil), 50, 200)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 75, offset)
}
