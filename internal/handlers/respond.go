package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	pkghttp.WriteJSON(w, status, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// decodeAndValidate decodes the body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP responses. Internal details
// never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.Is(err, models.ErrInvalidReference):
		details := ""
		if errors.As(err, &ve) {
			details = ve.Field
		}
		pkghttp.WriteInvalidReference(w, details)
	case errors.As(err, &ve):
		pkghttp.WriteValidationFailed(w, ve.Field, ve.Message)
	case errors.Is(err, models.ErrInvalidEfficiency):
		pkghttp.WriteValidationFailed(w, "efficiency", "Efficiency must be 0.7 or 0.8")
	case errors.Is(err, models.ErrInvalidBillingMode):
		pkghttp.WriteValidationFailed(w, "billing_mode", "Billing mode must be monthly or bimonthly")
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_token", "The link is invalid or has expired")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Forbidden: you cannot access this resource")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, conflictMessage(err))
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// conflictMessage only passes through messages a service chose for the client.
func conflictMessage(err error) string {
	var ce *models.ConflictError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "Resource already exists"
}

// actorFromRequest builds the acting user from the session in the context.
func actorFromRequest(r *http.Request, ipConfig *pkghttp.IPConfig) *models.Actor {
	s := auth.SessionFromContext(r.Context())
	if s == nil {
		return nil
	}
	return &models.Actor{
		UserID:    s.UserID,
		Email:     s.Identifier,
		Role:      s.Role,
		IPAddress: pkghttp.ExtractClientIP(r, ipConfig),
		UserAgent: pkghttp.UserAgent(r),
	}
}

// requireActor writes 401 and returns nil when no session is present.
func requireActor(w http.ResponseWriter, r *http.Request, ipConfig *pkghttp.IPConfig) *models.Actor {
	actor := actorFromRequest(r, ipConfig)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
	}
	return actor
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// paging reads limit and offset query parameters. Invalid values fall back to
// the defaults.
func paging(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	limit = defLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}

// queryInt64 parses an optional numeric query parameter.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidationError(name, "must be a number", nil)
	}
	return &v, nil
}
