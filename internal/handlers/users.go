package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// UserService defines the interface for user business logic
type UserService interface {
	Create(ctx context.Context, actor *models.Actor, in services.CreateUserInput) (*models.User, error)
	Get(ctx context.Context, actor *models.Actor, id int64) (*models.User, error)
	Search(ctx context.Context, actor *models.Actor, search models.UserSearch) ([]*models.User, error)
	Update(ctx context.Context, actor *models.Actor, id int64, in services.UpdateUserInput) (*models.User, error)
	Deactivate(ctx context.Context, actor *models.Actor, id int64) error
}

// Reporter renders downloadable exports.
type Reporter interface {
	ExportUsers(ctx context.Context, actor *models.Actor, format string, w io.Writer) error
	ProjectReport(ctx context.Context, actor *models.Actor, projectID int64, w io.Writer) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service  UserService
	reports  Reporter
	ipConfig *pkghttp.IPConfig
	now      func() time.Time
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, reports Reporter, ipConfig *pkghttp.IPConfig) *UserHandler {
	return &UserHandler{
		service:  service,
		reports:  reports,
		ipConfig: ipConfig,
		now:      time.Now,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
	FirstName            string `json:"first_name" validate:"required,max=100"`
	PaternalSurname      string `json:"paternal_surname" validate:"required,max=100"`
	MaternalSurname      string `json:"maternal_surname" validate:"max=100"`
	Phone                string `json:"phone" validate:"max=30"`
	Role                 string `json:"role" validate:"omitempty,oneof=admin general"`
	Active               *bool  `json:"active"`
}

// UpdateUserRequest represents a partial update. Omitted fields are unchanged.
type UpdateUserRequest struct {
	Email                *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName            *string `json:"first_name" validate:"omitempty,max=100"`
	PaternalSurname      *string `json:"paternal_surname" validate:"omitempty,max=100"`
	MaternalSurname      *string `json:"maternal_surname" validate:"omitempty,max=100"`
	Phone                *string `json:"phone" validate:"omitempty,max=30"`
	Role                 *string `json:"role" validate:"omitempty,oneof=admin general"`
	Active               *bool   `json:"active"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	PaternalSurname string `json:"paternal_surname"`
	MaternalSurname string `json:"maternal_surname,omitempty"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone,omitempty"`
	Role            string `json:"role"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ListUsersResponse represents a list of users
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		PaternalSurname: user.PaternalSurname,
		MaternalSurname: user.MaternalSurname,
		FullName:        user.FullName(),
		Phone:           user.Phone,
		Role:            user.Role,
		Active:          user.Active,
		CreatedAt:       user.CreatedAt.Format(timeLayout),
		UpdatedAt:       user.UpdatedAt.Format(timeLayout),
	}
}

// RegisterRoutes registers all user routes with the chi router
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)           // POST /users
		r.Get("/", h.ListUsers)             // GET /users
		r.Get("/{id}", h.GetUser)           // GET /users/{id}
		r.Patch("/{id}", h.UpdateUser)      // PATCH /users/{id}
		r.Delete("/{id}", h.DeactivateUser) // DELETE /users/{id}

		r.Get("/export.csv", h.exportAs(services.FormatCSV))
		r.Get("/export.pdf", h.exportAs(services.FormatPDF))
	})
}

// GetUser retrieves a user by ID
//
// @Summary Get user by ID
// @Param id path int true "User ID"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// ListUsers searches users by id, name or email with pagination
//
// @Summary List users
// @Param id query int false "Exact user ID"
// @Param name query string false "Name substring"
// @Param email query string false "Email substring"
// @Param limit query int false "Limit (default 50)" default(50)
// @Param offset query int false "Offset (default 0)" default(0)
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	id, err := queryInt64(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit, offset := paging(r, 50, 200)
	search := models.UserSearch{
		ID:     id,
		Name:   strings.TrimSpace(r.URL.Query().Get("name")),
		Email:  strings.TrimSpace(r.URL.Query().Get("email")),
		Limit:  limit,
		Offset: offset,
	}

	users, err := h.service.Search(r.Context(), actor, search)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ListUsersResponse{Users: make([]*UserResponse, 0, len(users)), Total: len(users)}
	for _, u := range users {
		resp.Users = append(resp.Users, userModelToResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateUser registers a new account. Admin only.
//
// @Summary Create user
// @Accept json
// @Param request body CreateUserRequest true "Create user request"
// @Produce json
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Create(r.Context(), actor, services.CreateUserInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		FirstName:            req.FirstName,
		PaternalSurname:      req.PaternalSurname,
		MaternalSurname:      req.MaternalSurname,
		Phone:                req.Phone,
		Role:                 req.Role,
		Active:               req.Active,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userModelToResponse(user))
}

// UpdateUser applies a partial update. Admin only.
//
// @Summary Update user
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), actor, id, services.UpdateUserInput{
		Email:                req.Email,
		FirstName:            req.FirstName,
		PaternalSurname:      req.PaternalSurname,
		MaternalSurname:      req.MaternalSurname,
		Phone:                req.Phone,
		Role:                 req.Role,
		Active:               req.Active,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userModelToResponse(user))
}

// DeactivateUser disables an account. Accounts are never hard-deleted.
//
// @Summary Deactivate user
// @Success 204
// @Router /users/{id} [delete]
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) exportAs(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := requireActor(w, r, h.ipConfig)
		if actor == nil {
			return
		}

		var buf bytes.Buffer
		if err := h.reports.ExportUsers(r.Context(), actor, format, &buf); err != nil {
			writeServiceError(w, err)
			return
		}
		writeAttachment(w, services.ExportFilename("users", format, h.now()), format, buf.Bytes())
	}
}

// writeAttachment sends a rendered export as a download.
func writeAttachment(w http.ResponseWriter, filename, format string, body []byte) {
	contentType := "text/csv; charset=utf-8"
	if format == services.FormatPDF {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
