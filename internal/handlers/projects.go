package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/services"
	"github.com/BradenHooton/swgfv/internal/sizing"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// ProjectService defines the interface for project business logic
type ProjectService interface {
	Create(ctx context.Context, actor *models.Actor, in services.ProjectInput) (*models.Project, error)
	List(ctx context.Context, actor *models.Actor, search models.ProjectSearch) ([]*models.Project, error)
	Get(ctx context.Context, actor *models.Actor, id int64) (*models.Project, error)
	Update(ctx context.Context, actor *models.Actor, id int64, in services.ProjectInput) (*models.Project, error)
	Delete(ctx context.Context, actor *models.Actor, id int64) error
}

// SizingService defines the interface for the module sizing calculator
type SizingService interface {
	Calculate(ctx context.Context, actor *models.Actor, req services.SizingRequest) (*models.Sizing, error)
	Get(ctx context.Context, actor *models.Actor, projectID int64) (*models.Sizing, error)
}

// ProjectHandler handles project and sizing HTTP requests
type ProjectHandler struct {
	projects ProjectService
	sizings  SizingService
	reports  Reporter
	ipConfig *pkghttp.IPConfig
	now      func() time.Time
}

func NewProjectHandler(projects ProjectService, sizings SizingService, reports Reporter, ipConfig *pkghttp.IPConfig) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		sizings:  sizings,
		reports:  reports,
		ipConfig: ipConfig,
		now:      time.Now,
	}
}

type ProjectRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Company        string `json:"company" validate:"max=200"`
	Address        string `json:"address" validate:"max=500"`
	Coordinates    string `json:"coordinates" validate:"max=100"`
	NominalVoltage string `json:"nominal_voltage" validate:"max=50"`
	Phases         int    `json:"phases" validate:"required,gte=1,lte=3"`
}

func (req ProjectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Name:           req.Name,
		Company:        req.Company,
		Address:        req.Address,
		Coordinates:    req.Coordinates,
		NominalVoltage: req.NominalVoltage,
		Phases:         req.Phases,
	}
}

type ProjectResponse struct {
	ID             int64  `json:"id"`
	OwnerID        int64  `json:"owner_id"`
	OwnerEmail     string `json:"owner_email,omitempty"`
	Name           string `json:"name"`
	Company        string `json:"company,omitempty"`
	Address        string `json:"address,omitempty"`
	Coordinates    string `json:"coordinates,omitempty"`
	NominalVoltage string `json:"nominal_voltage,omitempty"`
	Phases         int    `json:"phases"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type ListProjectsResponse struct {
	Projects []*ProjectResponse `json:"projects"`
	Total    int                `json:"total"`
}

func projectToResponse(p *models.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		OwnerEmail:     p.OwnerEmail,
		Name:           p.Name,
		Company:        p.Company,
		Address:        p.Address,
		Coordinates:    p.Coordinates,
		NominalVoltage: p.NominalVoltage,
		Phases:         p.Phases,
		CreatedAt:      p.CreatedAt.Format(timeLayout),
		UpdatedAt:      p.UpdatedAt.Format(timeLayout),
	}
}

// SizingRequest is the sizing form. Consumption is keyed by billing period:
// m01..m12 for monthly billing, b1..b6 for bimonthly.
type SizingRequest struct {
	BillingMode  string             `json:"billing_mode" validate:"required,billing_mode"`
	PanelID      int64              `json:"panel_id" validate:"required,gt=0"`
	IrradianceID int64              `json:"irradiance_id" validate:"required,gt=0"`
	Efficiency   float64            `json:"efficiency" validate:"efficiency"`
	Consumption  map[string]float64 `json:"consumption" validate:"required"`
}

type SizingInputResponse struct {
	BillingMode  string             `json:"billing_mode"`
	PanelID      int64              `json:"panel_id"`
	IrradianceID int64              `json:"irradiance_id"`
	Efficiency   float64            `json:"efficiency"`
	Consumption  map[string]float64 `json:"consumption"`
	UpdatedAt    string             `json:"updated_at"`
}

type SizingResultResponse struct {
	AverageConsumption float64                   `json:"average_consumption"`
	ReferenceYield     float64                   `json:"reference_yield"`
	PanelCount         int                       `json:"panel_count"`
	CapacityKW         float64                   `json:"capacity_kw"`
	Periods            []models.PeriodGeneration `json:"periods"`
	AnnualGeneration   float64                   `json:"annual_generation"`
	CalculatedAt       string                    `json:"calculated_at"`
}

type SizingResponse struct {
	ProjectID int64                `json:"project_id"`
	Input     SizingInputResponse  `json:"input"`
	Result    SizingResultResponse `json:"result"`
}

func sizingToResponse(s *models.Sizing) *SizingResponse {
	consumption := make(map[string]float64, len(s.Input.Consumption))
	for i, p := range sizing.Periods(sizing.BillingMode(s.Input.BillingMode)) {
		if i < len(s.Input.Consumption) {
			consumption[p.Key] = s.Input.Consumption[i]
		}
	}

	return &SizingResponse{
		ProjectID: s.Input.ProjectID,
		Input: SizingInputResponse{
			BillingMode:  s.Input.BillingMode,
			PanelID:      s.Input.PanelID,
			IrradianceID: s.Input.IrradianceID,
			Efficiency:   s.Input.Efficiency,
			Consumption:  consumption,
			UpdatedAt:    s.Input.UpdatedAt.Format(timeLayout),
		},
		Result: SizingResultResponse{
			AverageConsumption: s.Result.AverageConsumption,
			ReferenceYield:     s.Result.ReferenceYield,
			PanelCount:         s.Result.PanelCount,
			CapacityKW:         s.Result.CapacityKW,
			Periods:            s.Result.Periods,
			AnnualGeneration:   s.Result.AnnualGeneration,
			CalculatedAt:       s.Result.CalculatedAt.Format(timeLayout),
		},
	}
}

// RegisterRoutes registers all project routes with the chi router
func (h *ProjectHandler) RegisterRoutes(router chi.Router) {
	router.Route("/projects", func(r chi.Router) {
		r.Post("/", h.CreateProject)
		r.Get("/", h.ListProjects)
		r.Get("/{id}", h.GetProject)
		r.Put("/{id}", h.UpdateProject)
		r.Delete("/{id}", h.DeleteProject)

		r.Post("/{id}/sizing", h.SubmitSizing)
		r.Get("/{id}/sizing", h.GetSizing)
		r.Get("/{id}/report.pdf", h.Report)
	})
}

// @Router /projects [post]
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	var req ProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.projects.Create(r.Context(), actor, req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectToResponse(p))
}

// ListProjects lists the projects visible to the caller
// @Param name query string false "Name substring"
// @Param company query string false "Company substring"
// @Param owner_id query int false "Owner (admin only)"
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}

	id, err := queryInt64(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	owner, err := queryInt64(r, "owner_id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit, offset := paging(r, 50, 200)

	projects, err := h.projects.List(r.Context(), actor, models.ProjectSearch{
		ID:      id,
		OwnerID: owner,
		Name:    strings.TrimSpace(r.URL.Query().Get("name")),
		Company: strings.TrimSpace(r.URL.Query().Get("company")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ListProjectsResponse{Projects: make([]*ProjectResponse, 0, len(projects)), Total: len(projects)}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, projectToResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.projects.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(p))
}

// @Router /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.projects.Update(r.Context(), actor, id, req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToResponse(p))
}

// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitSizing runs the calculator and stores the latest result for the project.
// @Accept json
// @Param request body SizingRequest true "Sizing form"
// @Success 200 {object} SizingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /projects/{id}/sizing [post]
func (h *ProjectHandler) SubmitSizing(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req SizingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.sizings.Calculate(r.Context(), actor, services.SizingRequest{
		ProjectID:    id,
		BillingMode:  req.BillingMode,
		PanelID:      req.PanelID,
		IrradianceID: req.IrradianceID,
		Efficiency:   req.Efficiency,
		Consumption:  req.Consumption,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sizingToResponse(result))
}

// GetSizing returns the stored sizing so the form can be pre-filled.
// @Router /projects/{id}/sizing [get]
func (h *ProjectHandler) GetSizing(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.sizings.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sizingToResponse(result))
}

// Report downloads the project summary as PDF.
// @Produce application/pdf
// @Router /projects/{id}/report.pdf [get]
func (h *ProjectHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r, h.ipConfig)
	if actor == nil {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ProjectReport(r.Context(), actor, id, &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	name := services.ExportFilename(fmt.Sprintf("project-%d", id), services.FormatPDF, h.now())
	writeAttachment(w, name, services.FormatPDF, buf.Bytes())
}
