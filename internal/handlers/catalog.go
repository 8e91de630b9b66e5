package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	pkghttp "github.com/BradenHooton/swgfv/pkg/http"
)

// CatalogService defines the interface for equipment and irradiance catalogs
type CatalogService interface {
	ListPanels(ctx context.Context) ([]*models.SolarPanel, error)
	GetPanel(ctx context.Context, id int64) (*models.SolarPanel, error)
	SavePanel(ctx context.Context, actor *models.Actor, p *models.SolarPanel) (*models.UpsertOutcome, error)
	DeletePanel(ctx context.Context, actor *models.Actor, id int64) error

	ListInverters(ctx context.Context) ([]*models.Inverter, error)
	GetInverter(ctx context.Context, id int64) (*models.Inverter, error)
	SaveInverter(ctx context.Context, actor *models.Actor, inv *models.Inverter) (*models.UpsertOutcome, error)
	DeleteInverter(ctx context.Context, actor *models.Actor, id int64) error

	ListMicroInverters(ctx context.Context) ([]*models.MicroInverter, error)
	GetMicroInverter(ctx context.Context, id int64) (*models.MicroInverter, error)
	SaveMicroInverter(ctx context.Context, actor *models.Actor, m *models.MicroInverter) (*models.UpsertOutcome, error)
	DeleteMicroInverter(ctx context.Context, actor *models.Actor, id int64) error

	ListIrradiance(ctx context.Context) ([]*models.Irradiance, error)
	GetIrradiance(ctx context.Context, id int64) (*models.Irradiance, error)
	SaveIrradiance(ctx context.Context, actor *models.Actor, irr *models.Irradiance) (*models.UpsertOutcome, error)
	DeleteIrradiance(ctx context.Context, actor *models.Actor, id int64) error
}

// CatalogHandler serves the catalog tables. Reads are open to every signed-in
// user; writes require the admin role.
type CatalogHandler struct {
	service  CatalogService
	ipConfig *pkghttp.IPConfig
}

func NewCatalogHandler(service CatalogService, ipConfig *pkghttp.IPConfig) *CatalogHandler {
	return &CatalogHandler{service: service, ipConfig: ipConfig}
}

// DTOs

type PanelPayload struct {
	ID       int64    `json:"id,omitempty"`
	ModuleID int64    `json:"module_id" validate:"required,gt=0"`
	Brand    string   `json:"brand" validate:"required,max=100"`
	Model    string   `json:"model" validate:"required,max=100"`
	PowerW   float64  `json:"power_w" validate:"gt=0"`
	Voc      *float64 `json:"voc,omitempty" validate:"omitempty,gte=0"`
	Isc      *float64 `json:"isc,omitempty" validate:"omitempty,gte=0"`
	Vmp      *float64 `json:"vmp,omitempty" validate:"omitempty,gte=0"`
	Imp      *float64 `json:"imp,omitempty" validate:"omitempty,gte=0"`
}

type InverterPayload struct {
	ID            int64   `json:"id,omitempty"`
	Brand         string  `json:"brand" validate:"required,max=100"`
	Model         string  `json:"model" validate:"required,max=100"`
	PowerW        float64 `json:"power_w" validate:"gte=0"`
	OutputVoltage string  `json:"output_voltage" validate:"max=50"`
}

type MicroInverterPayload struct {
	ID       int64   `json:"id,omitempty"`
	Brand    string  `json:"brand" validate:"required,max=100"`
	Model    string  `json:"model" validate:"required,max=100"`
	PowerW   float64 `json:"power_w" validate:"gte=0"`
	Channels int     `json:"channels" validate:"gte=1"`
}

type IrradiancePayload struct {
	ID      int64       `json:"id,omitempty"`
	City    string      `json:"city" validate:"required,max=100"`
	State   string      `json:"state" validate:"max=100"`
	Region  string      `json:"region" validate:"max=100"`
	Tariff  string      `json:"tariff" validate:"max=20"`
	Average float64     `json:"average" validate:"gte=0"`
	Monthly [12]float64 `json:"monthly"`
}

type SaveResponse struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

func panelToPayload(p *models.SolarPanel) PanelPayload {
	return PanelPayload{ID: p.ID, ModuleID: p.ModuleID, Brand: p.Brand, Model: p.Model, PowerW: p.PowerW, Voc: p.Voc, Isc: p.Isc, Vmp: p.Vmp, Imp: p.Imp}
}

func inverterToPayload(inv *models.Inverter) InverterPayload {
	return InverterPayload{ID: inv.ID, Brand: inv.Brand, Model: inv.Model, PowerW: inv.PowerW, OutputVoltage: inv.OutputVoltage}
}

func microInverterToPayload(m *models.MicroInverter) MicroInverterPayload {
	return MicroInverterPayload{ID: m.ID, Brand: m.Brand, Model: m.Model, PowerW: m.PowerW, Channels: m.Channels}
}

func irradianceToPayload(irr *models.Irradiance) IrradiancePayload {
	return IrradiancePayload{ID: irr.ID, City: irr.City, State: irr.State, Region: irr.Region, Tariff: irr.Tariff, Average: irr.Average, Monthly: irr.Monthly}
}

// RegisterRoutes mounts /catalog. Write routes sit behind RequireAdmin.
func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Route("/catalog", func(r chi.Router) {
		r.Get("/panels", listHandler(h.service.ListPanels, panelToPayload))
		r.Get("/panels/{id}", getHandler(h.service.GetPanel, panelToPayload))
		r.Get("/inverters", listHandler(h.service.ListInverters, inverterToPayload))
		r.Get("/inverters/{id}", getHandler(h.service.GetInverter, inverterToPayload))
		r.Get("/microinverters", listHandler(h.service.ListMicroInverters, microInverterToPayload))
		r.Get("/microinverters/{id}", getHandler(h.service.GetMicroInverter, microInverterToPayload))
		r.Get("/irradiance", listHandler(h.service.ListIrradiance, irradianceToPayload))
		r.Get("/irradiance/{id}", getHandler(h.service.GetIrradiance, irradianceToPayload))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Post("/panels", saveHandler(h, h.service.SavePanel, func(p PanelPayload) *models.SolarPanel {
				return &models.SolarPanel{ModuleID: p.ModuleID, Brand: p.Brand, Model: p.Model, PowerW: p.PowerW, Voc: p.Voc, Isc: p.Isc, Vmp: p.Vmp, Imp: p.Imp}
			}))
			r.Delete("/panels/{id}", deleteHandler(h, h.service.DeletePanel))

			r.Post("/inverters", saveHandler(h, h.service.SaveInverter, func(p InverterPayload) *models.Inverter {
				return &models.Inverter{Brand: p.Brand, Model: p.Model, PowerW: p.PowerW, OutputVoltage: p.OutputVoltage}
			}))
			r.Delete("/inverters/{id}", deleteHandler(h, h.service.DeleteInverter))

			r.Post("/microinverters", saveHandler(h, h.service.SaveMicroInverter, func(p MicroInverterPayload) *models.MicroInverter {
				return &models.MicroInverter{Brand: p.Brand, Model: p.Model, PowerW: p.PowerW, Channels: p.Channels}
			}))
			r.Delete("/microinverters/{id}", deleteHandler(h, h.service.DeleteMicroInverter))

			r.Post("/irradiance", saveHandler(h, h.service.SaveIrradiance, func(p IrradiancePayload) *models.Irradiance {
				return &models.Irradiance{City: p.City, State: p.State, Region: p.Region, Tariff: p.Tariff, Average: p.Average, Monthly: p.Monthly}
			}))
			r.Delete("/irradiance/{id}", deleteHandler(h, h.service.DeleteIrradiance))
		})
	})
}

func listHandler[T any, P any](list func(context.Context) ([]*T, error), conv func(*T) P) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]P, 0, len(items))
		for _, item := range items {
			out = append(out, conv(item))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items": out,
			"total": len(out),
		})
	}
}

func getHandler[T any, P any](get func(context.Context, int64) (*T, error), conv func(*T) P) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		item, err := get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv(item))
	}
}

// saveHandler upserts by the catalog's natural key and answers 201 when a row
// was inserted, 200 when an existing one was replaced.
func saveHandler[T any, P any](h *CatalogHandler, save func(context.Context, *models.Actor, *T) (*models.UpsertOutcome, error), conv func(P) *T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := requireActor(w, r, h.ipConfig)
		if actor == nil {
			return
		}

		var req P
		if !decodeAndValidate(w, r, &req) {
			return
		}

		outcome, err := save(r.Context(), actor, conv(req))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		status := http.StatusOK
		if outcome.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, SaveResponse{ID: outcome.ID, Created: outcome.Created})
	}
}

func deleteHandler(h *CatalogHandler, del func(context.Context, *models.Actor, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := requireActor(w, r, h.ipConfig)
		if actor == nil {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := del(r.Context(), actor, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
