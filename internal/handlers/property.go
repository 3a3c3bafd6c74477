package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/handlers/render"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/models"
)

type propertyService interface {
	Create(ctx context.Context, p models.Property) (models.Property, error)
	Get(ctx context.Context, id uuid.UUID) (models.Property, error)
	Update(ctx context.Context, id uuid.UUID, p models.Property) (models.Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Property, error)
}

type PropertyHandler struct {
	service propertyService
	logger  logger.Logger
}

func NewProperty(s propertyService, l logger.Logger) *PropertyHandler {
	return &PropertyHandler{service: s, logger: l}
}

type propertyRequest struct {
	Title      string  `json:"title" validate:"required,max=200"`
	Address    string  `json:"address" validate:"required,max=300"`
	Zone       string  `json:"zone" validate:"max=100"`
	Type       string  `json:"type" validate:"max=50"`
	SurfaceM2  float64 `json:"surface_m2" validate:"gte=0"`
	Rooms      int     `json:"rooms" validate:"gte=0"`
	PriceCents int64   `json:"price_cents" validate:"gte=0"`
	Notes      string  `json:"notes"`
}

func (req propertyRequest) toModel() models.Property {
	return models.Property{
		Title:      req.Title,
		Address:    req.Address,
		Zone:       req.Zone,
		Type:       req.Type,
		SurfaceM2:  req.SurfaceM2,
		Rooms:      req.Rooms,
		PriceCents: req.PriceCents,
		Notes:      req.Notes,
	}
}

type propertyResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	Zone       string    `json:"zone,omitempty"`
	Type       string    `json:"type,omitempty"`
	SurfaceM2  float64   `json:"surface_m2,omitempty"`
	Rooms      int       `json:"rooms,omitempty"`
	PriceCents int64     `json:"price_cents,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toPropertyResponse(p models.Property) propertyResponse {
	return propertyResponse{
		ID:         p.ID.String(),
		Title:      p.Title,
		Address:    p.Address,
		Zone:       p.Zone,
		Type:       p.Type,
		SurfaceM2:  p.SurfaceM2,
		Rooms:      p.Rooms,
		PriceCents: p.PriceCents,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[propertyRequest](w, r)
	if err != nil {
		return
	}

	created, err := h.service.Create(r.Context(), data.toModel())
	if err != nil {
		h.logger.Error("Property create failed", "error", err)
		render.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONStatus(w, toPropertyResponse(created), http.StatusCreated)
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.renderPropertyError(w, err)
		return
	}

	render.JSON(w, toPropertyResponse(p))
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	data, err := render.BindAndValidate[propertyRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.service.Update(r.Context(), id, data.toModel())
	if err != nil {
		h.renderPropertyError(w, err)
		return
	}

	render.JSON(w, toPropertyResponse(updated))
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.renderPropertyError(w, err)
		return
	}

	render.JSON(w, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	properties, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("Property list failed", "error", err)
		render.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]propertyResponse, 0, len(properties))
	for _, p := range properties {
		resp = append(resp, toPropertyResponse(p))
	}
	render.JSON(w, resp)
}

func (h *PropertyHandler) renderPropertyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPropertyNotFound):
		render.Error(w, "Property not found", http.StatusNotFound)
	default:
		h.logger.Error("Property operation failed", "error", err)
		render.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func propertyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.Error(w, "Invalid property id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
