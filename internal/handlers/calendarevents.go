package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/handlers/render"
	"github.com/tasaciones/crm-backend/internal/logger"
)

const defaultCalendarID = "primary"

type calendarAdapter interface {
	ListEvents(ctx context.Context, uid string, calendarID string, from time.Time, to time.Time) ([]*calendar.Event, error)
	InsertEvent(ctx context.Context, uid string, calendarID string, event *calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, uid string, calendarID string, eventID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, uid string, calendarID string, eventID string) error
}

type CalendarEventsHandler struct {
	adapter calendarAdapter
	logger  logger.Logger
}

func NewCalendarEvents(a calendarAdapter, l logger.Logger) *CalendarEventsHandler {
	return &CalendarEventsHandler{adapter: a, logger: l}
}

// Event fields the dashboard reads and writes. Times travel as RFC 3339.
type eventResponse struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	HTMLLink    string `json:"htmlLink,omitempty"`
	Status      string `json:"status,omitempty"`
}

type eventRequest struct {
	UID         string    `json:"uid" validate:"required"`
	CalendarID  string    `json:"calendar_id"`
	Summary     string    `json:"summary" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
}

func (req eventRequest) toEvent() *calendar.Event {
	return &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
	}
}

func toEventResponse(ev *calendar.Event) eventResponse {
	resp := eventResponse{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		HTMLLink:    ev.HtmlLink,
		Status:      ev.Status,
	}
	if ev.Start != nil {
		resp.Start = ev.Start.DateTime
	}
	if ev.End != nil {
		resp.End = ev.End.DateTime
	}
	return resp
}

// List serves GET /api/calendar/events?uid=...&from=...&to=...
func (h *CalendarEventsHandler) List(w http.ResponseWriter, r *http.Request) {
	type ListResponse struct {
		Success bool            `json:"success"`
		Events  []eventResponse `json:"events"`
	}

	uid := r.URL.Query().Get("uid")
	if uid == "" {
		render.Error(w, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	if !uidAllowed(w, r, uid, h.logger) {
		return
	}

	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	events, err := h.adapter.ListEvents(r.Context(), uid, calendarIDParam(r), from, to)
	if err != nil {
		h.renderCalendarError(w, uid, err)
		return
	}

	resp := ListResponse{Success: true, Events: make([]eventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, toEventResponse(ev))
	}
	render.JSON(w, resp)
}

// Insert serves POST /api/calendar/events
func (h *CalendarEventsHandler) Insert(w http.ResponseWriter, r *http.Request) {
	data, err := render.BindAndValidate[eventRequest](w, r)
	if err != nil {
		return
	}
	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	created, err := h.adapter.InsertEvent(r.Context(), data.UID, orDefault(data.CalendarID), data.toEvent())
	if err != nil {
		h.renderCalendarError(w, data.UID, err)
		return
	}

	render.JSON(w, struct {
		Success bool          `json:"success"`
		Event   eventResponse `json:"event"`
	}{Success: true, Event: toEventResponse(created)})
}

// Update serves PUT /api/calendar/events/{id}
func (h *CalendarEventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		render.Error(w, "Invalid request parameters", http.StatusBadRequest)
		return
	}

	data, err := render.BindAndValidate[eventRequest](w, r)
	if err != nil {
		return
	}
	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	updated, err := h.adapter.UpdateEvent(r.Context(), data.UID, orDefault(data.CalendarID), eventID, data.toEvent())
	if err != nil {
		h.renderCalendarError(w, data.UID, err)
		return
	}

	render.JSON(w, struct {
		Success bool          `json:"success"`
		Event   eventResponse `json:"event"`
	}{Success: true, Event: toEventResponse(updated)})
}

// Delete serves DELETE /api/calendar/events/{id}?uid=...
func (h *CalendarEventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	uid := r.URL.Query().Get("uid")
	if eventID == "" || uid == "" {
		render.Error(w, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	if !uidAllowed(w, r, uid, h.logger) {
		return
	}

	if err := h.adapter.DeleteEvent(r.Context(), uid, calendarIDParam(r), eventID); err != nil {
		h.renderCalendarError(w, uid, err)
		return
	}

	render.JSON(w, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (h *CalendarEventsHandler) renderCalendarError(w http.ResponseWriter, uid string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrIntegrationNotFound):
		render.Error(w, "No calendar integration found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrNoRefreshToken):
		render.Error(w, "No refresh token available. Re-auth required.", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrSignedOut):
		// Token was valid locally but rejected upstream: tell the client
		// to drop its signed-in state, do not retry here
		h.logger.Warn("Calendar access revoked upstream", "uid", uid)
		render.Error(w, "Calendar authorization rejected. Sign in again.", http.StatusUnauthorized)
	default:
		h.logger.Error("Calendar operation failed", "uid", uid, "error", err)
		render.ErrorDetails(w, "Calendar operation failed", err.Error(), http.StatusInternalServerError)
	}
}

func calendarIDParam(r *http.Request) string {
	return orDefault(r.URL.Query().Get("calendar_id"))
}

func orDefault(calendarID string) string {
	if calendarID == "" {
		return defaultCalendarID
	}
	return calendarID
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		render.ErrorDetails(w, "Invalid request parameters", name+" must be RFC 3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}
