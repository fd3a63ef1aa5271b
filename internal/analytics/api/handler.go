package analytics_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/analytics"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/utils"
)

// Handler serves the reporting endpoints of an event.
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the reports under /api/events/{eventId}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/checkins/hourly", h.CheckinsByHour)
	r.Get("/summary", h.EventSummary)
}

func (h *Handler) CheckinsByHour(w http.ResponseWriter, r *http.Request) {
	series, err := h.Service.CheckinsByHour(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, series)
}

func (h *Handler) EventSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.EventSummary(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}
