package event_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/auth"
	events "ms-checkin/internal/events/service"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func NewHandler(svc *events.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: svc, Logger: log}
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.EventService.ListEvents(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.GetEvent(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.EventService.CreateEvent(r.Context(), auth.UserFromContext(r.Context()), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.Publish(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.Finish(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}
