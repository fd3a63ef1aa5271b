package participant_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	participants "ms-checkin/internal/participants/service"
	"ms-checkin/internal/utils"
)

const defaultPageSize = 20

type Handler struct {
	ParticipantService *participants.ParticipantService
	Logger             *logger.Logger
}

func NewHandler(svc *participants.ParticipantService, log *logger.Logger) *Handler {
	return &Handler{ParticipantService: svc, Logger: log}
}

// ListParticipants handles GET /api/events/{eventId}/participants?page=&pageSize=
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	pageSize, err := intQuery(r, "pageSize", defaultPageSize)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	out, err := h.ParticipantService.ListParticipants(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"), page, pageSize)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

// ImportParticipants handles POST /api/events/{eventId}/participants/import with {"rows": [...]}.
func (h *Handler) ImportParticipants(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	res, err := h.ParticipantService.ImportParticipants(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"), req.Rows)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var row models.ParticipantRow
	if err := utils.DecodeJSON(r, &row); err != nil {
		utils.WriteError(w, err)
		return
	}

	p, err := h.ParticipantService.RegisterParticipant(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"), row)
	if err != nil {
		if models.KindOf(err) == models.KindConflict {
			h.Logger.Info("PARTICIPANT", err.Error())
		}
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, p)
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrValidation, name)
	}
	return v, nil
}
