package checkin_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/access"
	"ms-checkin/internal/auth"
	checkin "ms-checkin/internal/checkin/service"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/utils"
)

type Handler struct {
	CheckinService *checkin.CheckinService
	Feed           *sse.CheckinEventEmitter
	Heartbeat      time.Duration
	Logger         *logger.Logger
}

func NewHandler(svc *checkin.CheckinService, feed *sse.CheckinEventEmitter, log *logger.Logger) *Handler {
	return &Handler{CheckinService: svc, Feed: feed, Heartbeat: 25 * time.Second, Logger: log}
}

// Confirm handles POST /api/checkins with {"token": "...", "deviceInfo": "..."}.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req models.CheckinRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	c, err := h.CheckinService.ConfirmCheckin(r.Context(), auth.UserFromContext(r.Context()), req.Token, req.DeviceInfo)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, c)
}

// Stream pushes every confirmed check-in of the event to the client until it disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if err := access.Require(auth.UserFromContext(r.Context()), access.CanViewReports); err != nil {
		utils.WriteError(w, err)
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		utils.WriteError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	eventID := chi.URLParam(r, "eventId")
	events := h.Feed.Subscribe(r.Context(), eventID)

	sse.SetupHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := sse.WriteEvent(w, "connected", map[string]string{"event_id": eventID}); err != nil {
		return
	}
	h.Logger.Debug("SSE", fmt.Sprintf("Client subscribed to %s (%d watching)", eventID, h.Feed.ClientCount(eventID)))

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.WriteEvent(w, "checkin", ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		}
	}
}
