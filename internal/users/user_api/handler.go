package user_api

import (
	"net/http"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	users "ms-checkin/internal/users/service"
	"ms-checkin/internal/utils"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

func NewHandler(svc *users.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: svc, Logger: log}
}

// Login handles POST /api/auth/login with body {"email": "..."}.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	resp, err := h.UserService.Login(r.Context(), req.Email)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated user with its resolved permissions.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		utils.WriteError(w, models.ErrUnauthenticated)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}
