package ticket_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tickets/qr"
	tickets "ms-checkin/internal/tickets/service"
	"ms-checkin/internal/tickets/template"
	"ms-checkin/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	QRGenerator   *qr.Generator
	PDFGenerator  *template.TicketPDFGenerator
	Logger        *logger.Logger
}

func NewHandler(svc *tickets.TicketService, qrGen *qr.Generator, pdfGen *template.TicketPDFGenerator, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: svc,
		QRGenerator:   qrGen,
		PDFGenerator:  pdfGen,
		Logger:        log,
	}
}

// IssueTickets handles POST /api/events/{eventId}/tickets with {"participantIds": [...]}.
func (h *Handler) IssueTickets(w http.ResponseWriter, r *http.Request) {
	var req models.IssueTicketsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	res, err := h.TicketService.IssueTickets(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "eventId"), req.ParticipantIDs)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) MarkSent(w http.ResponseWriter, r *http.Request) {
	t, err := h.TicketService.MarkSent(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) GetByToken(w http.ResponseWriter, r *http.Request) {
	t, err := h.TicketService.GetTicketByToken(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

// QRCode streams the ticket token as a PNG.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	t, _, err := h.TicketService.PrintableTicket(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	png, err := h.QRGenerator.PNG(t.Token)
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("QR for %s: %v", t.ID, err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// PDF renders a printable ticket.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	t, event, err := h.TicketService.PrintableTicket(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	png, err := h.QRGenerator.PNG(t.Token)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	doc, err := h.PDFGenerator.Generate(t, event, png)
	if err != nil {
		h.Logger.Error("TICKET", fmt.Sprintf("PDF for %s: %v", t.ID, err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="ticket-%s.pdf"`, t.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
