package template

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"

	"ms-checkin/internal/models"
)

type TicketPDFGenerator struct {
	FontPath string
}

func NewTicketPDFGenerator(fontPath string) *TicketPDFGenerator {
	return &TicketPDFGenerator{FontPath: fontPath}
}

// Generate lays out a single A4 ticket with the participant, the event and the QR code.
func (g *TicketPDFGenerator) Generate(ticket *models.Ticket, event *models.Event, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("ticket", g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont("ticket", "", 14); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	addHeader(pdf, event)

	pdf.SetY(110)
	addTicketInfo(pdf, ticket, event)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrCode)
	}

	pdf.SetY(760)
	addFooter(pdf, ticket)

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, event *models.Event) {
	r, g, b := hexColor(event.Brand.PrimaryColor)
	pdf.SetFillColor(r, g, b)
	pdf.RectFromUpperLeftWithStyle(0, 0, gopdf.PageSizeA4.W, 80, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(40, 30)
	pdf.Cell(nil, event.Name)
	pdf.SetTextColor(0, 0, 0)
}

func addTicketInfo(pdf *gopdf.GoPdf, ticket *models.Ticket, event *models.Event) {
	name, email := "", ""
	if ticket.Participant != nil {
		name, email = ticket.Participant.FullName, ticket.Participant.Email
	}
	info := []struct {
		Label string
		Value string
	}{
		{"Participant", name},
		{"Email", email},
		{"Location", event.Location},
		{"Starts", event.StartAt.Format("2006-01-02 15:04 MST")},
		{"Ticket", ticket.ID},
	}

	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(22)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 180, H: 180}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), rect); err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf, ticket *models.Ticket) {
	pdf.SetX(40)
	pdf.Cell(nil, "Present this code at the entrance. Code: "+ticket.Token)
}

// hexColor parses #rrggbb, falling back to a dark slate.
func hexColor(s string) (uint8, uint8, uint8) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%2x%2x%2x", &r, &g, &b); err != nil {
		return 0x33, 0x41, 0x55
	}
	return r, g, b
}
