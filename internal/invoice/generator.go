package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"tax-portal/internal/entities"
	"tax-portal/pkg/config"
)

// Generator renders the bill of a completed request as a one page A4 PDF.
type Generator struct {
	firmName       string
	currencySymbol string
	paymentGrace   time.Duration
}

func NewGenerator(cfg config.BillingConfig) *Generator {
	return &Generator{
		firmName:       cfg.FirmName,
		currencySymbol: cfg.CurrencySymbol,
		paymentGrace:   cfg.PaymentGrace,
	}
}

func (g *Generator) FileName(req entities.ServiceRequest) string {
	return fmt.Sprintf("bill-%s-%s.pdf", req.Category, shortID(req.ID))
}

func (g *Generator) Generate(req entities.ServiceRequest) ([]byte, error) {
	if req.Bill == nil {
		return nil, fmt.Errorf("request %s has no bill", req.ID)
	}
	bill := req.Bill

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Bill "+shortID(req.ID), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(g.firmName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "BILL OF SERVICES", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	meta := [][2]string{
		{"Bill No.", strings.ToUpper(shortID(req.ID))},
		{"Request ID", req.ID},
		{"Issued", formatDate(bill.CreatedAt)},
		{"Payment due", formatDate(bill.DueAt(g.paymentGrace))},
	}
	for _, m := range meta {
		pdf.CellFormat(35, 6, m[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(m[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Billed to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{req.Submitter.Name, req.Submitter.Email, req.Submitter.Phone} {
		pdf.MultiCell(0, 5, tr(safeValue(line)), "", "L", false)
	}
	pdf.Ln(4)

	headers := []string{"Service", "Description", "Amount"}
	colWidths := []float64{55, 85, 40}
	drawTableRow(pdf, headers, colWidths, true)
	drawTableRow(pdf, []string{
		tr(req.Category.DisplayName() + " / " + req.ServiceType),
		tr(bill.Description),
		g.formatAmount(bill),
	}, colWidths, false)

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Total: "+g.formatAmount(bill), "", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	hours := int(g.paymentGrace.Hours())
	pdf.MultiCell(0, 5, fmt.Sprintf("Please pay within %d hours of issue, by %s.", hours, formatDate(bill.DueAt(g.paymentGrace))), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) formatAmount(bill *entities.Bill) string {
	return g.currencySymbol + " " + bill.Amount.StringFixed(2)
}

func drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006 15:04")
}
