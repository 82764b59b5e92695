package quotations

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CompanyInfo is the letterhead block printed at the top of every quotation
// document. Sourced from configuration.
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// PDFRenderer turns a quotation into a printable A4 document.
type PDFRenderer struct {
	company CompanyInfo
	printer *message.Printer
}

func NewPDFRenderer(company CompanyInfo) *PDFRenderer {
	return &PDFRenderer{
		company: company,
		printer: message.NewPrinter(language.English),
	}
}

func (r *PDFRenderer) money(v float64) string {
	return r.printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Render produces the PDF bytes for a quotation with its line items.
func (r *PDFRenderer) Render(q *Quotation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, r.company.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if r.company.Address != "" {
		pdf.CellFormat(0, 5, r.company.Address, "", 1, "L", false, 0, "")
	}
	contact := r.company.Phone
	if r.company.Email != "" {
		if contact != "" {
			contact += " | "
		}
		contact += r.company.Email
	}
	if contact != "" {
		pdf.CellFormat(0, 5, contact, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "QUOTATION", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Ref: "+q.RefNo, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+q.CreatedAt.Format("02 Jan 2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Customer: "+q.CustomerName, "", 1, "L", false, 0, "")
	if q.CustomerAddress != nil && *q.CustomerAddress != "" {
		pdf.CellFormat(0, 6, "Address: "+*q.CustomerAddress, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Quote For: "+q.QuoteFor, "", 1, "L", false, 0, "")
	if q.ProjectTitle != nil && *q.ProjectTitle != "" {
		pdf.CellFormat(0, 6, "Project: "+*q.ProjectTitle, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(70, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Unit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, item := range q.Items {
		pdf.CellFormat(10, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 7, item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, item.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, r.money(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, r.money(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, r.money(item.TotalPrice), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 10)
	r.totalRow(pdf, "Subtotal", q.Subtotal, false)
	r.totalRow(pdf, fmt.Sprintf("Discount (%s%%)", r.money(q.DiscountPercent)), -q.DiscountAmount, false)
	r.totalRow(pdf, fmt.Sprintf("VAT (%s%%)", r.money(q.VATPercent)), q.VATAmount, false)
	r.totalRow(pdf, "Grand Total", q.GrandTotal, true)

	if q.Notes != nil && *q.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, *q.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) totalRow(pdf *gofpdf.Fpdf, label string, amount float64, bold bool) {
	if bold {
		pdf.SetFont("Arial", "B", 10)
	}
	pdf.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, r.money(amount), "", 1, "R", false, 0, "")
	if bold {
		pdf.SetFont("Arial", "", 10)
	}
}
