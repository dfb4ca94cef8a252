package invoicing

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/voltera-ev/evscgo/internal/models"
)

var hundred = decimal.NewFromInt(100)

// GeneratePDF renders an invoice with its lines as a printable A4 PDF
func GeneratePDF(invoice *models.Invoice, customer *models.Customer) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice No: %s", invoice.InvoiceNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", invoice.CreatedAt.Format("2006-01-02")), "", 1, "L", false, 0, "")
	if customer != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Billed to: %s", customer.Name), "", 1, "L", false, 0, "")
		if customer.Email != "" {
			pdf.CellFormat(0, 6, customer.Email, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	// Table header
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range invoice.Lines {
		pdf.CellFormat(90, 8, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, line.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, line.LineTotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(145, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, invoice.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(145, 7, fmt.Sprintf("VAT (%s%%)", invoice.VATRate.Mul(hundred).StringFixed(0)), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, invoice.VAT.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(145, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, invoice.Total.StringFixed(2), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
