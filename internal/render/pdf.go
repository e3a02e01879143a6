// Package render turns an invoice payload into the PDF artifact. Rendering
// is pure CPU work: no I/O, no shared state.
package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/invoiceforge/backend/internal/models"
)

const (
	headerFontSize = 14
	bodyFontSize   = 11
	lineHeight     = 8 // mm
)

// PDF renders the invoice as an A4 document: header block, one line per
// item, then the total. With watermark set, a large rotated DEMO stamp is
// drawn behind the text.
func PDF(req *models.InvoiceRequest, watermark bool) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	if watermark {
		stampDemo(doc)
	}

	doc.SetFont("Helvetica", "B", headerFontSize)
	doc.CellFormat(0, lineHeight, fmt.Sprintf("Invoice #: %s", req.InvoiceNumber), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", bodyFontSize)
	doc.CellFormat(0, lineHeight, fmt.Sprintf("Client: %s", req.ClientName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, fmt.Sprintf("Email: %s", req.ClientEmail), "", 1, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, fmt.Sprintf("Due Date: %s", req.DueDate), "", 1, "L", false, 0, "")
	doc.Ln(lineHeight)

	for _, item := range req.Items {
		line := fmt.Sprintf("%s - %s x $%s", item.Description, num(item.Quantity), num(item.UnitPrice))
		doc.CellFormat(0, lineHeight, line, "", 1, "L", false, 0, "")
	}

	doc.Ln(lineHeight)
	doc.SetFont("Helvetica", "B", bodyFontSize)
	doc.CellFormat(0, lineHeight, fmt.Sprintf("Total: $%s", num(req.Total())), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func stampDemo(doc *fpdf.Fpdf) {
	doc.SetFont("Helvetica", "B", 80)
	doc.SetTextColor(225, 225, 225)
	doc.TransformBegin()
	doc.TransformRotate(45, 105, 148)
	doc.Text(55, 160, "DEMO")
	doc.TransformEnd()
	doc.SetTextColor(0, 0, 0)
}

// num prints a JSON number the way it came in: no trailing zeros, no forced
// decimals ("100", "99.5").
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
