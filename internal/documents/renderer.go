package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 20.0
	lineHeight = 6.0
	fontFamily = "Helvetica"
	producer   = "Dividify"
)

// Renderer draws vouchers and minutes as A4 PDFs.
type Renderer struct {
	now func() time.Time
}

// NewRenderer builds a Renderer; now pins the PDF creation date and the printed generation time.
func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// RenderVoucher produces the voucher PDF for one dividend payment.
func (r *Renderer) RenderVoucher(snap Snapshot, paymentDate time.Time, voucherNumber int64) ([]byte, error) {
	generatedAt := r.now().UTC()
	content, err := BuildVoucherContent(snap, paymentDate, voucherNumber, generatedAt)
	if err != nil {
		return nil, err
	}

	pdf, tr := newDocument(generatedAt, "Dividend Voucher "+content.VoucherNumber)
	drawHeading(pdf, tr, content.CompanyName, content.RegistrationNumber, content.CompanyAddress)

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, tr("DIVIDEND VOUCHER"), "", 1, "C", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, lineHeight, tr("Voucher No. "+content.VoucherNumber), "", 1, "C", false, 0, "")
	pdf.Ln(lineHeight)

	rows := [][2]string{
		{"Shareholder", content.ShareholderName},
		{"Address", content.ShareholderAddress},
		{"Share class", content.ShareClass},
		{"Shares held", content.NumberOfShares},
		{"Dividend per share", content.AmountPerShare},
		{"Total dividend", content.TotalAmount},
		{"Payment date", content.PaymentDate},
	}
	for _, row := range rows {
		drawField(pdf, tr, row[0], row[1])
	}

	pdf.Ln(lineHeight)
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, lineHeight, tr(content.Declaration), "", "L", false)
	pdf.Ln(lineHeight * 2)
	drawSignature(pdf, tr, "Director")
	drawFooter(pdf, tr, content.GeneratedAt)

	return output(pdf)
}

// RenderMinutes produces the board minutes PDF declaring the dividend.
func (r *Renderer) RenderMinutes(snap Snapshot, paymentDate time.Time) ([]byte, error) {
	generatedAt := r.now().UTC()
	content, err := BuildMinutesContent(snap, paymentDate, generatedAt)
	if err != nil {
		return nil, err
	}

	pdf, tr := newDocument(generatedAt, "Board Minutes "+content.MeetingDate)
	drawHeading(pdf, tr, content.CompanyName, content.RegistrationNumber, content.CompanyAddress)

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, tr("MINUTES OF A MEETING OF THE BOARD OF DIRECTORS"), "", 1, "C", false, 0, "")
	pdf.Ln(lineHeight)

	drawField(pdf, tr, "Date", content.MeetingDate)
	drawField(pdf, tr, "Present", strings.Join(content.Attendees, ", "))
	pdf.Ln(lineHeight)

	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, lineHeight, tr("Resolutions"), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	for i, resolution := range content.Resolutions {
		pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("%d. %s", i+1, resolution)), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(lineHeight)
	pdf.MultiCell(0, lineHeight, tr("There being no further business, the meeting was closed."), "", "L", false)
	pdf.Ln(lineHeight * 2)
	drawSignature(pdf, tr, "Chair")
	drawFooter(pdf, tr, content.GeneratedAt)

	return output(pdf)
}

func newDocument(generatedAt time.Time, title string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title, true)
	pdf.SetCreator(producer, true)
	pdf.SetProducer(producer, true)
	pdf.AddPage()
	// Core fonts are cp1252; the translator maps "£" and other non-ASCII runes.
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func drawHeading(pdf *fpdf.Fpdf, tr func(string) string, company, regNo, address string) {
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, 8, tr(company), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	if regNo != "" {
		pdf.CellFormat(0, 5, tr("Company No. "+regNo), "", 1, "L", false, 0, "")
	}
	if address != "" {
		pdf.MultiCell(0, 5, tr(address), "", "L", false)
	}
	y := pdf.GetY() + 3
	width, _ := pdf.GetPageSize()
	pdf.Line(pageMargin, y, width-pageMargin, y)
	pdf.SetY(y + 6)
}

func drawField(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(50, lineHeight+1, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, lineHeight+1, tr(value), "", "L", false)
}

func drawSignature(pdf *fpdf.Fpdf, tr func(string) string, role string) {
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, lineHeight, tr("Signed: ______________________________"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(role), "", 1, "L", false, 0, "")
}

func drawFooter(pdf *fpdf.Fpdf, tr func(string) string, generatedAt string) {
	pdf.Ln(lineHeight * 2)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.CellFormat(0, 5, tr("Generated automatically by Dividify on "+generatedAt), "", 1, "L", false, 0, "")
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
