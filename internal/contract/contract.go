// Package contract renders the rental/sale contract PDF for an order draft.
package contract

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/order"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

var ErrEmptyDraft = errors.New("contract needs a customer and at least one item")

type CompanyData struct {
	Name    string
	Address string
	Phone   string
}

type Data struct {
	Number   string
	IssuedAt time.Time
	Company  CompanyData
	Draft    order.Snapshot
}

// Filename is the download name for a contract.
func Filename(number string) string {
	if number == "" {
		return "contract.pdf"
	}
	return "contract-" + number + ".pdf"
}

// PDF renders the contract and returns the document bytes.
func PDF(d Data) ([]byte, error) {
	if d.Draft.Customer == nil || len(d.Draft.Items) == 0 {
		return nil, ErrEmptyDraft
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Contract "+d.Number, true)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	header(pdf, tr, d)
	parties(pdf, tr, d)
	terms(pdf, tr, d.Draft)
	itemsTable(pdf, tr, d.Draft)
	totals(pdf, tr, d.Draft)
	signatures(pdf, tr, d)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build contract: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write contract: %w", err)
	}
	return buf.Bytes(), nil
}

type translator func(string) string

func header(pdf *gofpdf.Fpdf, tr translator, d Data) {
	title := "Rental contract"
	if d.Draft.OrderType == resource.OrderTypeSale {
		title = "Sale contract"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	line := fmt.Sprintf("No. %s, issued %s", d.Number, d.IssuedAt.Format("02.01.2006"))
	pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
	pdf.Ln(6)
}

func parties(pdf *gofpdf.Fpdf, tr translator, d Data) {
	c := d.Draft.Customer

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(95, 7, tr("Provider"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Customer"), "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{d.Company.Name, c.FullName()},
		{d.Company.Address, "FIN: " + c.FIN},
		{d.Company.Phone, c.Phone},
		{"", c.Email},
	}
	for _, r := range rows {
		pdf.CellFormat(95, 6, tr(r[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func terms(pdf *gofpdf.Fpdf, tr translator, s order.Snapshot) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr("Terms"), "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	period := s.StartDate
	if s.OrderType != resource.OrderTypeSale && s.EndDate != "" {
		period = s.StartDate + " - " + s.EndDate
	}
	rows := [][2]string{
		{"Order type", s.OrderType.String()},
		{"Period", period},
		{"Payment", s.PaymentType},
	}
	for _, r := range rows {
		pdf.CellFormat(40, 6, tr(r[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func itemsTable(pdf *gofpdf.Fpdf, tr translator, s order.Snapshot) {
	widths := []float64{12, 35, 95, 20, 28}
	heads := []string{"#", "Code", "Item", "Qty", "Unit price"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range heads {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for i, it := range s.Items {
		pdf.CellFormat(widths[0], 6, fmt.Sprint(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(it.Code), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(it.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, it.UnitPrice.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func totals(pdf *gofpdf.Fpdf, tr translator, s order.Snapshot) {
	money := func(v decimal.Decimal) string {
		if s.Quote.Currency == "" {
			return v.StringFixed(2)
		}
		return v.StringFixed(2) + " " + s.Quote.Currency
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(150, 6, tr("Total"), "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, tr(money(s.Quote.Total)), "", 1, "R", false, 0, "")
	if s.OrderType != resource.OrderTypeSale {
		pdf.CellFormat(150, 6, tr("Deposit"), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, tr(money(s.Quote.Deposit)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(16)
}

func signatures(pdf *gofpdf.Fpdf, tr translator, d Data) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(80, 6, "", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 6, "", "B", 1, "L", false, 0, "")
	pdf.CellFormat(80, 6, tr(d.Company.Name), "", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 6, tr(d.Draft.Customer.FullName()), "", 1, "C", false, 0, "")
}
