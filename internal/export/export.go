// Package export renders the admin sales report as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"storefront/internal/domain"
	"storefront/internal/services"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	stampLayout = "2006-01-02 15:04:05"
)

var salesHeaders = []string{
	"Invoice", "Date", "Customer", "Email", "Items", "Subtotal", "Tax", "Total", "Payment method", "Status",
}

// Filename names the download for a report generated at t.
func Filename(t time.Time) string {
	return "sales-report-" + t.UTC().Format("20060102-150405") + ".xlsx"
}

// SalesReport writes the Summary and Sales sheets to w.
func SalesReport(w io.Writer, rep *services.SalesReport, generatedAt time.Time) error {
	file := xlsx.NewFile()
	if err := summarySheet(file, rep, generatedAt); err != nil {
		return err
	}
	if err := salesSheet(file, rep.Sales); err != nil {
		return err
	}
	return file.Write(w)
}

func summarySheet(file *xlsx.File, rep *services.SalesReport, generatedAt time.Time) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("export: summary sheet: %w", err)
	}
	p := message.NewPrinter(language.English)
	pair := func(label string, v any) {
		row := sheet.AddRow()
		row.AddCell().SetValue(label)
		row.AddCell().SetValue(v)
	}

	pair("Generated", generatedAt.UTC().Format(stampLayout))
	pair("Period", period(rep.Filter))
	pair("Sales", rep.Stats.Count)
	pair("Revenue", p.Sprintf("$%.2f", rep.Stats.Revenue))
	pair("Average sale", p.Sprintf("$%.2f", rep.Stats.Average))
	pair("Largest sale", p.Sprintf("$%.2f", rep.Stats.Max))
	pair("Smallest sale", p.Sprintf("$%.2f", rep.Stats.Min))
	pair("Line items", rep.Stats.ItemsTotal)

	sheet.AddRow()
	pair("Status", "Sales")
	for _, b := range rep.ByStatus {
		pair(b.Status, b.Count)
	}

	sheet.AddRow()
	pair("Payment method", "Total")
	for _, b := range rep.ByPaymentMethod {
		pair(b.Method, p.Sprintf("$%.2f (%d)", b.Total, b.Count))
	}

	sheet.AddRow()
	pair("Top product", "Units")
	for _, ps := range rep.TopProducts {
		pair(ps.Name, ps.Quantity)
	}
	return nil
}

func salesSheet(file *xlsx.File, sales []domain.ReportRow) error {
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("export: sales sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, h := range salesHeaders {
		header.AddCell().SetValue(h)
	}
	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().SetValue(s.InvoiceNumber)
		row.AddCell().SetValue(s.CreatedAt.UTC().Format(stampLayout))
		row.AddCell().SetValue(s.UserName)
		row.AddCell().SetValue(s.UserEmail)
		row.AddCell().SetInt(s.ItemCount)
		row.AddCell().SetFloatWithFormat(s.Subtotal, "0.00")
		row.AddCell().SetFloatWithFormat(s.Tax, "0.00")
		row.AddCell().SetFloatWithFormat(s.Total, "0.00")
		row.AddCell().SetValue(s.PaymentMethod)
		row.AddCell().SetValue(s.Status)
	}
	return nil
}

func period(f domain.ReportFilter) string {
	from, to := "beginning", "now"
	if f.From != nil {
		from = f.From.UTC().Format("2006-01-02")
	}
	if f.To != nil {
		to = f.To.UTC().Format("2006-01-02")
	}
	return from + " to " + to
}
