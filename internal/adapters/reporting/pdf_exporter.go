package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// PDFExporter exports run reports to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportRunReport generates a PDF from a run report
func (e *PDFExporter) ExportRunReport(report *domain.RunReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addStatistics(pdf, report)
	e.addSourceBreakdown(pdf, report)
	e.addTopRisks(pdf, report)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.RunReport) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, report.Metadata.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", report.Metadata.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")

	pdf.Ln(8)
}

// addStatistics adds the dataset statistics overview
func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.RunReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Dataset Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Total Records", fmt.Sprintf("%d", report.Stats.Total), []int{0, 102, 204}},
		{"Exploited in the Wild", fmt.Sprintf("%d", report.Exploited), []int{0, 102, 204}},
		{"Critical", fmt.Sprintf("%d", report.Stats.Critical), []int{220, 53, 69}},
		{"High", fmt.Sprintf("%d", report.Stats.High), []int{255, 149, 0}},
		{"Medium", fmt.Sprintf("%d", report.Stats.Medium), []int{255, 204, 0}},
		{"Low", fmt.Sprintf("%d", report.Stats.Low), []int{52, 199, 89}},
		{"High Unpatched", fmt.Sprintf("%d", report.HighUnpatched), []int{220, 53, 69}},
		{"Critical with PoC", fmt.Sprintf("%d", report.CriticalWithPoC), []int{220, 53, 69}},
		{"Severity Unknown", fmt.Sprintf("%d", report.Stats.Unknown), []int{150, 150, 150}},
		{"Unresolved Documents", fmt.Sprintf("%d", report.Unresolved), []int{150, 150, 150}},
	}

	// Display in 2 columns
	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}

		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}

	pdf.Ln(10)
}

// addSourceBreakdown adds the per-source ingestion table
func (e *PDFExporter) addSourceBreakdown(pdf *gofpdf.Fpdf, report *domain.RunReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Source Breakdown", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.PerSource) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No source statistics recorded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(50, 8, "Source", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Fetched", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Merged", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Diverted", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, name := range sortedSourceNames(report.PerSource) {
		stats := report.PerSource[name]
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(50, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", stats.Fetched), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", stats.Merged), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", stats.Diverted), "1", 0, "C", false, 0, "")
		status := "ok"
		if stats.Error != "" {
			status = "failed"
			pdf.SetTextColor(220, 53, 69)
		}
		pdf.CellFormat(30, 7, status, "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

// addTopRisks adds the top risks table
func (e *PDFExporter) addTopRisks(pdf *gofpdf.Fpdf, report *domain.RunReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Top Risks", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.TopRisks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No ranked risks in this run", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(15, 8, "Rank", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 8, "CVE", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Sources", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "PoCs", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, risk := range report.TopRisks {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}

		r, g, b := e.getSeverityColor(risk.Severity)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", risk.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, risk.CVEID, "1", 0, "L", false, 0, "")

		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(30, 7, risk.Severity, "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		score := "-"
		if risk.Score > 0 {
			score = fmt.Sprintf("%.1f", risk.Score)
		}
		pdf.CellFormat(25, 7, score, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", risk.Sources), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", risk.PoCs), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

// getSeverityColor returns RGB color based on severity
func (e *PDFExporter) getSeverityColor(severity string) (r, g, b int) {
	switch severity {
	case "CRITICAL":
		return 220, 53, 69 // Red
	case "HIGH":
		return 255, 149, 0 // Orange
	case "MEDIUM":
		return 255, 204, 0 // Yellow
	default:
		return 52, 199, 89 // Green
	}
}

// addFooter adds the report footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.RunReport) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	id := report.Metadata.ID
	if len(id) > 8 {
		id = id[:8]
	}
	footerText := fmt.Sprintf("Generated by %s | Run ID: %s", report.Metadata.GeneratedBy, id)
	pdf.CellFormat(0, 5, footerText, "", 1, "C", false, 0, "")
}

func sortedSourceNames(perSource map[string]domain.SourceStats) []string {
	names := make([]string, 0, len(perSource))
	for name := range perSource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
