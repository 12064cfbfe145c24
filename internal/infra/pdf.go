package infra

// pdf.go — competence statement generation using go-pdf/fpdf.
// Renders one row per competence month with the net totals for each
// recipient, plus a grand-total footer.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cotaflow/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GerarExtratoPDF writes the aggregated report to storagePath (created if
// needed) and returns the absolute path of the generated file.
func GerarExtratoPDF(rel *dto.RelatorioResponse, filter dto.RelatorioFilter, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("extrato_%s.pdf", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Extrato de Comissões por Competência", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Gerado em "+time.Now().Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")

	filtros := describeFiltros(filter)
	if filtros != "" {
		pdf.CellFormat(contentW, 5, filtros, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// ── Table header ──────────────────────────────────────────────────────────
	colComp := contentW * 0.16
	colQtd := contentW * 0.12
	colVal := contentW * 0.18

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colComp, 7, "Competência", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQtd, 7, "Parcelas", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colVal, 7, "Consultor", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "Gerente", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "Anjo", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "Total", "B", 1, "R", false, 0, "")

	// ── Rows ──────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	for _, b := range rel.PorMes {
		pdf.CellFormat(colComp, 6, b.Competencia, "", 0, "L", false, 0, "")
		pdf.CellFormat(colQtd, 6, fmt.Sprintf("%d", b.Parcelas), "", 0, "C", false, 0, "")
		pdf.CellFormat(colVal, 6, "R$ "+b.Totais.Consultor.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colVal, 6, "R$ "+b.Totais.Gerente.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colVal, 6, "R$ "+b.Totais.Anjo.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colVal, 6, "R$ "+b.Totais.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colComp+colQtd, 7, "TOTAL GERAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(colVal, 7, "R$ "+rel.Totais.Consultor.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "R$ "+rel.Totais.Gerente.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "R$ "+rel.Totais.Anjo.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(colVal, 7, "R$ "+rel.Totais.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 6, "Valor base das parcelas pagas: R$ "+rel.TotalVendido.StringFixed(2), "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

func describeFiltros(filter dto.RelatorioFilter) string {
	s := ""
	if filter.Competencia != "" {
		s += "Competência: " + filter.Competencia + "  "
	}
	if filter.Destinatario != "" {
		s += "Destinatário: " + filter.Destinatario + "  "
	}
	if filter.DataInicio != "" || filter.DataFim != "" {
		s += "Período: " + filter.DataInicio + " a " + filter.DataFim
	}
	return s
}
