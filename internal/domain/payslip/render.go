package payslip

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"paie/internal/platform/money"
)

var sectionTitles = map[Section]string{
	SectionEarnings:   "Éléments de rémunération",
	SectionDeductions: "Retenues",
	SectionEmployer:   "Charges patronales",
}

// Render produces an A4 PDF payslip.
func Render(data Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Bulletin de paie "+data.Matricule+" "+data.Period), false)
	pdf.SetCreator(data.CompanyName, false)
	if !data.GeneratedAt.IsZero() {
		pdf.SetCreationDate(data.GeneratedAt)
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("BULLETIN DE PAIE"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Période : "+PeriodLabel(data.Period)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(95, 6, tr(data.CompanyName), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, tr(data.EmployeeName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	left := []string{data.CompanyAddress, "CNSS : " + data.CNSSNumber}
	right := []string{
		"Matricule : " + data.Matricule,
		"Poste : " + data.Position,
		"Service : " + data.Department,
		"Compte : " + data.BankAccount,
	}
	for i := 0; i < len(right); i++ {
		l := ""
		if i < len(left) {
			l = left[i]
		}
		pdf.CellFormat(95, 5, tr(l), "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 5, tr(right[i]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	var current Section
	for _, line := range Lines(data.Record.Input, data.Record.Result, data.Rates) {
		if line.Section != current {
			current = line.Section
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetFillColor(230, 230, 230)
			pdf.CellFormat(90, 7, tr(sectionTitles[current]), "1", 0, "L", true, 0, "")
			pdf.CellFormat(45, 7, "Base", "1", 0, "C", true, 0, "")
			pdf.CellFormat(20, 7, "Taux", "1", 0, "C", true, 0, "")
			pdf.CellFormat(35, 7, tr("Montant (GNF)"), "1", 1, "C", true, 0, "")
		}
		style := ""
		if line.Total {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(90, 6, tr(line.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, tr(line.Base), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, tr(line.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, money.Number(line.Amount), "1", 1, "R", false, 0, "")
	}

	if len(data.Record.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 4, tr(fmt.Sprintf("Points de contrôle : %v", data.Record.Warnings)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
