package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/BradenHooton/swgfv/internal/models"
)

const (
	dateLayout = "2006-01-02 15:04"
	fontFamily = "Helvetica"
	lineHeight = 7.0
)

// ProjectReport is everything printed on a project report. Sizing, Panel and
// Irradiance are nil when the project was never sized.
type ProjectReport struct {
	Project    *models.Project
	Sizing     *models.Sizing
	Panel      *models.SolarPanel
	Irradiance *models.Irradiance
}

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string, generatedAt time.Time) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("swgfv", true)
	pdf.SetAutoPageBreak(true, 15)
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s - page %d", generatedAt.UTC().Format(dateLayout), pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, d.tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	return d
}

func (d *document) heading(text string) {
	d.pdf.Ln(3)
	d.pdf.SetFont(fontFamily, "B", 12)
	d.pdf.CellFormat(0, lineHeight+1, d.tr(text), "B", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *document) field(label, value string) {
	d.pdf.SetFont(fontFamily, "B", 10)
	d.pdf.CellFormat(55, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont(fontFamily, "", 10)
	d.pdf.CellFormat(0, lineHeight, d.tr(value), "", 1, "L", false, 0, "")
}

func (d *document) table(widths []float64, header []string, rows [][]string) {
	d.pdf.SetFont(fontFamily, "B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		d.pdf.CellFormat(widths[i], lineHeight, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont(fontFamily, "", 9)
	for _, row := range rows {
		for i, v := range row {
			d.pdf.CellFormat(widths[i], lineHeight, d.tr(v), "1", 0, "L", false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) write(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// UsersPDF renders the user directory as a table.
func UsersPDF(w io.Writer, users []*models.User, generatedAt time.Time) error {
	d := newDocument("Users", generatedAt)

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		active := "no"
		if u.Active {
			active = "yes"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", u.ID), u.FullName(), u.Email, u.Role, active})
	}
	d.table([]float64{15, 60, 65, 25, 20}, []string{"ID", "Name", "Email", "Role", "Active"}, rows)
	return d.write(w)
}

// ProjectPDF renders a project with its latest sizing result.
func ProjectPDF(w io.Writer, r ProjectReport, generatedAt time.Time) error {
	p := r.Project
	d := newDocument(fmt.Sprintf("Project %d: %s", p.ID, p.Name), generatedAt)

	d.heading("Project")
	d.field("Owner", p.OwnerEmail)
	d.field("Company", p.Company)
	d.field("Address", p.Address)
	d.field("Coordinates", p.Coordinates)
	d.field("Nominal voltage", p.NominalVoltage)
	d.field("Phases", fmt.Sprintf("%d", p.Phases))

	if r.Sizing == nil {
		d.heading("Sizing")
		d.field("Status", "not calculated")
		return d.write(w)
	}

	in, res := r.Sizing.Input, r.Sizing.Result
	d.heading("Sizing input")
	d.field("Billing mode", in.BillingMode)
	d.field("Efficiency", formatNumber(in.Efficiency))
	if r.Panel != nil {
		d.field("Panel", fmt.Sprintf("%s %s (%s W)", r.Panel.Brand, r.Panel.Model, formatNumber(r.Panel.PowerW)))
	}
	if r.Irradiance != nil {
		d.field("Location", fmt.Sprintf("%s, %s", r.Irradiance.City, r.Irradiance.State))
	}
	d.field("Average consumption", formatNumber(res.AverageConsumption)+" kWh")

	d.heading("Result")
	d.field("Reference yield", formatNumber(res.ReferenceYield)+" kWh")
	d.field("Panels", fmt.Sprintf("%d", res.PanelCount))
	d.field("Installed capacity", formatNumber(res.CapacityKW)+" kW")
	d.field("Annual generation", formatNumber(res.AnnualGeneration)+" kWh")
	d.field("Calculated at", res.CalculatedAt.UTC().Format(dateLayout))

	rows := make([][]string, 0, len(res.Periods))
	for i, period := range res.Periods {
		consumption := ""
		if i < len(in.Consumption) {
			consumption = formatNumber(in.Consumption[i])
		}
		rows = append(rows, []string{period.Label, consumption, formatNumber(period.KWh)})
	}
	d.pdf.Ln(2)
	d.table([]float64{70, 55, 55}, []string{"Period", "Consumption (kWh)", "Generation (kWh)"}, rows)

	return d.write(w)
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
