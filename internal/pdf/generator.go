package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/nurpe/drillstock/internal/model"
)

const utf8FontName = "QuoteFont"

// ErrUnsupportedText is returned when the core font cannot encode the
// document text, e.g. Cyrillic names without PDF_FONT_PATH configured.
var ErrUnsupportedText = errors.New("text not representable in the core pdf font")

type Generator struct {
	fontName string
	fontData []byte
}

// NewGenerator loads the UTF-8 font at fontPath. An empty path renders with
// core Helvetica, which only covers Latin-1 text.
func NewGenerator(fontPath string) (*Generator, error) {
	if strings.TrimSpace(fontPath) == "" {
		return &Generator{fontName: "Helvetica"}, nil
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	return &Generator{fontName: utf8FontName, fontData: data}, nil
}

// Quote renders a priced drilling contract as a one-page document.
func (g *Generator) Quote(contract *model.Contract, breakdown *model.RevenueBreakdown) ([]byte, error) {
	if g.fontData == nil {
		texts := []string{contract.Number, contract.ClientName, contract.Location}
		for _, line := range breakdown.Lines {
			texts = append(texts, line.Name, line.Unit)
		}
		if err := coreEncodable(texts...); err != nil {
			return nil, err
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)

	tr := func(s string) string { return s }
	if g.fontData != nil {
		pdf.AddUTF8FontFromBytes(g.fontName, "", g.fontData)
		pdf.AddUTF8FontFromBytes(g.fontName, "B", g.fontData)
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Drilling quote"), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Contract No. %s of %s", contract.Number, formatDate(contract.ContractDate))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, tr("Client"), "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	for _, line := range []string{
		contract.ClientName,
		fmt.Sprintf("Location: %s", safeValue(contract.Location)),
		fmt.Sprintf("Estimated depth: %s m", optionalAmount(contract.EstimatedDepth, 1)),
	} {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	headers := []string{"Item", "Unit", "Qty", "Price", "Sum"}
	colWidths := []float64{85, 15, 25, 25, 30}
	drawTableRow(pdf, g.fontName, tr, headers, colWidths, true)

	for _, line := range breakdown.Lines {
		sum := "-"
		if line.Sum != nil {
			sum = formatAmount(*line.Sum, 2)
		}
		drawTableRow(pdf, g.fontName, tr, []string{
			line.Name,
			line.Unit,
			formatAmount(line.Quantity, 2),
			formatAmount(line.Price, 2),
			sum,
		}, colWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Drilling: %s", formatAmount(breakdown.DrillingBilled, 2))), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Pipes: %s", formatAmount(breakdown.PipeCostRetail, 2))), "", 1, "R", false, 0, "")
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Total: %s", formatAmount(breakdown.Total, 2))), "", 1, "R", false, 0, "")

	if breakdown.MinApplied {
		pdf.SetFont(g.fontName, "", 10)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("Drilling billed at the minimum price of %s.", formatAmount(breakdown.AppliedMinPrice, 2))), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Client: ______________________ /%s/", safeValue(contract.ClientName))), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coreEncodable checks that every rune fits cp1252, the encoding the core
// font translator targets.
func coreEncodable(texts ...string) error {
	for _, text := range texts {
		for _, r := range text {
			if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
				return fmt.Errorf("%w: %q", ErrUnsupportedText, text)
			}
		}
	}
	return nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func optionalAmount(value *float64, precision int) string {
	if value == nil {
		return "-"
	}
	return formatAmount(*value, precision)
}

func formatAmount(value float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
