package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/drillstock/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

var kindLabels = map[model.MovementKind]string{
	model.KindIncome:           "Приход",
	model.KindIssueToWorker:    "Выдача работнику",
	model.KindReturnFromWorker: "Возврат от работника",
	model.KindWriteOffEstimate: "Списание по смете",
	model.KindWriteOffContract: "Списание по договору",
	model.KindAdjustment:       "Корректировка",
	model.KindWriteOffWorker:   "Списание с работника",
}

// History renders movement log rows, newest first as given.
func (g *Generator) History(rows []model.MovementView) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := "Движения"
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Дата",
		"Операция",
		"Товар",
		"Работник",
		"Количество",
		"Остаток после",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}
	if err := boldRow(file, sheet, len(headers), 1); err != nil {
		return nil, err
	}

	for i, row := range rows {
		r := i + 2
		set(fmt.Sprintf("A%d", r), formatDateTime(row.Timestamp))
		set(fmt.Sprintf("B%d", r), movementLabel(row.MovementType))
		set(fmt.Sprintf("C%d", r), row.ProductName)
		set(fmt.Sprintf("D%d", r), row.WorkerName)
		set(fmt.Sprintf("E%d", r), round3(row.Quantity))
		set(fmt.Sprintf("F%d", r), round3(row.StockAfter))
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "B", 36)
	_ = file.SetColWidth(sheet, "C", "D", 32)
	_ = file.SetColWidth(sheet, "E", "F", 14)
	return write(file)
}

// WorkerStock renders what a worker currently holds.
func (g *Generator) WorkerStock(worker *model.Worker, lines []model.CustodyLine) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := sanitizeSheetName(worker.Name)
	if runes := []rune(sheet); len(runes) > 31 {
		sheet = string(runes[:31])
	}
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Работник")
	set("B1", worker.Name)
	set("A2", "Дата выгрузки")
	set("B2", formatDateTime(time.Now()))
	set("A3", "Позиций на руках")
	set("B3", len(lines))

	tableRow := 5
	headers := []string{"Товар", "Ед. изм.", "Количество"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	if err := boldRow(file, sheet, len(headers), tableRow); err != nil {
		return nil, err
	}

	for i, line := range lines {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), line.ProductName)
		set(fmt.Sprintf("B%d", row), string(line.Unit))
		set(fmt.Sprintf("C%d", row), line.OnHand)
	}

	_ = file.SetColWidth(sheet, "A", "A", 45)
	_ = file.SetColWidth(sheet, "B", "B", 10)
	_ = file.SetColWidth(sheet, "C", "C", 16)
	return write(file)
}

func boldRow(file *excelize.File, sheet string, cols, row int) error {
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	return file.SetCellStyle(sheet, first, last, style)
}

func write(file *excelize.File) ([]byte, error) {
	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func movementLabel(t model.MovementType) string {
	if t.IsCancellation() {
		return "Отмена: " + kindLabel(t.Reverses)
	}
	return kindLabel(t.Kind)
}

func kindLabel(kind model.MovementKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return string(kind)
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Лист"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return "Лист"
	}
	return value
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
