package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/finance-calculators/internal/evaluate"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/xuri/excelize/v2"
)

const maxSheetNameLength = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")",
)

// WriteXLSX saves the report as a workbook with one worksheet per sheet.
func WriteXLSX(path string, results []evaluate.Evaluation) error {
	f, err := buildWorkbook(results)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// XLSXFormat streams the workbook to w.
func XLSXFormat(w io.Writer, results []evaluate.Evaluation) error {
	f, err := buildWorkbook(results)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

func buildWorkbook(results []evaluate.Evaluation) (*excelize.File, error) {
	f := excelize.NewFile()
	const defaultSheet = "Sheet1"

	currencyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	used := make(map[string]bool)
	for i, result := range results {
		name := SheetName(result.Name, i, used)
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create worksheet %s: %w", name, err)
		}
		if err := writeEvaluation(f, name, result, currencyStyle); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write worksheet %s: %w", name, err)
		}
	}

	if len(results) > 0 && !used[strings.ToLower(defaultSheet)] {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			_ = f.Close()
			return nil, err
		}
		f.SetActiveSheet(0)
	}
	return f, nil
}

// SheetName turns a sheet name into a unique worksheet title that the
// spreadsheet format accepts.
func SheetName(name string, index int, used map[string]bool) string {
	title := strings.TrimSpace(sheetNameReplacer.Replace(name))
	if title == "" {
		title = fmt.Sprintf("Sheet %d", index+1)
	}
	if len(title) > maxSheetNameLength {
		title = title[:maxSheetNameLength]
	}
	base := title
	for n := 2; used[strings.ToLower(title)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		if len(base)+len(suffix) > maxSheetNameLength {
			base = base[:maxSheetNameLength-len(suffix)]
		}
		title = base + suffix
	}
	used[strings.ToLower(title)] = true
	return title
}

func writeEvaluation(f *excelize.File, sheet string, result evaluate.Evaluation, currencyStyle int) error {
	row := 1
	writeRow := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow("Calculator", calculatorLabel(result)); err != nil {
		return err
	}
	row++

	if err := writeRow("Input", "Value"); err != nil {
		return err
	}
	for _, key := range sortedKeys(result.Fields) {
		if err := writeRow(key, result.Fields[key]); err != nil {
			return err
		}
	}
	row++

	if err := writeRow("Result", "Value", "Unit"); err != nil {
		return err
	}
	for _, v := range result.Result.Values {
		if v.Unit == calc.UnitCurrency {
			cell, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellStyle(sheet, cell, cell, currencyStyle); err != nil {
				return err
			}
		}
		if err := writeRow(v.Key, v.Amount, string(v.Unit)); err != nil {
			return err
		}
	}
	for _, note := range result.Notes {
		if err := writeRow("Note", note); err != nil {
			return err
		}
	}

	for _, s := range result.Result.Series {
		row++
		header := []interface{}{s.Name}
		for _, key := range s.Keys {
			header = append(header, key)
		}
		if err := writeRow(header...); err != nil {
			return err
		}
		for _, point := range s.Points {
			values := []interface{}{point.Name}
			for _, key := range s.Keys {
				values = append(values, point.Values[key])
			}
			if err := writeRow(values...); err != nil {
				return err
			}
		}
	}

	if result.Insight != "" {
		row++
		if err := writeRow("Insight", result.Insight); err != nil {
			return err
		}
	}
	return nil
}
