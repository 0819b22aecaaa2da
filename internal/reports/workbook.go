// Package reports exports document listings as Excel workbooks.
package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a header row followed by data rows. When SumColumns
// is set, a totals row with SUM formulas is appended for those columns.
type Sheet struct {
	Name       string
	Headers    []string
	Widths     []float64
	Rows       [][]any
	SumColumns []int
}

// Workbook writes sheets in order and returns the .xlsx bytes.
func Workbook(sheets ...Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2F5233"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("reports: header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("reports: number style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("reports: totals style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return nil, fmt.Errorf("reports: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("reports: add sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, header, money, bold); err != nil {
			return nil, fmt.Errorf("reports: sheet %s: %w", sheet.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("reports: write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s Sheet, header, money, bold int) error {
	for i, h := range s.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(s.Name, cell, h); err != nil {
			return err
		}
		if i < len(s.Widths) {
			colName, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(s.Name, colName, colName, s.Widths[i]); err != nil {
				return err
			}
		}
	}
	if len(s.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(s.Headers), 1)
		if err := f.SetCellStyle(s.Name, "A1", last, header); err != nil {
			return err
		}
		if err := f.SetPanes(s.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
	}

	for r, values := range s.Rows {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if str, ok := v.(string); ok {
				v = sanitizeCell(str)
			}
			if err := f.SetCellValue(s.Name, cell, v); err != nil {
				return err
			}
			if _, ok := v.(float64); ok {
				if err := f.SetCellStyle(s.Name, cell, cell, money); err != nil {
					return err
				}
			}
		}
	}

	if len(s.SumColumns) == 0 || len(s.Rows) == 0 {
		return nil
	}
	totalRow := len(s.Rows) + 2
	label, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetCellValue(s.Name, label, "TOTAL"); err != nil {
		return err
	}
	for _, c := range s.SumColumns {
		colName, _ := excelize.ColumnNumberToName(c + 1)
		cell := fmt.Sprintf("%s%d", colName, totalRow)
		formula := fmt.Sprintf("SUM(%s2:%s%d)", colName, colName, totalRow-1)
		if err := f.SetCellFormula(s.Name, cell, formula); err != nil {
			return err
		}
		if err := f.SetCellStyle(s.Name, cell, cell, bold); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeCell stops spreadsheet applications from evaluating user text as a
// formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}
