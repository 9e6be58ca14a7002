package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

func writeXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(sheetName, "A1", t.Title); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return nil, err
	}

	row := 3
	if err := setRow(f, row, headerCells(t.Headers)); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Headers), row)
	if err := f.SetCellStyle(sheetName, "A3", last, bold); err != nil {
		return nil, err
	}

	for _, r := range append(t.Rows, t.Footer) {
		row++
		if err := setRow(f, row, r); err != nil {
			return nil, err
		}
		for col, v := range r {
			if _, ok := v.(decimal.Decimal); ok {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellStyle(sheetName, cell, cell, money); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 32); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, cells []any) error {
	values := make([]any, len(cells))
	for i, v := range cells {
		switch c := v.(type) {
		case decimal.Decimal:
			values[i] = c.InexactFloat64()
		case time.Time:
			if c.IsZero() {
				values[i] = ""
			} else {
				values[i] = c.Format("2006-01-02 15:04")
			}
		default:
			values[i] = v
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func headerCells(headers []string) []any {
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

func writeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := make([][]string, 0, len(t.Rows)+2)
	records = append(records, t.Headers)
	for _, r := range append(t.Rows, t.Footer) {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = formatCell(v)
		}
		records = append(records, rec)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
