// Package export renders back-office records as spreadsheet workbooks.
//
// Each resource has a formatter that turns records into a Table. WriteXLSX
// writes one sheet per table with a bold, frozen and filterable header row.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of the rendered workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

// Table is one worksheet worth of rows.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// Filename builds an attachment name such as "parcels-20250301.xlsx".
func Filename(resource string, at time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", resource, at.UTC().Format("20060102"))
}

// WriteXLSX renders the tables as worksheets of a single workbook.
func WriteXLSX(w io.Writer, tables ...Table) (err error) {
	if len(tables) == 0 {
		return errors.New("export: no tables")
	}
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	seen := make(map[string]bool, len(tables))
	for i, t := range tables {
		name := sheetName(t.Sheet, i)
		if seen[name] {
			return fmt.Errorf("export: duplicate sheet %q", name)
		}
		seen[name] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, t, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, name string, t Table, headerStyle int) error {
	if len(t.Headers) == 0 {
		return errors.New("no headers")
	}
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(t.Headers))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(name, cell, &r); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(len(t.Headers), len(t.Rows)+1)
	if err != nil {
		return err
	}
	if err := f.AutoFilter(name, "A1:"+bottom, nil); err != nil {
		return err
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	for i, h := range t.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(len(h) + 4)
		if width < 12 {
			width = 12
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// sheetName trims names to the 31 characters Excel allows and strips the
// characters it rejects.
func sheetName(name string, index int) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
