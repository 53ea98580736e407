package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"visahunt-engine/internal/domain"
)

// Header is the tracker's first row. The trailing ID column ties a row to
// its posting so later appends update the status in place.
var Header = []string{"Job Title", "Company/Site", "Country", "Link", "Status", "ID"}

const (
	statusCol = 5
	idCol     = 6
)

// XLSX is a spreadsheet tracker with one row per posting. Changes are kept
// in memory and written on Close.
type XLSX struct {
	path  string
	sheet string

	mu    sync.Mutex
	f     *excelize.File
	rows  map[string]int
	next  int
	dirty bool
}

func OpenXLSX(path, sheet string) (*XLSX, error) {
	if sheet == "" {
		sheet = "Job Tracker"
	}
	x := &XLSX{path: path, sheet: sheet, rows: map[string]int{}}

	f, err := excelize.OpenFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
			return nil, err
		}
		x.next, x.dirty = 2, true
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", path, err)
	default:
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		for i, r := range rows {
			if i > 0 && len(r) >= idCol && r[idCol-1] != "" {
				x.rows[r[idCol-1]] = i + 1
			}
		}
		x.next = max(len(rows), 1) + 1
	}
	x.f = f
	return x, nil
}

func (x *XLSX) Append(ctx context.Context, p domain.JobPosting, a domain.ApplicationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if row, ok := x.rows[p.ID]; ok {
		cell, err := excelize.CoordinatesToCellName(statusCol, row)
		if err != nil {
			return err
		}
		x.dirty = true
		return x.f.SetCellValue(x.sheet, cell, a.Status.Label())
	}

	row := x.next
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := []any{p.Title, p.SourceID, p.Country, p.Link, a.Status.Label(), p.ID}
	if err := x.f.SetSheetRow(x.sheet, cell, &values); err != nil {
		return err
	}
	x.rows[p.ID] = row
	x.next++
	x.dirty = true
	return nil
}

// Close writes pending changes through a temp file and releases the workbook.
func (x *XLSX) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.f == nil {
		return nil
	}
	defer func() {
		_ = x.f.Close()
		x.f = nil
	}()
	if !x.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return err
	}
	tmp := x.path + ".tmp.xlsx"
	if err := x.f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w", x.path, err)
	}
	return os.Rename(tmp, x.path)
}
