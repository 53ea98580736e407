// Package export writes the flat per-run result file.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"visahunt-engine/internal/domain"
)

var Header = []string{"Job Title", "Company/Site", "Country", "Link", "Status"}

// WriteCSV replaces path with one row per record, atomically.
func WriteCSV(path string, records []domain.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		_ = tmp.Close()
		return err
	}
	for _, r := range records {
		p := r.Posting
		if err := w.Write([]string{p.Title, p.SourceID, p.Country, p.Link, r.Application.Status.Label()}); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
