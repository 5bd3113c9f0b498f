package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aluiziolira/go-scrape-news/models"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

const sheetName = "Sheet1"

// ErrUnknownFormat is returned for an export format outside xlsx, csv, json.
var ErrUnknownFormat = errors.New("unknown export format")

// Columns returns the identity field followed by every other field in order
// of first appearance. Each record contributes its own fields sorted.
func Columns(records []models.Record, identity string) []string {
	cols := []string{identity}
	seen := map[string]struct{}{identity: {}}
	for _, rec := range records {
		for _, f := range rec.Fields() {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			cols = append(cols, f)
		}
	}
	return cols
}

// FormatFromPath infers the export format from a file extension.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Export writes a tabular snapshot of records to path. The file is written
// under a temporary name and renamed into place, so a failed export never
// leaves a partial snapshot behind.
func Export(records []models.Record, path, format, identity string) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	var write func(io.Writer, []models.Record, []string) error
	switch format {
	case FormatXLSX:
		write = writeXLSX
	case FormatCSV:
		write = writeCSV
	case FormatJSON:
		write = writeJSON
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp export: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := write(tmp, records, Columns(records, identity)); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	committed = true
	return nil
}

func row(rec models.Record, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = rec[c]
	}
	return out
}

func writeCSV(w io.Writer, records []models.Record, cols []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(row(rec, cols)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, records []models.Record, _ []string) error {
	if records == nil {
		records = []models.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, records []models.Record, cols []string) error {
	f := excelize.NewFile()
	defer f.Close()

	setRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(sheetName, cell, &cells)
	}

	if err := setRow(1, cols); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, rec := range records {
		if err := setRow(i+2, row(rec, cols)); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
