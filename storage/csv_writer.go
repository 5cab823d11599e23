package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"metro-housing/models"
)

// CSVWriter writes table rows to a CSV file. Missing cells are written as
// empty fields.
type CSVWriter struct {
	file    *os.File
	writer  *csv.Writer
	columns int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string, columns []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	return &CSVWriter{file: f, writer: w, columns: len(columns)}, nil
}

// WriteRows appends rows to the file.
func (c *CSVWriter) WriteRows(rows [][]models.Cell) error {
	if err := writeRows(c.writer, c.columns, rows); err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return c.file.Close()
}

// SaveCSV writes the whole table to path, header first.
func SaveCSV(path string, t *models.Table) error {
	w, err := NewCSVWriter(path, t.Columns)
	if err != nil {
		return err
	}
	if err := w.WriteRows(t.Rows); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// EncodeCSV renders the table as CSV to any writer.
func EncodeCSV(out io.Writer, t *models.Table) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := writeRows(w, len(t.Columns), t.Rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeRows(w *csv.Writer, width int, rows [][]models.Cell) error {
	record := make([]string, width)
	for _, r := range rows {
		for i := range record {
			record[i] = ""
			if i < len(r) && r[i].Valid {
				record[i] = r[i].String
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	return nil
}
