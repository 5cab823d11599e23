package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"metro-housing/models"
	"metro-housing/services"
	"metro-housing/utils"
)

// KeyColumn is the normalized name of the postal key in tabular sources.
const KeyColumn = "zip_code"

// Loader reads file-based sources into normalized tables.
type Loader struct {
	logger *utils.Logger
	// Comma is the field delimiter for delimited files. Defaults to ','.
	Comma rune
	// MedianIncome backs the income column of demographics workbooks that
	// have none, keyed by ZIP code.
	MedianIncome map[string]string
}

// NewLoader creates a Loader with the given logger.
func NewLoader(logger *utils.Logger) *Loader {
	return &Loader{logger: logger, Comma: ','}
}

// LoadCSV reads a delimited file, lower-cases and underscores its header and
// normalizes the zip_code column when present. Empty fields load as missing
// cells. Any I/O or parse failure returns a nil table.
func (l *Loader) LoadCSV(path string) (*models.Table, error) {
	l.logger.Info("[loader] Loading CSV data from %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := l.readDelimited(f)
	if err != nil {
		return nil, fmt.Errorf("loader: parse %q: %w", path, err)
	}

	if missing := services.NormalizeKeyColumn(t, KeyColumn); missing > 0 {
		l.logger.Warn("[loader] %s: %d rows have no usable %s", path, missing, KeyColumn)
	}

	l.logger.Info("[loader] Loaded %d rows × %d columns from %s", t.Len(), len(t.Columns), path)
	return t, nil
}

func (l *Loader) readDelimited(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = l.Comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = services.NormalizeColumnName(header[i])
	}

	t := models.NewTable(header...)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]models.Cell, len(record))
		for i, v := range record {
			row[i] = models.OptStr(v)
		}
		t.Append(row...)
	}
	return t, nil
}
