package sources

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"metro-housing/models"
	"metro-housing/services"
)

// zctaPrefix marks census ZCTA headers; the key starts at len(zctaPrefix).
const zctaPrefix = "ZCTA5 "

// demographicLabels maps census category labels to output column names.
var demographicLabels = map[string]string{
	"White":                                      "white_households",
	"Black or African American":                  "black_or_african_american_households",
	"American Indian and Alaska Native":          "american_indian_alaska_native_households",
	"Asian":                                      "asian_households",
	"Native Hawaiian and Other Pacific Islander": "pacific_islander_households",
	"Some other race":                            "other_race_households",
	"Two or more races":                          "mixed_race_households",
	"Hispanic or Latino origin (of any race)":    "hispanic_or_latino_households",
	"Median Income":                              "median_income",
}

// LoadDemographics loads the demographics source. A .csv path goes through
// LoadCSV; anything else is read as a spreadsheet laid out with one category
// per row and one ZCTA per column, and is transposed to one row per ZIP.
// When the sheet has no "Median Income" row the column is filled from
// l.MedianIncome.
func (l *Loader) LoadDemographics(path string) (*models.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return l.LoadCSV(path)
	}

	l.logger.Info("[loader] Loading demographics workbook %s", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open workbook %q: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("loader: read sheet: %w", err)
	}

	t, err := transposeDemographics(rows)
	if err != nil {
		return nil, fmt.Errorf("loader: reshape %q: %w", path, err)
	}
	if !t.HasColumn(services.IncomeColumn) && len(l.MedianIncome) > 0 {
		n := supplementIncome(t, l.MedianIncome)
		l.logger.Info("[loader] No income row in %s, filled %d of %d ZIP codes from the income table", path, n, t.Len())
	}

	l.logger.Info("[loader] Demographics: %d ZIP rows × %d columns", t.Len(), len(t.Columns))
	return t, nil
}

// transposeDemographics turns category rows × ZCTA columns into ZIP rows ×
// category columns. Only rows labelled with a known category are kept, so
// totals and sub-groups ("Total:", "Not Hispanic or Latino") are dropped.
// Header cells that are blank (merged or margin-of-error columns) are skipped.
func transposeDemographics(rows [][]string) (*models.Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("expected a header and at least one category row, got %d rows", len(rows))
	}

	type category struct {
		row  []string
		name string
	}
	var categories []category
	seen := map[string]bool{KeyColumn: true}
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		name, ok := demographicLabels[strings.TrimSpace(row[0])]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		categories = append(categories, category{row: row, name: name})
	}

	columns := []string{KeyColumn}
	for _, c := range categories {
		columns = append(columns, c.name)
	}
	t := models.NewTable(columns...)

	header := rows[0]
	for j := 1; j < len(header); j++ {
		h := strings.TrimSpace(header[j])
		if h == "" {
			continue
		}

		var key models.GeoKey
		var ok bool
		if strings.HasPrefix(h, zctaPrefix) {
			key, ok = services.ParseGeoKeyAt(h, len(zctaPrefix))
		} else {
			key, ok = services.ParseGeoKey(h)
		}

		row := []models.Cell{models.KeyCell(key, ok)}
		for _, c := range categories {
			v := ""
			if j < len(c.row) {
				v = strings.TrimSpace(c.row[j])
			}
			row = append(row, models.OptStr(v))
		}
		t.Append(row...)
	}
	return t, nil
}

// supplementIncome adds a median_income column looked up by ZIP code and
// returns how many rows received a value. Unpublished values ("-") stay
// missing.
func supplementIncome(t *models.Table, income map[string]string) int {
	byKey := make(map[string]string, len(income))
	for zip, v := range income {
		if key, ok := services.ParseGeoKey(zip); ok {
			byKey[key.String()] = strings.TrimSpace(v)
		}
	}

	ki := t.ColumnIndex(KeyColumn)
	ii := t.AddColumn(services.IncomeColumn)
	filled := 0
	for _, row := range t.Rows {
		key := row[ki]
		if !key.Valid {
			continue
		}
		v := byKey[key.String]
		if v == "-" {
			v = ""
		}
		row[ii] = models.OptStr(v)
		if row[ii].Valid {
			filled++
		}
	}
	return filled
}
