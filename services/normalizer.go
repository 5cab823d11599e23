package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"metro-housing/models"
)

var (
	// zipRegexp captures a 5-digit ZIP, optionally followed by a +4 suffix,
	// embedded in a longer label such as "ZCTA5 46201" or "... IN 46201".
	zipRegexp = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	// numberCleaner strips currency and grouping noise from numeric cells.
	numberCleaner = strings.NewReplacer(",", "", "$", "", " ", "")
)

// ParseGeoKey coerces an arbitrary representation of a postal key into its
// canonical form. Plain integers (with or without leading zeros) and integral
// floats are taken as-is; otherwise the last 5-digit ZIP embedded in the
// label is used. Anything else reports ok == false.
func ParseGeoKey(raw string) (models.GeoKey, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if key, ok, numeric := parseNumericKey(s); numeric {
		return key, ok
	}

	matches := zipRegexp.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	key, ok, _ := parseNumericKey(matches[len(matches)-1][1])
	return key, ok
}

// ParseGeoKeyAt parses the key found at a fixed offset of a label, e.g.
// offset 6 of "ZCTA5 46201". The remainder must be numeric.
func ParseGeoKeyAt(raw string, offset int) (models.GeoKey, bool) {
	if offset < 0 || offset > len(raw) {
		return 0, false
	}
	key, ok, _ := parseNumericKey(strings.TrimSpace(raw[offset:]))
	return key, ok
}

// parseNumericKey reports numeric == true when s is a number at all, and
// ok == true when that number is a valid non-negative integral key.
func parseNumericKey(s string) (key models.GeoKey, ok bool, numeric bool) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return models.GeoKey(n), true, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, false, true
	}
	return models.GeoKey(f), true, true
}

// NormalizeKeyColumn rewrites the named column to canonical GeoKeys in place.
// Cells that cannot be coerced become missing. It returns the number of
// missing keys after normalization, or -1 when the column does not exist.
func NormalizeKeyColumn(t *models.Table, column string) int {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return -1
	}

	missing := 0
	for _, row := range t.Rows {
		cell := row[idx]
		if !cell.Valid {
			missing++
			continue
		}
		key, ok := ParseGeoKey(cell.String)
		row[idx] = models.KeyCell(key, ok)
		if !ok {
			missing++
		}
	}
	return missing
}

// NormalizeColumnName lower-cases a header and replaces whitespace with
// underscores: "Median Home Price" -> "median_home_price".
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return unicode.ToLower(r)
	}, name)
	return name
}

// NormalizeColumns applies NormalizeColumnName to every column of t.
func NormalizeColumns(t *models.Table) {
	for i, c := range t.Columns {
		t.Columns[i] = NormalizeColumnName(c)
	}
}

// ParseNumber reads a numeric cell such as "$200,000" or "48,183".
func ParseNumber(c models.Cell) (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	s := numberCleaner.Replace(strings.TrimSpace(c.String))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
