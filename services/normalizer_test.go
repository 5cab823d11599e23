package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"metro-housing/models"
)

func TestParseGeoKey(t *testing.T) {
	tests := []struct {
		raw    string
		want   models.GeoKey
		wantOK bool
	}{
		{"46201", 46201, true},
		{" 46201 ", 46201, true},
		{"02134", 2134, true},
		{"00000", 0, true},
		{"46201.0", 46201, true},
		{"ZCTA5 46201", 46201, true},
		{"123 Main St, Indianapolis, IN 46204", 46204, true},
		{"46220 - Broad Ripple", 46220, true},
		{"Indianapolis, IN 46201-1234", 46201, true},
		{"", 0, false},
		{"   ", 0, false},
		{"-46201", 0, false},
		{"46201.5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"Indianapolis", 0, false},
		{"ZCTA5 462", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseGeoKey(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseGeoKey(%q) = (%d, %v); want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseGeoKeyIntegerLikeInputs(t *testing.T) {
	for _, n := range []uint32{0, 7, 501, 2134, 46201, 99950, 4294967295} {
		plain := fmt.Sprintf("%d", n)
		padded := fmt.Sprintf("%010d", n)
		label := "ZCTA5 " + fmt.Sprintf("%05d", n)

		for _, raw := range []string{plain, padded} {
			got, ok := ParseGeoKey(raw)
			require.True(t, ok, raw)
			require.Equal(t, models.GeoKey(n), got, raw)
		}

		got, ok := ParseGeoKeyAt(label, 6)
		require.True(t, ok, label)
		require.Equal(t, models.GeoKey(n), got, label)
	}
}

func TestParseGeoKeyNeverPanicsOnJunk(t *testing.T) {
	junk := []string{"abc", "--", "1e400", "0x1F", "４６２０１", "\x00\xff", strings.Repeat("9", 64), "46 201"}
	for _, raw := range junk {
		require.NotPanics(t, func() { ParseGeoKey(raw) }, raw)
	}
	_, ok := ParseGeoKey("1e400")
	require.False(t, ok)
}

func TestParseGeoKeyAtOutOfRange(t *testing.T) {
	_, ok := ParseGeoKeyAt("ZCTA5", 6)
	require.False(t, ok)
	_, ok = ParseGeoKeyAt("ZCTA5 46201", -1)
	require.False(t, ok)
	_, ok = ParseGeoKeyAt("ZCTA5 abcde", 6)
	require.False(t, ok)
}

func TestNormalizeKeyColumn(t *testing.T) {
	tbl := models.NewTable("zip_code", "price")
	tbl.Append(models.Str("046201"), models.Str("1"))
	tbl.Append(models.Str("ZCTA5 46202"), models.Str("2"))
	tbl.Append(models.Str("unknown"), models.Str("3"))
	tbl.Append(models.Null(), models.Str("4"))

	missing := NormalizeKeyColumn(tbl, "zip_code")
	require.Equal(t, 2, missing)
	require.Equal(t, []models.Cell{
		models.Str("46201"), models.Str("46202"), models.Null(), models.Null(),
	}, tbl.Column("zip_code"))

	require.Equal(t, -1, NormalizeKeyColumn(tbl, "zipcode"))
}

func TestNormalizeColumnName(t *testing.T) {
	tests := map[string]string{
		"Zip Code":                 "zip_code",
		"MEDIAN_HOME_PRICE":        "median_home_price",
		" Median Income ":          "median_income",
		"zip code tabulation area": "zip_code_tabulation_area",
		"Two\tWords":               "two_words",
		"already_fine":             "already_fine",
	}
	for in, want := range tests {
		got := NormalizeColumnName(in)
		require.Equal(t, want, got, in)
		require.False(t, strings.ContainsAny(got, " \t"), got)
		require.Equal(t, strings.ToLower(got), got)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		cell   models.Cell
		want   float64
		wantOK bool
	}{
		{models.Str("48,183"), 48183, true},
		{models.Str("$200,000"), 200000, true},
		{models.Str(" 1.5 "), 1.5, true},
		{models.Str("-"), 0, false},
		{models.Str(""), 0, false},
		{models.Null(), 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.cell)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseNumber(%+v) = (%v, %v); want (%v, %v)", tt.cell, got, ok, tt.want, tt.wantOK)
		}
	}
}
