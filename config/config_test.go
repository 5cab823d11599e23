package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"metro-housing/models"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"OUTPUT_DIR", "OUTPUT_PATH", "RENTAL_COSTS_PATH", "PAGE_LIMIT", "GEO_KEYS", "STORE_DRIVER", "DEBUG"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	require.Equal(t, "data", cfg.OutputDir)
	require.Equal(t, 1, cfg.PageLimit)
	require.Equal(t, DefaultGeoKeys, cfg.GeoKeys)
	require.Len(t, cfg.MedianIncome, 38)
	require.Equal(t, "48,183", cfg.MedianIncome["46201"])
	require.Equal(t, filepath.Join("data", "final_clean_data.csv"), cfg.OutputPath)
	require.Equal(t, filepath.Join("data", "scraped_rental_listings.csv"), cfg.ListingsSidePath())
	require.Equal(t, filepath.Join("data", "housing_trends.csv"), cfg.TrendsSidePath())
	require.False(t, cfg.Debug)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RENTAL_COSTS_PATH", "")
	t.Setenv("OUTPUT_DIR", "out")
	t.Setenv("PAGE_LIMIT", "0")
	t.Setenv("GEO_KEYS", "46201, 46202,bogus,46203")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	require.Equal(t, "out", cfg.OutputDir)
	require.Equal(t, 0, cfg.PageLimit)
	require.Equal(t, []models.GeoKey{46201, 46202, 46203}, cfg.GeoKeys)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, filepath.Join("out", "indiana_rental_costs.csv"), cfg.RentalCostsPath)
	require.True(t, cfg.Debug)
}

func TestParseKeyList(t *testing.T) {
	require.Equal(t, []models.GeoKey{1, 46290}, ParseKeyList(" 1 ,46290,, -4"))
	require.Nil(t, ParseKeyList(""))
}

func TestLoadFileMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "pipeline.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{
		// listings from a second metro
		listings_base_url: "https://example.test/listings/",
		page_limit: 3,
		geo_keys: [46201, 46202],
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.local.json5"), []byte(`{
		page_limit: 5,
		census_api_key: "secret",
	}`), 0o644))

	base := &Config{OutputDir: "data", PageLimit: 1, GeoKeys: []models.GeoKey{1}}
	cfg, err := LoadFile(base, name)
	require.NoError(t, err)

	require.Equal(t, "https://example.test/listings/", cfg.ListingsBaseURL)
	require.Equal(t, 5, cfg.PageLimit)
	require.Equal(t, "secret", cfg.CensusAPIKey)
	require.Equal(t, []models.GeoKey{46201, 46202}, cfg.GeoKeys)
	require.Equal(t, "data", cfg.OutputDir)

	require.Equal(t, []models.GeoKey{1}, base.GeoKeys, "base must not be mutated")
	require.Equal(t, 1, base.PageLimit)
}

func TestLoadFileOverridesIncomePerZip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "pipeline.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{
		median_income: { "46201": "50,000", "02134": "91,000" },
	}`), 0o644))

	base := &Config{MedianIncome: map[string]string{"46201": "48,183", "46202": "61,082"}}
	cfg, err := LoadFile(base, name)
	require.NoError(t, err)

	require.Equal(t, map[string]string{
		"46201": "50,000",
		"46202": "61,082",
		"02134": "91,000",
	}, cfg.MedianIncome)
	require.Equal(t, "48,183", base.MedianIncome["46201"], "base must not be mutated")
	require.Len(t, base.MedianIncome, 2)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(&Config{}, filepath.Join(t.TempDir(), "absent.json5"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}
