package config

import (
	"log"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"metro-housing/models"
)

// DefaultGeoKeys are the Indianapolis ZIP codes queried when GEO_KEYS is unset.
var DefaultGeoKeys = []models.GeoKey{
	46201, 46202, 46203, 46204, 46205, 46206, 46208, 46214, 46216, 46217,
}

// DefaultMedianIncome is the median household income per Indianapolis ZCTA,
// used when the demographics workbook carries no "Median Income" row.
// "-" marks areas the survey did not publish.
var DefaultMedianIncome = map[string]string{
	"46201": "48,183", "46202": "61,082", "46203": "55,375", "46204": "88,081",
	"46205": "65,756", "46206": "-", "46208": "55,435", "46214": "58,863",
	"46216": "56,838", "46217": "88,326", "46218": "34,635", "46219": "57,811",
	"46220": "103,735", "46221": "58,316", "46222": "45,198", "46224": "53,731",
	"46225": "47,917", "46226": "47,086", "46227": "50,993", "46228": "95,574",
	"46229": "62,982", "46231": "76,823", "46234": "83,137", "46235": "56,160",
	"46236": "117,530", "46237": "76,676", "46239": "92,160", "46240": "70,728",
	"46241": "51,598", "46250": "69,591", "46254": "57,825", "46256": "86,529",
	"46259": "129,615", "46260": "70,642", "46268": "63,322", "46278": "153,930",
	"46280": "84,561", "46290": "-",
}

// Config holds all pipeline configuration.
type Config struct {
	DemographicsPath string          `json:"demographics_path"`
	PricesPath       string          `json:"prices_path"`
	RentalCostsPath  string          `json:"rental_costs_path"`
	ListingsBaseURL  string          `json:"listings_base_url"`
	PageLimit        int             `json:"page_limit"`
	GeoKeys          []models.GeoKey `json:"geo_keys"`
	PDFPath          string          `json:"pdf_path"`
	OutputPath       string          `json:"output_path"`

	// MedianIncome maps ZIP code to median household income. It fills the
	// median_income column of a demographics workbook that lacks one.
	MedianIncome map[string]string `json:"median_income"`

	OutputDir      string `json:"output_dir"`
	PageDelayMs    int    `json:"page_delay_ms"`
	RequestDelayMs int    `json:"request_delay_ms"`
	ChromeBin      string `json:"chrome_bin"`

	CensusEndpoint string `json:"census_endpoint"`
	CensusFields   string `json:"census_fields"`
	CensusAPIKey   string `json:"census_api_key"`

	// StoreDriver is "", "postgres" or "sqlite". Empty disables the SQL mirror.
	StoreDriver string `json:"store_driver"`
	StoreDSN    string `json:"store_dsn"`
	StoreTable  string `json:"store_table"`

	Debug bool `json:"debug"`
}

// Load reads the .env file and returns a Config populated from the
// environment, falling back to the Indianapolis defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	outputDir := getEnv("OUTPUT_DIR", "data")

	return &Config{
		DemographicsPath: getEnv("DEMOGRAPHICS_PATH", filepath.Join(outputDir, "indiana_demographics.xlsx")),
		PricesPath:       getEnv("PRICES_PATH", filepath.Join(outputDir, "indiana_housing_prices.csv")),
		RentalCostsPath:  getEnv("RENTAL_COSTS_PATH", filepath.Join(outputDir, "indiana_rental_costs.csv")),
		ListingsBaseURL:  getEnv("LISTINGS_BASE_URL", "https://www.apartments.com/indianapolis-in/"),
		PageLimit:        getEnvInt("PAGE_LIMIT", 1),
		GeoKeys:          getEnvKeys("GEO_KEYS", DefaultGeoKeys),
		PDFPath:          getEnv("PDF_PATH", filepath.Join(outputDir, "indiana_housing_policy.pdf")),
		OutputPath:       getEnv("OUTPUT_PATH", filepath.Join(outputDir, "final_clean_data.csv")),
		MedianIncome:     maps.Clone(DefaultMedianIncome),

		OutputDir:      outputDir,
		PageDelayMs:    getEnvInt("PAGE_DELAY_MS", 1000),
		RequestDelayMs: getEnvInt("REQUEST_DELAY_MS", 1000),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		CensusEndpoint: getEnv("CENSUS_ENDPOINT", "https://api.census.gov/data/2022/acs/acs5/profile"),
		CensusFields:   getEnv("CENSUS_FIELDS", "NAME,DP04_0001E,DP04_0003E,DP04_0004E,DP04_0005E"),
		CensusAPIKey:   getEnv("CENSUS_API_KEY", ""),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "")),
		StoreDSN:    getEnv("STORE_DSN", ""),
		StoreTable:  getEnv("STORE_TABLE", "housing_merged"),

		Debug: getEnvBool("DEBUG", false),
	}
}

// ListingsSidePath is where harvested listings are written.
func (c *Config) ListingsSidePath() string {
	return filepath.Join(c.OutputDir, "scraped_rental_listings.csv")
}

// TrendsSidePath is where accumulated statistics rows are written.
func (c *Config) TrendsSidePath() string {
	return filepath.Join(c.OutputDir, "housing_trends.csv")
}

// PolicyTextPath is where extracted PDF text is written.
func (c *Config) PolicyTextPath() string {
	return filepath.Join(c.OutputDir, "policy_text.txt")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvKeys parses a comma-separated GeoKey list. Entries that are not
// plain non-negative integers are ignored.
func getEnvKeys(key string, fallback []models.GeoKey) []models.GeoKey {
	val := os.Getenv(key)
	if val == "" {
		out := make([]models.GeoKey, len(fallback))
		copy(out, fallback)
		return out
	}
	return ParseKeyList(val)
}

// ParseKeyList parses "46201, 46202,46203" into GeoKeys.
func ParseKeyList(val string) []models.GeoKey {
	var keys []models.GeoKey
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			continue
		}
		keys = append(keys, models.GeoKey(n))
	}
	return keys
}
