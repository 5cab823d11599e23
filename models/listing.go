package models

// ListingColumns is the fixed column layout of the harvested listings table.
var ListingColumns = []string{
	"name", "address", "zipcode", "price_low", "price_high",
	"layout", "amenities", "link", "phone_number",
}

// ListingRecord is one rental listing harvested from a results page.
// Name and Link are always present; every other field may be missing.
type ListingRecord struct {
	Name        string
	Address     Cell
	Zipcode     Cell
	PriceLow    Cell
	PriceHigh   Cell
	Layout      Cell
	Amenities   Cell
	Link        string
	PhoneNumber Cell
}

// Row flattens the record in ListingColumns order.
func (l ListingRecord) Row() []Cell {
	return []Cell{
		Str(l.Name),
		l.Address,
		l.Zipcode,
		l.PriceLow,
		l.PriceHigh,
		l.Layout,
		l.Amenities,
		Str(l.Link),
		l.PhoneNumber,
	}
}

// DatasetSummary holds the figures printed after a pipeline run.
type DatasetSummary struct {
	TotalRows     int
	DistinctKeys  int
	Columns       int
	Coverage      []SourceCoverage
	RatioRows     int
	AverageRatio  float64
	MinRatio      float64
	MaxRatio      float64
	LeastAfford   []KeyRatio
	ListingsByKey map[string]int
}

// SourceCoverage reports how many merged rows received data from a source.
type SourceCoverage struct {
	Source  string
	State   SourceState
	Matched int
}

// KeyRatio pairs a GeoKey with its price-to-income ratio.
type KeyRatio struct {
	Key   string
	Ratio float64
}
