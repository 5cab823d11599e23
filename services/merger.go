package services

import (
	"errors"
	"fmt"
	"strconv"

	"metro-housing/models"
	"metro-housing/utils"
)

// Source names, used in logs and in the summary report.
const (
	SourceDemographics = "demographics"
	SourcePrices       = "housing_prices"
	SourceRentalCosts  = "rental_costs"
	SourceListings     = "rental_listings"
	SourceTrends       = "housing_trends"
)

const (
	// KeyColumn is the join key on the accumulated (left) side.
	KeyColumn = "zip_code"

	PriceColumn  = "median_home_price"
	IncomeColumn = "median_income"
	RatioColumn  = "price_to_income_ratio"
)

// ErrMissingKey is returned when a join side lacks its key column.
var ErrMissingKey = errors.New("missing key column")

// JoinStep is one left join of the fixed merge plan.
type JoinStep struct {
	Source   string
	RightKey string
}

// JoinPlan is the fixed join order onto the demographics base.
var JoinPlan = []JoinStep{
	{Source: SourcePrices, RightKey: "zip_code"},
	{Source: SourceRentalCosts, RightKey: "zip_code"},
	{Source: SourceListings, RightKey: "zipcode"},
	{Source: SourceTrends, RightKey: "zip_code_tabulation_area"},
}

// MergeInput carries the five acquisition results.
type MergeInput struct {
	Demographics models.SourceResult
	Prices       models.SourceResult
	RentalCosts  models.SourceResult
	Listings     models.SourceResult
	Trends       models.SourceResult
}

func (in MergeInput) bySource(name string) models.SourceResult {
	switch name {
	case SourceDemographics:
		return in.Demographics
	case SourcePrices:
		return in.Prices
	case SourceRentalCosts:
		return in.RentalCosts
	case SourceListings:
		return in.Listings
	case SourceTrends:
		return in.Trends
	}
	return models.UnavailableSource(name, fmt.Errorf("unknown source %q", name))
}

// All returns the inputs in merge order.
func (in MergeInput) All() []models.SourceResult {
	return []models.SourceResult{in.Demographics, in.Prices, in.RentalCosts, in.Listings, in.Trends}
}

// AnyPresent reports whether at least one source has rows.
func (in MergeInput) AnyPresent() bool {
	for _, r := range in.All() {
		if r.IsPresent() {
			return true
		}
	}
	return false
}

// Merger joins every available source onto the demographics base.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge runs the fixed join plan. Inputs are never modified. On any failure
// the error is logged and an empty table is returned instead of a partially
// joined one.
func (m *Merger) Merge(in MergeInput) *models.Table {
	m.logger.Info("[merge] Cleaning and merging data...")

	out, err := m.merge(in)
	if err != nil {
		m.logger.Error("[merge] Merge failed, returning an empty dataset: %v", err)
		return models.NewTable()
	}

	m.logger.Info("[merge] Merged dataset: %d rows × %d columns", out.Len(), len(out.Columns))
	return out
}

func (m *Merger) merge(in MergeInput) (out *models.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("merge: unexpected failure: %v", r)
		}
	}()

	base := in.bySource(SourceDemographics)
	if !base.IsPresent() {
		m.logger.Warn("[merge] Demographics base is %s, nothing to join onto", base.State)
		return models.NewTable(), nil
	}

	merged := prepare(base.Table)
	NormalizeKeyColumn(merged, KeyColumn)

	for _, step := range JoinPlan {
		src := in.bySource(step.Source)
		if !src.IsPresent() {
			m.logger.Warn("[merge] Skipping %s (%s)", step.Source, src.State)
			continue
		}

		right := prepare(src.Table)
		if !right.HasColumn(step.RightKey) {
			m.logger.Warn("[merge] Skipping %s: no %q column", step.Source, step.RightKey)
			continue
		}
		NormalizeKeyColumn(right, step.RightKey)

		before := merged.Len()
		merged, err = LeftJoin(merged, right, KeyColumn, step.RightKey)
		if err != nil {
			return nil, fmt.Errorf("merge: join %s: %w", step.Source, err)
		}
		m.logger.Debug("[merge] Joined %s on %s=%s: %d → %d rows",
			step.Source, KeyColumn, step.RightKey, before, merged.Len())
	}

	if AddPriceToIncomeRatio(merged) {
		m.logger.Info("[merge] Derived %s", RatioColumn)
	} else {
		m.logger.Warn("[merge] %s not derived: need both %s and %s", RatioColumn, PriceColumn, IncomeColumn)
	}

	return merged, nil
}

// prepare clones a source table and normalizes its column names.
func prepare(t *models.Table) *models.Table {
	c := t.Clone()
	NormalizeColumns(c)
	return c
}

// LeftJoin keeps every row of left, appending the columns of each matching
// right row. Missing keys never match. A key matching several right rows fans
// out in right-table order; unmatched rows get missing right columns. When
// both keys share a name the key appears once, otherwise both are kept.
// Other overlapping names are suffixed with _x (left) and _y (right).
func LeftJoin(left, right *models.Table, leftKey, rightKey string) (*models.Table, error) {
	li := left.ColumnIndex(leftKey)
	if li < 0 {
		return nil, fmt.Errorf("left side %q: %w", leftKey, ErrMissingKey)
	}
	ri := right.ColumnIndex(rightKey)
	if ri < 0 {
		return nil, fmt.Errorf("right side %q: %w", rightKey, ErrMissingKey)
	}
	sameKey := leftKey == rightKey

	rightCols := make([]int, 0, len(right.Columns))
	for i := range right.Columns {
		if sameKey && i == ri {
			continue
		}
		rightCols = append(rightCols, i)
	}

	overlap := make(map[string]bool)
	for _, i := range rightCols {
		if left.HasColumn(right.Columns[i]) {
			overlap[right.Columns[i]] = true
		}
	}

	columns := make([]string, 0, len(left.Columns)+len(rightCols))
	for _, c := range left.Columns {
		if overlap[c] {
			c += "_x"
		}
		columns = append(columns, c)
	}
	for _, i := range rightCols {
		c := right.Columns[i]
		if overlap[c] {
			c += "_y"
		}
		columns = append(columns, c)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q after join", c)
		}
		seen[c] = true
	}

	index := make(map[models.GeoKey][]int)
	for i, row := range right.Rows {
		if key, ok := keyOf(row[ri]); ok {
			index[key] = append(index[key], i)
		}
	}

	out := models.NewTable(columns...)
	for _, lrow := range left.Rows {
		var matches []int
		if key, ok := keyOf(lrow[li]); ok {
			matches = index[key]
		}

		if len(matches) == 0 {
			out.Append(lrow...)
			continue
		}
		for _, m := range matches {
			row := make([]models.Cell, 0, len(columns))
			row = append(row, lrow...)
			for _, i := range rightCols {
				row = append(row, right.Rows[m][i])
			}
			out.Append(row...)
		}
	}
	return out, nil
}

func keyOf(c models.Cell) (models.GeoKey, bool) {
	if !c.Valid {
		return 0, false
	}
	return ParseGeoKey(c.String)
}

// AddPriceToIncomeRatio derives price_to_income_ratio when both the price and
// income columns exist. Rows where either value is missing, non-numeric or
// the income is zero get a missing ratio. It reports whether the column was
// derived.
func AddPriceToIncomeRatio(t *models.Table) bool {
	pi := t.ColumnIndex(PriceColumn)
	ii := t.ColumnIndex(IncomeColumn)
	if pi < 0 || ii < 0 {
		return false
	}

	ri := t.ColumnIndex(RatioColumn)
	if ri < 0 {
		ri = t.AddColumn(RatioColumn)
	}

	for _, row := range t.Rows {
		row[ri] = models.Null()
		price, ok := ParseNumber(row[pi])
		if !ok {
			continue
		}
		income, ok := ParseNumber(row[ii])
		if !ok || income == 0 {
			continue
		}
		row[ri] = models.Str(strconv.FormatFloat(price/income, 'f', -1, 64))
	}
	return true
}
