package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"metro-housing/models"
	"metro-housing/utils"
)

const (
	leastAffordableCount = 5
	linkColumn           = "link"
)

// sourceKeys maps each source to the key column it carries after column
// normalization.
var sourceKeys = map[string]string{
	SourceDemographics: KeyColumn,
}

func init() {
	for _, step := range JoinPlan {
		sourceKeys[step.Source] = step.RightKey
	}
}

// SummaryService reports on a merged dataset.
type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate computes row counts, per-source coverage and affordability
// figures for the merged table.
func (s *SummaryService) Generate(merged *models.Table, in MergeInput) *models.DatasetSummary {
	r := &models.DatasetSummary{
		ListingsByKey: make(map[string]int),
	}
	if merged == nil {
		return r
	}

	r.TotalRows = merged.Len()
	r.Columns = len(merged.Columns)

	keys := merged.Column(KeyColumn)
	distinct := make(map[models.GeoKey]bool)
	for _, c := range keys {
		if k, ok := keyOf(c); ok {
			distinct[k] = true
		}
	}
	r.DistinctKeys = len(distinct)

	for _, src := range in.All() {
		r.Coverage = append(r.Coverage, models.SourceCoverage{
			Source:  src.Name,
			State:   src.State,
			Matched: matchedRows(keys, src),
		})
	}

	s.ratioStats(merged, keys, r)

	if links := merged.Column(linkColumn); links != nil {
		for i, l := range links {
			if l.Valid && keys != nil && keys[i].Valid {
				r.ListingsByKey[keys[i].String]++
			}
		}
	}

	s.logger.Debug("[summary] %d rows, %d distinct ZIP codes", r.TotalRows, r.DistinctKeys)
	return r
}

// matchedRows counts merged rows whose key also occurs in the source.
func matchedRows(keys []models.Cell, src models.SourceResult) int {
	if !src.IsPresent() || keys == nil {
		return 0
	}
	t := prepare(src.Table)
	col := t.Column(sourceKeys[src.Name])
	if col == nil {
		return 0
	}

	have := make(map[models.GeoKey]bool, len(col))
	for _, c := range col {
		if k, ok := keyOf(c); ok {
			have[k] = true
		}
	}

	n := 0
	for _, c := range keys {
		if k, ok := keyOf(c); ok && have[k] {
			n++
		}
	}
	return n
}

func (s *SummaryService) ratioStats(merged *models.Table, keys []models.Cell, r *models.DatasetSummary) {
	ratios := merged.Column(RatioColumn)
	if ratios == nil {
		return
	}

	var total float64
	best := make(map[string]float64)
	for i, c := range ratios {
		v, ok := ParseNumber(c)
		if !ok {
			continue
		}
		if r.RatioRows == 0 || v < r.MinRatio {
			r.MinRatio = v
		}
		if r.RatioRows == 0 || v > r.MaxRatio {
			r.MaxRatio = v
		}
		r.RatioRows++
		total += v

		if keys != nil && keys[i].Valid {
			if cur, seen := best[keys[i].String]; !seen || v > cur {
				best[keys[i].String] = v
			}
		}
	}
	if r.RatioRows == 0 {
		return
	}

	r.AverageRatio = round2(total / float64(r.RatioRows))
	r.MinRatio = round2(r.MinRatio)
	r.MaxRatio = round2(r.MaxRatio)

	for k, v := range best {
		r.LeastAfford = append(r.LeastAfford, models.KeyRatio{Key: k, Ratio: round2(v)})
	}
	sort.Slice(r.LeastAfford, func(i, j int) bool {
		a, b := r.LeastAfford[i], r.LeastAfford[j]
		if a.Ratio != b.Ratio {
			return a.Ratio > b.Ratio
		}
		return a.Key < b.Key
	})
	if len(r.LeastAfford) > leastAffordableCount {
		r.LeastAfford = r.LeastAfford[:leastAffordableCount]
	}
}

// Print renders the summary as terminal tables.
func (s *SummaryService) Print(w io.Writer, r *models.DatasetSummary) {
	overview := newTable(w, "Merged dataset")
	overview.AppendRows([]table.Row{
		{"Rows", r.TotalRows},
		{"Columns", r.Columns},
		{"Distinct ZIP codes", r.DistinctKeys},
	})
	overview.Render()

	coverage := newTable(w, "Source coverage")
	coverage.AppendHeader(table.Row{"Source", "State", "Matched rows"})
	for _, c := range r.Coverage {
		coverage.AppendRow(table.Row{c.Source, c.State, c.Matched})
	}
	coverage.Render()

	afford := newTable(w, "Price to income")
	if r.RatioRows == 0 {
		afford.AppendRow(table.Row{"No ratio data available"})
	} else {
		afford.AppendRows([]table.Row{
			{"Rows with ratio", r.RatioRows},
			{"Average", fmt.Sprintf("%.2f", r.AverageRatio)},
			{"Minimum", fmt.Sprintf("%.2f", r.MinRatio)},
			{"Maximum", fmt.Sprintf("%.2f", r.MaxRatio)},
		})
		afford.AppendSeparator()
		for i, kr := range r.LeastAfford {
			afford.AppendRow(table.Row{fmt.Sprintf("%d. %s", i+1, kr.Key), fmt.Sprintf("%.2f", kr.Ratio)})
		}
	}
	afford.Render()

	if len(r.ListingsByKey) == 0 {
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var counts []keyCount
	for k, n := range r.ListingsByKey {
		counts = append(counts, keyCount{k, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].key < counts[j].key
	})

	listings := newTable(w, "Listings by ZIP code")
	listings.AppendHeader(table.Row{"ZIP", "Listings", ""})
	for _, kc := range counts {
		listings.AppendRow(table.Row{kc.key, kc.count, strings.Repeat("█", kc.count)})
	}
	listings.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	return t
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
