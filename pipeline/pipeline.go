package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"metro-housing/config"
	"metro-housing/models"
	"metro-housing/services"
	"metro-housing/sources"
	"metro-housing/storage"
	"metro-housing/utils"
)

// Harvester produces the rental listings table.
type Harvester interface {
	Harvest(ctx context.Context) (*models.Table, error)
}

// TrendFetcher produces the housing trends table for a list of ZIP codes.
type TrendFetcher interface {
	Fetch(ctx context.Context, keys []models.GeoKey) (*models.Table, error)
}

// Pipeline runs every acquisition step in order, merges the results and
// persists the merged dataset.
type Pipeline struct {
	cfg       *config.Config
	logger    *utils.Logger
	loader    *sources.Loader
	harvester Harvester
	trends    TrendFetcher
	merger    *services.Merger
	summary   *services.SummaryService
	store     storage.TableWriter
	out       io.Writer
}

type Option func(*Pipeline)

// WithStore mirrors the merged table into a SQL store.
func WithStore(w storage.TableWriter) Option {
	return func(p *Pipeline) { p.store = w }
}

// WithOutput sets where the summary is printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

func New(cfg *config.Config, logger *utils.Logger, harvester Harvester, trends TrendFetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		logger:    logger,
		loader:    sources.NewLoader(logger),
		harvester: harvester,
		trends:    trends,
		merger:    services.NewMerger(logger),
		summary:   services.NewSummaryService(logger),
		out:       os.Stdout,
	}
	p.loader.MedianIncome = cfg.MedianIncome
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the full pipeline and returns the merged table. The output
// directory must already exist. Per-source failures only degrade that
// source; an error is returned only when the merged CSV cannot be written.
func (p *Pipeline) Run(ctx context.Context) (*models.Table, error) {
	in := p.Acquire(ctx)

	if !in.AnyPresent() {
		p.logger.Error("[pipeline] No source produced any data, nothing to merge")
		return models.NewTable(), nil
	}

	merged := p.merger.Merge(in)
	if merged.Len() == 0 {
		p.logger.Warn("[pipeline] No data to save")
		return merged, nil
	}

	p.logger.Info("[pipeline] Saving cleaned data to %s", p.cfg.OutputPath)
	if err := storage.SaveCSV(p.cfg.OutputPath, merged); err != nil {
		p.logger.Error("[pipeline] Error saving cleaned data: %v", err)
		return merged, fmt.Errorf("pipeline: save merged data: %w", err)
	}

	if p.store != nil {
		if err := p.store.Write(p.cfg.StoreTable, merged); err != nil {
			p.logger.Error("[store] Mirror write failed: %v", err)
		} else {
			p.logger.Info("[store] Merged dataset stored (table: %s)", p.cfg.StoreTable)
		}
	}

	p.summary.Print(p.out, p.summary.Generate(merged, in))
	return merged, nil
}

// Acquire loads every source sequentially and tags each outcome.
func (p *Pipeline) Acquire(ctx context.Context) services.MergeInput {
	var in services.MergeInput

	t, err := p.loader.LoadDemographics(p.cfg.DemographicsPath)
	in.Demographics = p.record(models.FromTable(services.SourceDemographics, t, err))

	t, err = p.loader.LoadCSV(p.cfg.PricesPath)
	in.Prices = p.record(models.FromTable(services.SourcePrices, t, err))

	t, err = p.loader.LoadCSV(p.cfg.RentalCostsPath)
	in.RentalCosts = p.record(models.FromTable(services.SourceRentalCosts, t, err))

	in.Listings = p.record(p.harvest(ctx))
	in.Trends = p.record(p.fetchTrends(ctx))

	p.extractPolicy()
	return in
}

func (p *Pipeline) harvest(ctx context.Context) models.SourceResult {
	if p.harvester == nil {
		return models.UnavailableSource(services.SourceListings, fmt.Errorf("harvester disabled"))
	}
	t, err := p.harvester.Harvest(ctx)
	return models.FromTable(services.SourceListings, t, err)
}

// fetchTrends converts a client failure into an empty result: the merge
// treats it as "queried nothing" rather than an unavailable source.
func (p *Pipeline) fetchTrends(ctx context.Context) models.SourceResult {
	if p.trends == nil {
		return models.UnavailableSource(services.SourceTrends, fmt.Errorf("trends client disabled"))
	}
	t, err := p.trends.Fetch(ctx, p.cfg.GeoKeys)
	if err != nil {
		r := models.EmptySource(services.SourceTrends)
		r.Err = err
		return r
	}
	return models.FromTable(services.SourceTrends, t, nil)
}

func (p *Pipeline) extractPolicy() {
	text, err := p.loader.ExtractPolicyText(p.cfg.PDFPath)
	if err != nil {
		p.logger.Warn("[pipeline] Policy report skipped: %v", err)
		return
	}
	path := p.cfg.PolicyTextPath()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		p.logger.Warn("[pipeline] Could not write %s: %v", path, err)
		return
	}
	p.logger.Info("[pipeline] Policy text (%d characters) saved to %s", len(text), path)
}

func (p *Pipeline) record(r models.SourceResult) models.SourceResult {
	switch {
	case r.Err != nil:
		p.logger.Warn("[pipeline] %s is %s: %v", r.Name, r.State, r.Err)
	case r.State == models.Present:
		p.logger.Info("[pipeline] %s: %d rows", r.Name, r.Table.Len())
	default:
		p.logger.Warn("[pipeline] %s is %s", r.Name, r.State)
	}
	return r
}
