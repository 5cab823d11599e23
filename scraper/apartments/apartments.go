package apartments

import (
	"context"
	"fmt"

	"metro-housing/config"
	"metro-housing/models"
	"metro-housing/services"
	"metro-housing/storage"
	"metro-housing/utils"
)

// ZipColumn is the key column of the harvested listings table.
const ZipColumn = "zipcode"

// Harvester walks the paginated apartments.com results and collects one
// ListingRecord per placard.
type Harvester struct {
	baseURL  string
	limit    int
	sidePath string
	logger   *utils.Logger
	throttle *utils.Throttle
	launch   Launcher
}

// New creates a Harvester. A PageLimit of 0 harvests every discovered page.
func New(cfg *config.Config, logger *utils.Logger, launch Launcher) *Harvester {
	return &Harvester{
		baseURL:  cfg.ListingsBaseURL,
		limit:    cfg.PageLimit,
		sidePath: cfg.ListingsSidePath(),
		logger:   logger,
		throttle: utils.NewThrottle(cfg.PageDelayMs),
		launch:   launch,
	}
}

// Harvest discovers the page count, visits min(limit, total) pages and
// returns the listings table. The browser is released before returning,
// whether or not harvesting succeeded.
func (h *Harvester) Harvest(ctx context.Context) (*models.Table, error) {
	h.logger.Info("[apartments] Starting harvest of %s", h.baseURL)

	browser, err := h.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("apartments: launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			h.logger.Warn("[apartments] %v", err)
		}
		h.logger.Debug("[apartments] Browser released")
	}()

	total, err := h.discover(ctx, browser)
	if err != nil {
		return nil, err
	}
	pages := total
	if h.limit > 0 && h.limit < total {
		pages = h.limit
	}
	h.logger.Info("[apartments] Discovered %d pages, harvesting %d", total, pages)

	out := models.NewTable(models.ListingColumns...)
	for p := 1; p <= pages; p++ {
		n, err := h.harvestPage(ctx, browser, p, out)
		if err != nil {
			return nil, err
		}
		h.logger.Info("[apartments] Page %d done: %d listings (%d so far)", p, n, out.Len())
	}

	if missing := services.NormalizeKeyColumn(out, ZipColumn); missing > 0 {
		h.logger.Warn("[apartments] %d listings have no usable %s", missing, ZipColumn)
	}

	if err := storage.SaveCSV(h.sidePath, out); err != nil {
		h.logger.Error("[apartments] Could not write %s: %v", h.sidePath, err)
	} else {
		h.logger.Info("[apartments] Listings saved to %s", h.sidePath)
	}

	h.logger.Info("[apartments] Harvest complete: %d listings", out.Len())
	return out, nil
}

func (h *Harvester) discover(ctx context.Context, b Browser) (int, error) {
	html, err := h.load(ctx, b, h.baseURL)
	if err != nil {
		return 0, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return 0, err
	}
	return parsePageCount(doc)
}

// load navigates, waits the fixed page delay for client-side rendering and
// returns the rendered document.
func (h *Harvester) load(ctx context.Context, b Browser, url string) (string, error) {
	h.logger.Debug("[apartments] Loading %s", url)
	if err := b.Navigate(ctx, url); err != nil {
		return "", err
	}
	if err := h.throttle.Pause(ctx); err != nil {
		return "", fmt.Errorf("apartments: wait for %s: %w", url, err)
	}
	return b.HTML(ctx)
}

func (h *Harvester) harvestPage(ctx context.Context, b Browser, page int, out *models.Table) (int, error) {
	html, err := h.load(ctx, b, fmt.Sprintf("%s%d/", h.baseURL, page))
	if err != nil {
		return 0, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return 0, err
	}

	records, skipped, err := extractListings(doc)
	if err != nil {
		h.logger.Warn("[apartments] Page %d: %v, skipping", page, err)
		return 0, nil
	}
	for _, e := range skipped {
		h.logger.Warn("[apartments] Page %d: skipped %v", page, e)
	}
	for _, r := range records {
		out.Append(r.Row()...)
	}
	return len(records), nil
}
