package census

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"metro-housing/config"
	"metro-housing/models"
	"metro-housing/services"
	"metro-housing/storage"
	"metro-housing/utils"
)

// KeyColumn is the normalized name of the ZCTA column in API responses.
const KeyColumn = "zip_code_tabulation_area"

// Client queries the ACS profile endpoint one ZIP code tabulation area at a time.
type Client struct {
	http     *resty.Client
	endpoint string
	fields   string
	apiKey   string
	sidePath string
	logger   *utils.Logger
	throttle *utils.Throttle
}

// New creates a Client from the census and output settings in cfg.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	client := resty.New()
	client.SetHeader("user-agent", "metro-housing/1.0")
	client.SetTimeout(time.Second * 30)

	return &Client{
		http:     client,
		endpoint: cfg.CensusEndpoint,
		fields:   cfg.CensusFields,
		apiKey:   cfg.CensusAPIKey,
		sidePath: cfg.TrendsSidePath(),
		logger:   logger,
		throttle: utils.NewThrottle(cfg.RequestDelayMs),
	}
}

// Fetch issues one request per key, in order. The header is taken from the
// first response carrying data and only the first data row of each response
// is kept, one row per key. Keys with no
// data are logged and skipped; a transport failure or non-2xx status aborts
// the whole fetch. With no data at all an empty table is returned.
func (c *Client) Fetch(ctx context.Context, keys []models.GeoKey) (*models.Table, error) {
	c.logger.Info("[census] Fetching housing trends for %d ZIP codes", len(keys))

	var out *models.Table
	for i, key := range keys {
		if i > 0 {
			if err := c.throttle.Pause(ctx); err != nil {
				return nil, fmt.Errorf("census: %w", err)
			}
		}

		header, row, err := c.fetchKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("census: key %s: %w", key, err)
		}
		if row == nil {
			c.logger.Warn("[census] No valid data for ZIP code %s", key)
			continue
		}

		if out == nil {
			out = models.NewTable(header...)
		}
		out.Append(row...)
		c.logger.Debug("[census] ZIP %s: %d values", key, len(row))
	}

	if out == nil {
		c.logger.Warn("[census] No data collected, check the API key and ZIP codes")
		return models.NewTable(), nil
	}

	if err := storage.SaveCSV(c.sidePath, out); err != nil {
		c.logger.Error("[census] Could not write %s: %v", c.sidePath, err)
	} else {
		c.logger.Info("[census] Census data saved to %s", c.sidePath)
	}

	services.NormalizeColumns(out)
	services.NormalizeKeyColumn(out, KeyColumn)
	return out, nil
}

func (c *Client) requestURL(key models.GeoKey) string {
	// Built by hand: resty re-encodes the query when QueryParams are set,
	// which would turn "%20" and ":" into a different request.
	// ZCTAs are always five digits on the wire, leading zeros included.
	return fmt.Sprintf("%s?get=%s&for=zip%%20code%%20tabulation%%20area:%05d&key=%s",
		c.endpoint, c.fields, uint32(key), c.apiKey)
}

func (c *Client) fetchKey(ctx context.Context, key models.GeoKey) ([]string, []models.Cell, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.requestURL(key))
	if err != nil {
		return nil, nil, err
	}
	if !resp.IsSuccess() {
		return nil, nil, fmt.Errorf("unexpected status %s", resp.Status())
	}

	body := bytes.TrimSpace(resp.Body())
	if resp.StatusCode() == http.StatusNoContent || len(body) == 0 {
		return nil, nil, nil
	}

	raw, err := decode(body)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) < 2 || len(raw[1]) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(raw[0]))
	for i, v := range raw[0] {
		header[i] = cell(v).String
	}
	row := make([]models.Cell, len(raw[1]))
	for i, v := range raw[1] {
		row[i] = cell(v)
	}
	return header, row, nil
}

func decode(body []byte) ([][]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}

func cell(v any) models.Cell {
	switch x := v.(type) {
	case nil:
		return models.Null()
	case string:
		return models.OptStr(x)
	case json.Number:
		return models.Str(x.String())
	case bool:
		return models.Str(strconv.FormatBool(x))
	default:
		return models.Str(fmt.Sprint(x))
	}
}
