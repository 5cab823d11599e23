package census

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"metro-housing/config"
	"metro-housing/models"
	"metro-housing/utils"
)

const fields = "NAME,DP04_0001E,DP04_0003E"

func newClient(t *testing.T, endpoint string) (*Client, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		CensusEndpoint: endpoint,
		CensusFields:   fields,
		CensusAPIKey:   "secret",
		OutputDir:      t.TempDir(),
	}
	return New(cfg, utils.Discard()), cfg
}

// zcta extracts the key from "zip code tabulation area:46201".
func zcta(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Query().Get("for"), "zip code tabulation area:")
}

func TestFetchSkipsKeysWithoutData(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		switch zcta(r) {
		case "46201":
			fmt.Fprint(w, `[["NAME","DP04_0001E","DP04_0003E","zip code tabulation area"],
				["ZCTA5 46201", 16102, null, "46201"]]`)
		case "99999":
			fmt.Fprint(w, `[["NAME","DP04_0001E","DP04_0003E","zip code tabulation area"]]`)
		}
	}))
	defer srv.Close()

	c, cfg := newClient(t, srv.URL)
	out, err := c.Fetch(context.Background(), []models.GeoKey{46201, 99999})
	require.NoError(t, err)

	require.Equal(t, []string{"name", "dp04_0001e", "dp04_0003e", KeyColumn}, out.Columns)
	require.Equal(t, 1, out.Len())
	require.Equal(t, []models.Cell{
		models.Str("ZCTA5 46201"), models.Str("16102"), models.Null(), models.Str("46201"),
	}, out.Rows[0])

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"get=" + fields + "&for=zip%20code%20tabulation%20area:46201&key=secret",
		"get=" + fields + "&for=zip%20code%20tabulation%20area:99999&key=secret",
	}, queries)

	data, err := os.ReadFile(cfg.TrendsSidePath())
	require.NoError(t, err)
	require.Equal(t,
		"NAME,DP04_0001E,DP04_0003E,zip code tabulation area\n"+
			"ZCTA5 46201,16102,,46201\n",
		string(data))

	// The delay runs between keys only.
	require.Equal(t, 1, c.throttle.Pauses())
}

func TestFetchKeepsLeadingZeros(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		fmt.Fprintf(w, `[["NAME","zip code tabulation area"],["ZCTA5 %[1]s","%[1]s"]]`, zcta(r))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	out, err := c.Fetch(context.Background(), []models.GeoKey{2134, 501})
	require.NoError(t, err)
	// Keys are canonical integers once loaded.
	require.Equal(t, []models.Cell{models.Str("2134"), models.Str("501")}, out.Column(KeyColumn))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"get=" + fields + "&for=zip%20code%20tabulation%20area:02134&key=secret",
		"get=" + fields + "&for=zip%20code%20tabulation%20area:00501&key=secret",
	}, queries)
}

func TestFetchTakesOneRowPerKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[["NAME","DP04_0001E","zip code tabulation area"],
			["ZCTA5 46201", 16102, "46201"],
			["ZCTA5 46201", 99, "46201"],
			["ZCTA5 46201", 98, "46201"]]`)
	}))
	defer srv.Close()

	c, cfg := newClient(t, srv.URL)
	out, err := c.Fetch(context.Background(), []models.GeoKey{46201})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	require.Equal(t, models.Str("16102"), out.Get(0, "dp04_0001e"))

	data, err := os.ReadFile(cfg.TrendsSidePath())
	require.NoError(t, err)
	require.Equal(t,
		"NAME,DP04_0001E,zip code tabulation area\n"+
			"ZCTA5 46201,16102,46201\n",
		string(data))
}

func TestFetchEmptyResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch zcta(r) {
		case "46201":
			w.WriteHeader(http.StatusNoContent)
		case "46202":
			// empty body
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	c, cfg := newClient(t, srv.URL)
	out, err := c.Fetch(context.Background(), []models.GeoKey{46201, 46202, 46203})
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, 0, out.Len())

	_, err = os.Stat(cfg.TrendsSidePath())
	require.True(t, os.IsNotExist(err))
}

func TestFetchAbortsOnHTTPError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if zcta(r) == "46202" {
			http.Error(w, "unknown variable", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `[["NAME","zip code tabulation area"],["ZCTA5 %[1]s","%[1]s"]]`, zcta(r))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	out, err := c.Fetch(context.Background(), []models.GeoKey{46201, 46202, 46203})
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Nil(t, out)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, _ := newClient(t, endpoint)
	_, err := c.Fetch(context.Background(), []models.GeoKey{46201})
	require.Error(t, err)
}

func TestFetchMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "not an array"}`)
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), []models.GeoKey{46201})
	require.Error(t, err)
}

func TestFetchNoKeys(t *testing.T) {
	c, _ := newClient(t, "http://127.0.0.1:1")
	out, err := c.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, out.Len())
	require.Equal(t, 0, c.throttle.Pauses())
}

func TestCellConversion(t *testing.T) {
	raw, err := decode([]byte(`[["a","b","c","d","e"],["x", 12345678901234567890, 1.5, null, true]]`))
	require.NoError(t, err)
	got := make([]models.Cell, len(raw[1]))
	for i, v := range raw[1] {
		got[i] = cell(v)
	}
	require.Equal(t, []models.Cell{
		models.Str("x"),
		models.Str("12345678901234567890"),
		models.Str("1.5"),
		models.Null(),
		models.Str("true"),
	}, got)
}
