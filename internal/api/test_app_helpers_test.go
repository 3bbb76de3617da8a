package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/db"
	"github.com/vitaup/vitacore/internal/journal"
	"github.com/vitaup/vitacore/internal/provider/llm"
	"github.com/vitaup/vitacore/internal/provider/openfoodfacts"
	"github.com/vitaup/vitacore/internal/rowstore"
	"github.com/vitaup/vitacore/internal/service"
)

var testNow = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)

const offYogurt = `{"status":1,"code":"3017620422003","product":{"code":"3017620422003","product_name":"Greek Yogurt","brands":"Fage",
"serving_quantity":170,"nutriments":{"energy-kcal_100g":97,"proteins_100g":9,"carbohydrates_100g":3.9,"fat_100g":5}}}`

// newTestApp wires a full handler against a temp database and a fake
// upstream that serves Open Food Facts and the coach endpoint.
func newTestApp(t *testing.T) (*fiber.App, *Handler) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/product/3017620422003.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(offYogurt))
	})
	mux.HandleFunc("/api/v2/product/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	})
	mux.HandleFunc("/coach", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"{\"reply\":\"Drink a glass of water.\",\"actions\":[{\"type\":\"water\",\"target_ml\":250}]}"}`))
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "vita.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	engine, err := service.NewEngine(service.DefaultEnergyConfig(), nil)
	require.NoError(t, err)
	finder := service.NewFinder(service.FinderConfig{
		OpenFoodFacts:   &openfoodfacts.Client{BaseURL: upstream.URL, HTTPClient: upstream.Client()},
		BarcodeOrder:    []string{service.ProviderOpenFoodFacts},
		SearchProviders: []string{service.ProviderOpenFoodFacts},
	}, service.NewFoodCache(sqldb), nil, nil)
	coach := service.NewCoach(&llm.Client{BaseURL: upstream.URL + "/coach", HTTPClient: upstream.Client()}, nil, nil)

	handler := NewHandler(Dependencies{
		Engine:     engine,
		Journal:    journal.New(rowstore.NewSQLite(sqldb)),
		Finder:     finder,
		Coach:      coach,
		Location:   time.UTC,
		UserID:     "u1",
		MaxGlasses: service.DefaultMaxGlasses,
	})
	handler.now = func() time.Time { return testNow }
	return NewApp(handler), handler
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = bytes.NewBufferString(v)
		default:
			b, err := json.Marshal(v)
			require.NoError(t, err)
			reader = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}
