package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/provider/openfoodfacts"
	"github.com/vitaup/vitacore/internal/provider/upcitemdb"
	"github.com/vitaup/vitacore/internal/provider/usda"
	"github.com/vitaup/vitacore/internal/provider/vision"
	"github.com/vitaup/vitacore/internal/service"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveLookup(provider, kind, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, provider+"/"+kind+"/"+outcome)
}

func (o *recordingObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

const upcCereal = `{"code":"OK","items":[{"upc":"012345678905","title":"Oat Cereal","brand":"Acme","size":"40 g",
"nutrition_facts":{"Calories":"150","Protein":"4g","Total Carbohydrate":"27g","Total Fat":"3g"}}]}`

func TestFinderBarcodeFallsBackAndCaches(t *testing.T) {
	var offCalls, upcCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/product/", func(w http.ResponseWriter, r *http.Request) {
		offCalls.Add(1)
		_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	})
	mux.HandleFunc("/prod/trial/lookup", func(w http.ResponseWriter, r *http.Request) {
		upcCalls.Add(1)
		_, _ = w.Write([]byte(upcCereal))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	obs := &recordingObserver{}
	f := service.NewFinder(service.FinderConfig{
		OpenFoodFacts: &openfoodfacts.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
		UPCItemDB:     &upcitemdb.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
	}, service.NewFoodCache(newTestDB(t)), nil, obs)

	ctx := context.Background()
	res, err := f.LookupBarcode(ctx, "012345678905")
	require.NoError(t, err)
	assert.Equal(t, service.ProviderUPCItemDB, res.Provider)
	assert.Equal(t, []string{service.ProviderOpenFoodFacts, service.ProviderUPCItemDB}, res.Trail)
	assert.False(t, res.FromCache)
	assert.Equal(t, model.SourceBarcode, res.Food.Source)
	assert.Equal(t, "Oat Cereal", res.Food.Name)
	assert.InDelta(t, 375, res.Food.Per100g.Kcal, 0.01)

	again, err := f.LookupBarcode(ctx, "012345678905")
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, model.SourceCache, again.Food.Source)
	assert.Equal(t, service.ProviderUPCItemDB, again.Food.Provider)
	assert.Equal(t, int32(1), upcCalls.Load())
	assert.Equal(t, int32(2), offCalls.Load(), "misses are not cached")

	assert.Contains(t, obs.seen(), "upcitemdb/barcode/cache_hit")
	assert.Contains(t, obs.seen(), "openfoodfacts/barcode/not_found")
}

func TestFinderBarcodeNotFoundEverywhere(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":0}`))
	}))
	defer ts.Close()

	f := service.NewFinder(service.FinderConfig{
		OpenFoodFacts: &openfoodfacts.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
	}, nil, nil, nil)
	_, err := f.LookupBarcode(context.Background(), "012345678905")
	assert.True(t, errors.Is(err, service.ErrNotFound), "got %v", err)
}

func TestFinderRejectsInvalidBarcode(t *testing.T) {
	f := service.NewFinder(service.FinderConfig{OpenFoodFacts: &openfoodfacts.Client{}}, nil, nil, nil)
	_, err := f.LookupBarcode(context.Background(), "12ab")
	assert.EqualError(t, err, `invalid barcode "12ab" (expected 8-14 digits)`)
}

func TestFinderSearchMergesProvidersInOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fdc/v1/foods/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods":[
{"fdcId":11,"description":"Banana, raw","foodNutrients":[
 {"nutrientNumber":"208","unitName":"KCAL","value":89},
 {"nutrientNumber":"203","unitName":"G","value":1.1},
 {"nutrientNumber":"205","unitName":"G","value":22.8},
 {"nutrientNumber":"204","unitName":"G","value":0.3}]},
{"fdcId":12,"description":"Banana chips","foodNutrients":[]}]}`))
	})
	mux.HandleFunc("/cgi/search.pl", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"code":"3000","product_name":"Banana puree","nutriments":{"energy-kcal_100g":70}}]}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := service.NewFinder(service.FinderConfig{
		USDA:              &usda.Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()},
		OpenFoodFacts:     &openfoodfacts.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
		RequestsPerSecond: 50,
		Burst:             5,
	}, nil, nil, nil)

	res, err := f.SearchFoods(context.Background(), "banana", 10)
	require.NoError(t, err)
	require.Len(t, res.Foods, 3)
	assert.Equal(t, "usda:11", res.Foods[0].ID)
	assert.Equal(t, "usda:12", res.Foods[1].ID)
	assert.Equal(t, "openfoodfacts:3000", res.Foods[2].ID)
	assert.True(t, res.Foods[1].LowConfidence)
	assert.Empty(t, res.Failed)
	for _, food := range res.Foods {
		assert.Equal(t, model.SourceTextSearch, food.Source)
	}
}

func TestFinderSearchReportsFailedProvider(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fdc/v1/foods/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/cgi/search.pl", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"code":"3000","product_name":"Banana puree"}]}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := service.NewFinder(service.FinderConfig{
		USDA:          &usda.Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()},
		OpenFoodFacts: &openfoodfacts.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
	}, nil, nil, nil)

	res, err := f.SearchFoods(context.Background(), "banana", 5)
	require.NoError(t, err)
	require.Len(t, res.Foods, 1)
	assert.Contains(t, res.Failed, service.ProviderUSDA)
}

func TestFinderSearchRequiresQuery(t *testing.T) {
	f := service.NewFinder(service.FinderConfig{}, nil, nil, nil)
	_, err := f.SearchFoods(context.Background(), "  ", 5)
	assert.EqualError(t, err, "search query is required")
}

func TestFinderAnalyzePhotoTimesOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	f := service.NewFinder(service.FinderConfig{
		Vision:       &vision.Client{BaseURL: ts.URL, HTTPClient: ts.Client()},
		PhotoTimeout: 50 * time.Millisecond,
	}, nil, nil, nil)

	start := time.Now()
	_, err := f.AnalyzePhoto(context.Background(), "two eggs and toast")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestParseProviderList(t *testing.T) {
	assert.Equal(t, []string{"openfoodfacts", "usda"}, service.ParseProviderList(" OFF, usda ,off"))
	assert.Empty(t, service.ParseProviderList(""))
}
