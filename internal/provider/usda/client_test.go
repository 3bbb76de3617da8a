package usda

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupBarcodeParsesUSDAResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "demo" {
			t.Errorf("expected api key in query")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["query"] != "12345678905" {
			t.Errorf("unexpected query %v", body["query"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "foods": [
    {"fdcId": 1, "description": "Other Yogurt", "gtinUpc": "099999999999", "foodNutrients": []},
    {
      "fdcId": 12345,
      "description": "Greek Yogurt",
      "brandOwner": "Test Brand",
      "gtinUpc": "012345678905",
      "servingSize": 170,
      "servingSizeUnit": "g",
      "foodNutrients": [
        {"nutrientNumber": "208", "nutrientName": "Energy", "unitName": "KCAL", "value": 100},
        {"nutrientNumber": "203", "nutrientName": "Protein", "unitName": "G", "value": 17},
        {"nutrientNumber": "205", "nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 6},
        {"nutrientNumber": "204", "nutrientName": "Total lipid (fat)", "unitName": "G", "value": 0}
      ]
    }
  ]
}`))
	}))
	defer ts.Close()

	c := &Client{
		APIKey:     "demo",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	}

	food, exact, _, err := c.LookupBarcode(context.Background(), "12345678905")
	if err != nil {
		t.Fatalf("lookup barcode: %v", err)
	}
	if !exact {
		t.Fatalf("expected exact GTIN match ignoring leading zeros")
	}
	if food.FDCID != 12345 || food.Brand() != "Test Brand" {
		t.Fatalf("unexpected food: %+v", food)
	}
	if len(food.Nutrients) != 4 || food.Nutrients[0].Unit != "KCAL" || food.Nutrients[0].Value != 100 {
		t.Fatalf("unexpected nutrients: %+v", food.Nutrients)
	}
}

func TestSearchFoodsRequiresAPIKey(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if _, _, err := c.SearchFoods(context.Background(), "rice", 5); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestSearchFoodsEmptyResultIsNotFound(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods": []}`))
	}))
	defer ts.Close()

	c := &Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()}
	_, _, err := c.SearchFoods(context.Background(), "zzzz", 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseSearchRejectsUnexpectedShape(t *testing.T) {
	t.Parallel()

	if _, err := ParseSearch([]byte(`{"error": "OVER_RATE_LIMIT"}`)); err == nil {
		t.Fatalf("expected error for payload without foods")
	}
	if _, err := ParseSearch([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
