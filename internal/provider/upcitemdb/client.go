package upcitemdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.upcitemdb.com"

var ErrNotFound = errors.New("upcitemdb: product not found")

// Facts are label values per serving. Nil means the label omitted the field.
type Facts struct {
	Calories *float64
	ProteinG *float64
	CarbsG   *float64
	FatG     *float64
	FiberG   *float64
	SodiumMg *float64
}

type Item struct {
	UPC           string
	Title         string
	Brand         string
	ServingAmount float64
	ServingUnit   string
	PerServing    Facts
}

type Client struct {
	BaseURL    string
	APIKey     string
	APIKeyType string
	HTTPClient *http.Client
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (Item, []byte, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	path := "/prod/trial/lookup"
	if strings.TrimSpace(c.APIKey) != "" {
		path = "/prod/v1/lookup"
	}
	u := fmt.Sprintf("%s%s?upc=%s", base, path, url.QueryEscape(strings.TrimSpace(barcode)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Item{}, nil, fmt.Errorf("create upcitemdb request: %w", err)
	}
	if strings.TrimSpace(c.APIKey) != "" {
		keyType := strings.TrimSpace(c.APIKeyType)
		if keyType == "" {
			keyType = "3scale"
		}
		req.Header.Set("key_type", keyType)
		req.Header.Set("user_key", strings.TrimSpace(c.APIKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Item{}, nil, fmt.Errorf("execute upcitemdb request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Item{}, nil, fmt.Errorf("read upcitemdb response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Item{}, body, fmt.Errorf("upcitemdb request failed with status %d", resp.StatusCode)
	}
	item, err := ParseLookup(body)
	if err != nil {
		return Item{}, body, err
	}
	if item.UPC == "" {
		item.UPC = strings.TrimSpace(barcode)
	}
	return item, body, nil
}

// ParseLookup decodes a lookup response and returns its first item.
func ParseLookup(body []byte) (Item, error) {
	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Item{}, fmt.Errorf("decode upcitemdb response: %w", err)
	}
	if strings.TrimSpace(parsed.Code) == "" {
		return Item{}, fmt.Errorf("decode upcitemdb response: missing code")
	}
	if strings.ToUpper(parsed.Code) != "OK" || len(parsed.Items) == 0 {
		return Item{}, ErrNotFound
	}
	raw := parsed.Items[0]
	upc := strings.TrimSpace(raw.UPC)
	if upc == "" {
		upc = strings.TrimSpace(raw.EAN)
	}
	amount, unit := parseServing(raw.Size)
	return Item{
		UPC:           upc,
		Title:         strings.TrimSpace(raw.Title),
		Brand:         strings.TrimSpace(raw.Brand),
		ServingAmount: amount,
		ServingUnit:   unit,
		PerServing: Facts{
			Calories: parseNutrient(raw.NutritionFacts, "calories", "energy"),
			ProteinG: parseNutrient(raw.NutritionFacts, "protein"),
			CarbsG:   parseNutrient(raw.NutritionFacts, "total carbohydrate", "carbohydrate", "carbohydrates"),
			FatG:     parseNutrient(raw.NutritionFacts, "total fat", "fat"),
			FiberG:   parseNutrient(raw.NutritionFacts, "dietary fiber", "fiber"),
			SodiumMg: parseNutrient(raw.NutritionFacts, "sodium"),
		},
	}, nil
}

func parseServing(size string) (float64, string) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, ""
	}
	parts := strings.Fields(size)
	if len(parts) >= 2 {
		if f, err := strconv.ParseFloat(strings.Trim(parts[0], ","), 64); err == nil && f > 0 {
			return f, strings.ToLower(parts[1])
		}
	}
	return 0, ""
}

// parseNutrient matches label keys case-insensitively in the order given, so
// "total fat" wins over a bare "fat" key.
func parseNutrient(n map[string]any, keys ...string) *float64 {
	normalized := make(map[string]any, len(n))
	for k, v := range n {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for _, key := range keys {
		v, ok := normalized[key]
		if !ok {
			continue
		}
		s := fmt.Sprintf("%v", v)
		var filtered strings.Builder
		for _, r := range s {
			if (r >= '0' && r <= '9') || r == '.' {
				filtered.WriteRune(r)
			}
		}
		if f, err := strconv.ParseFloat(filtered.String(), 64); err == nil {
			return &f
		}
	}
	return nil
}

type response struct {
	Code  string `json:"code"`
	Items []item `json:"items"`
}

type item struct {
	UPC            string         `json:"upc"`
	EAN            string         `json:"ean"`
	Title          string         `json:"title"`
	Brand          string         `json:"brand"`
	Size           string         `json:"size"`
	NutritionFacts map[string]any `json:"nutrition_facts"`
}
