package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.nal.usda.gov"

var ErrNotFound = errors.New("usda: no matching food")

// Food is one FoodData Central search hit. Nutrient values in search results
// are reported per 100 g.
type Food struct {
	FDCID           int64      `json:"fdcId"`
	Description     string     `json:"description"`
	DataType        string     `json:"dataType"`
	BrandOwner      string     `json:"brandOwner"`
	BrandName       string     `json:"brandName"`
	GTINUPC         string     `json:"gtinUpc"`
	ServingSize     float64    `json:"servingSize"`
	ServingSizeUnit string     `json:"servingSizeUnit"`
	Nutrients       []Nutrient `json:"foodNutrients"`
}

type Nutrient struct {
	Number string  `json:"nutrientNumber"`
	Name   string  `json:"nutrientName"`
	Unit   string  `json:"unitName"`
	Value  float64 `json:"value"`
}

// Brand prefers the consumer-facing brand name over the owner.
func (f Food) Brand() string {
	if b := strings.TrimSpace(f.BrandName); b != "" {
		return b
	}
	return strings.TrimSpace(f.BrandOwner)
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) SearchFoods(ctx context.Context, query string, limit int) ([]Food, []byte, error) {
	if limit <= 0 {
		limit = 10
	}
	body, err := c.search(ctx, map[string]any{
		"query":    strings.TrimSpace(query),
		"pageSize": limit,
	})
	if err != nil {
		return nil, body, err
	}
	foods, err := ParseSearch(body)
	if err != nil {
		return nil, body, err
	}
	if len(foods) == 0 {
		return nil, body, fmt.Errorf("query %q: %w", query, ErrNotFound)
	}
	return foods, body, nil
}

// LookupBarcode searches branded foods by GTIN. The second result reports
// whether the hit matched the barcode exactly.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (Food, bool, []byte, error) {
	body, err := c.search(ctx, map[string]any{
		"query":    barcode,
		"dataType": []string{"Branded"},
		"pageSize": 20,
	})
	if err != nil {
		return Food{}, false, body, err
	}
	foods, err := ParseSearch(body)
	if err != nil {
		return Food{}, false, body, err
	}
	food, exact, ok := selectBarcodeMatch(foods, barcode)
	if !ok {
		return Food{}, false, body, fmt.Errorf("barcode %q: %w", barcode, ErrNotFound)
	}
	return food, exact, body, nil
}

func (c *Client) search(ctx context.Context, reqBody map[string]any) ([]byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("missing USDA API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal USDA search payload: %w", err)
	}

	u := fmt.Sprintf("%s/fdc/v1/foods/search?api_key=%s", baseURL, url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create USDA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute USDA request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read USDA response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, fmt.Errorf("USDA request failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// ParseSearch decodes a foods/search response, keeping the relevance order.
func ParseSearch(body []byte) ([]Food, error) {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode USDA response: %w", err)
	}
	if parsed.Foods == nil {
		return nil, fmt.Errorf("decode USDA response: missing foods array")
	}
	return parsed.Foods, nil
}

func selectBarcodeMatch(foods []Food, barcode string) (Food, bool, bool) {
	want := strings.TrimLeft(strings.TrimSpace(barcode), "0")
	for _, f := range foods {
		if strings.TrimLeft(strings.TrimSpace(f.GTINUPC), "0") == want {
			return f, true, true
		}
	}
	if len(foods) > 0 {
		return foods[0], false, true
	}
	return Food{}, false, false
}

type searchResponse struct {
	Foods []Food `json:"foods"`
}
