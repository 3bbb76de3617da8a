package openfoodfacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "vitacore/1.0 (+https://github.com/vitaup/vitacore)"
)

var ErrNotFound = errors.New("openfoodfacts: product not found")

// Nutriments holds one basis (per 100 g or per serving) of reported values.
// Nil means the product did not report the field.
type Nutriments struct {
	EnergyKcal    *float64
	EnergyKJ      *float64
	Energy        *float64
	EnergyUnit    string
	Proteins      *float64
	Carbohydrates *float64
	Fat           *float64
	Fiber         *float64
	Sodium        *float64
}

type Product struct {
	Code            string
	Name            string
	Brand           string
	ServingSize     string
	ServingQuantity float64
	ServingUnit     string
	Per100g         Nutriments
	PerServing      Nutriments
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) LookupBarcode(ctx context.Context, barcode string) (Product, []byte, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.base(), url.PathEscape(strings.TrimSpace(barcode)))
	body, err := c.get(ctx, u, "lookup")
	if err != nil {
		return Product{}, body, err
	}
	p, err := ParseProduct(body)
	if err != nil {
		return Product{}, body, err
	}
	if p.Code == "" {
		p.Code = strings.TrimSpace(barcode)
	}
	return p, body, nil
}

func (c *Client) SearchFoods(ctx context.Context, query string, limit int) ([]Product, []byte, error) {
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		c.base(),
		url.QueryEscape(strings.TrimSpace(query)),
		limit,
	)
	body, err := c.get(ctx, u, "search")
	if err != nil {
		return nil, body, err
	}
	products, err := ParseSearch(body)
	if err != nil {
		return nil, body, err
	}
	if len(products) == 0 {
		return nil, body, fmt.Errorf("query %q: %w", query, ErrNotFound)
	}
	return products, body, nil
}

func (c *Client) base() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c *Client) get(ctx context.Context, u, op string) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create openfoodfacts %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute openfoodfacts %s request: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openfoodfacts %s response: %w", op, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return body, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, fmt.Errorf("openfoodfacts %s request failed with status %d", op, resp.StatusCode)
	}
	return body, nil
}

// ParseProduct reads a /api/v2/product response. A response with status 0 is
// ErrNotFound; a product without a name is still returned.
func ParseProduct(body []byte) (Product, error) {
	if !gjson.ValidBytes(body) {
		return Product{}, fmt.Errorf("decode openfoodfacts response: invalid JSON")
	}
	doc := gjson.ParseBytes(body)
	if status := doc.Get("status"); status.Exists() && status.Int() != 1 {
		return Product{}, ErrNotFound
	}
	product := doc.Get("product")
	if !product.IsObject() {
		return Product{}, fmt.Errorf("decode openfoodfacts response: missing product object")
	}
	p := parseProduct(product)
	if p.Code == "" {
		p.Code = strings.TrimSpace(doc.Get("code").String())
	}
	return p, nil
}

// ParseSearch reads a search.pl response. Product order is kept.
func ParseSearch(body []byte) ([]Product, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode openfoodfacts search response: invalid JSON")
	}
	products := gjson.GetBytes(body, "products")
	if !products.IsArray() {
		return nil, fmt.Errorf("decode openfoodfacts search response: missing products array")
	}
	out := make([]Product, 0, len(products.Array()))
	products.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, parseProduct(v))
		}
		return true
	})
	return out, nil
}

func parseProduct(v gjson.Result) Product {
	code := strings.TrimSpace(v.Get("code").String())
	if code == "" {
		code = strings.TrimSpace(v.Get("_id").String())
	}
	name := strings.TrimSpace(v.Get("product_name").String())
	if name == "" {
		name = strings.TrimSpace(v.Get("generic_name").String())
	}
	p := Product{
		Code:        code,
		Name:        name,
		Brand:       firstBrand(v.Get("brands").String()),
		ServingSize: strings.TrimSpace(v.Get("serving_size").String()),
	}
	p.ServingQuantity, p.ServingUnit = parseServing(v)

	n := v.Get("nutriments")
	p.Per100g = parseNutriments(n, "_100g")
	p.PerServing = parseNutriments(n, "_serving")
	if p.Per100g.Energy == nil {
		p.Per100g.Energy = optFloat(n.Get("energy"))
	}
	return p
}

func parseNutriments(n gjson.Result, suffix string) Nutriments {
	return Nutriments{
		EnergyKcal:    optFloat(n.Get("energy-kcal" + suffix)),
		EnergyKJ:      optFloat(n.Get("energy-kj" + suffix)),
		Energy:        optFloat(n.Get("energy" + suffix)),
		EnergyUnit:    strings.ToLower(strings.TrimSpace(n.Get("energy_unit").String())),
		Proteins:      optFloat(n.Get("proteins" + suffix)),
		Carbohydrates: optFloat(n.Get("carbohydrates" + suffix)),
		Fat:           optFloat(n.Get("fat" + suffix)),
		Fiber:         optFloat(n.Get("fiber" + suffix)),
		Sodium:        optFloat(n.Get("sodium" + suffix)),
	}
}

// optFloat accepts numbers and numeric strings. Blank or non-numeric values
// count as unreported.
func optFloat(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Num
		return &v
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(r.Str), ",", ".")
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &v
	default:
		return nil
	}
}

func parseServing(v gjson.Result) (float64, string) {
	if q := optFloat(v.Get("serving_quantity")); q != nil && *q > 0 {
		unit := strings.TrimSpace(v.Get("serving_quantity_unit").String())
		if unit == "" {
			unit = "g"
		}
		return *q, unit
	}
	size := strings.TrimSpace(v.Get("serving_size").String())
	if size != "" {
		parts := strings.Fields(size)
		if len(parts) >= 2 {
			if val, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", "."), 64); err == nil && val > 0 {
				return val, strings.Trim(parts[1], "()")
			}
		}
	}
	return 0, ""
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}
