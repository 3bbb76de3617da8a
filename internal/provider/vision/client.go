// Package vision talks to the photo and free-text meal analysis endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vitaup/vitacore/internal/provider/llm"
)

var ErrMalformed = errors.New("vision: malformed analysis")

// Item is one detected food. Values cover the estimated quantity, not 100 g.
type Item struct {
	Name      string
	QuantityG *float64
	Kcal      *float64
	CarbsG    *float64
	ProteinG  *float64
	FatG      *float64
	FiberG    *float64
}

type Analysis struct {
	Items     []Item
	KcalTotal *float64
	Notes     string
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Analyze sends a base64 image or a meal description.
func (c *Client) Analyze(ctx context.Context, imageOrText string) (Analysis, []byte, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return Analysis{}, nil, fmt.Errorf("missing vision endpoint URL")
	}
	if strings.TrimSpace(imageOrText) == "" {
		return Analysis{}, nil, fmt.Errorf("image or text is required")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	payload, err := json.Marshal(map[string]string{"image_or_text": imageOrText})
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("marshal vision request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(payload))
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("execute vision request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Analysis{}, nil, fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Analysis{}, body, fmt.Errorf("vision request failed with status %d", resp.StatusCode)
	}
	a, err := ParseAnalysis(body)
	if err != nil {
		return Analysis{}, body, err
	}
	return a, body, nil
}

// ParseAnalysis reads the {alimentos, kcal_total, observacoes} shape. The
// document may arrive fenced or inside a completion envelope.
func ParseAnalysis(body []byte) (Analysis, error) {
	doc := []byte(llm.CleanResponse(llm.ExtractText(body)))
	if !gjson.ValidBytes(doc) {
		return Analysis{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	foods := gjson.GetBytes(doc, "alimentos")
	if !foods.IsArray() {
		return Analysis{}, fmt.Errorf("%w: missing alimentos array", ErrMalformed)
	}
	out := Analysis{
		KcalTotal: optFloat(gjson.GetBytes(doc, "kcal_total")),
		Notes:     strings.TrimSpace(gjson.GetBytes(doc, "observacoes").String()),
	}
	foods.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		macros := v.Get("macros")
		out.Items = append(out.Items, Item{
			Name:      strings.TrimSpace(v.Get("nome").String()),
			QuantityG: optFloat(v.Get("quantidade_estimado_g")),
			Kcal:      optFloat(v.Get("kcal")),
			CarbsG:    optFloat(macros.Get("carbo_g")),
			ProteinG:  optFloat(macros.Get("proteina_g")),
			FatG:      optFloat(macros.Get("gordura_g")),
			FiberG:    optFloat(macros.Get("fibras_g")),
		})
		return true
	})
	return out, nil
}

func optFloat(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Num
		return &v
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		s = strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(s), "kcal"), "g")
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &v
	default:
		return nil
	}
}
