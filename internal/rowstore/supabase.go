package rowstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase stores rows through the PostgREST API. Each logical table must
// exist with columns id, user_id, ts (timestamptz) and body (jsonb).
type Supabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type SupabaseConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}, nil
}

type supabaseRow struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	TS     string          `json:"ts"`
	Body   json.RawMessage `json:"body"`
}

func (s *Supabase) Insert(ctx context.Context, table string, row Row) error {
	if err := validateRow(table, row); err != nil {
		return err
	}
	payload, err := json.Marshal(supabaseRow{
		ID:     row.ID,
		UserID: row.UserID,
		TS:     row.At.UTC().Format(time.RFC3339Nano),
		Body:   row.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal %s row: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL(table), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create insert request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	status, body, err := s.do(req)
	if err != nil {
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	if status == http.StatusConflict {
		return fmt.Errorf("insert %s row %s: %w", table, row.ID, ErrConflict)
	}
	if err := responseError(status, body); err != nil {
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	return nil
}

func (s *Supabase) Select(ctx context.Context, table, userID string, r Range) ([]Row, error) {
	params := url.Values{}
	params.Set("select", "id,user_id,ts,body")
	params.Add("user_id", "eq."+userID)
	if !r.From.IsZero() {
		params.Add("ts", "gte."+r.From.UTC().Format(time.RFC3339Nano))
	}
	if !r.To.IsZero() {
		params.Add("ts", "lt."+r.To.UTC().Format(time.RFC3339Nano))
	}
	params.Set("order", "ts.asc,id.asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL(table)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create select request: %w", err)
	}
	s.setHeaders(req)

	status, body, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("select %s rows: %w", table, err)
	}
	if err := responseError(status, body); err != nil {
		return nil, fmt.Errorf("select %s rows: %w", table, err)
	}

	var decoded []supabaseRow
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	out := make([]Row, 0, len(decoded))
	for _, d := range decoded {
		at, err := time.Parse(time.RFC3339Nano, d.TS)
		if err != nil {
			return nil, fmt.Errorf("parse %s row timestamp %q: %w", table, d.TS, err)
		}
		out = append(out, Row{ID: d.ID, UserID: d.UserID, At: at, Body: d.Body})
	}
	return out, nil
}

func (s *Supabase) Get(ctx context.Context, table, userID, id string) (Row, error) {
	params := url.Values{}
	params.Set("select", "id,user_id,ts,body")
	params.Add("user_id", "eq."+userID)
	params.Add("id", "eq."+id)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL(table)+"?"+params.Encode(), nil)
	if err != nil {
		return Row{}, fmt.Errorf("create get request: %w", err)
	}
	s.setHeaders(req)

	status, body, err := s.do(req)
	if err != nil {
		return Row{}, fmt.Errorf("get %s row: %w", table, err)
	}
	if err := responseError(status, body); err != nil {
		return Row{}, fmt.Errorf("get %s row: %w", table, err)
	}
	var decoded []supabaseRow
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Row{}, fmt.Errorf("decode %s row: %w", table, err)
	}
	if len(decoded) == 0 {
		return Row{}, fmt.Errorf("get %s row %s: %w", table, id, ErrNotFound)
	}
	d := decoded[0]
	at, err := time.Parse(time.RFC3339Nano, d.TS)
	if err != nil {
		return Row{}, fmt.Errorf("parse %s row timestamp %q: %w", table, d.TS, err)
	}
	return Row{ID: d.ID, UserID: d.UserID, At: at, Body: d.Body}, nil
}

func (s *Supabase) tableURL(table string) string {
	return fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(table))
}

func (s *Supabase) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (s *Supabase) do(req *http.Request) (int, []byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func responseError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return fmt.Errorf("supabase error: %s", errResp.Message)
		}
		if errResp.Error != "" {
			return fmt.Errorf("supabase error: %s", errResp.Error)
		}
	}
	return fmt.Errorf("supabase error: status %d", status)
}
