package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/provider/openfoodfacts"
	"github.com/vitaup/vitacore/internal/provider/upcitemdb"
	"github.com/vitaup/vitacore/internal/provider/usda"
	"github.com/vitaup/vitacore/internal/provider/vision"
)

const (
	lookupTimeout      = 15 * time.Second
	photoTimeout       = 60 * time.Second
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

var (
	DefaultBarcodeOrder    = []string{ProviderOpenFoodFacts, ProviderUPCItemDB, ProviderUSDA}
	DefaultSearchProviders = []string{ProviderUSDA, ProviderOpenFoodFacts}

	barcodePattern = regexp.MustCompile(`^\d{8,14}$`)
)

// LookupObserver receives one call per provider attempt.
type LookupObserver interface {
	ObserveLookup(provider, kind, outcome string, elapsed time.Duration)
}

type BarcodeResult struct {
	Food      model.FoodRecord `json:"food"`
	Provider  string           `json:"provider"`
	FromCache bool             `json:"from_cache"`
	Trail     []string         `json:"lookup_trail,omitempty"`
}

type SearchResult struct {
	Foods     []model.FoodRecord `json:"foods"`
	Providers []string           `json:"providers"`
	Failed    map[string]string  `json:"failed,omitempty"`
}

type barcodeClient interface {
	LookupBarcode(ctx context.Context, barcode string) (model.FoodRecord, []byte, error)
}

type searchClient interface {
	SearchFoods(ctx context.Context, query string, limit int) ([]model.FoodRecord, []byte, error)
}

type FinderConfig struct {
	OpenFoodFacts *openfoodfacts.Client
	USDA          *usda.Client
	UPCItemDB     *upcitemdb.Client
	Vision        *vision.Client

	BarcodeOrder    []string
	SearchProviders []string

	// RequestsPerSecond limits calls to each provider. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	// Timeout bounds each barcode or search call and PhotoTimeout each
	// photo analysis. Zero means 15s and 60s.
	Timeout      time.Duration
	PhotoTimeout time.Duration
}

// Finder runs lookups across food providers with caching and per-provider
// rate limits.
type Finder struct {
	barcode      map[string]barcodeClient
	search       map[string]searchClient
	vision       *vision.Client
	order        []string
	fanout       []string
	limiters     map[string]*rate.Limiter
	timeout      time.Duration
	photoTimeout time.Duration
	cache        *FoodCache
	log          *zap.Logger
	obs          LookupObserver
}

func NewFinder(cfg FinderConfig, cache *FoodCache, log *zap.Logger, obs LookupObserver) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Finder{
		barcode:      map[string]barcodeClient{},
		search:       map[string]searchClient{},
		vision:       cfg.Vision,
		order:        normalizeProviderList(cfg.BarcodeOrder, DefaultBarcodeOrder),
		fanout:       normalizeProviderList(cfg.SearchProviders, DefaultSearchProviders),
		limiters:     map[string]*rate.Limiter{},
		timeout:      cfg.Timeout,
		photoTimeout: cfg.PhotoTimeout,
		cache:        cache,
		log:          log,
		obs:          obs,
	}
	if f.timeout <= 0 {
		f.timeout = lookupTimeout
	}
	if f.photoTimeout <= 0 {
		f.photoTimeout = photoTimeout
	}
	if cfg.OpenFoodFacts != nil {
		a := &openFoodFactsAdapter{client: cfg.OpenFoodFacts}
		f.barcode[ProviderOpenFoodFacts] = a
		f.search[ProviderOpenFoodFacts] = a
	}
	if cfg.USDA != nil {
		a := &usdaAdapter{client: cfg.USDA}
		f.barcode[ProviderUSDA] = a
		f.search[ProviderUSDA] = a
	}
	if cfg.UPCItemDB != nil {
		f.barcode[ProviderUPCItemDB] = &upcItemDBAdapter{client: cfg.UPCItemDB}
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		for _, p := range []string{ProviderOpenFoodFacts, ProviderUSDA, ProviderUPCItemDB, ProviderVision} {
			f.limiters[p] = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		}
	}
	return f
}

// LookupBarcode walks the provider order and returns the first named product.
// A product without a name is kept only as a last resort.
func (f *Finder) LookupBarcode(ctx context.Context, barcode string) (BarcodeResult, error) {
	barcode = strings.TrimSpace(barcode)
	if !isValidBarcode(barcode) {
		return BarcodeResult{}, invalidInput("invalid barcode %q (expected 8-14 digits)", barcode)
	}
	var (
		best     BarcodeResult
		found    bool
		attempts []string
		errs     []string
	)
	for _, provider := range f.order {
		client, ok := f.barcode[provider]
		if !ok {
			continue
		}
		attempts = append(attempts, provider)
		res, err := f.lookupBarcodeWith(ctx, provider, client, barcode)
		if err != nil {
			if ctx.Err() != nil {
				return BarcodeResult{}, ctx.Err()
			}
			if !errors.Is(err, ErrNotFound) {
				errs = append(errs, fmt.Sprintf("%s: %v", provider, err))
			}
			continue
		}
		if !found || completenessRank(res.Food.Completeness) > completenessRank(best.Food.Completeness) {
			best, found = res, true
		}
		if best.Food.Completeness != "unknown" {
			break
		}
	}
	if found {
		best.Trail = attempts
		return best, nil
	}
	if len(errs) > 0 {
		return BarcodeResult{}, fmt.Errorf("lookup failed for %q across providers [%s]", barcode, strings.Join(errs, "; "))
	}
	if len(attempts) == 0 {
		return BarcodeResult{}, fmt.Errorf("no lookup providers configured")
	}
	return BarcodeResult{}, fmt.Errorf("barcode %s: %w", barcode, ErrNotFound)
}

func (f *Finder) lookupBarcodeWith(ctx context.Context, provider string, client barcodeClient, barcode string) (BarcodeResult, error) {
	start := time.Now()
	if f.cache != nil {
		recs, hit, err := f.cache.Get(ctx, provider, CacheKindBarcode, barcode)
		if err != nil {
			f.log.Warn("food cache read failed", zap.String("provider", provider), zap.Error(err))
		}
		if hit && len(recs) > 0 {
			f.observe(provider, CacheKindBarcode, "cache_hit", start)
			f.log.Debug("barcode served from cache", zap.String("provider", provider), zap.String("barcode", barcode))
			return BarcodeResult{Food: recs[0], Provider: provider, FromCache: true}, nil
		}
	}
	if err := f.wait(ctx, provider); err != nil {
		return BarcodeResult{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	rec, raw, err := client.LookupBarcode(callCtx, barcode)
	if err != nil {
		if isProviderNotFound(err) {
			f.observe(provider, CacheKindBarcode, "not_found", start)
			return BarcodeResult{}, ErrNotFound
		}
		f.observe(provider, CacheKindBarcode, "error", start)
		f.log.Warn("barcode provider failed", zap.String("provider", provider), zap.String("barcode", barcode), zap.Error(err))
		return BarcodeResult{}, err
	}
	f.observe(provider, CacheKindBarcode, "hit", start)
	if rec.Barcode == "" {
		rec.Barcode = barcode
	}
	if f.cache != nil {
		if err := f.cache.Put(ctx, provider, CacheKindBarcode, barcode, []model.FoodRecord{rec}, raw, defaultBarcodeTTL); err != nil {
			f.log.Warn("food cache write failed", zap.String("provider", provider), zap.Error(err))
		}
	}
	return BarcodeResult{Food: rec, Provider: provider}, nil
}

// SearchFoods queries every search provider concurrently and merges the lists
// in provider order. Each provider's own ranking is kept.
func (f *Finder) SearchFoods(ctx context.Context, query string, limit int) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, invalidInput("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	providers := make([]string, 0, len(f.fanout))
	for _, p := range f.fanout {
		if _, ok := f.search[p]; ok {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return SearchResult{}, fmt.Errorf("no search providers configured")
	}

	lists := make([][]model.FoodRecord, len(providers))
	errs := make([]error, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, provider string) {
			defer wg.Done()
			lists[i], errs[i] = f.searchWith(ctx, provider, query, limit)
		}(i, p)
	}
	wg.Wait()

	out := SearchResult{Providers: providers}
	notFound := 0
	for i, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			if out.Failed == nil {
				out.Failed = map[string]string{}
			}
			out.Failed[providers[i]] = err.Error()
		}
	}
	out.Foods = MergeFoods(lists...)
	if len(out.Foods) > limit {
		out.Foods = out.Foods[:limit]
	}
	if len(out.Foods) == 0 {
		if ctx.Err() != nil {
			return SearchResult{}, ctx.Err()
		}
		if len(out.Failed) == len(providers) {
			return SearchResult{}, fmt.Errorf("search failed for %q across providers", query)
		}
		return SearchResult{}, fmt.Errorf("query %q: %w", query, ErrNotFound)
	}
	return out, nil
}

func (f *Finder) searchWith(ctx context.Context, provider, query string, limit int) ([]model.FoodRecord, error) {
	start := time.Now()
	key := fmt.Sprintf("%s|%d", query, limit)
	if f.cache != nil {
		recs, hit, err := f.cache.Get(ctx, provider, CacheKindSearch, key)
		if err != nil {
			f.log.Warn("food cache read failed", zap.String("provider", provider), zap.Error(err))
		}
		if hit {
			f.observe(provider, CacheKindSearch, "cache_hit", start)
			return recs, nil
		}
	}
	if err := f.wait(ctx, provider); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	recs, raw, err := f.search[provider].SearchFoods(callCtx, query, limit)
	if err != nil {
		if isProviderNotFound(err) {
			f.observe(provider, CacheKindSearch, "not_found", start)
			return nil, ErrNotFound
		}
		f.observe(provider, CacheKindSearch, "error", start)
		f.log.Warn("search provider failed", zap.String("provider", provider), zap.String("query", query), zap.Error(err))
		return nil, err
	}
	f.observe(provider, CacheKindSearch, "hit", start)
	if f.cache != nil {
		if err := f.cache.Put(ctx, provider, CacheKindSearch, key, recs, raw, defaultProviderSearchTTL); err != nil {
			f.log.Warn("food cache write failed", zap.String("provider", provider), zap.Error(err))
		}
	}
	return recs, nil
}

// AnalyzePhoto sends an image or a meal description to the vision endpoint.
func (f *Finder) AnalyzePhoto(ctx context.Context, imageOrText string) (model.PhotoAnalysis, error) {
	if f.vision == nil {
		return model.PhotoAnalysis{}, fmt.Errorf("vision endpoint is not configured")
	}
	if strings.TrimSpace(imageOrText) == "" {
		return model.PhotoAnalysis{}, invalidInput("image or meal description is required")
	}
	start := time.Now()
	if err := f.wait(ctx, ProviderVision); err != nil {
		return model.PhotoAnalysis{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, f.photoTimeout)
	defer cancel()
	_, raw, err := f.vision.Analyze(callCtx, imageOrText)
	if err != nil {
		if errors.Is(err, vision.ErrMalformed) {
			f.observe(ProviderVision, "photo", "malformed", start)
			f.log.Warn("vision response could not be parsed", zap.Error(err))
			return model.PhotoAnalysis{}, malformed(ProviderVision, raw, err)
		}
		f.observe(ProviderVision, "photo", "error", start)
		return model.PhotoAnalysis{}, err
	}
	a, err := NormalizePhoto(raw)
	if err != nil {
		return model.PhotoAnalysis{}, err
	}
	f.observe(ProviderVision, "photo", "hit", start)
	return a, nil
}

func (f *Finder) wait(ctx context.Context, provider string) error {
	l, ok := f.limiters[provider]
	if !ok {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", provider, err)
	}
	return nil
}

func (f *Finder) observe(provider, kind, outcome string, start time.Time) {
	if f.obs != nil {
		f.obs.ObserveLookup(provider, kind, outcome, time.Since(start))
	}
}

type openFoodFactsAdapter struct {
	client *openfoodfacts.Client
}

func (a *openFoodFactsAdapter) LookupBarcode(ctx context.Context, barcode string) (model.FoodRecord, []byte, error) {
	p, raw, err := a.client.LookupBarcode(ctx, barcode)
	if err != nil {
		return model.FoodRecord{}, raw, err
	}
	return FromOpenFoodFacts(p, model.SourceBarcode, ""), raw, nil
}

func (a *openFoodFactsAdapter) SearchFoods(ctx context.Context, query string, limit int) ([]model.FoodRecord, []byte, error) {
	products, raw, err := a.client.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, raw, err
	}
	out := make([]model.FoodRecord, 0, len(products))
	for _, p := range products {
		out = append(out, FromOpenFoodFacts(p, model.SourceTextSearch, query))
	}
	return out, raw, nil
}

type usdaAdapter struct {
	client *usda.Client
}

func (a *usdaAdapter) LookupBarcode(ctx context.Context, barcode string) (model.FoodRecord, []byte, error) {
	food, exact, raw, err := a.client.LookupBarcode(ctx, barcode)
	if err != nil {
		return model.FoodRecord{}, raw, err
	}
	return FromUSDA(food, model.SourceBarcode, "", exact), raw, nil
}

func (a *usdaAdapter) SearchFoods(ctx context.Context, query string, limit int) ([]model.FoodRecord, []byte, error) {
	foods, raw, err := a.client.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, raw, err
	}
	out := make([]model.FoodRecord, 0, len(foods))
	for _, food := range foods {
		out = append(out, FromUSDA(food, model.SourceTextSearch, query, false))
	}
	return out, raw, nil
}

type upcItemDBAdapter struct {
	client *upcitemdb.Client
}

func (a *upcItemDBAdapter) LookupBarcode(ctx context.Context, barcode string) (model.FoodRecord, []byte, error) {
	it, raw, err := a.client.LookupBarcode(ctx, barcode)
	if err != nil {
		return model.FoodRecord{}, raw, err
	}
	return FromUPCItemDB(it), raw, nil
}

func isValidBarcode(code string) bool {
	return barcodePattern.MatchString(code)
}

func normalizeBarcodeProvider(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	switch p {
	case "off":
		return ProviderOpenFoodFacts
	case "upc":
		return ProviderUPCItemDB
	case "fdc":
		return ProviderUSDA
	default:
		return p
	}
}

func normalizeProviderList(in, fallback []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, p := range in {
		p = normalizeBarcodeProvider(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// ParseProviderList splits a comma separated provider setting.
func ParseProviderList(v string) []string {
	return normalizeProviderList(strings.Split(v, ","), nil)
}

func isProviderNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, openfoodfacts.ErrNotFound) ||
		errors.Is(err, usda.ErrNotFound) ||
		errors.Is(err, upcitemdb.ErrNotFound)
}
