package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/provider/openfoodfacts"
	"github.com/vitaup/vitacore/internal/provider/upcitemdb"
	"github.com/vitaup/vitacore/internal/provider/usda"
	"github.com/vitaup/vitacore/internal/provider/vision"
)

const (
	ProviderOpenFoodFacts = "openfoodfacts"
	ProviderUSDA          = "usda"
	ProviderUPCItemDB     = "upcitemdb"
	ProviderVision        = "vision"
	ProviderCache         = "cache"
)

const (
	FieldName    = "name"
	FieldKcal    = "kcal"
	FieldProtein = "protein_g"
	FieldCarbs   = "carbs_g"
	FieldFat     = "fat_g"
	FieldServing = "serving_size"
	FieldQty     = "quantity_g"
)

// RawFood is an undecoded collaborator response together with the tag that
// says how to read it. Provider may be empty to use the source's default.
type RawFood struct {
	Source   model.FoodSource
	Provider string
	Query    string
	Payload  []byte
}

var newFoodID = uuid.NewString

// DefaultProvider is the vendor assumed for a source when none is named.
func DefaultProvider(source model.FoodSource) string {
	switch source {
	case model.SourceBarcode:
		return ProviderOpenFoodFacts
	case model.SourceTextSearch:
		return ProviderUSDA
	case model.SourcePhotoAI:
		return ProviderVision
	case model.SourceCache:
		return ProviderCache
	default:
		return ""
	}
}

// NormalizeFood maps a vendor payload into canonical records. Text search keeps
// the vendor's ranking; photo analysis yields one record per detected item.
func NormalizeFood(raw RawFood) ([]model.FoodRecord, error) {
	source := model.FoodSource(normalizeName(string(raw.Source)))
	provider := normalizeBarcodeProvider(raw.Provider)
	if provider == "" {
		provider = DefaultProvider(source)
	}

	switch {
	case source == model.SourceBarcode && provider == ProviderOpenFoodFacts:
		p, err := openfoodfacts.ParseProduct(raw.Payload)
		if err != nil {
			return nil, normalizeErr(provider, raw.Payload, err)
		}
		return []model.FoodRecord{FromOpenFoodFacts(p, source, raw.Query)}, nil
	case source == model.SourceBarcode && provider == ProviderUPCItemDB:
		it, err := upcitemdb.ParseLookup(raw.Payload)
		if err != nil {
			return nil, normalizeErr(provider, raw.Payload, err)
		}
		return []model.FoodRecord{FromUPCItemDB(it)}, nil
	case source == model.SourceBarcode && provider == ProviderUSDA:
		foods, err := usda.ParseSearch(raw.Payload)
		if err != nil {
			return nil, normalizeErr(provider, raw.Payload, err)
		}
		if len(foods) == 0 {
			return nil, ErrNotFound
		}
		return []model.FoodRecord{FromUSDA(foods[0], source, raw.Query, false)}, nil
	case source == model.SourceTextSearch && provider == ProviderUSDA:
		foods, err := usda.ParseSearch(raw.Payload)
		if err != nil {
			return nil, normalizeErr(provider, raw.Payload, err)
		}
		out := make([]model.FoodRecord, 0, len(foods))
		for _, f := range foods {
			out = append(out, FromUSDA(f, source, raw.Query, false))
		}
		return out, nil
	case source == model.SourceTextSearch && provider == ProviderOpenFoodFacts:
		products, err := openfoodfacts.ParseSearch(raw.Payload)
		if err != nil {
			return nil, normalizeErr(provider, raw.Payload, err)
		}
		out := make([]model.FoodRecord, 0, len(products))
		for _, p := range products {
			out = append(out, FromOpenFoodFacts(p, source, raw.Query))
		}
		return out, nil
	case source == model.SourcePhotoAI && provider == ProviderVision:
		a, err := NormalizePhoto(raw.Payload)
		if err != nil {
			return nil, err
		}
		return a.Items, nil
	case source == model.SourceCache && provider == ProviderCache:
		return decodeCachedFoods(raw.Payload)
	default:
		return nil, &UnsupportedSourceError{Source: raw.Source, Provider: raw.Provider}
	}
}

// NormalizePhoto keeps the per-item records and the model's plate total side by
// side. The two totals are not reconciled.
func NormalizePhoto(payload []byte) (model.PhotoAnalysis, error) {
	a, err := vision.ParseAnalysis(payload)
	if err != nil {
		return model.PhotoAnalysis{}, malformed(ProviderVision, payload, err)
	}
	out := model.PhotoAnalysis{
		Items:       make([]model.FoodRecord, 0, len(a.Items)),
		QuantitiesG: make([]float64, 0, len(a.Items)),
		Notes:       a.Notes,
	}
	if a.KcalTotal != nil {
		out.KcalTotal = nonNegative(*a.KcalTotal)
	}
	for _, it := range a.Items {
		rec, qty := FromVisionItem(it)
		out.Items = append(out.Items, rec)
		out.QuantitiesG = append(out.QuantitiesG, qty)
		if it.Kcal != nil {
			out.ItemsKcalSum += nonNegative(*it.Kcal)
		}
	}
	out.ItemsKcalSum = roundTo(out.ItemsKcalSum, 2)
	return out, nil
}

func FromOpenFoodFacts(p openfoodfacts.Product, source model.FoodSource, query string) model.FoodRecord {
	rec := model.FoodRecord{
		Source:   source,
		SourceID: p.Code,
		Provider: ProviderOpenFoodFacts,
		Barcode:  p.Code,
		Name:     p.Name,
		Brand:    p.Brand,
	}
	servingGrams, hasServing := ToGrams(p.ServingQuantity, p.ServingUnit)

	n := p.Per100g
	factor := 1.0
	if !hasNutriments(n) && hasNutriments(p.PerServing) && hasServing {
		n = p.PerServing
		factor = 100 / servingGrams
	}

	var missing []string
	if kcal, ok := offEnergyKcal(n); ok {
		rec.Per100g.Kcal = kcal * factor
	} else {
		missing = append(missing, FieldKcal)
	}
	missing = setMacro(&rec.Per100g.ProteinG, n.Proteins, factor, FieldProtein, missing)
	missing = setMacro(&rec.Per100g.CarbsG, n.Carbohydrates, factor, FieldCarbs, missing)
	missing = setMacro(&rec.Per100g.FatG, n.Fat, factor, FieldFat, missing)
	if n.Fiber != nil {
		rec.Per100g.FiberG = *n.Fiber * factor
	}
	if n.Sodium != nil {
		rec.Per100g.SodiumMg = *n.Sodium * 1000 * factor
	}

	rec.Servings = []model.Serving{{Label: "100 g", Grams: 100}}
	if hasServing && servingGrams != 100 {
		label := p.ServingSize
		if label == "" {
			label = strconv.FormatFloat(p.ServingQuantity, 'f', -1, 64) + " " + p.ServingUnit
		}
		rec.Servings = append(rec.Servings, model.Serving{Label: label, Grams: servingGrams})
	}
	return finalizeFood(rec, missing, query, source == model.SourceBarcode)
}

// offEnergyKcal resolves energy per the reported unit. energy_100g without a
// unit is kJ. A kcal field that equals the kJ field was filled with kJ.
func offEnergyKcal(n openfoodfacts.Nutriments) (float64, bool) {
	kcal, kj := n.EnergyKcal, n.EnergyKJ
	if n.Energy != nil {
		switch n.EnergyUnit {
		case "kcal":
			if kcal == nil {
				kcal = n.Energy
			}
		default:
			if kj == nil {
				kj = n.Energy
			}
		}
	}
	switch {
	case kcal != nil && kj != nil:
		if *kj > 0 && math.Abs(*kcal-*kj)/(*kj) < 0.02 {
			return KJToKcal(*kj), true
		}
		return *kcal, true
	case kcal != nil:
		return *kcal, true
	case kj != nil:
		return KJToKcal(*kj), true
	}
	return 0, false
}

func hasNutriments(n openfoodfacts.Nutriments) bool {
	return n.EnergyKcal != nil || n.EnergyKJ != nil || n.Energy != nil ||
		n.Proteins != nil || n.Carbohydrates != nil || n.Fat != nil
}

func FromUSDA(f usda.Food, source model.FoodSource, query string, exact bool) model.FoodRecord {
	rec := model.FoodRecord{
		Source:   source,
		SourceID: strconv.FormatInt(f.FDCID, 10),
		Provider: ProviderUSDA,
		Barcode:  strings.TrimSpace(f.GTINUPC),
		Name:     strings.TrimSpace(f.Description),
		Brand:    f.Brand(),
	}
	if f.FDCID == 0 {
		rec.SourceID = ""
	}

	var kcal, kj, protein, carbs, fat *float64
	for i := range f.Nutrients {
		n := f.Nutrients[i]
		v := n.Value
		unit := strings.ToLower(strings.TrimSpace(n.Unit))
		name := strings.ToLower(strings.TrimSpace(n.Name))
		switch {
		case n.Number == "208" || (name == "energy" && unit == "kcal"):
			kcal = &v
		case n.Number == "268" || (name == "energy" && unit == "kj"):
			kj = &v
		case strings.HasPrefix(name, "energy") && unit == "kcal" && kcal == nil:
			kcal = &v
		case n.Number == "203" || name == "protein":
			protein = &v
		case n.Number == "205" || name == "carbohydrate, by difference":
			carbs = &v
		case n.Number == "204" || name == "total lipid (fat)":
			fat = &v
		case n.Number == "291" || name == "fiber, total dietary":
			rec.Per100g.FiberG = v
		case n.Number == "307" || name == "sodium, na":
			rec.Per100g.SodiumMg = v
		}
	}

	var missing []string
	switch {
	case kcal != nil:
		rec.Per100g.Kcal = *kcal
	case kj != nil:
		rec.Per100g.Kcal = KJToKcal(*kj)
	default:
		missing = append(missing, FieldKcal)
	}
	missing = setMacro(&rec.Per100g.ProteinG, protein, 1, FieldProtein, missing)
	missing = setMacro(&rec.Per100g.CarbsG, carbs, 1, FieldCarbs, missing)
	missing = setMacro(&rec.Per100g.FatG, fat, 1, FieldFat, missing)

	rec.Servings = []model.Serving{{Label: "100 g", Grams: 100}}
	if grams, ok := ToGrams(f.ServingSize, f.ServingSizeUnit); ok && grams != 100 {
		label := strconv.FormatFloat(f.ServingSize, 'f', -1, 64) + " " + strings.ToLower(f.ServingSizeUnit)
		rec.Servings = append(rec.Servings, model.Serving{Label: label, Grams: grams})
	}
	return finalizeFood(rec, missing, query, exact)
}

// FromUPCItemDB scales label values to 100 g. Without a serving weight the
// label cannot be scaled and the record is left low confidence.
func FromUPCItemDB(it upcitemdb.Item) model.FoodRecord {
	rec := model.FoodRecord{
		Source:   model.SourceBarcode,
		SourceID: it.UPC,
		Provider: ProviderUPCItemDB,
		Barcode:  it.UPC,
		Name:     it.Title,
		Brand:    it.Brand,
		Servings: []model.Serving{{Label: "100 g", Grams: 100}},
	}
	grams, ok := ToGrams(it.ServingAmount, it.ServingUnit)
	if !ok {
		missing := []string{FieldServing, FieldKcal, FieldProtein, FieldCarbs, FieldFat}
		return finalizeFood(rec, missing, "", true)
	}
	if grams != 100 {
		label := strconv.FormatFloat(it.ServingAmount, 'f', -1, 64) + " " + it.ServingUnit
		rec.Servings = append(rec.Servings, model.Serving{Label: label, Grams: grams})
	}
	factor := 100 / grams
	f := it.PerServing
	var missing []string
	missing = setMacro(&rec.Per100g.Kcal, f.Calories, factor, FieldKcal, missing)
	missing = setMacro(&rec.Per100g.ProteinG, f.ProteinG, factor, FieldProtein, missing)
	missing = setMacro(&rec.Per100g.CarbsG, f.CarbsG, factor, FieldCarbs, missing)
	missing = setMacro(&rec.Per100g.FatG, f.FatG, factor, FieldFat, missing)
	if f.FiberG != nil {
		rec.Per100g.FiberG = *f.FiberG * factor
	}
	if f.SodiumMg != nil {
		rec.Per100g.SodiumMg = *f.SodiumMg * factor
	}
	return finalizeFood(rec, missing, "", true)
}

// FromVisionItem converts one detected item and returns its estimated
// quantity. Items without a usable quantity keep their values as if they
// described 100 g and are flagged.
func FromVisionItem(it vision.Item) (model.FoodRecord, float64) {
	rec := model.FoodRecord{
		ID:       newFoodID(),
		Source:   model.SourcePhotoAI,
		Provider: ProviderVision,
		Name:     it.Name,
	}
	var missing []string
	qty := 0.0
	factor := 1.0
	if it.QuantityG != nil && isPositiveFinite(*it.QuantityG) {
		qty = *it.QuantityG
		factor = 100 / qty
		rec.Servings = []model.Serving{{Label: "estimated portion", Grams: qty}}
	} else {
		missing = append(missing, FieldQty)
		rec.Servings = []model.Serving{{Label: "100 g", Grams: 100}}
	}
	missing = setMacro(&rec.Per100g.Kcal, it.Kcal, factor, FieldKcal, missing)
	missing = setMacro(&rec.Per100g.ProteinG, it.ProteinG, factor, FieldProtein, missing)
	missing = setMacro(&rec.Per100g.CarbsG, it.CarbsG, factor, FieldCarbs, missing)
	missing = setMacro(&rec.Per100g.FatG, it.FatG, factor, FieldFat, missing)
	if it.FiberG != nil {
		rec.Per100g.FiberG = *it.FiberG * factor
	}
	return finalizeFood(rec, missing, "", false), qty
}

func decodeCachedFoods(payload []byte) ([]model.FoodRecord, error) {
	trimmed := strings.TrimSpace(string(payload))
	var recs []model.FoodRecord
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(payload, &recs); err != nil {
			return nil, malformed(ProviderCache, payload, err)
		}
	case strings.HasPrefix(trimmed, "{"):
		var rec model.FoodRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, malformed(ProviderCache, payload, err)
		}
		recs = []model.FoodRecord{rec}
	default:
		return nil, malformed(ProviderCache, payload, fmt.Errorf("expected a food record or a list of food records"))
	}
	for i := range recs {
		recs[i].Source = model.SourceCache
		recs[i].Per100g = clampNutrition(recs[i].Per100g)
		recs[i].AtwaterDeviation = atwaterDeviation(recs[i].Per100g, recs[i].MissingFields)
	}
	return recs, nil
}

// MergeFoods concatenates lists and drops later records whose source id was
// already seen, whichever provider returned them. The first occurrence wins.
// Records without a source id are never merged.
func MergeFoods(lists ...[]model.FoodRecord) []model.FoodRecord {
	seen := map[string]bool{}
	var out []model.FoodRecord
	for _, list := range lists {
		for _, rec := range list {
			if rec.SourceID != "" {
				if seen[rec.SourceID] {
					continue
				}
				seen[rec.SourceID] = true
			}
			out = append(out, rec)
		}
	}
	return out
}

// ResolveServing scales the per-100 g values linearly. Nothing is rounded
// here; callers round when they display or log.
func ResolveServing(food model.FoodRecord, grams float64) model.Nutrition {
	if !isPositiveFinite(grams) {
		return model.Nutrition{}
	}
	f := grams / 100
	n := food.Per100g
	return model.Nutrition{
		Kcal:     n.Kcal * f,
		ProteinG: n.ProteinG * f,
		CarbsG:   n.CarbsG * f,
		FatG:     n.FatG * f,
		FiberG:   n.FiberG * f,
		SodiumMg: n.SodiumMg * f,
	}
}

// ServingGrams finds a named serving on the record, matched case-insensitively.
func ServingGrams(food model.FoodRecord, label string) (float64, bool) {
	want := normalizeName(label)
	for _, s := range food.Servings {
		if normalizeName(s.Label) == want {
			return s.Grams, true
		}
	}
	return 0, false
}

func setMacro(dst *float64, v *float64, factor float64, field string, missing []string) []string {
	if v == nil {
		return append(missing, field)
	}
	*dst = *v * factor
	return missing
}

func finalizeFood(rec model.FoodRecord, missing []string, query string, exact bool) model.FoodRecord {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Brand = strings.TrimSpace(rec.Brand)
	if rec.Name == "" {
		missing = append([]string{FieldName}, missing...)
	}
	if rec.ID == "" {
		if rec.SourceID != "" {
			rec.ID = rec.Provider + ":" + rec.SourceID
		} else {
			rec.ID = newFoodID()
		}
	}
	rec.Per100g = clampNutrition(rec.Per100g)
	rec.MissingFields = missing
	rec.LowConfidence = len(missing) > 0
	rec.AtwaterDeviation = atwaterDeviation(rec.Per100g, missing)
	rec.Completeness = deriveNutritionCompleteness(rec)
	rec.Confidence = ScoreFood(rec, query, exact).Score
	return rec
}

func clampNutrition(n model.Nutrition) model.Nutrition {
	return model.Nutrition{
		Kcal:     nonNegative(n.Kcal),
		ProteinG: nonNegative(n.ProteinG),
		CarbsG:   nonNegative(n.CarbsG),
		FatG:     nonNegative(n.FatG),
		FiberG:   nonNegative(n.FiberG),
		SodiumMg: nonNegative(n.SodiumMg),
	}
}

// atwaterDeviation is reported kcal minus 4P+4C+9F. It is zero when any of the
// inputs is missing.
func atwaterDeviation(n model.Nutrition, missing []string) float64 {
	for _, f := range missing {
		switch f {
		case FieldKcal, FieldProtein, FieldCarbs, FieldFat:
			return 0
		}
	}
	return roundTo(n.Kcal-MacroKcal(n.ProteinG, n.CarbsG, n.FatG), 2)
}

func normalizeErr(provider string, payload []byte, err error) error {
	if isProviderNotFound(err) {
		return ErrNotFound
	}
	return malformed(provider, payload, err)
}
