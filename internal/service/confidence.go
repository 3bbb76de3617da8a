package service

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/vitaup/vitacore/internal/model"
)

const DefaultVerifiedMinScore = 0.80

type ConfidenceScore struct {
	Score      float64  `json:"score"`
	IsVerified bool     `json:"is_verified"`
	Reasons    []string `json:"reasons,omitempty"`
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// ScoreFood weighs provider trust, nutrition completeness, serving data and
// identity evidence. exact marks a barcode that matched the product exactly.
func ScoreFood(rec model.FoodRecord, query string, exact bool) ConfidenceScore {
	return scoreFood(rec, query, exact, DefaultVerifiedMinScore)
}

func scoreFood(rec model.FoodRecord, query string, exact bool, minScore float64) ConfidenceScore {
	if minScore <= 0 {
		minScore = DefaultVerifiedMinScore
	}
	providerTrust := providerBaseConfidence(rec.Provider)
	nutritionQuality := scoreNutritionQuality(rec)
	servingQuality := scoreServingQuality(rec.Servings)

	var identityQuality float64
	var identityReason string
	switch {
	case exact:
		identityQuality, identityReason = 1.0, "exact barcode match"
	case strings.TrimSpace(query) != "":
		identityQuality, identityReason = scoreSearchIdentityQuality(query, rec.Name, rec.Brand)
	case rec.SourceID != "":
		identityQuality, identityReason = 0.8, "source id present"
	default:
		identityQuality, identityReason = 0.5, "weak identity evidence"
	}

	score := 0.45*providerTrust + 0.25*nutritionQuality + 0.15*servingQuality + 0.15*identityQuality
	score = clamp01(score)
	verified := score >= minScore && identityQuality >= 0.7
	thresholdReason := fmt.Sprintf("verified_threshold=%.2f", minScore)
	if identityQuality < 0.7 {
		thresholdReason += " + identity_guard(identity>=0.70)"
	}

	return ConfidenceScore{
		Score:      score,
		IsVerified: verified,
		Reasons: []string{
			fmt.Sprintf("provider_trust=%.2f", providerTrust),
			fmt.Sprintf("nutrition_quality=%.2f", nutritionQuality),
			fmt.Sprintf("serving_quality=%.2f", servingQuality),
			fmt.Sprintf("identity_quality=%.2f (%s)", identityQuality, identityReason),
			fmt.Sprintf("score=%.2f", score),
			thresholdReason,
		},
	}
}

func providerBaseConfidence(provider string) float64 {
	switch normalizeBarcodeProvider(provider) {
	case ProviderUSDA:
		return 0.90
	case ProviderOpenFoodFacts:
		return 0.72
	case ProviderUPCItemDB:
		return 0.68
	case ProviderVision:
		return 0.45
	default:
		return 0.50
	}
}

func scoreNutritionQuality(rec model.FoodRecord) float64 {
	missingEnergy := false
	missingMacros := 0
	for _, f := range rec.MissingFields {
		switch f {
		case FieldKcal:
			missingEnergy = true
		case FieldProtein, FieldCarbs, FieldFat:
			missingMacros++
		}
	}
	switch {
	case !missingEnergy && missingMacros == 0:
		return 1.0
	case !missingEnergy && missingMacros == 1:
		return 0.7
	case !missingEnergy || missingMacros < 3:
		return 0.4
	default:
		return 0.2
	}
}

// scoreServingQuality rewards a real serving weight beyond the implicit 100 g.
func scoreServingQuality(servings []model.Serving) float64 {
	switch {
	case len(servings) == 0:
		return 0.0
	case len(servings) == 1 && servings[0].Grams == 100:
		return 0.5
	default:
		return 1.0
	}
}

func scoreSearchIdentityQuality(query, description, brand string) (float64, string) {
	queryTokens := tokenize(query)
	descTokens := tokenize(description)
	brandTokens := tokenize(brand)
	if len(queryTokens) == 0 {
		return 0.4, "empty query tokens"
	}

	descSet := map[string]bool{}
	for _, t := range descTokens {
		descSet[t] = true
	}
	brandSet := map[string]bool{}
	for _, t := range brandTokens {
		brandSet[t] = true
	}

	matched := 0
	brandMatched := false
	for _, t := range queryTokens {
		if descSet[t] {
			matched++
		}
		if brandSet[t] {
			brandMatched = true
		}
	}
	overlap := float64(matched) / math.Max(1, float64(len(queryTokens)))

	switch {
	case overlap >= 0.75 && brandMatched:
		return 1.0, "high token overlap with brand match"
	case overlap >= 0.75:
		return 0.8, "high token overlap"
	case overlap >= 0.5 && brandMatched:
		return 0.7, "moderate token overlap with brand match"
	default:
		return 0.4, "weak token overlap"
	}
}

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	parts := strings.Fields(tokenSplit.ReplaceAllString(s, " "))
	seen := map[string]bool{}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func deriveNutritionCompleteness(rec model.FoodRecord) string {
	if strings.TrimSpace(rec.Name) == "" {
		return "unknown"
	}
	if len(rec.MissingFields) == 0 {
		return "complete"
	}
	return "partial"
}

func completenessRank(v string) int {
	switch v {
	case "complete":
		return 3
	case "partial":
		return 2
	case "unknown":
		return 1
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*1000) / 1000
}
