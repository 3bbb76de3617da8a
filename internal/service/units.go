package service

import (
	"fmt"
	"math"
	"strings"
)

const (
	KJPerKcal       = 4.184
	MlPerGlass      = 250
	kcalPerGProtein = 4
	kcalPerGCarbs   = 4
	kcalPerGFat     = 9
)

type unitKind string

const (
	unitKindMass   unitKind = "mass"
	unitKindVolume unitKind = "volume"
)

type unitDef struct {
	kind       unitKind
	toBaseUnit float64
}

var unitTable = map[string]unitDef{
	// mass (base = g)
	"mg":  {kind: unitKindMass, toBaseUnit: 0.001},
	"g":   {kind: unitKindMass, toBaseUnit: 1},
	"kg":  {kind: unitKindMass, toBaseUnit: 1000},
	"oz":  {kind: unitKindMass, toBaseUnit: 28.349523125},
	"lb":  {kind: unitKindMass, toBaseUnit: 453.59237},
	"lbs": {kind: unitKindMass, toBaseUnit: 453.59237},

	// volume (base = ml)
	"ml":    {kind: unitKindVolume, toBaseUnit: 1},
	"l":     {kind: unitKindVolume, toBaseUnit: 1000},
	"tsp":   {kind: unitKindVolume, toBaseUnit: 4.92892159375},
	"tbsp":  {kind: unitKindVolume, toBaseUnit: 14.78676478125},
	"cup":   {kind: unitKindVolume, toBaseUnit: 236.5882365},
	"fl-oz": {kind: unitKindVolume, toBaseUnit: 29.5735295625},
	"glass": {kind: unitKindVolume, toBaseUnit: MlPerGlass},
}

// ConvertAmount converts between mass and volume units. Crossing between mass
// and volume needs a density in g/ml.
func ConvertAmount(value float64, fromUnit, toUnit string, densityGML float64) (float64, error) {
	if value <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}
	from, ok := resolveUnit(fromUnit)
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", fromUnit)
	}
	to, ok := resolveUnit(toUnit)
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", toUnit)
	}

	if from.kind == to.kind {
		base := value * from.toBaseUnit
		return base / to.toBaseUnit, nil
	}

	if densityGML <= 0 {
		return 0, fmt.Errorf("density-g-per-ml must be > 0 for mass/volume conversion")
	}

	var grams float64
	switch from.kind {
	case unitKindMass:
		grams = value * from.toBaseUnit
	case unitKindVolume:
		grams = value * from.toBaseUnit * densityGML
	default:
		return 0, fmt.Errorf("unsupported source unit kind")
	}

	switch to.kind {
	case unitKindMass:
		return grams / to.toBaseUnit, nil
	case unitKindVolume:
		return grams / densityGML / to.toBaseUnit, nil
	default:
		return 0, fmt.Errorf("unsupported target unit kind")
	}
}

// ToGrams resolves a serving amount to grams. Volume units assume water density
// when no density is known.
func ToGrams(amount float64, unit string) (float64, bool) {
	def, ok := resolveUnit(unit)
	if !ok || amount <= 0 {
		return 0, false
	}
	return amount * def.toBaseUnit, true
}

func resolveUnit(unit string) (unitDef, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "gram", "grams", "gr":
		u = "g"
	case "milliliter", "milliliters", "millilitre":
		u = "ml"
	case "fl oz", "floz":
		u = "fl-oz"
	}
	def, ok := unitTable[u]
	return def, ok
}

func KJToKcal(kj float64) float64 {
	return kj / KJPerKcal
}

// Glasses returns whole 250 ml glasses, capped at maxGlasses when it is > 0.
func Glasses(ml int, maxGlasses int) int {
	if ml <= 0 {
		return 0
	}
	g := ml / MlPerGlass
	if maxGlasses > 0 && g > maxGlasses {
		return maxGlasses
	}
	return g
}

func GlassesToMl(glasses int) int {
	return glasses * MlPerGlass
}

func MinutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

func HoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// MacroKcal is the Atwater energy of the given macro grams.
func MacroKcal(proteinG, carbsG, fatG float64) float64 {
	return proteinG*kcalPerGProtein + carbsG*kcalPerGCarbs + fatG*kcalPerGFat
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundToStep(v float64, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
