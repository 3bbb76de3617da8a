package service

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/model"
)

// MacroSplit is a percent-of-calories split. The three parts must sum to 100.
type MacroSplit struct {
	ProteinPct float64 `yaml:"protein_pct" json:"protein_pct"`
	CarbsPct   float64 `yaml:"carbs_pct" json:"carbs_pct"`
	FatPct     float64 `yaml:"fat_pct" json:"fat_pct"`
}

// EnergyConfig holds the business constants of the energy model.
type EnergyConfig struct {
	DeficitKcal      float64                         `yaml:"deficit_kcal" json:"deficit_kcal"`
	SurplusKcal      float64                         `yaml:"surplus_kcal" json:"surplus_kcal"`
	MinDailyCalories float64                         `yaml:"min_daily_calories" json:"min_daily_calories"`
	ActivityFactors  map[model.ActivityLevel]float64 `yaml:"activity_factors" json:"activity_factors"`
	FallbackFactor   float64                         `yaml:"fallback_factor" json:"fallback_factor"`
	MacroSplits      map[model.Goal]MacroSplit       `yaml:"macro_splits" json:"macro_splits"`
	DefaultSplit     MacroSplit                      `yaml:"default_split" json:"default_split"`
	WaterMlPerKg     float64                         `yaml:"water_ml_per_kg" json:"water_ml_per_kg"`
	WaterStepMl      float64                         `yaml:"water_step_ml" json:"water_step_ml"`
}

func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		DeficitKcal:      500,
		SurplusKcal:      300,
		MinDailyCalories: 1200,
		ActivityFactors: map[model.ActivityLevel]float64{
			model.ActivitySedentary:  1.2,
			model.ActivityLight:      1.375,
			model.ActivityModerate:   1.55,
			model.ActivityActive:     1.725,
			model.ActivityVeryActive: 1.9,
		},
		FallbackFactor: 1.2,
		MacroSplits: map[model.Goal]MacroSplit{
			model.GoalGain: {ProteinPct: 35, CarbsPct: 45, FatPct: 20},
			model.GoalLose: {ProteinPct: 35, CarbsPct: 30, FatPct: 35},
		},
		DefaultSplit: MacroSplit{ProteinPct: 30, CarbsPct: 40, FatPct: 30},
		WaterMlPerKg: 35,
		WaterStepMl:  50,
	}
}

// Validate checks that the constants describe a usable model.
func (c EnergyConfig) Validate() error {
	if err := validateNonNegativeFloat("deficit_kcal", c.DeficitKcal); err != nil {
		return err
	}
	if err := validateNonNegativeFloat("surplus_kcal", c.SurplusKcal); err != nil {
		return err
	}
	if err := validateNonNegativeFloat("min_daily_calories", c.MinDailyCalories); err != nil {
		return err
	}
	if c.FallbackFactor <= 0 {
		return fmt.Errorf("fallback_factor must be > 0")
	}
	for level, f := range c.ActivityFactors {
		if f <= 0 {
			return fmt.Errorf("activity factor for %q must be > 0", level)
		}
	}
	splits := map[string]MacroSplit{"default": c.DefaultSplit}
	for goal, s := range c.MacroSplits {
		splits[string(goal)] = s
	}
	for name, s := range splits {
		if s.ProteinPct < 0 || s.CarbsPct < 0 || s.FatPct < 0 {
			return fmt.Errorf("macro split %q must not contain negative percentages", name)
		}
		if math.Abs(s.ProteinPct+s.CarbsPct+s.FatPct-100) > 0.001 {
			return fmt.Errorf("macro split %q must sum to 100 (got %.2f)", name, s.ProteinPct+s.CarbsPct+s.FatPct)
		}
	}
	return nil
}

// CalculateBMR uses the revised Harris-Benedict equation. Female and other
// share the female branch.
func CalculateBMR(p model.Profile) (float64, error) {
	if !isPositiveFinite(p.WeightKg) {
		return 0, &InvalidProfileError{Field: "weight_kg", Value: p.WeightKg}
	}
	if !isPositiveFinite(p.HeightCm) {
		return 0, &InvalidProfileError{Field: "height_cm", Value: p.HeightCm}
	}
	if !isPositiveFinite(p.Age) {
		return 0, &InvalidProfileError{Field: "age", Value: p.Age}
	}
	if normalizeSex(p.Sex) == model.SexMale {
		return 88.362 + 13.397*p.WeightKg + 4.799*p.HeightCm - 5.677*p.Age, nil
	}
	return 447.593 + 9.247*p.WeightKg + 3.098*p.HeightCm - 4.330*p.Age, nil
}

// ActivityFactor reports the multiplier for level and whether level was known.
func (c EnergyConfig) ActivityFactor(level model.ActivityLevel) (float64, bool) {
	f, ok := c.ActivityFactors[normalizeActivity(level)]
	if !ok {
		return c.FallbackFactor, false
	}
	return f, true
}

func (c EnergyConfig) TDEE(bmr float64, level model.ActivityLevel) float64 {
	f, _ := c.ActivityFactor(level)
	return bmr * f
}

// DailyCalories applies the goal adjustment and clamps at MinDailyCalories.
func (c EnergyConfig) DailyCalories(tdee float64, goal model.Goal) float64 {
	kcal := tdee
	switch normalizeGoal(goal) {
	case model.GoalLose:
		kcal = tdee - c.DeficitKcal
	case model.GoalGain:
		kcal = tdee + c.SurplusKcal
	}
	if kcal < c.MinDailyCalories {
		return c.MinDailyCalories
	}
	return kcal
}

func (c EnergyConfig) Split(goal model.Goal) MacroSplit {
	if s, ok := c.MacroSplits[normalizeGoal(goal)]; ok {
		return s
	}
	return c.DefaultSplit
}

// Macros rounds each macro on its own, so 4P+4C+9F drifts a few kcal from
// dailyCalories.
func (c EnergyConfig) Macros(dailyCalories float64, goal model.Goal) (protein, carbs, fat int) {
	if dailyCalories <= 0 {
		return 0, 0, 0
	}
	s := c.Split(goal)
	protein = roundInt(dailyCalories * s.ProteinPct / 100 / kcalPerGProtein)
	carbs = roundInt(dailyCalories * s.CarbsPct / 100 / kcalPerGCarbs)
	fat = roundInt(dailyCalories * s.FatPct / 100 / kcalPerGFat)
	return protein, carbs, fat
}

func (c EnergyConfig) WaterMl(weightKg float64) int {
	if !isPositiveFinite(weightKg) {
		return 0
	}
	return roundInt(roundToStep(weightKg*c.WaterMlPerKg, c.WaterStepMl))
}

// CalculateTDEE multiplies bmr by the default activity factor table. Unknown
// levels use the fallback factor.
func CalculateTDEE(bmr float64, level model.ActivityLevel) float64 {
	return DefaultEnergyConfig().TDEE(bmr, level)
}

func CalculateDailyCalories(tdee float64, goal model.Goal) float64 {
	return DefaultEnergyConfig().DailyCalories(tdee, goal)
}

func CalculateMacros(dailyCalories float64, goal model.Goal) (protein, carbs, fat int) {
	return DefaultEnergyConfig().Macros(dailyCalories, goal)
}

// Engine computes targets with a configured constant set and reports silent
// defaults through its logger.
type Engine struct {
	cfg EnergyConfig
	log *zap.Logger
}

func NewEngine(cfg EnergyConfig, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("energy config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

func (e *Engine) Config() EnergyConfig {
	return e.cfg
}

func (e *Engine) ComputeTargets(p model.Profile) (model.DailyTargets, error) {
	bmr, err := CalculateBMR(p)
	if err != nil {
		return model.DailyTargets{}, err
	}
	factor, known := e.cfg.ActivityFactor(p.ActivityLevel)
	if !known {
		e.log.Warn("unknown activity level, using fallback factor",
			zap.String("profile_id", p.ID),
			zap.String("activity_level", string(p.ActivityLevel)),
			zap.Float64("factor", factor),
		)
	}
	tdee := bmr * factor
	kcal := e.cfg.DailyCalories(tdee, p.Goal)
	protein, carbs, fat := e.cfg.Macros(kcal, p.Goal)
	return model.DailyTargets{
		DailyCalories:          roundTo(kcal, 2),
		ProteinG:               protein,
		CarbsG:                 carbs,
		FatG:                   fat,
		WaterMl:                e.cfg.WaterMl(p.WeightKg),
		BMR:                    roundTo(bmr, 3),
		TDEE:                   roundTo(tdee, 2),
		ActivityFactorFallback: !known,
	}, nil
}

func normalizeSex(s model.Sex) model.Sex {
	return model.Sex(strings.ToLower(strings.TrimSpace(string(s))))
}

func normalizeGoal(g model.Goal) model.Goal {
	return model.Goal(strings.ToLower(strings.TrimSpace(string(g))))
}

func normalizeActivity(a model.ActivityLevel) model.ActivityLevel {
	v := strings.ToLower(strings.TrimSpace(string(a)))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	return model.ActivityLevel(v)
}
