package service

import (
	"time"

	"github.com/vitaup/vitacore/internal/model"
)

const DefaultMaxGlasses = 8

// Aggregate folds the effective entries whose timestamp falls on date's local
// calendar day into a DailyLedger. Superseded and retracted entries are
// dropped, which requires entries to hold the complete history of the day.
func Aggregate(entries []model.LoggedEntry, date time.Time, loc *time.Location) model.DailyLedger {
	return AggregateCapped(entries, date, loc, DefaultMaxGlasses)
}

func AggregateCapped(entries []model.LoggedEntry, date time.Time, loc *time.Location, maxGlasses int) model.DailyLedger {
	start, end := DayBounds(date, loc)
	ledger := model.DailyLedger{Date: start.Format(dateLayout)}

	for _, e := range EffectiveEntries(entries) {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		switch e.Kind {
		case model.KindMeal:
			if e.Meal == nil {
				continue
			}
			ledger.CaloriesConsumed += e.Meal.Calories
			ledger.ProteinG += e.Meal.ProteinG
			ledger.CarbsG += e.Meal.CarbsG
			ledger.FatG += e.Meal.FatG
			ledger.VegetableServings += e.Meal.VegetableServings
			ledger.FruitServings += e.Meal.FruitServings
			ledger.MealCount++
		case model.KindExercise:
			if e.Exercise == nil {
				continue
			}
			ledger.CaloriesBurned += e.Exercise.CaloriesBurned
			ledger.ExerciseMinutes += e.Exercise.DurationMinutes
		case model.KindWater:
			if e.Water == nil {
				continue
			}
			ledger.WaterMl += e.Water.Ml
		case model.KindSleep:
			if e.Sleep == nil {
				continue
			}
			ledger.SleepMinutes += e.Sleep.Minutes
		default:
			continue
		}
		ledger.EntryCount++
	}
	ledger.WaterGlasses = Glasses(ledger.WaterMl, maxGlasses)
	ledger.SleepHours = MinutesToHours(ledger.SleepMinutes)
	return ledger
}

// EffectiveEntries drops every entry named by another entry's Supersedes as
// well as retraction markers themselves. Input order is preserved.
func EffectiveEntries(entries []model.LoggedEntry) []model.LoggedEntry {
	replaced := map[string]bool{}
	for _, e := range entries {
		if e.Supersedes != "" {
			replaced[e.Supersedes] = true
		}
	}
	out := make([]model.LoggedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Retracted || replaced[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RemainingCalories is goal minus consumed plus burned. Negative means the
// budget was exceeded.
func RemainingCalories(t model.DailyTargets, l model.DailyLedger) float64 {
	return roundTo(t.DailyCalories-float64(l.CaloriesConsumed)+float64(l.CaloriesBurned), 2)
}

// ProgressPercent is not clamped at 100. A non-positive goal yields 0.
func ProgressPercent(consumed, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return roundTo(consumed/goal*100, 1)
}

type MacroProgress struct {
	CaloriesPercent float64 `json:"calories_percent"`
	ProteinPercent  float64 `json:"protein_percent"`
	CarbsPercent    float64 `json:"carbs_percent"`
	FatPercent      float64 `json:"fat_percent"`
	WaterPercent    float64 `json:"water_percent"`
}

func Progress(t model.DailyTargets, l model.DailyLedger) MacroProgress {
	return MacroProgress{
		CaloriesPercent: ProgressPercent(float64(l.CaloriesConsumed), t.DailyCalories),
		ProteinPercent:  ProgressPercent(float64(l.ProteinG), float64(t.ProteinG)),
		CarbsPercent:    ProgressPercent(float64(l.CarbsG), float64(t.CarbsG)),
		FatPercent:      ProgressPercent(float64(l.FatG), float64(t.FatG)),
		WaterPercent:    ProgressPercent(float64(l.WaterMl), float64(t.WaterMl)),
	}
}

// AdherenceWithin reports whether actual is within tolerance (a fraction) of
// target.
func AdherenceWithin(actual float64, target float64, tolerance float64) bool {
	if target == 0 {
		return actual == 0
	}
	lower := target * (1 - tolerance)
	upper := target * (1 + tolerance)
	return actual >= lower && actual <= upper
}

// Summarize builds the day summary shared by the CLI, the HTTP surface and the
// coach context.
func Summarize(t model.DailyTargets, l model.DailyLedger) model.DailySummary {
	p := Progress(t, l)
	return model.DailySummary{
		Ledger:            l,
		Targets:           t,
		RemainingCalories: RemainingCalories(t, l),
		CaloriesPercent:   p.CaloriesPercent,
		WaterPercent:      p.WaterPercent,
	}
}
