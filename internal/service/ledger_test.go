package service_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

func meal(id string, at time.Time, kcal int) model.LoggedEntry {
	return model.LoggedEntry{
		ID: id, UserID: "u1", Timestamp: at, Kind: model.KindMeal,
		Meal: &model.MealPayload{FoodName: "rice", Calories: kcal, ProteinG: 5, CarbsG: 40, FatG: 1, VegetableServings: 1},
	}
}

func water(id string, at time.Time, ml int) model.LoggedEntry {
	return model.LoggedEntry{ID: id, UserID: "u1", Timestamp: at, Kind: model.KindWater, Water: &model.WaterPayload{Ml: ml}}
}

func TestAggregateEmptyDay(t *testing.T) {
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := service.Aggregate(nil, day, time.UTC)
	assert.Equal(t, model.DailyLedger{Date: "2024-05-01"}, got)
}

func TestAggregateSumsEveryKind(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.LoggedEntry{
		meal("m1", day.Add(8*time.Hour), 400),
		meal("m2", day.Add(13*time.Hour), 600),
		water("w1", day.Add(9*time.Hour), 750),
		{ID: "x1", Timestamp: day.Add(18 * time.Hour), Kind: model.KindExercise, Exercise: &model.ExercisePayload{ExerciseType: "run", CaloriesBurned: 300, DurationMinutes: 30}},
		{ID: "s1", Timestamp: day.Add(7 * time.Hour), Kind: model.KindSleep, Sleep: &model.SleepPayload{Minutes: 450}},
	}
	got := service.Aggregate(entries, day, time.UTC)
	assert.Equal(t, 1000, got.CaloriesConsumed)
	assert.Equal(t, 300, got.CaloriesBurned)
	assert.Equal(t, 10, got.ProteinG)
	assert.Equal(t, 80, got.CarbsG)
	assert.Equal(t, 2, got.FatG)
	assert.Equal(t, 2, got.VegetableServings)
	assert.Equal(t, 750, got.WaterMl)
	assert.Equal(t, 3, got.WaterGlasses)
	assert.Equal(t, 30, got.ExerciseMinutes)
	assert.Equal(t, 450, got.SleepMinutes)
	assert.Equal(t, 7.5, got.SleepHours)
	assert.Equal(t, 2, got.MealCount)
	assert.Equal(t, 5, got.EntryCount)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.LoggedEntry{
		meal("m1", day.Add(8*time.Hour), 400),
		meal("m2", day.Add(13*time.Hour), 600),
		water("w1", day.Add(9*time.Hour), 250),
		water("w2", day.Add(10*time.Hour), 250),
	}
	correction := meal("m3", day.Add(8*time.Hour), 350)
	correction.Supersedes = "m1"
	entries = append(entries, correction)

	want := service.Aggregate(entries, day, time.UTC)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.LoggedEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, service.Aggregate(shuffled, day, time.UTC))
	}
	assert.Equal(t, 950, want.CaloriesConsumed)
}

func TestAggregateDayBoundsAreInclusive(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	start, end := service.DayBounds(day, loc)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 5, 1, 23, 59, 59, 999999999, loc), end)

	entries := []model.LoggedEntry{
		meal("first", start, 100),
		meal("last", end, 200),
		meal("before", start.Add(-time.Nanosecond), 1000),
		meal("after", end.Add(time.Nanosecond), 1000),
		// 23:30 UTC on Apr 30 is 01:30 on May 1 in UTC+2.
		meal("shifted", time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC), 50),
	}
	got := service.Aggregate(entries, day, loc)
	assert.Equal(t, 350, got.CaloriesConsumed)
	assert.Equal(t, 3, got.MealCount)
}

func TestAggregateCorrectionChainsAndRetractions(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	at := day.Add(12 * time.Hour)
	first := meal("a", at, 500)
	second := meal("b", at, 400)
	second.Supersedes = "a"
	third := meal("c", at, 300)
	third.Supersedes = "b"

	got := service.Aggregate([]model.LoggedEntry{first, second, third}, day, time.UTC)
	assert.Equal(t, 300, got.CaloriesConsumed)
	assert.Equal(t, 1, got.MealCount)

	marker, err := service.Retract(third)
	require.NoError(t, err)
	got = service.Aggregate([]model.LoggedEntry{first, second, third, marker}, day, time.UTC)
	assert.Equal(t, 0, got.CaloriesConsumed)
	assert.Equal(t, 0, got.EntryCount)
}

func TestAggregateCapsGlasses(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.LoggedEntry{water("w1", day.Add(time.Hour), 3000)}
	assert.Equal(t, 8, service.Aggregate(entries, day, time.UTC).WaterGlasses)
	assert.Equal(t, 10, service.AggregateCapped(entries, day, time.UTC, 10).WaterGlasses)
	assert.Equal(t, 12, service.AggregateCapped(entries, day, time.UTC, 0).WaterGlasses)
}

func TestRemainingAndProgress(t *testing.T) {
	targets := model.DailyTargets{DailyCalories: 2000, ProteinG: 150, CarbsG: 200, FatG: 67, WaterMl: 2000}
	ledger := model.DailyLedger{CaloriesConsumed: 2500, CaloriesBurned: 300, ProteinG: 75, WaterMl: 2500}

	assert.Equal(t, -200.0, service.RemainingCalories(targets, ledger))
	p := service.Progress(targets, ledger)
	assert.Equal(t, 125.0, p.CaloriesPercent)
	assert.Equal(t, 50.0, p.ProteinPercent)
	assert.Equal(t, 125.0, p.WaterPercent)
	assert.Equal(t, 0.0, service.ProgressPercent(100, 0))

	s := service.Summarize(targets, ledger)
	assert.Equal(t, -200.0, s.RemainingCalories)
	assert.Equal(t, 125.0, s.CaloriesPercent)
}

func TestParseDate(t *testing.T) {
	got, err := service.ParseDate(" 2024-02-29 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = service.ParseDate("2024-13-01", time.UTC)
	var input *service.InputError
	assert.ErrorAs(t, err, &input)
}
