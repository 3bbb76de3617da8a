package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitaup/vitacore/internal/model"
)

// EntryInput carries exactly one payload. The payload decides the entry kind.
type EntryInput struct {
	UserID   string
	At       time.Time
	Meal     *model.MealPayload
	Exercise *model.ExercisePayload
	Water    *model.WaterPayload
	Sleep    *model.SleepPayload
}

var newEntryID = uuid.NewString

func NewEntry(in EntryInput) (model.LoggedEntry, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return model.LoggedEntry{}, invalidInput("user id is required")
	}
	kind, err := entryKind(in)
	if err != nil {
		return model.LoggedEntry{}, err
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}

	e := model.LoggedEntry{
		ID:        newEntryID(),
		UserID:    in.UserID,
		Timestamp: in.At,
		Kind:      kind,
	}
	switch kind {
	case model.KindMeal:
		m, err := normalizeMealPayload(*in.Meal)
		if err != nil {
			return model.LoggedEntry{}, err
		}
		e.Meal = &m
	case model.KindExercise:
		x, err := normalizeExercisePayload(*in.Exercise)
		if err != nil {
			return model.LoggedEntry{}, err
		}
		e.Exercise = &x
	case model.KindWater:
		if in.Water.Ml <= 0 {
			return model.LoggedEntry{}, invalidInput("water ml must be > 0")
		}
		w := *in.Water
		e.Water = &w
	case model.KindSleep:
		s, err := normalizeSleepPayload(*in.Sleep)
		if err != nil {
			return model.LoggedEntry{}, err
		}
		e.Sleep = &s
	}
	return e, nil
}

// Correct builds the entry that replaces original. History is not edited and
// the replacement keeps the original timestamp.
func Correct(original model.LoggedEntry, replacement EntryInput) (model.LoggedEntry, error) {
	if original.ID == "" {
		return model.LoggedEntry{}, invalidInput("original entry id is required")
	}
	if original.Retracted {
		return model.LoggedEntry{}, invalidInput("entry %s is a retraction and cannot be corrected", original.ID)
	}
	if strings.TrimSpace(replacement.UserID) == "" {
		replacement.UserID = original.UserID
	}
	if replacement.UserID != original.UserID {
		return model.LoggedEntry{}, invalidInput("correction must belong to user %s", original.UserID)
	}
	// Day fetches select by timestamp, so a correction must sit on the same
	// instant as the entry it replaces.
	if !replacement.At.IsZero() && !replacement.At.Equal(original.Timestamp) {
		return model.LoggedEntry{}, invalidInput("correction of %s must keep its timestamp; retract it and log a new entry instead", original.ID)
	}
	replacement.At = original.Timestamp
	e, err := NewEntry(replacement)
	if err != nil {
		return model.LoggedEntry{}, err
	}
	if e.Kind != original.Kind {
		return model.LoggedEntry{}, invalidInput("correction kind %s does not match entry kind %s", e.Kind, original.Kind)
	}
	e.Supersedes = original.ID
	return e, nil
}

// Retract builds a marker entry that removes original from every ledger. The
// marker keeps the original timestamp so it lands in the same day fetch.
func Retract(original model.LoggedEntry) (model.LoggedEntry, error) {
	if original.ID == "" {
		return model.LoggedEntry{}, invalidInput("original entry id is required")
	}
	if original.Retracted {
		return model.LoggedEntry{}, invalidInput("entry %s is already a retraction", original.ID)
	}
	return model.LoggedEntry{
		ID:         newEntryID(),
		UserID:     original.UserID,
		Timestamp:  original.Timestamp,
		Kind:       original.Kind,
		Supersedes: original.ID,
		Retracted:  true,
	}, nil
}

// SnapshotMeal resolves a serving of food into a meal payload. Values are
// rounded here, at logging time, and never recomputed from the food later.
func SnapshotMeal(food model.FoodRecord, grams float64, vegetableServings, fruitServings int) (model.MealPayload, error) {
	if !isPositiveFinite(grams) {
		return model.MealPayload{}, invalidInput("serving grams must be > 0")
	}
	n := ResolveServing(food, grams)
	return normalizeMealPayload(model.MealPayload{
		FoodID:            food.ID,
		FoodName:          food.Name,
		FoodSource:        string(food.Source),
		ServingGrams:      roundTo(grams, 1),
		Calories:          roundInt(n.Kcal),
		ProteinG:          roundInt(n.ProteinG),
		CarbsG:            roundInt(n.CarbsG),
		FatG:              roundInt(n.FatG),
		VegetableServings: vegetableServings,
		FruitServings:     fruitServings,
	})
}

func entryKind(in EntryInput) (model.EntryKind, error) {
	var kinds []model.EntryKind
	if in.Meal != nil {
		kinds = append(kinds, model.KindMeal)
	}
	if in.Exercise != nil {
		kinds = append(kinds, model.KindExercise)
	}
	if in.Water != nil {
		kinds = append(kinds, model.KindWater)
	}
	if in.Sleep != nil {
		kinds = append(kinds, model.KindSleep)
	}
	switch len(kinds) {
	case 0:
		return "", invalidInput("entry payload is required")
	case 1:
		return kinds[0], nil
	default:
		return "", invalidInput("entry must carry exactly one payload, got %d", len(kinds))
	}
}

func normalizeMealPayload(m model.MealPayload) (model.MealPayload, error) {
	m.FoodName = strings.TrimSpace(m.FoodName)
	if m.FoodName == "" {
		return m, invalidInput("meal food name is required")
	}
	if err := validateNonNegativeFloat("serving grams", m.ServingGrams); err != nil {
		return m, err
	}
	ints := []struct {
		name  string
		value int
	}{
		{"calories", m.Calories},
		{"protein", m.ProteinG},
		{"carbs", m.CarbsG},
		{"fat", m.FatG},
		{"vegetable servings", m.VegetableServings},
		{"fruit servings", m.FruitServings},
	}
	for _, v := range ints {
		if err := validateNonNegativeInt(v.name, v.value); err != nil {
			return m, err
		}
	}
	return m, nil
}

func normalizeExercisePayload(x model.ExercisePayload) (model.ExercisePayload, error) {
	x.ExerciseType = normalizeName(x.ExerciseType)
	if x.ExerciseType == "" {
		return x, invalidInput("exercise type is required")
	}
	if err := validateNonNegativeInt("calories burned", x.CaloriesBurned); err != nil {
		return x, err
	}
	if err := validateNonNegativeInt("duration minutes", x.DurationMinutes); err != nil {
		return x, err
	}
	return x, nil
}

func normalizeSleepPayload(s model.SleepPayload) (model.SleepPayload, error) {
	if s.Minutes <= 0 {
		return s, invalidInput("sleep minutes must be > 0")
	}
	if s.Minutes > 24*60 {
		return s, invalidInput("sleep minutes must be <= 1440")
	}
	if s.Quality < 0 || s.Quality > 5 {
		return s, invalidInput("sleep quality must be between 0 and 5")
	}
	return s, nil
}
