package model

import (
	"encoding/json"
	"time"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type Profile struct {
	ID            string        `json:"id"`
	Version       int           `json:"version"`
	Age           float64       `json:"age"`
	Sex           Sex           `json:"sex"`
	HeightCm      float64       `json:"height_cm"`
	WeightKg      float64       `json:"weight_kg"`
	Goal          Goal          `json:"goal"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ProfileDraft holds onboarding quiz answers that have not been persisted yet.
// Nil fields are unanswered questions.
type ProfileDraft struct {
	Age           *float64       `json:"age,omitempty"`
	Sex           *Sex           `json:"sex,omitempty"`
	HeightCm      *float64       `json:"height_cm,omitempty"`
	WeightKg      *float64       `json:"weight_kg,omitempty"`
	Goal          *Goal          `json:"goal,omitempty"`
	ActivityLevel *ActivityLevel `json:"activity_level,omitempty"`
}

type DailyTargets struct {
	DailyCalories float64 `json:"daily_calories"`
	ProteinG      int     `json:"protein_g"`
	CarbsG        int     `json:"carbs_g"`
	FatG          int     `json:"fat_g"`
	WaterMl       int     `json:"water_ml"`
	BMR           float64 `json:"bmr"`
	TDEE          float64 `json:"tdee"`
	// ActivityFactorFallback is set when the profile's activity level was not
	// recognised and the fallback factor was used instead.
	ActivityFactorFallback bool `json:"activity_factor_fallback,omitempty"`
}

type FoodSource string

const (
	SourceBarcode    FoodSource = "barcode"
	SourceTextSearch FoodSource = "text_search"
	SourcePhotoAI    FoodSource = "photo_ai"
	SourceCache      FoodSource = "cache"
)

type Nutrition struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
	SodiumMg float64 `json:"sodium_mg"`
}

type Serving struct {
	Label string  `json:"label"`
	Grams float64 `json:"grams"`
}

type FoodRecord struct {
	ID               string     `json:"id"`
	Source           FoodSource `json:"source"`
	SourceID         string     `json:"source_id"`
	Provider         string     `json:"provider,omitempty"`
	Barcode          string     `json:"barcode,omitempty"`
	Name             string     `json:"name"`
	Brand            string     `json:"brand,omitempty"`
	Per100g          Nutrition  `json:"nutrition_per_100g"`
	Servings         []Serving  `json:"servings"`
	LowConfidence    bool       `json:"low_confidence,omitempty"`
	MissingFields    []string   `json:"missing_fields,omitempty"`
	AtwaterDeviation float64    `json:"atwater_deviation_kcal"`
	Confidence       float64    `json:"confidence,omitempty"`
	Completeness     string     `json:"nutrition_completeness,omitempty"`
}

// PhotoAnalysis keeps the per-item records and the model's own plate total side
// by side. KcalTotal is advisory and is not reconciled with ItemsKcalSum.
type PhotoAnalysis struct {
	Items        []FoodRecord `json:"items"`
	QuantitiesG  []float64    `json:"quantities_g"`
	KcalTotal    float64      `json:"kcal_total"`
	ItemsKcalSum float64      `json:"items_kcal_sum"`
	Notes        string       `json:"notes,omitempty"`
}

type EntryKind string

const (
	KindMeal     EntryKind = "meal"
	KindExercise EntryKind = "exercise"
	KindWater    EntryKind = "water"
	KindSleep    EntryKind = "sleep"
)

type MealPayload struct {
	FoodID            string  `json:"food_id"`
	FoodName          string  `json:"food_name"`
	FoodSource        string  `json:"food_source,omitempty"`
	ServingGrams      float64 `json:"serving_grams"`
	Calories          int     `json:"calories"`
	ProteinG          int     `json:"protein_g"`
	CarbsG            int     `json:"carbs_g"`
	FatG              int     `json:"fat_g"`
	VegetableServings int     `json:"vegetable_servings,omitempty"`
	FruitServings     int     `json:"fruit_servings,omitempty"`
}

type ExercisePayload struct {
	ExerciseType    string `json:"exercise_type"`
	CaloriesBurned  int    `json:"calories_burned"`
	DurationMinutes int    `json:"duration_minutes"`
}

type WaterPayload struct {
	Ml int `json:"ml"`
}

type SleepPayload struct {
	Minutes int `json:"minutes"`
	Quality int `json:"quality,omitempty"`
}

// LoggedEntry is never edited after it is written. A correction is a new entry
// whose Supersedes names the entry it replaces.
type LoggedEntry struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Kind       EntryKind        `json:"kind"`
	Supersedes string           `json:"supersedes,omitempty"`
	Retracted  bool             `json:"retracted,omitempty"`
	Meal       *MealPayload     `json:"meal,omitempty"`
	Exercise   *ExercisePayload `json:"exercise,omitempty"`
	Water      *WaterPayload    `json:"water,omitempty"`
	Sleep      *SleepPayload    `json:"sleep,omitempty"`
}

type DailyLedger struct {
	Date              string  `json:"date"`
	CaloriesConsumed  int     `json:"calories_consumed"`
	CaloriesBurned    int     `json:"calories_burned"`
	ProteinG          int     `json:"protein_g"`
	CarbsG            int     `json:"carbs_g"`
	FatG              int     `json:"fat_g"`
	WaterMl           int     `json:"water_ml"`
	WaterGlasses      int     `json:"water_glasses"`
	ExerciseMinutes   int     `json:"exercise_minutes"`
	SleepMinutes      int     `json:"sleep_minutes"`
	SleepHours        float64 `json:"sleep_hours"`
	VegetableServings int     `json:"vegetable_servings"`
	FruitServings     int     `json:"fruit_servings"`
	MealCount         int     `json:"meal_count"`
	EntryCount        int     `json:"entry_count"`
}

type CoachSettings struct {
	Tone string `json:"tone"`
	Goal Goal   `json:"goal"`
}

type DailySummary struct {
	Ledger            DailyLedger  `json:"ledger"`
	Targets           DailyTargets `json:"targets"`
	RemainingCalories float64      `json:"remaining_calories"`
	CaloriesPercent   float64      `json:"calories_percent"`
	WaterPercent      float64      `json:"water_percent"`
}

type CoachContext struct {
	Date         string        `json:"date"`
	UserMessage  string        `json:"user_message"`
	DailySummary DailySummary  `json:"daily_summary"`
	Settings     CoachSettings `json:"settings"`
}

type CoachAction struct {
	Type     string                     `json:"type"`
	Title    string                     `json:"title,omitempty"`
	TargetMl int                        `json:"target_ml,omitempty"`
	Minutes  int                        `json:"minutes,omitempty"`
	Calories int                        `json:"calories,omitempty"`
	Fields   map[string]json.RawMessage `json:"fields,omitempty"`
}

type CoachReply struct {
	Reply      string        `json:"reply"`
	Actions    []CoachAction `json:"actions"`
	Structured bool          `json:"structured"`
}
