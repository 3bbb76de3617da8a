package service

import (
	"strings"
	"time"

	"github.com/vitaup/vitacore/internal/model"
)

// ValidateProfile checks every field the energy model reads. Activity level is
// not checked here; unknown levels use the fallback factor.
func ValidateProfile(p model.Profile) error {
	checks := []struct {
		field string
		value float64
	}{
		{"age", p.Age},
		{"height_cm", p.HeightCm},
		{"weight_kg", p.WeightKg},
	}
	for _, c := range checks {
		if !isPositiveFinite(c.value) {
			return &InvalidProfileError{Field: c.field, Value: c.value}
		}
	}
	switch normalizeSex(p.Sex) {
	case model.SexMale, model.SexFemale, model.SexOther:
	default:
		return invalidInput("sex must be one of male, female, other")
	}
	switch normalizeGoal(p.Goal) {
	case model.GoalLose, model.GoalMaintain, model.GoalGain:
	default:
		return invalidInput("goal must be one of lose, maintain, gain")
	}
	return nil
}

// CompleteProfile promotes an onboarding draft into a profile ready to persist.
func CompleteProfile(d model.ProfileDraft, id string, now time.Time) (model.Profile, error) {
	var missing []string
	if d.Age == nil {
		missing = append(missing, "age")
	}
	if d.Sex == nil {
		missing = append(missing, "sex")
	}
	if d.HeightCm == nil {
		missing = append(missing, "height_cm")
	}
	if d.WeightKg == nil {
		missing = append(missing, "weight_kg")
	}
	if d.Goal == nil {
		missing = append(missing, "goal")
	}
	if len(missing) > 0 {
		return model.Profile{}, invalidInput("profile draft is incomplete: missing %s", strings.Join(missing, ", "))
	}
	level := model.ActivitySedentary
	if d.ActivityLevel != nil {
		level = normalizeActivity(*d.ActivityLevel)
	}
	p := model.Profile{
		ID:            strings.TrimSpace(id),
		Version:       1,
		Age:           *d.Age,
		Sex:           normalizeSex(*d.Sex),
		HeightCm:      *d.HeightCm,
		WeightKg:      *d.WeightKg,
		Goal:          normalizeGoal(*d.Goal),
		ActivityLevel: level,
		UpdatedAt:     now.UTC(),
	}
	if p.ID == "" {
		return model.Profile{}, invalidInput("profile id is required")
	}
	if err := ValidateProfile(p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// NextProfileVersion returns updated as the successor of previous.
func NextProfileVersion(previous, updated model.Profile, now time.Time) (model.Profile, error) {
	if err := ValidateProfile(updated); err != nil {
		return model.Profile{}, err
	}
	updated.ID = previous.ID
	updated.Version = previous.Version + 1
	updated.UpdatedAt = now.UTC()
	return updated, nil
}

// ApplyDraft copies the answered fields of d over p. The result still needs
// NextProfileVersion before it is stored.
func ApplyDraft(p model.Profile, d model.ProfileDraft) model.Profile {
	if d.Age != nil {
		p.Age = *d.Age
	}
	if d.Sex != nil {
		p.Sex = normalizeSex(*d.Sex)
	}
	if d.HeightCm != nil {
		p.HeightCm = *d.HeightCm
	}
	if d.WeightKg != nil {
		p.WeightKg = *d.WeightKg
	}
	if d.Goal != nil {
		p.Goal = normalizeGoal(*d.Goal)
	}
	if d.ActivityLevel != nil {
		p.ActivityLevel = normalizeActivity(*d.ActivityLevel)
	}
	return p
}
