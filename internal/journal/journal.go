// Package journal maps entries and profiles onto the row storage collaborator.
// It is the only place that knows table names.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/rowstore"
	"github.com/vitaup/vitacore/internal/service"
)

const (
	tableEntries  = "entries"
	tableProfiles = "profiles"
)

type Journal struct {
	store rowstore.Store
}

func New(store rowstore.Store) *Journal {
	return &Journal{store: store}
}

// AppendEntry writes e once. Writing the same entry id twice is an error.
func (j *Journal) AppendEntry(ctx context.Context, e model.LoggedEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := j.store.Insert(ctx, tableEntries, rowstore.Row{ID: e.ID, UserID: e.UserID, At: e.Timestamp, Body: body}); err != nil {
		return fmt.Errorf("append entry %s: %w", e.ID, err)
	}
	return nil
}

// Day returns every entry stored for the local calendar day of date,
// corrections and retractions included.
func (j *Journal) Day(ctx context.Context, userID string, date time.Time, loc *time.Location) ([]model.LoggedEntry, error) {
	start, end := service.DayBounds(date, loc)
	return j.entries(ctx, userID, rowstore.Range{From: start, To: end.Add(time.Nanosecond)})
}

// Ledger aggregates a complete day fetch.
func (j *Journal) Ledger(ctx context.Context, userID string, date time.Time, loc *time.Location, maxGlasses int) (model.DailyLedger, error) {
	entries, err := j.Day(ctx, userID, date, loc)
	if err != nil {
		return model.DailyLedger{}, err
	}
	return service.AggregateCapped(entries, date, loc, maxGlasses), nil
}

// FindEntry reads a single entry of the user's by id.
func (j *Journal) FindEntry(ctx context.Context, userID, id string) (model.LoggedEntry, error) {
	row, err := j.store.Get(ctx, tableEntries, userID, id)
	if errors.Is(err, rowstore.ErrNotFound) {
		return model.LoggedEntry{}, fmt.Errorf("entry %s: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return model.LoggedEntry{}, fmt.Errorf("load entry %s: %w", id, err)
	}
	var e model.LoggedEntry
	if err := json.Unmarshal(row.Body, &e); err != nil {
		return model.LoggedEntry{}, fmt.Errorf("decode entry %s: %w", row.ID, err)
	}
	return e, nil
}

func (j *Journal) entries(ctx context.Context, userID string, r rowstore.Range) ([]model.LoggedEntry, error) {
	rows, err := j.store.Select(ctx, tableEntries, userID, r)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	out := make([]model.LoggedEntry, 0, len(rows))
	for _, row := range rows {
		var e model.LoggedEntry
		if err := json.Unmarshal(row.Body, &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", row.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveProfile stores one version of a profile. Earlier versions stay readable.
func (j *Journal) SaveProfile(ctx context.Context, p model.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.Version <= 0 {
		return fmt.Errorf("profile version must be > 0")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	row := rowstore.Row{ID: versionID(p.Version), UserID: p.ID, At: p.UpdatedAt, Body: body}
	if err := j.store.Insert(ctx, tableProfiles, row); err != nil {
		if errors.Is(err, rowstore.ErrConflict) {
			return fmt.Errorf("profile %s version %d already saved: %w", p.ID, p.Version, err)
		}
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (j *Journal) LatestProfile(ctx context.Context, userID string) (model.Profile, error) {
	history, err := j.ProfileHistory(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	if len(history) == 0 {
		return model.Profile{}, fmt.Errorf("profile %s: %w", userID, service.ErrNotFound)
	}
	latest := history[0]
	for _, p := range history[1:] {
		if p.Version > latest.Version {
			latest = p
		}
	}
	return latest, nil
}

func (j *Journal) ProfileHistory(ctx context.Context, userID string) ([]model.Profile, error) {
	rows, err := j.store.Select(ctx, tableProfiles, userID, rowstore.Range{})
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	out := make([]model.Profile, 0, len(rows))
	for _, row := range rows {
		var p model.Profile
		if err := json.Unmarshal(row.Body, &p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", row.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func versionID(v int) string {
	return fmt.Sprintf("v%06d", v)
}

// UpdateProfile saves d as the next version of the user's profile. The first
// call needs a complete draft.
func (j *Journal) UpdateProfile(ctx context.Context, userID string, d model.ProfileDraft, now time.Time) (model.Profile, error) {
	prev, err := j.LatestProfile(ctx, userID)
	var next model.Profile
	switch {
	case errors.Is(err, service.ErrNotFound):
		next, err = service.CompleteProfile(d, userID, now)
	case err != nil:
		return model.Profile{}, err
	default:
		next, err = service.NextProfileVersion(prev, service.ApplyDraft(prev, d), now)
	}
	if err != nil {
		return model.Profile{}, err
	}
	if err := j.SaveProfile(ctx, next); err != nil {
		return model.Profile{}, err
	}
	return next, nil
}
