package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

// foodServing logs a meal from a normalized food record.
type foodServing struct {
	Food              model.FoodRecord `json:"food"`
	Grams             float64          `json:"grams"`
	VegetableServings int              `json:"vegetable_servings"`
	FruitServings     int              `json:"fruit_servings"`
}

type entryRequest struct {
	Timestamp  *time.Time             `json:"timestamp"`
	Supersedes string                 `json:"supersedes"`
	Retract    bool                   `json:"retract"`
	Meal       *model.MealPayload     `json:"meal"`
	Food       *foodServing           `json:"food"`
	Exercise   *model.ExercisePayload `json:"exercise"`
	Water      *model.WaterPayload    `json:"water"`
	Sleep      *model.SleepPayload    `json:"sleep"`
}

// CreateEntry appends a new entry, a correction (supersedes set) or a
// retraction (retract set). Stored entries are never edited.
func (handler *Handler) CreateEntry(c *fiber.Ctx) error {
	var req entryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	userID := handler.requestUser(c)

	if req.Retract && req.Supersedes == "" {
		return apiError(c, fiber.StatusBadRequest, "retract needs the id of the entry in supersedes")
	}

	in := service.EntryInput{
		UserID:   userID,
		Meal:     req.Meal,
		Exercise: req.Exercise,
		Water:    req.Water,
		Sleep:    req.Sleep,
	}
	if req.Timestamp != nil {
		in.At = *req.Timestamp
	}
	if req.Food != nil {
		if req.Meal != nil {
			return apiError(c, fiber.StatusBadRequest, "send either meal or food, not both")
		}
		meal, err := service.SnapshotMeal(req.Food.Food, req.Food.Grams, req.Food.VegetableServings, req.Food.FruitServings)
		if err != nil {
			return respondError(c, err, fiber.StatusBadRequest)
		}
		in.Meal = &meal
	}

	var (
		entry model.LoggedEntry
		err   error
	)
	switch {
	case req.Supersedes != "":
		original, findErr := handler.journal.FindEntry(ctx, userID, req.Supersedes)
		if findErr != nil {
			return respondError(c, findErr, fiber.StatusInternalServerError)
		}
		if req.Retract {
			entry, err = service.Retract(original)
		} else {
			entry, err = service.Correct(original, in)
		}
	default:
		if in.At.IsZero() {
			in.At = handler.now()
		}
		entry, err = service.NewEntry(in)
	}
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}
	if err := handler.journal.AppendEntry(ctx, entry); err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	kind := string(entry.Kind)
	if entry.Retracted {
		kind = "retraction"
	}
	metrics.RecordEntry(kind)
	return c.Status(fiber.StatusCreated).JSON(entry)
}

type ledgerResponse struct {
	Ledger     model.DailyLedger      `json:"ledger"`
	Summary    *model.DailySummary    `json:"summary,omitempty"`
	Progress   *service.MacroProgress `json:"progress,omitempty"`
	Motivation string                 `json:"motivation,omitempty"`
}

func (handler *Handler) GetLedger(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location, handler.now())
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}
	userID := handler.requestUser(c)
	ledger, err := handler.journal.Ledger(c.UserContext(), userID, day, handler.location, handler.maxGlasses)
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	resp := ledgerResponse{Ledger: ledger}
	targets, ok, err := handler.currentTargets(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	if ok {
		summary := service.Summarize(targets, ledger)
		progress := service.Progress(targets, ledger)
		resp.Summary = &summary
		resp.Progress = &progress
		resp.Motivation = handler.motivator.Line(summary)
	}
	return c.JSON(resp)
}
