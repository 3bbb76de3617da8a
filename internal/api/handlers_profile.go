package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
)

type profileResponse struct {
	Profile model.Profile      `json:"profile"`
	Targets model.DailyTargets `json:"targets"`
}

// ComputeTargets is stateless; nothing is stored.
func (handler *Handler) ComputeTargets(c *fiber.Ctx) error {
	var p model.Profile
	if err := parseBody(c, &p); err != nil {
		return err
	}
	targets, err := handler.engine.ComputeTargets(p)
	if err != nil {
		return respondError(c, err, fiber.StatusUnprocessableEntity)
	}
	metrics.RecordTargets(targets.ActivityFactorFallback)
	return c.JSON(targets)
}

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	p, err := handler.journal.LatestProfile(c.UserContext(), handler.requestUser(c))
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	targets, err := handler.engine.ComputeTargets(p)
	if err != nil {
		return respondError(c, err, fiber.StatusUnprocessableEntity)
	}
	return c.JSON(profileResponse{Profile: p, Targets: targets})
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	var draft model.ProfileDraft
	if err := parseBody(c, &draft); err != nil {
		return err
	}
	p, err := handler.journal.UpdateProfile(c.UserContext(), handler.requestUser(c), draft, handler.now())
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	targets, err := handler.engine.ComputeTargets(p)
	if err != nil {
		return respondError(c, err, fiber.StatusUnprocessableEntity)
	}
	metrics.RecordTargets(targets.ActivityFactorFallback)
	return c.Status(fiber.StatusCreated).JSON(profileResponse{Profile: p, Targets: targets})
}

// currentTargets returns false when the user has no profile yet.
func (handler *Handler) currentTargets(ctx context.Context, userID string) (model.DailyTargets, bool, error) {
	p, err := handler.journal.LatestProfile(ctx, userID)
	if isNotFound(err) {
		return model.DailyTargets{}, false, nil
	}
	if err != nil {
		return model.DailyTargets{}, false, err
	}
	targets, err := handler.engine.ComputeTargets(p)
	if err != nil {
		return model.DailyTargets{}, false, err
	}
	return targets, true, nil
}
