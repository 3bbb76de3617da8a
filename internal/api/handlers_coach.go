package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

type coachRequest struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	Tone    string `json:"tone"`
}

func (handler *Handler) CoachContext(c *fiber.Ctx) error {
	var req coachRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cc, err := handler.buildCoachContext(c.UserContext(), handler.requestUser(c), req)
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	return c.JSON(cc)
}

type coachReplyRequest struct {
	Raw string `json:"raw"`
}

// ParseCoachReply never fails on content; only an unreadable request is
// rejected.
func (handler *Handler) ParseCoachReply(c *fiber.Ctx) error {
	var req coachReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return c.JSON(service.ParseCoachReply(req.Raw))
}

func (handler *Handler) AskCoach(c *fiber.Ctx) error {
	var req coachRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cc, err := handler.buildCoachContext(c.UserContext(), handler.requestUser(c), req)
	if err != nil {
		return respondError(c, err, fiber.StatusInternalServerError)
	}
	reply, err := handler.coach.Ask(c.UserContext(), cc)
	if err != nil {
		return respondError(c, err, fiber.StatusBadGateway)
	}
	return c.JSON(reply)
}

func (handler *Handler) buildCoachContext(ctx context.Context, userID string, req coachRequest) (model.CoachContext, error) {
	day, err := parseDayParam(req.Date, handler.location, handler.now())
	if err != nil {
		return model.CoachContext{}, err
	}
	ledger, err := handler.journal.Ledger(ctx, userID, day, handler.location, handler.maxGlasses)
	if err != nil {
		return model.CoachContext{}, err
	}
	settings := model.CoachSettings{Tone: strings.TrimSpace(req.Tone)}
	if settings.Tone == "" {
		settings.Tone = handler.coachTone
	}
	var targets model.DailyTargets
	p, err := handler.journal.LatestProfile(ctx, userID)
	switch {
	case err == nil:
		settings.Goal = p.Goal
		if targets, err = handler.engine.ComputeTargets(p); err != nil {
			return model.CoachContext{}, err
		}
	case !isNotFound(err):
		return model.CoachContext{}, err
	}
	return service.BuildCoachContext(req.Message, ledger, targets, settings), nil
}
