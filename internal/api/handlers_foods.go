package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

type normalizeRequest struct {
	Source   model.FoodSource `json:"source"`
	Provider string           `json:"provider"`
	Query    string           `json:"query"`
	Payload  json.RawMessage  `json:"payload"`
}

// NormalizeFood maps a vendor payload the client already fetched. A payload
// that cannot be parsed is the caller's problem here, so it is a 422.
func (handler *Handler) NormalizeFood(c *fiber.Ctx) error {
	var req normalizeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	recs, err := service.NormalizeFood(service.RawFood{
		Source:   req.Source,
		Provider: req.Provider,
		Query:    req.Query,
		Payload:  req.Payload,
	})
	metrics.RecordNormalization(string(req.Source), err)
	if err != nil {
		var bad *service.MalformedExternalResponseError
		if errors.As(err, &bad) {
			return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return respondError(c, err, fiber.StatusUnprocessableEntity)
	}
	return c.JSON(fiber.Map{"foods": recs})
}

func (handler *Handler) LookupBarcode(c *fiber.Ctx) error {
	res, err := handler.finder.LookupBarcode(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, err, fiber.StatusBadGateway)
	}
	return c.JSON(res)
}

func (handler *Handler) SearchFoods(c *fiber.Ctx) error {
	res, err := handler.finder.SearchFoods(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err, fiber.StatusBadGateway)
	}
	return c.JSON(res)
}

type photoRequest struct {
	Image       string `json:"image"`
	Description string `json:"description"`
}

func (handler *Handler) AnalyzePhoto(c *fiber.Ctx) error {
	var req photoRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := req.Image
	if input == "" {
		input = req.Description
	}
	a, err := handler.finder.AnalyzePhoto(c.UserContext(), input)
	metrics.RecordNormalization(string(model.SourcePhotoAI), err)
	if err != nil {
		return respondError(c, err, fiber.StatusBadGateway)
	}
	return c.JSON(a)
}
