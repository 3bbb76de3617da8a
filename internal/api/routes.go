package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/vitaup/vitacore/internal/metrics"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	api.Post("/targets", handler.ComputeTargets)

	profile := api.Group("/profile")
	profile.Get("", handler.GetProfile)
	profile.Post("", handler.UpdateProfile)

	api.Post("/entries", handler.CreateEntry)
	api.Get("/ledger/:date", handler.GetLedger)

	foods := api.Group("/foods")
	foods.Post("/normalize", handler.NormalizeFood)
	foods.Get("/barcode/:code", handler.LookupBarcode)
	foods.Get("/search", handler.SearchFoods)
	foods.Post("/photo", handler.AnalyzePhoto)

	coach := api.Group("/coach")
	coach.Post("/context", handler.CoachContext)
	coach.Post("/reply", handler.ParseCoachReply)
	coach.Post("/ask", handler.AskCoach)
}
