package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/journal"
	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/service"
)

type Handler struct {
	engine     *service.Engine
	journal    *journal.Journal
	finder     *service.Finder
	coach      *service.Coach
	motivator  *service.Motivator
	location   *time.Location
	userID     string
	maxGlasses int
	coachTone  string
	log        *zap.Logger
	now        func() time.Time
}

type Dependencies struct {
	Engine     *service.Engine
	Journal    *journal.Journal
	Finder     *service.Finder
	Coach      *service.Coach
	Location   *time.Location
	UserID     string
	MaxGlasses int
	CoachTone  string
	Log        *zap.Logger
}

func NewHandler(deps Dependencies) *Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		engine:     deps.Engine,
		journal:    deps.Journal,
		finder:     deps.Finder,
		coach:      deps.Coach,
		motivator:  service.NewMotivator(time.Now().UnixNano(), nil),
		location:   loc,
		userID:     deps.UserID,
		maxGlasses: deps.MaxGlasses,
		coachTone:  deps.CoachTone,
		log:        log,
		now:        time.Now,
	}
}

// NewApp returns a fiber app with every route registered.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vitacore",
		DisableStartupMessage: true,
		ErrorHandler:          handler.handleError,
	})
	app.Use(recover.New())
	app.Use(handler.observe)
	RegisterRoutes(app, handler)
	return app
}

func (handler *Handler) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	metrics.RecordHTTP(c.Method(), c.Route().Path, status, time.Since(start))
	return err
}

func (handler *Handler) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return apiError(c, fe.Code, fe.Message)
	}
	handler.log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	return apiError(c, fiber.StatusInternalServerError, "internal error")
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
