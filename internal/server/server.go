// Package server is the HTTP glue over the identification core. Handlers
// stay thin: parse, call the core, shape the response.
package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/high-horse/faceid-server/internal/audit"
	"github.com/high-horse/faceid-server/internal/engine"
	"github.com/high-horse/faceid-server/internal/enroll"
	"github.com/high-horse/faceid-server/internal/faceid"
	"github.com/high-horse/faceid-server/internal/stats"
)

// Revoker is implemented by the template store.
type Revoker interface {
	Revoke(id string) error
}

// Server exposes register, identify and the read-only dashboard operations.
type Server struct {
	registrar *enroll.Workflow
	engine    *engine.Engine
	stats     *stats.Aggregator
	audit     *audit.Log
	extractor enroll.Extractor
	revoker   Revoker
}

// New wires the fiber app.
func New(registrar *enroll.Workflow, eng *engine.Engine, agg *stats.Aggregator, log *audit.Log, extractor enroll.Extractor, revoker Revoker) *Server {
	return &Server{registrar: registrar, engine: eng, stats: agg, audit: log, extractor: extractor, revoker: revoker}
}

// App builds the fiber application with routes and middleware.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "faceid-server",
			"time":    time.Now(),
		})
	})

	app.Post("/register", s.register)
	app.Post("/identify", s.identify)
	app.Post("/templates/:id/revoke", s.revoke)
	app.Get("/stats", s.getStats)
	app.Get("/attempts", s.getAttempts)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, faceid.ErrValidation), errors.Is(err, faceid.ErrFeatureExtraction):
		code = fiber.StatusBadRequest
	case errors.Is(err, faceid.ErrDuplicateContact):
		code = fiber.StatusConflict
	case errors.Is(err, faceid.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, faceid.ErrOracleUnavailable):
		code = fiber.StatusServiceUnavailable
	default:
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	t, err := s.registrar.Register(c.Context(), req.Name, req.Contact, req.Image, c.IP())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(RegisterResponse{
		TemplateID: t.ID,
		CreatedAt:  t.CreatedAt,
	})
}

func (s *Server) identify(c *fiber.Ctx) error {
	start := time.Now()

	var req IdentifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	probe := req.Encoding
	if len(probe) == 0 {
		if req.Image == "" {
			return fiber.NewError(fiber.StatusBadRequest, "either image or encoding is required")
		}
		var err error
		probe, err = s.extractor.Extract(c.Context(), req.Image)
		if err != nil {
			return err
		}
	}

	res, err := s.engine.Identify(c.Context(), probe, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(IdentifyResponse{
		Matched:    res.Matched,
		TemplateID: res.TemplateID,
		Confidence: res.Confidence,
		Elapsed:    time.Since(start).String(),
	})
}

func (s *Server) revoke(c *fiber.Ctx) error {
	if err := s.revoker.Revoke(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getStats(c *fiber.Ctx) error {
	return c.JSON(s.stats.Compute())
}

func (s *Server) getAttempts(c *fiber.Ctx) error {
	q := audit.Query{Limit: audit.MaxQueryLimit}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid limit: "+v)
		}
		q.Limit = n
	}
	if v := c.Query("result"); v != "" {
		switch faceid.AttemptResult(v) {
		case faceid.ResultSuccess, faceid.ResultFailed:
			q.Result = faceid.AttemptResult(v)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid result: "+v)
		}
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from: "+v)
		}
		q.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to: "+v)
		}
		q.To = t
	}
	return c.JSON(s.audit.Attempts(q))
}
