// Package http exposes hosted sessions over a JSON API.
package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"

	"xiangqi/internal/core"
	"xiangqi/internal/service"
	"xiangqi/internal/session"
)

const rateLimitRate = 10 // req/sec

type HTTPHandler struct {
	svc    *service.Service
	glyphs bool
}

// Config tunes the app
type Config struct {
	DevMode   bool // loosens the rate limiter
	Glyphs    bool // board text uses Chinese characters
	AccessLog bool
}

func NewHTTPHandler(svc *service.Service, glyphs bool) *HTTPHandler {
	return &HTTPHandler{svc: svc, glyphs: glyphs}
}

func NewFiberApp(svc *service.Service, cfg Config) *fiber.App {
	h := NewHTTPHandler(svc, cfg.Glyphs)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: service.WaitTimeout + 5*time.Second,
		IdleTimeout:  30 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api := app.Group("/api/v1")

	// Health check (no rate limit)
	api.Get("/health", h.Health)

	maxReq := rateLimitRate
	if cfg.DevMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	seat := AuthRequired(svc.ValidateToken)

	api.Post("/sessions", h.CreateSession)
	api.Get("/sessions/:sessionId", h.GetSession)
	api.Get("/sessions/:sessionId/board", h.GetBoard)
	api.Post("/sessions/:sessionId/taps", seat, h.Tap)
	api.Post("/sessions/:sessionId/restart", seat, h.Restart)
	api.Post("/sessions/:sessionId/retract", seat, h.Retract)
	api.Delete("/sessions/:sessionId", seat, h.DeleteSession)

	return app
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrSessionNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// serviceError maps service failures to HTTP responses
func serviceError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, core.ErrInternalError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status, code = fiber.StatusNotFound, core.ErrSessionNotFound
	case errors.Is(err, service.ErrSearchInProgress):
		status, code = fiber.StatusConflict, core.ErrSearchInProgress
	case errors.Is(err, service.ErrSessionLimit):
		status, code = fiber.StatusServiceUnavailable, core.ErrResourceLimit
	case errors.Is(err, session.ErrInvalidLayout):
		status, code = fiber.StatusBadRequest, core.ErrInvalidLayout
	}
	return c.Status(status).JSON(core.ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// sessionID validates the :sessionId parameter. On failure the response
// is already written and err is what the handler should return.
func sessionID(c *fiber.Ctx) (string, bool, error) {
	id := utils.CopyString(c.Params("sessionId"))
	if !isValidUUID(id) {
		return "", false, c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid session ID format",
			Code:    core.ErrInvalidRequest,
			Details: "session ID must be a valid UUID",
		})
	}
	return id, true, nil
}

// seatID validates :sessionId and checks the seat token belongs to it
func seatID(c *fiber.Ctx) (string, bool, error) {
	id, ok, err := sessionID(c)
	if !ok {
		return "", false, err
	}
	if seat, _ := c.Locals("seat").(string); seat != id {
		return "", false, c.Status(fiber.StatusForbidden).JSON(core.ErrorResponse{
			Error: "token does not hold a seat in this session",
			Code:  core.ErrForbidden,
		})
	}
	return id, true, nil
}

// Health check endpoint
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(core.HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Unix(),
		Storage:  h.svc.GetStorageHealth(),
		Sessions: h.svc.SessionCount(),
	})
}

// CreateSession starts a session and hands back its seat token
func (h *HTTPHandler) CreateSession(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CreateSessionRequest](c)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}

	sess, token, err := h.svc.CreateSession(session.Config{
		Level:   req.Level,
		Layout:  req.Layout,
		Flipped: req.Flipped,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(core.CreateSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		State:     sess.Response(),
	})
}

// GetSession returns session state, long-polling when wait=true
func (h *HTTPHandler) GetSession(c *fiber.Ctx) error {
	id, ok, err := sessionID(c)
	if !ok {
		return err
	}

	if c.QueryBool("wait") {
		version := c.QueryInt("version", -1)
		if version < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "version is required when waiting",
				Code:    core.ErrInvalidRequest,
				Details: "pass the version from the last state you received",
			})
		}
		sess, err := h.svc.WaitForChange(c.Context(), id, uint64(version))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(sess.Response())
	}

	sess, err := h.svc.GetSession(id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(sess.Response())
}

// GetBoard returns the published frame as text
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	id, ok, err := sessionID(c)
	if !ok {
		return err
	}
	sess, err := h.svc.GetSession(id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(core.BoardResponse{
		FEN:   sess.State().FEN,
		Board: sess.Board(h.glyphs),
	})
}

// Tap forwards a cell tap. Rejected input is 200 with accepted=false.
func (h *HTTPHandler) Tap(c *fiber.Ctx) error {
	id, ok, err := seatID(c)
	if !ok {
		return err
	}
	req, ok := validatedBody[core.TapRequest](c)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	sess, accepted, err := h.svc.Tap(id, *req.Col, *req.Row)
	return h.action(c, sess, accepted, err)
}

func (h *HTTPHandler) Restart(c *fiber.Ctx) error {
	id, ok, err := seatID(c)
	if !ok {
		return err
	}
	sess, accepted, err := h.svc.Restart(id)
	return h.action(c, sess, accepted, err)
}

func (h *HTTPHandler) Retract(c *fiber.Ctx) error {
	id, ok, err := seatID(c)
	if !ok {
		return err
	}
	sess, accepted, err := h.svc.Retract(id)
	return h.action(c, sess, accepted, err)
}

func (h *HTTPHandler) action(c *fiber.Ctx, sess *service.Session, accepted bool, err error) error {
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(core.ActionResponse{
		Accepted: accepted,
		State:    sess.Response(),
	})
}

// DeleteSession ends and cleans up an idle session
func (h *HTTPHandler) DeleteSession(c *fiber.Ctx) error {
	id, ok, err := seatID(c)
	if !ok {
		return err
	}
	if err := h.svc.DeleteSession(id); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
