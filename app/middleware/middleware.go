package middleware

import (
	"context"
	"errors"
	"os"
	"time"

	m "coinfolio/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var lg = zerolog.New(os.Stdout).With().Str("Module", "Middleware").Timestamp().Logger()

type Config struct {
	AllowOrigins string
	DbTimeout    time.Duration
}

func SetupMiddleware(router fiber.Router, conf Config) {

	origins := conf.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	router.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	router.Use(recover.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	router.Use(logRequest)
	if conf.DbTimeout > 0 {
		router.Use(timeout(conf.DbTimeout))
	}
}

// errorBody mirrors the failure side of the response envelope.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var statusByKind = map[m.Kind]int{
	m.KindValidation:     fiber.StatusBadRequest,
	m.KindAuthentication: fiber.StatusUnauthorized,
	m.KindForbidden:      fiber.StatusForbidden,
	m.KindNotFound:       fiber.StatusNotFound,
	m.KindConflict:       fiber.StatusConflict,
	m.KindInternal:       fiber.StatusInternalServerError,
}

// ErrorHandler turns any error returned by a handler into the envelope.
// Internal causes are logged and never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {

	status := fiber.StatusInternalServerError
	body := errorBody{Error: "Internal server error"}

	var appErr *m.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status = statusByKind[appErr.Kind]
		body.Error = appErr.Msg
		body.Message = appErr.Detail
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		body.Error = fiberErr.Message
	}

	ev := lg.Warn()
	if status >= fiber.StatusInternalServerError {
		ev = lg.Error()
	}
	ev.Err(err).
		Str("requestId", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Msg("Request failed")

	return c.Status(status).JSON(body)
}

func logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		// the error handler has not written yet
		var fiberErr *fiber.Error
		var appErr *m.Error
		switch {
		case errors.As(err, &appErr):
			status = statusByKind[appErr.Kind]
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		default:
			status = fiber.StatusInternalServerError
		}
	}

	lg.Info().
		Str("requestId", requestID(c)).
		Str("method", c.Method()).
		Str("endpoint", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("Request handled")
	return err
}

// timeout bounds every store call made through the request's user context.
func timeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
