package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/session"
)

var (
	errInvalidBody = apperr.Invalid("invalid request body")
	errNoSession   = apperr.New(apperr.Unauthorized, "authentication required")
)

func ok(c *fiber.Ctx, status int, message string, result interface{}) error {
	return c.Status(status).JSON(dto.Response{
		Status:  status,
		Code:    dto.CodeOK,
		Message: message,
		Result:  result,
	})
}

// fail writes err as an envelope. Server-side failures are logged and
// reported; their details never reach the client.
func fail(c *fiber.Ctx, err error) error {
	e := apperr.From(err)
	status := e.HTTPStatus()

	if status >= fiber.StatusInternalServerError {
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"code", string(e.Code),
			"error", err.Error(),
		}
		if id, err := session.UserID(c); err == nil {
			attrs = append(attrs, "user_id", id.String())
		}
		slog.Error("request failed", attrs...)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.Response{
		Status:  status,
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// ErrorHandler is the Fiber error handler: errors that escape a handler
// (unknown routes, oversized bodies, panics) still get an envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := apperr.UnknownError
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = apperr.NotFound
		case fe.Code == fiber.StatusUnauthorized:
			code = apperr.Unauthorized
		case fe.Code == fiber.StatusTooManyRequests:
			code = apperr.TooManyRequests
		case fe.Code < fiber.StatusInternalServerError:
			code = apperr.BadRequest
		}
		return fail(c, &apperr.Error{Code: code, Message: fe.Message, Status: fe.Code})
	}
	return fail(c, err)
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := session.UserID(c)
	if err != nil {
		return uuid.Nil, errNoSession
	}
	return id, nil
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Invalid(key + " must be a UUID")
	}
	return &id, nil
}

// requiredID parses the mandatory ?id= of PATCH and DELETE requests.
func requiredID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := queryUUID(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, apperr.Invalid("id is required")
	}
	return *id, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(key + " must be a non-negative integer")
	}
	return n, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Invalid(key + " must be true or false")
	}
	return &b, nil
}

// location resolves an IANA zone name; empty means UTC.
func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.Invalid("unknown time zone " + strconv.Quote(name))
	}
	return loc, nil
}
