package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"ragchat/bot"
	"ragchat/index"
	"ragchat/loader"
)

// ErrorHandler maps domain sentinels and API error types to HTTP statuses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, bot.ErrNotReady), errors.Is(err, index.ErrNotInitialized):
		return c.Status(fiber.StatusConflict).JSON(NewError(fiber.StatusConflict, err.Error()))
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(NewError(fiber.StatusUnprocessableEntity, err.Error()))
	case errors.Is(err, loader.ErrMissingCredential):
		return c.Status(fiber.StatusBadRequest).JSON(NewError(fiber.StatusBadRequest, err.Error()))
	}

	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	log.Printf("[API] request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(NewError(fiber.StatusInternalServerError, err.Error()))
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}
