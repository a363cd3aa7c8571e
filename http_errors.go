package auth

import (
	stderrors "errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// MessageInternalError is the only text internal failures ever expose
const MessageInternalError = "An unexpected server error occurred"

// ErrorBody is the JSON payload of every error response
type ErrorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Details   any       `json:"details,omitempty"`
}

// NewErrorBody builds the body for status on path
func NewErrorBody(path string, status int, message string) ErrorBody {
	return ErrorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     utils.StatusMessage(status),
		Message:   message,
		Path:      path,
	}
}

// WriteError renders richErr as an ErrorBody
func WriteError(ctx router.Context, richErr *errors.Error) error {
	status := StatusOf(richErr)
	return ctx.JSON(status, NewErrorBody(ctx.Path(), status, richErr.Message))
}

// WriteUnauthorized answers with the 401 body
func WriteUnauthorized(ctx router.Context) error {
	return WriteError(ctx, ErrUnauthorized)
}

// WriteForbidden answers with the 403 body
func WriteForbidden(ctx router.Context) error {
	return WriteError(ctx, ErrForbidden)
}

// ValidationError wraps ozzo field errors. Field messages are kept as
// metadata and rendered as the body details.
func ValidationError(err error) *errors.Error {
	details := map[string]any{}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			details[field] = ferr.Error()
		}
	}

	return errors.Wrap(err, errors.CategoryValidation, "request validation failed").
		WithTextCode(TextCodeValidationFailed).
		WithCode(errors.CodeBadRequest).
		WithMetadata(details)
}

// AsRichError returns the rich error carried by err. Anything else is
// reported as an internal error.
func AsRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		return ValidationError(err)
	}

	var ferr *fiber.Error
	if stderrors.As(err, &ferr) {
		category := errors.CategoryBadInput
		switch {
		case ferr.Code == fiber.StatusNotFound:
			category = errors.CategoryNotFound
		case ferr.Code >= fiber.StatusInternalServerError:
			category = errors.CategoryInternal
		}
		return errors.New(ferr.Message, category).WithCode(ferr.Code)
	}

	return errors.Wrap(err, errors.CategoryInternal, MessageInternalError).
		WithCode(errors.CodeInternal)
}

// StatusOf returns the HTTP status of richErr. The code wins, the category
// is used when no code was set.
func StatusOf(richErr *errors.Error) int {
	if richErr == nil {
		return fiber.StatusInternalServerError
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation:
		return fiber.StatusBadRequest
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler returns a fiber.ErrorHandler rendering errors as ErrorBody.
// Messages of internal errors are replaced and the cause is only logged.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := AsRichError(err)
		status := StatusOf(richErr)

		body := NewErrorBody(c.Path(), status, richErr.Message)

		if richErr.Category == errors.CategoryValidation && len(richErr.Metadata) > 0 {
			body.Details = richErr.Metadata
		}

		if status >= fiber.StatusInternalServerError || richErr.Category == errors.CategoryInternal {
			logger.Error("request failed",
				"path", c.Path(),
				"method", c.Method(),
				"category", richErr.Category,
				"text_code", richErr.TextCode,
				"error", err,
			)
			status = fiber.StatusInternalServerError
			body = NewErrorBody(c.Path(), status, MessageInternalError)
		}

		return c.Status(status).JSON(body)
	}
}
