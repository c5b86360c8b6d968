package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
)

var setupValidator sync.Once

// SetupValidator registers the date_only tag (YYYY-MM-DD) on gin's
// validator and reports fields by their json or form name. Safe to call
// more than once.
func SetupValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("date_only", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(ledger.DateLayout, fl.Field().String())
			return err == nil
		})
		v.RegisterTagNameFunc(fieldName)
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return f.Name
}

// HandleValidationError answers a failed bind: 400 with one detail per
// rejected field, 413 for a body cut off by BodyLimit, 400 INVALID_JSON for
// anything else.
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(RequestIDKey)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortWithError(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size")
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
		return
	}
	details := make([]dto.ValidationDetail, len(fieldErrs))
	for i, fe := range fieldErrs {
		details[i] = dto.ValidationDetail{Field: fe.Field(), Message: describe(fe), Tag: fe.Tag()}
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min", "max":
		bound := "at least "
		if fe.Tag() == "max" {
			bound = "at most "
		}
		msg := "Must be " + bound + fe.Param()
		if fe.Kind() == reflect.String {
			msg += " characters"
		}
		return msg
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "date_only":
		return "Must be a date in YYYY-MM-DD format"
	}
	return "Invalid value"
}
