package middleware

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "corrpulse/internal/errors"
)

// tickerPattern accepts normalized ticker tokens: alphanumeric plus
// dot and dash, 1 to 10 characters.
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.-]{1,10}$`)

// isoDatePattern requires zero-padded YYYY-MM-DD; time.Parse alone
// accepts sloppy forms like 2026-1-2.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validator wraps go-playground/validator with the project's custom
// validations (iso8601, ticker) and JSON field names in messages.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the shared request validator.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("iso8601", isISODate)
	v.RegisterValidation("ticker", isValidTicker)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct validates v and converts failures into an APIError
// carrying per-field detail.
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		details = append(details, apierrors.ValidationError{
			Field:   fieldErr.Field(),
			Message: formatFieldError(fieldErr),
		})
	}

	return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", details)
}

// isISODate validates YYYY-MM-DD calendar day strings.
func isISODate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if !isoDatePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

// isValidTicker validates raw ticker tokens before normalization.
func isValidTicker(fl validator.FieldLevel) bool {
	return tickerPattern.MatchString(fl.Field().String())
}

func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "eq":
		return fmt.Sprintf("%s must equal %s", field, param)
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "iso8601":
		return fmt.Sprintf("%s must be a calendar day in YYYY-MM-DD form", field)
	case "ticker":
		return fmt.Sprintf("%s must be a valid ticker symbol", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
