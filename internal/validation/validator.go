// Package validation — единый экземпляр go-playground/validator для входных DTO.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

type FieldIssue struct {
	Field   string
	Tag     string
	Message string
}

type RequestValidationError struct {
	issues []FieldIssue
}

func (ve *RequestValidationError) Issues() []FieldIssue { return ve.issues }

func (ve *RequestValidationError) Error() string {
	if len(ve.issues) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(ve.issues))
	for _, i := range ve.issues {
		msgs = append(msgs, fmt.Sprintf("%s: %s", i.Field, i.Message))
	}
	return strings.Join(msgs, "; ")
}

func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// имена полей как в JSON
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("money", validateMoney)
	})
	return validate
}

// money: строка с неотрицательным десятичным числом, не больше двух знаков после точки.
func validateMoney(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Exponent() >= -2
}

// ValidateStruct возвращает nil или *RequestValidationError.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{issues: []FieldIssue{{Field: "", Tag: "", Message: err.Error()}}}
	}

	out := &RequestValidationError{issues: make([]FieldIssue, 0, len(verrs))}
	for _, fe := range verrs {
		out.issues = append(out.issues, FieldIssue{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "money":
		return "must be a non-negative amount with at most 2 decimal places"
	case "ne":
		return "must not be " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}
