package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-checkin/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the `validate` struct tags and folds failures into a models.ErrValidation.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, Describe(verrs))
}

// ValidationReason returns "" when v is valid, otherwise a readable list of failures.
func ValidationReason(v any) string {
	err := validate.Struct(v)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return Describe(verrs)
	}
	return err.Error()
}

// Describe renders validation failures as "field: rule" pairs.
func Describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", lowerFirst(field)))
		case "email":
			parts = append(parts, fmt.Sprintf("%s is not a valid email", lowerFirst(field)))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds %s characters", lowerFirst(field), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", lowerFirst(field), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
