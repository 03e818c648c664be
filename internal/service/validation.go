package service

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"zylorb/internal/model"
	"zylorb/pkg/apierror"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("zone", func(fl validator.FieldLevel) bool {
		return model.IsZone(fl.Field().String())
	})

	return v
}

// validationError turns the first failed rule into a client-facing message.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "Invalid input", "", http.StatusBadRequest)
	}

	fe := fieldErrs[0]
	return apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", fieldMessage(fe), fe.Field(), http.StatusBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "All fields are required"
	case "username":
		return "Username must be 3-30 letters, digits or underscores"
	case "email":
		return "Email address is invalid"
	case "zone":
		return fmt.Sprintf("Zone must be one of %s", strings.Join(model.Zones, ", "))
	case "min":
		if fe.Field() == "password" {
			return "Password must be at least 6 characters"
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
