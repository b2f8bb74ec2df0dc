package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/enrollment-console/internal/models"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

// NewValidator returns a validator that knows the console's custom rules:
// "grade" (one of models.Grades) and "posint" (a base-10 integer greater than zero).
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		return models.Grade(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("posint", func(fl validator.FieldLevel) bool {
		_, ok := parsePositiveInt(fl.Field().String())
		return ok
	})
	return v
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

// validationError turns validator output into an error listing one message per field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return appErrors.Validation(fields)
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "posint":
		return fmt.Sprintf("%s must be a positive whole number", label)
	case "grade":
		return fmt.Sprintf("%s must be one of %s", label, gradeList())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

func gradeList() string {
	parts := make([]string, len(models.Grades))
	for i, g := range models.Grades {
		parts[i] = string(g)
	}
	return strings.Join(parts, ", ")
}

func parsePositiveInt(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
