package tasks

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/citylaw/docket/internal/domain"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("taskStatus", func(fl validator.FieldLevel) bool {
		return domain.TaskStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("taskPriority", func(fl validator.FieldLevel) bool {
		return domain.TaskPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("dependencyType", func(fl validator.FieldLevel) bool {
		return domain.DependencyType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		return domain.TemplateVisibility(fl.Field().String()).Valid()
	})
	return v
}

// fieldErrors accumulates validation failures for one payload.
type fieldErrors struct {
	v      *validator.Validate
	fields []domain.FieldError
}

func (s *Service) newFieldErrors() *fieldErrors {
	return &fieldErrors{v: s.validate}
}

// add records a failure directly.
func (fe *fieldErrors) add(field, reason, message string) {
	fe.fields = append(fe.fields, domain.FieldError{Field: field, Reason: reason, Message: message})
}

// check validates a single value against a validator tag.
func (fe *fieldErrors) check(field string, value any, tag string) {
	err := fe.v.Var(value, tag)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return
	}
	for _, e := range ve {
		fe.add(field, e.Tag(), fieldMessage(e))
	}
}

// structure validates a whole struct, naming fields by their JSON path.
func (fe *fieldErrors) structure(prefix string, value any) {
	err := fe.v.Struct(value)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return
	}
	for _, e := range ve {
		// Namespace is "<Type>.<path>"; drop the root type name.
		_, path, _ := strings.Cut(e.Namespace(), ".")
		if prefix != "" {
			path = prefix + "." + path
		}
		fe.add(path, e.Tag(), fieldMessage(e))
	}
}

func (fe *fieldErrors) err() error {
	if len(fe.fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Fields: fe.fields}
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	case "taskStatus", "taskPriority", "dependencyType", "role", "visibility", "oneof":
		return fmt.Sprintf("unknown value %v", e.Value())
	default:
		return "is invalid"
	}
}
