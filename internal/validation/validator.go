package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"

	"github.com/go-playground/validator/v10"
)

// Normalizer is implemented by inputs that trim or canonicalize themselves
// before their rules are checked
type Normalizer interface {
	Normalize()
}

// Validator adapts go-playground/validator to echo.Validator and reports
// every violated field, not only the first
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the shop's custom rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Registration only fails for malformed tags, which would be a programming error
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	if n, ok := i.(Normalizer); ok {
		n.Normalize()
	}

	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apperror.InternalError(err)
	}

	fields := make([]apperror.FieldError, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, apperror.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return apperror.Validation(fields)
}

// IsCategory reports whether s names one of the fixed categories
func IsCategory(s string) bool {
	for _, c := range model.Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// fieldPath drops the root struct name from the namespace: items[0].sweet_id
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	isSlice := fe.Kind() == reflect.Slice

	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid id"
	case "category":
		return "must be one of: " + categoryList()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		switch {
		case isString:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		case isSlice:
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		switch {
		case isString:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		case isSlice:
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}

func categoryList() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
