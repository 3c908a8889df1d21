package service

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

// NewValidator returns a validator that reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// invalid wraps a validator failure naming every offending field.
func invalid(err error, subject string) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Validation(err, fmt.Sprintf("invalid %s payload", subject))
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		default:
			problems = append(problems, fmt.Sprintf("%s must satisfy %s", fe.Field(), strings.TrimSpace(fe.Tag()+" "+fe.Param())))
		}
	}
	return appErrors.Validation(err, fmt.Sprintf("invalid %s payload: %s", subject, strings.Join(problems, ", ")))
}

// lookupFailed maps a point-query failure to NotFound or StoreUnavailable.
func lookupFailed(err error, entity, id string) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", entity, id))
	}
	return appErrors.Store(err, fmt.Sprintf("failed to load %s %s", entity, id))
}

func trimAll(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
