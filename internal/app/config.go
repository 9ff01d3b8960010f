package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"github.com/go-playground/validator/v10"
)

const DefaultBaseURL = "https://demo.netbox.dev"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under the names users set them by.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("setting"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Config is what the query commands need to reach the change log.
type Config struct {
	Token   string `setting:"NETBOX_TOKEN" validate:"required"`
	BaseURL string `setting:"BASE_URL" validate:"required,http_url"`
}

func (c Config) Validate() error {
	return validateSettings(c)
}

// MockConfig configures the local change log server.
type MockConfig struct {
	Addr     string `setting:"--addr" validate:"required"`
	DBPath   string `setting:"--db-path" validate:"required"`
	Fixtures string `setting:"--fixtures" validate:"required,file"`
	Token    string `setting:"NETBOX_TOKEN" validate:"required"`
}

func (c MockConfig) Validate() error {
	return validateSettings(c)
}

func validateSettings(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	problems := make([]string, 0, len(valErrs))
	for _, fe := range valErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is not set"
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL, got %q", fe.Field(), fe.Value())
	case "file":
		return fmt.Sprintf("%s must name an existing file, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
