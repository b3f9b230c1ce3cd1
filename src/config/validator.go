package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values using go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("log_level", validateLogLevel)
	v.RegisterValidation("log_format", validateLogFormat)

	return &Validator{validate: v}
}

// Validate validates a complete configuration.
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				return ValidationError{
					Field:   e.Field(),
					Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
					Value:   e.Value(),
				}
			}
		}
		return err
	}

	return nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func validateLogFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "json", "text":
		return true
	}
	return false
}
