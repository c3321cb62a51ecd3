package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers authgate-specific validation rules.
// Must be called before validating AuthgateConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("storage_path", validateStoragePath); err != nil {
		return fmt.Errorf("failed to register storage_path validator: %w", err)
	}
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

// validateStoragePath accepts a file path. Directory paths (trailing
// separator) and paths containing NUL are rejected.
func validateStoragePath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.ContainsRune(p, 0) {
		return false
	}
	return !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, string(os.PathSeparator))
}

// validateDuration accepts a positive Go duration string.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the AuthgateConfig using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *AuthgateConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateStoragePathPresence(); err != nil {
		return err
	}

	return nil
}

// validateStoragePathPresence ensures durable backends have a path.
func (c *AuthgateConfig) validateStoragePathPresence() error {
	switch c.Session.Storage {
	case StorageFile, StorageSQLite:
		if c.Session.Path == "" {
			return fmt.Errorf("session.path is required for %s storage", c.Session.Storage)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as \"30s\"", field)
	case "storage_path":
		return fmt.Sprintf("%s must be a file path, not a directory", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
