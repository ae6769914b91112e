package http

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// structValidator подключает validator/v10 к привязке тел запросов fiber.
type structValidator struct {
	validate *validator.Validate
}

func newStructValidator() *structValidator {
	return &structValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate проверяет теги validate у out.
func (v *structValidator) Validate(out any) error {
	if err := v.validate.Struct(out); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
