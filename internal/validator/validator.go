package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation and the business rule validator so
// services depend on a single entry point.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a Validator with all custom rules registered.
func New() *Validator {
	business := NewBusinessValidator()
	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct-tag validation and returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator exposes the business rule validator for request types
// that carry rules beyond struct tags.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
