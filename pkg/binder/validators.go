package binder

import (
	"github.com/go-playground/validator/v10"
	"github.com/mylibrary/mylibrary/pkg/models"
)

// fileTypeValidator accepts the stored book formats or the empty string, so it
// can double as an optional list filter.
func fileTypeValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.IsFileType(value)
}
