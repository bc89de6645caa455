package lib

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate = NewValidator()

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("abspath", func(fl validator.FieldLevel) bool {
		return IsAbs(fl.Field().String())
	})
	v.RegisterValidation("pattern", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})

	return v
}
