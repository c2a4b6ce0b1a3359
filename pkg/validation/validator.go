package validation

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator plugs validator/v10 into echo.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func New() *CustomValidator {
	v := validator.New()

	registerNullTypes(v)

	// the server must not start with a broken rule set
	if err := registerRules(v); err != nil {
		panic("validator rules registration failed: " + err.Error())
	}

	return &CustomValidator{validator: v}
}
