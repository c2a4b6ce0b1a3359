package validation

import (
	"regexp"
	"slices"
	"strings"

	"tax-portal/pkg/constants"

	"github.com/go-playground/validator/v10"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	inPhoneRegex = regexp.MustCompile(`^(\+91)?[6-9]\d{9}$`)
	gstinRegex   = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	panRegex     = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
)

func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"custom_email":     isGoodEmailFormat,
		"in_phone":         isIndianPhoneNumber,
		"gstin":            isGSTIN,
		"pan":              isPAN,
		"service_category": isServiceCategory,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isGoodEmailFormat(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// isIndianPhoneNumber accepts 10 digit mobiles with an optional +91, spaces and dashes ignored.
func isIndianPhoneNumber(fl validator.FieldLevel) bool {
	s := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
	return inPhoneRegex.MatchString(s)
}

func isGSTIN(fl validator.FieldLevel) bool {
	return gstinRegex.MatchString(strings.ToUpper(fl.Field().String()))
}

func isPAN(fl validator.FieldLevel) bool {
	return panRegex.MatchString(strings.ToUpper(fl.Field().String()))
}

func isServiceCategory(fl validator.FieldLevel) bool {
	return slices.Contains(constants.ServiceCategories, strings.ToLower(fl.Field().String()))
}
