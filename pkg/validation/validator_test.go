package validation

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Phone    string              `validate:"required,in_phone"`
	GSTIN    string              `validate:"omitempty,gstin"`
	PAN      string              `validate:"omitempty,pan"`
	Category string              `validate:"required,service_category"`
	Notes    null.String         `validate:"omitempty,max=5"`
	Amount   decimal.NullDecimal `validate:"omitempty,gt=0"`
}

func TestValidator_CustomRules(t *testing.T) {
	v := New()

	valid := sample{
		Phone:    "+91 98765-43210",
		GSTIN:    "27AAPFU0939F1ZV",
		PAN:      "abcde1234f",
		Category: "GST",
		Amount:   decimal.NewNullDecimal(decimal.NewFromInt(4200)),
	}
	assert.NoError(t, v.Validate(valid))

	cases := map[string]sample{
		"short phone":   {Phone: "12345", Category: "gst"},
		"bad gstin":     {Phone: "9876543210", GSTIN: "27AAPFU0939F1Z", Category: "gst"},
		"bad category":  {Phone: "9876543210", Category: "payroll"},
		"long notes":    {Phone: "9876543210", Category: "itr", Notes: null.StringFrom("too long")},
		"negative bill": {Phone: "9876543210", Category: "itr", Amount: decimal.NewNullDecimal(decimal.NewFromInt(-5))},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, v.Validate(s))
		})
	}
}

func TestValidator_NullSkipsOmitempty(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(sample{Phone: "9876543210", Category: "tax"}))
}
