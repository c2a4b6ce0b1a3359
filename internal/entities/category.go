package entities

import (
	"strings"

	apperrors "tax-portal/pkg/errors"
)

type Category string

const (
	CategoryGST       Category = "gst"
	CategoryITR       Category = "itr"
	CategoryTax       Category = "tax"
	CategoryBusiness  Category = "business"
	CategoryTrademark Category = "trademark"
)

var AllCategories = []Category{CategoryGST, CategoryITR, CategoryTax, CategoryBusiness, CategoryTrademark}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", apperrors.NewValidationError("category", "unknown service category %q", s)
}

func (c Category) DisplayName() string {
	switch c {
	case CategoryGST:
		return "GST"
	case CategoryITR:
		return "ITR"
	case CategoryTax:
		return "Tax Planning"
	case CategoryBusiness:
		return "Business Advisory"
	case CategoryTrademark:
		return "Trademark"
	default:
		return string(c)
	}
}
