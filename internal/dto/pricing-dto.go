package dto

import (
	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type UpdatePriceDTO struct {
	Price    decimal.Decimal `json:"price" validate:"required"`
	IsActive null.Bool       `json:"isActive"`
}

type QuoteDTO struct {
	Category    string          `json:"category"`
	ServiceType string          `json:"serviceType"`
	ServiceName string          `json:"serviceName"`
	Price       decimal.Decimal `json:"price"`
	Source      string          `json:"source"`
}

type InitializePricingDTO struct {
	Inserted int `json:"inserted"`
}
