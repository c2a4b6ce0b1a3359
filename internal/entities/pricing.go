package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PriceKey struct {
	Category    Category
	ServiceType string
}

func (k PriceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Category, k.ServiceType)
}

type PricingEntry struct {
	ID          uint64          `json:"id" db:"id"`
	Category    Category        `json:"category" db:"category"`
	ServiceType string          `json:"serviceType" db:"service_type"`
	ServiceName string          `json:"serviceName" db:"service_name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

func (p PricingEntry) Key() PriceKey {
	return PriceKey{Category: p.Category, ServiceType: p.ServiceType}
}

type PriceSource string

const (
	PriceSourceStore    PriceSource = "store"
	PriceSourceCache    PriceSource = "cache"
	PriceSourceFallback PriceSource = "fallback"
)

type Quote struct {
	Category    Category        `json:"category"`
	ServiceType string          `json:"serviceType"`
	ServiceName string          `json:"serviceName"`
	Price       decimal.Decimal `json:"price"`
	Source      PriceSource     `json:"source"`
}
