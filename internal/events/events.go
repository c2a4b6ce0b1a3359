package events

import (
	"tax-portal/internal/entities"
	"tax-portal/pkg/constants"

	"github.com/shopspring/decimal"
)

// PricingUpdatedEvent is published after a price change is committed and the cache key dropped.
type PricingUpdatedEvent struct {
	EntryID     uint64
	Category    entities.Category
	ServiceType string
	NewPrice    decimal.Decimal
}

func (e PricingUpdatedEvent) Name() string {
	return constants.EventPricingUpdated
}

func (e PricingUpdatedEvent) Key() entities.PriceKey {
	return entities.PriceKey{Category: e.Category, ServiceType: e.ServiceType}
}

// ServiceRequestCompletedEvent carries a snapshot of the completed request, bill included.
type ServiceRequestCompletedEvent struct {
	Request entities.ServiceRequest
}

func (e ServiceRequestCompletedEvent) Name() string {
	return constants.EventServiceRequestCompleted
}

// ServiceRequestStatusChangedEvent is published after every committed transition.
type ServiceRequestStatusChangedEvent struct {
	Request entities.ServiceRequest
	From    entities.RequestStatus
}

func (e ServiceRequestStatusChangedEvent) Name() string {
	return constants.EventServiceRequestStatus
}
