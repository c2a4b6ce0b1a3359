package portalclient

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/internal/services"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
)

// PricingAPI is the part of Client the store needs.
type PricingAPI interface {
	ListPricing(ctx context.Context) ([]entities.PricingEntry, error)
	Quote(ctx context.Context, key entities.PriceKey) (*dto.QuoteDTO, error)
	UpdatePrice(ctx context.Context, entryID uint64, payload dto.UpdatePriceDTO) (*entities.PricingEntry, error)
	InitializePricing(ctx context.Context) (int, error)
}

// PriceStore is the client-side view of pricing. Reads fall back to the bundled table when the
// portal has no entry or cannot be reached; successful updates are broadcast on the local bus.
type PriceStore struct {
	api    PricingAPI
	bus    *eventbus.Bus
	logger *zap.Logger
}

var _ services.PricingServiceInterface = (*PriceStore)(nil)

func NewPriceStore(api PricingAPI, bus *eventbus.Bus, logger *zap.Logger) *PriceStore {
	return &PriceStore{api: api, bus: bus, logger: logger}
}

func (s *PriceStore) List(ctx context.Context) ([]entities.PricingEntry, error) {
	return s.api.ListPricing(ctx)
}

func (s *PriceStore) Quote(ctx context.Context, key entities.PriceKey) (*entities.Quote, error) {
	q, err := s.api.Quote(ctx, key)
	if err == nil {
		return &entities.Quote{
			Category:    entities.Category(q.Category),
			ServiceType: q.ServiceType,
			ServiceName: q.ServiceName,
			Price:       q.Price,
			Source:      entities.PriceSource(q.Source),
		}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrUnreachable) {
		return nil, err
	}

	price, ok := entities.DefaultPrice(key)
	if !ok {
		return nil, err
	}
	s.logger.Warn("quoting bundled price", zap.String("price", key.String()), zap.Error(err))
	return &entities.Quote{
		Category:    key.Category,
		ServiceType: key.ServiceType,
		ServiceName: entities.ServiceName(key),
		Price:       price,
		Source:      entities.PriceSourceFallback,
	}, nil
}

// StandardPrice is Quote: the portal owns its cache, a client cannot bypass it.
func (s *PriceStore) StandardPrice(ctx context.Context, key entities.PriceKey) (*entities.Quote, error) {
	return s.Quote(ctx, key)
}

func (s *PriceStore) UpdatePrice(ctx context.Context, entryID uint64, payload dto.UpdatePriceDTO) (*entities.PricingEntry, error) {
	price, err := entities.NormalizeAmount("price", payload.Price)
	if err != nil {
		return nil, err
	}
	payload.Price = price
	entry, err := s.api.UpdatePrice(ctx, entryID, payload)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.PricingUpdatedEvent{
		EntryID:     entry.ID,
		Category:    entry.Category,
		ServiceType: entry.ServiceType,
		NewPrice:    entry.Price,
	})
	return entry, nil
}

func (s *PriceStore) Initialize(ctx context.Context) (int, error) {
	return s.api.InitializePricing(ctx)
}

// Watch follows one (category, serviceType) pair until the returned observer is closed.
func (s *PriceStore) Watch(ctx context.Context, key entities.PriceKey) (*services.PriceObserver, error) {
	return services.NewPriceObserver(ctx, s.bus, s, key, s.logger)
}
