package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/pkg/constants"
	"tax-portal/pkg/eventbus"
)

// PriceObserver keeps the current quote for one (category, serviceType) pair.
// It re-fetches on a matching pricing.updated event and ignores every other pair.
type PriceObserver struct {
	key     entities.PriceKey
	pricing PricingServiceInterface
	logger  *zap.Logger

	// fetchMu serializes refreshes so an older fetch never lands after a newer one
	fetchMu sync.Mutex

	mu      sync.RWMutex
	current *entities.Quote
	lastErr error

	updates     chan entities.Quote
	unsubscribe func()
	closeOnce   sync.Once
}

// NewPriceObserver subscribes before the initial fetch so no update between the two is missed.
func NewPriceObserver(ctx context.Context, bus *eventbus.Bus, pricing PricingServiceInterface, key entities.PriceKey, logger *zap.Logger) (*PriceObserver, error) {
	o := &PriceObserver{
		key:     key,
		pricing: pricing,
		logger:  logger.With(zap.String("observer", key.String())),
		updates: make(chan entities.Quote, 1),
	}
	o.unsubscribe = bus.Subscribe(constants.EventPricingUpdated, o.handle)

	if err := o.refresh(ctx); err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

func (o *PriceObserver) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.PricingUpdatedEvent)
	if !ok || e.Key() != o.key {
		return nil
	}
	return o.refresh(ctx)
}

func (o *PriceObserver) refresh(ctx context.Context) error {
	o.fetchMu.Lock()
	defer o.fetchMu.Unlock()

	q, err := o.pricing.Quote(ctx, o.key)

	o.mu.Lock()
	o.lastErr = err
	if err == nil {
		o.current = q
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("price refresh failed", zap.Error(err))
		return err
	}

	// keep only the newest quote for slow readers
	select {
	case <-o.updates:
	default:
	}
	select {
	case o.updates <- *q:
	default:
	}
	return nil
}

func (o *PriceObserver) Current() entities.Quote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return entities.Quote{}
	}
	return *o.current
}

func (o *PriceObserver) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

// Updates delivers each refreshed quote, the initial one included.
func (o *PriceObserver) Updates() <-chan entities.Quote {
	return o.updates
}

func (o *PriceObserver) Close() {
	o.closeOnce.Do(func() {
		if o.unsubscribe != nil {
			o.unsubscribe()
		}
	})
}
