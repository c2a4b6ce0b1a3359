package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/pkg/constants"
)

func nextQuote(t *testing.T, o *PriceObserver) entities.Quote {
	t.Helper()
	select {
	case q := <-o.Updates():
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("no quote delivered")
		return entities.Quote{}
	}
}

func TestPriceObserver_RefetchesOnMatchingUpdate(t *testing.T) {
	svc, repo, _, bus := newPricingFixture()
	gstID := repo.add(entities.CategoryGST, "resolution", 3500)
	itrID := repo.add(entities.CategoryITR, "salaried", 799)

	gst, err := NewPriceObserver(context.Background(), bus, svc, gstResolution, zap.NewNop())
	require.NoError(t, err)
	defer gst.Close()

	itrKey := entities.PriceKey{Category: entities.CategoryITR, ServiceType: "salaried"}
	itr, err := NewPriceObserver(context.Background(), bus, svc, itrKey, zap.NewNop())
	require.NoError(t, err)
	defer itr.Close()

	assert.True(t, nextQuote(t, gst).Price.Equal(decimal.NewFromInt(3500)))
	assert.True(t, nextQuote(t, itr).Price.Equal(decimal.NewFromInt(799)))

	_, err = svc.UpdatePrice(context.Background(), gstID, dto.UpdatePriceDTO{Price: decimal.NewFromInt(4200)})
	require.NoError(t, err)
	bus.Wait()

	assert.True(t, nextQuote(t, gst).Price.Equal(decimal.NewFromInt(4200)))
	assert.True(t, gst.Current().Price.Equal(decimal.NewFromInt(4200)))

	// the other pair saw nothing
	select {
	case q := <-itr.Updates():
		t.Fatalf("unexpected update for %s: %s", itrKey, q.Price)
	default:
	}
	assert.True(t, itr.Current().Price.Equal(decimal.NewFromInt(799)))

	_, err = svc.UpdatePrice(context.Background(), itrID, dto.UpdatePriceDTO{Price: decimal.NewFromInt(899)})
	require.NoError(t, err)
	bus.Wait()
	assert.True(t, itr.Current().Price.Equal(decimal.NewFromInt(899)))
	assert.True(t, gst.Current().Price.Equal(decimal.NewFromInt(4200)))
}

func TestPriceObserver_CloseUnsubscribes(t *testing.T) {
	svc, repo, _, bus := newPricingFixture()
	repo.add(entities.CategoryGST, "resolution", 3500)

	o, err := NewPriceObserver(context.Background(), bus, svc, gstResolution, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Subscribers(constants.EventPricingUpdated))

	o.Close()
	o.Close()
	assert.Equal(t, 0, bus.Subscribers(constants.EventPricingUpdated))
}

func TestPriceObserver_InitialFailure(t *testing.T) {
	svc, _, _, bus := newPricingFixture()

	_, err := NewPriceObserver(context.Background(), bus, svc, entities.PriceKey{Category: entities.CategoryGST, ServiceType: "nope"}, zap.NewNop())
	assert.Error(t, err)
	assert.Equal(t, 0, bus.Subscribers(constants.EventPricingUpdated))
}

// slowFirstQuote holds its first answer until release is closed; later calls answer at once.
type slowFirstQuote struct {
	PricingServiceInterface
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *slowFirstQuote) Quote(_ context.Context, key entities.PriceKey) (*entities.Quote, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	price := decimal.NewFromInt(4200)
	if n == 1 {
		close(s.started)
		<-s.release
		price = decimal.NewFromInt(3500)
	}
	return &entities.Quote{Category: key.Category, ServiceType: key.ServiceType, Price: price, Source: entities.PriceSourceStore}, nil
}

func TestPriceObserver_SlowInitialFetchDoesNotOverwriteUpdate(t *testing.T) {
	_, _, _, bus := newPricingFixture()
	pricing := &slowFirstQuote{started: make(chan struct{}), release: make(chan struct{})}

	type result struct {
		o   *PriceObserver
		err error
	}
	done := make(chan result, 1)
	go func() {
		o, err := NewPriceObserver(context.Background(), bus, pricing, gstResolution, zap.NewNop())
		done <- result{o, err}
	}()

	<-pricing.started
	bus.Publish(context.Background(), events.PricingUpdatedEvent{Category: entities.CategoryGST, ServiceType: "resolution", NewPrice: decimal.NewFromInt(4200)})
	close(pricing.release)

	res := <-done
	require.NoError(t, res.err)
	defer res.o.Close()
	bus.Wait()

	assert.True(t, res.o.Current().Price.Equal(decimal.NewFromInt(4200)), "got %s", res.o.Current().Price)
	pricing.mu.Lock()
	assert.Equal(t, 2, pricing.calls)
	pricing.mu.Unlock()
}
