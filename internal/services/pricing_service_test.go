package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
)

var gstResolution = entities.PriceKey{Category: entities.CategoryGST, ServiceType: "resolution"}

func newPricingFixture() (PricingServiceInterface, *fakePricingRepo, *fakeCache, *eventbus.Bus) {
	logger := zap.NewNop()
	repo := newFakePricingRepo()
	cache := newFakeCache()
	bus := eventbus.New(logger)
	return NewPricingService(repo, cache, fakeTxManager{}, bus, 10*time.Minute, logger), repo, cache, bus
}

func TestQuote_StoreThenCache(t *testing.T) {
	svc, repo, cache, _ := newPricingFixture()
	repo.add(entities.CategoryGST, "resolution", 3500)

	q, err := svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceStore, q.Source)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(3500)))
	assert.Equal(t, 10*time.Minute, cache.ttls["pricing:gst:resolution"])

	q, err = svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceCache, q.Source)
	assert.Equal(t, "GST Notice Resolution", q.ServiceName)
	assert.Equal(t, 1, repo.findCalls)
}

func TestQuote_Fallback(t *testing.T) {
	svc, repo, _, _ := newPricingFixture()

	q, err := svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceFallback, q.Source)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(3999)))

	repo.add(entities.CategoryGST, "resolution", 3500)
	repo.unreachable = true
	q, err = svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceFallback, q.Source)

	_, err = svc.Quote(context.Background(), entities.PriceKey{Category: entities.CategoryGST, ServiceType: "unknown"})
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)

	repo.unreachable = false
	_, err = svc.Quote(context.Background(), entities.PriceKey{Category: entities.CategoryGST, ServiceType: "unknown"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuote_CacheDownStillQuotes(t *testing.T) {
	svc, repo, cache, _ := newPricingFixture()
	repo.add(entities.CategoryGST, "resolution", 3500)
	cache.down = true

	q, err := svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceStore, q.Source)
}

func TestQuote_InactiveEntryStillQuotes(t *testing.T) {
	svc, repo, _, _ := newPricingFixture()
	id := repo.add(entities.CategoryGST, "resolution", 3500)

	_, err := svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.NewFromInt(3500), IsActive: null.BoolFrom(false)})
	require.NoError(t, err)

	q, err := svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(3500)))
}

func TestUpdatePrice_InvalidatesAndPublishes(t *testing.T) {
	svc, repo, cache, bus := newPricingFixture()
	id := repo.add(entities.CategoryGST, "resolution", 3500)

	received := make(chan events.PricingUpdatedEvent, 1)
	bus.Subscribe(constants.EventPricingUpdated, func(_ context.Context, e eventbus.Event) error {
		received <- e.(events.PricingUpdatedEvent)
		return nil
	})

	_, err := svc.Quote(context.Background(), gstResolution)
	require.NoError(t, err)
	require.Contains(t, cache.data, "pricing:gst:resolution")

	entry, err := svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.NewFromInt(4200)})
	require.NoError(t, err)
	assert.True(t, entry.Price.Equal(decimal.NewFromInt(4200)))
	assert.NotContains(t, cache.data, "pricing:gst:resolution")

	select {
	case e := <-received:
		assert.Equal(t, gstResolution, e.Key())
		assert.Equal(t, id, e.EntryID)
		assert.True(t, e.NewPrice.Equal(decimal.NewFromInt(4200)))
	case <-time.After(2 * time.Second):
		t.Fatal("pricing.updated not delivered")
	}
}

func TestUpdatePrice_Rejections(t *testing.T) {
	svc, repo, _, _ := newPricingFixture()
	id := repo.add(entities.CategoryGST, "resolution", 3500)

	for _, p := range []string{"0", "-1", "0.004", "10000000000"} {
		_, err := svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.RequireFromString(p)})
		assert.ErrorIs(t, err, apperrors.ErrValidation, p)
	}
	stored, err := repo.FindByID(context.Background(), nil, id)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(3500)))

	updated, err := svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.RequireFromString("4199.999")})
	require.NoError(t, err)
	assert.Equal(t, "4200.00", updated.Price.StringFixed(2))

	_, err = svc.UpdatePrice(context.Background(), 999, dto.UpdatePriceDTO{Price: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	repo.unreachable = true
	_, err = svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)
}

func TestUpdatePrice_CacheFailureDoesNotFailUpdate(t *testing.T) {
	svc, repo, cache, _ := newPricingFixture()
	id := repo.add(entities.CategoryGST, "resolution", 3500)
	cache.failDel = true

	_, err := svc.UpdatePrice(context.Background(), id, dto.UpdatePriceDTO{Price: decimal.NewFromInt(4200)})
	assert.NoError(t, err)
}

func TestInitialize_Idempotent(t *testing.T) {
	svc, repo, _, _ := newPricingFixture()

	n, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(entities.DefaultPricingEntries()), n)

	n, err = svc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, len(repo.entries))
}
