package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/internal/repositories"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
)

type PricingServiceInterface interface {
	List(ctx context.Context) ([]entities.PricingEntry, error)
	Quote(ctx context.Context, key entities.PriceKey) (*entities.Quote, error)
	StandardPrice(ctx context.Context, key entities.PriceKey) (*entities.Quote, error)
	UpdatePrice(ctx context.Context, entryID uint64, payload dto.UpdatePriceDTO) (*entities.PricingEntry, error)
	Initialize(ctx context.Context) (int, error)
}

type PricingService struct {
	repo      repositories.PricingRepositoryInterface
	cacheRepo repositories.CacheRepositoryInterface
	txManager repositories.TxManagerInterface
	bus       *eventbus.Bus
	cacheTTL  time.Duration
	logger    *zap.Logger
}

func NewPricingService(
	repo repositories.PricingRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	txManager repositories.TxManagerInterface,
	bus *eventbus.Bus,
	cacheTTL time.Duration,
	logger *zap.Logger,
) PricingServiceInterface {
	return &PricingService{
		repo:      repo,
		cacheRepo: cacheRepo,
		txManager: txManager,
		bus:       bus,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type cachedPrice struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func priceCacheKey(key entities.PriceKey) string {
	return fmt.Sprintf(constants.CacheKeyPrice, key.Category, key.ServiceType)
}

func (s *PricingService) List(ctx context.Context) ([]entities.PricingEntry, error) {
	return s.repo.List(ctx)
}

// Quote resolves cache, then store, then the bundled default table.
// The fallback answers when the store is unreachable or has no entry for key.
func (s *PricingService) Quote(ctx context.Context, key entities.PriceKey) (*entities.Quote, error) {
	logger := s.logger.With(zap.String("price", key.String()))
	cacheKey := priceCacheKey(key)

	if raw, err := s.cacheRepo.Get(ctx, cacheKey); err == nil {
		var cp cachedPrice
		if err := json.Unmarshal([]byte(raw), &cp); err == nil {
			return &entities.Quote{Category: key.Category, ServiceType: key.ServiceType, ServiceName: cp.Name, Price: cp.Price, Source: entities.PriceSourceCache}, nil
		}
		logger.Warn("corrupt price cache entry, dropping", zap.String("value", raw))
		_ = s.cacheRepo.Del(ctx, cacheKey)
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		logger.Warn("price cache unavailable", zap.Error(err))
	}

	return s.resolve(ctx, key, true, logger)
}

// StandardPrice reads the store directly, falling back to the bundled table.
// Bills use it: a cached quote may briefly hold a superseded price.
func (s *PricingService) StandardPrice(ctx context.Context, key entities.PriceKey) (*entities.Quote, error) {
	return s.resolve(ctx, key, false, s.logger.With(zap.String("price", key.String())))
}

func (s *PricingService) resolve(ctx context.Context, key entities.PriceKey, fillCache bool, logger *zap.Logger) (*entities.Quote, error) {
	entry, err := s.repo.FindByKey(ctx, key)
	switch {
	case err == nil:
		if fillCache {
			if raw, mErr := json.Marshal(cachedPrice{Name: entry.ServiceName, Price: entry.Price}); mErr == nil {
				if cErr := s.cacheRepo.Set(ctx, priceCacheKey(key), string(raw), s.cacheTTL); cErr != nil {
					logger.Warn("price cache write failed", zap.Error(cErr))
				}
			}
		}
		return &entities.Quote{Category: key.Category, ServiceType: key.ServiceType, ServiceName: entry.ServiceName, Price: entry.Price, Source: entities.PriceSourceStore}, nil

	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrUnreachable):
		price, ok := entities.DefaultPrice(key)
		if !ok {
			logger.Info("no price in store or default table", zap.Error(err))
			return nil, err
		}
		if errors.Is(err, apperrors.ErrUnreachable) {
			logger.Warn("pricing store unreachable, quoting default", zap.Error(err))
		}
		return &entities.Quote{Category: key.Category, ServiceType: key.ServiceType, ServiceName: entities.ServiceName(key), Price: price, Source: entities.PriceSourceFallback}, nil

	default:
		return nil, err
	}
}

// UpdatePrice commits, drops the cache key, then broadcasts events.PricingUpdatedEvent in this process.
func (s *PricingService) UpdatePrice(ctx context.Context, entryID uint64, payload dto.UpdatePriceDTO) (*entities.PricingEntry, error) {
	price, err := entities.NormalizeAmount("price", payload.Price)
	if err != nil {
		return nil, err
	}

	var updated *entities.PricingEntry
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.repo.FindByID(ctx, tx, entryID); err != nil {
			return err
		}
		entry, err := s.repo.UpdatePrice(ctx, tx, entryID, price, payload.IsActive)
		if err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Del(ctx, priceCacheKey(updated.Key())); err != nil {
		s.logger.Error("price cache invalidation failed, stale until TTL",
			zap.String("price", updated.Key().String()), zap.Duration("ttl", s.cacheTTL), zap.Error(err))
	}

	s.logger.Info("price updated",
		zap.Uint64("entryId", updated.ID),
		zap.String("price", updated.Key().String()),
		zap.String("newPrice", updated.Price.String()))

	s.bus.Publish(ctx, events.PricingUpdatedEvent{
		EntryID:     updated.ID,
		Category:    updated.Category,
		ServiceType: updated.ServiceType,
		NewPrice:    updated.Price,
	})

	return updated, nil
}

// Initialize seeds the bundled defaults; safe to call repeatedly.
func (s *PricingService) Initialize(ctx context.Context) (int, error) {
	inserted, err := s.repo.InsertDefaults(ctx, entities.DefaultPricingEntries())
	if err != nil {
		return 0, err
	}
	s.logger.Info("pricing initialized", zap.Int("inserted", inserted))
	return inserted, nil
}
