package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/services"
	"tax-portal/pkg/api"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
	"tax-portal/pkg/utils"
)

const streamHeartbeat = 25 * time.Second

type PricingController struct {
	pricing services.PricingServiceInterface
	bus     *eventbus.Bus
	logger  *zap.Logger
}

func NewPricingController(pricing services.PricingServiceInterface, bus *eventbus.Bus, logger *zap.Logger) *PricingController {
	return &PricingController{pricing: pricing, bus: bus, logger: logger}
}

func (c *PricingController) errorResponse(ctx echo.Context, err error) error {
	return utils.ErrorResponse(ctx, err, c.logger)
}

func quoteToDTO(q entities.Quote) dto.QuoteDTO {
	return dto.QuoteDTO{
		Category:    string(q.Category),
		ServiceType: q.ServiceType,
		ServiceName: q.ServiceName,
		Price:       q.Price,
		Source:      string(q.Source),
	}
}

func priceKeyFromPath(ctx echo.Context) (entities.PriceKey, error) {
	category, err := entities.ParseCategory(ctx.Param("category"))
	if err != nil {
		return entities.PriceKey{}, err
	}
	serviceType := strings.ToLower(strings.TrimSpace(ctx.Param("serviceType")))
	if serviceType == "" {
		return entities.PriceKey{}, apperrors.NewValidationError("serviceType", "is required")
	}
	return entities.PriceKey{Category: category, ServiceType: serviceType}, nil
}

func (c *PricingController) List(ctx echo.Context) error {
	entries, err := c.pricing.List(ctx.Request().Context())
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Pricing fetched", entries)
}

func (c *PricingController) Quote(ctx echo.Context) error {
	key, err := priceKeyFromPath(ctx)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	q, err := c.pricing.Quote(ctx.Request().Context(), key)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Price fetched", quoteToDTO(*q))
}

// Stream pushes the quote for one pair as server-sent events: once on connect, then after every matching update.
func (c *PricingController) Stream(ctx echo.Context) error {
	key, err := priceKeyFromPath(ctx)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	reqCtx := ctx.Request().Context()

	observer, err := services.NewPriceObserver(reqCtx, c.bus, c.pricing, key, c.logger)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	defer observer.Close()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case q := <-observer.Updates():
			payload, err := json.Marshal(quoteToDTO(q))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: price\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func (c *PricingController) Update(ctx echo.Context) error {
	entryID, err := strconv.ParseUint(ctx.Param("entryId"), 10, 64)
	if err != nil {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("invalid pricing entry id"))
	}
	var payload dto.UpdatePriceDTO
	if err := ctx.Bind(&payload); err != nil {
		return c.errorResponse(ctx, apperrors.NewBadRequestError("invalid price payload"))
	}
	if err := ctx.Validate(&payload); err != nil {
		return c.errorResponse(ctx, err)
	}

	entry, err := c.pricing.UpdatePrice(ctx.Request().Context(), entryID, payload)
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Price updated", *entry)
}

func (c *PricingController) Initialize(ctx echo.Context) error {
	inserted, err := c.pricing.Initialize(ctx.Request().Context())
	if err != nil {
		return c.errorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Pricing initialized", dto.InitializePricingDTO{Inserted: inserted})
}
