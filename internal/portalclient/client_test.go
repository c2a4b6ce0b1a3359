package portalclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/pkg/api"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/eventbus"
)

func writeEnvelope(w http.ResponseWriter, code int, ok bool, message string, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(api.Response[interface{}]{Status: ok, Message: message, Body: body})
}

// fakePortal serves the pricing and request endpoints from memory.
type fakePortal struct {
	mu         sync.Mutex
	price      decimal.Decimal
	quoteCalls int
	lastAuth   string
}

func (p *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pricing/gst/resolution", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.quoteCalls++
		writeEnvelope(w, http.StatusOK, true, "Price fetched", dto.QuoteDTO{
			Category: "gst", ServiceType: "resolution", ServiceName: "GST Notice Resolution", Price: p.price, Source: "store",
		})
	})
	mux.HandleFunc("GET /api/pricing/gst/unknown", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, "record not found", nil)
	})
	mux.HandleFunc("PUT /api/pricing/4", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.lastAuth = r.Header.Get("Authorization")
		var payload dto.UpdatePriceDTO
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeEnvelope(w, http.StatusBadRequest, false, "bad payload", nil)
			return
		}
		p.price = payload.Price
		writeEnvelope(w, http.StatusOK, true, "Price updated", entities.PricingEntry{
			ID: 4, Category: entities.CategoryGST, ServiceType: "resolution", Price: payload.Price, IsActive: true,
		})
	})
	mux.HandleFunc("GET /api/requests/gst", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "Requests fetched", api.ListBody[dto.ServiceRequestDTO]{
			List:  []dto.ServiceRequestDTO{{ID: "a", Category: "gst", Status: "PENDING"}},
			Total: 1,
		})
	})
	mux.HandleFunc("PUT /api/requests/gst/a/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, false, "cannot move request from COMPLETED to PENDING", nil)
	})
	return mux
}

func TestClient_DecodesEnvelope(t *testing.T) {
	portal := &fakePortal{price: decimal.NewFromInt(3500)}
	srv := httptest.NewServer(portal.handler())
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.ListRequests(context.Background(), "gst")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "PENDING", list[0].Status)

	q, err := c.Quote(context.Background(), entities.PriceKey{Category: entities.CategoryGST, ServiceType: "resolution"})
	require.NoError(t, err)
	assert.Equal(t, "3500", q.Price.String())
}

func TestClient_MapsErrors(t *testing.T) {
	srv := httptest.NewServer((&fakePortal{}).handler())

	c := New(srv.URL, WithToken("admin-token"))
	_, err := c.UpdateStatus(context.Background(), "gst", "a", dto.UpdateStatusDTO{Status: "PENDING"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = c.Quote(context.Background(), entities.PriceKey{Category: entities.CategoryGST, ServiceType: "unknown"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	srv.Close()
	_, err = c.ListRequests(context.Background(), "gst")
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)
}

func TestPriceStore_FallbackWhenPortalDown(t *testing.T) {
	srv := httptest.NewServer((&fakePortal{}).handler())
	srv.Close()

	store := NewPriceStore(New(srv.URL, WithHTTPClient(&http.Client{Timeout: time.Second})), eventbus.New(zap.NewNop()), zap.NewNop())
	q, err := store.Quote(context.Background(), entities.PriceKey{Category: entities.CategoryGST, ServiceType: "resolution"})
	require.NoError(t, err)
	assert.Equal(t, entities.PriceSourceFallback, q.Source)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(3999)))
}

func TestPriceStore_UpdateBroadcastsToWatchers(t *testing.T) {
	portal := &fakePortal{price: decimal.NewFromInt(3500)}
	srv := httptest.NewServer(portal.handler())
	defer srv.Close()

	bus := eventbus.New(zap.NewNop())
	store := NewPriceStore(New(srv.URL).As("admin-token"), bus, zap.NewNop())
	key := entities.PriceKey{Category: entities.CategoryGST, ServiceType: "resolution"}

	w, err := store.Watch(context.Background(), key)
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, w.Current().Price.Equal(decimal.NewFromInt(3500)))

	_, err = store.UpdatePrice(context.Background(), 4, dto.UpdatePriceDTO{Price: decimal.NewFromInt(4200)})
	require.NoError(t, err)
	bus.Wait()

	assert.True(t, w.Current().Price.Equal(decimal.NewFromInt(4200)))
	assert.Equal(t, "Bearer admin-token", portal.lastAuth)
	assert.Equal(t, 2, portal.quoteCalls)

	_, err = store.UpdatePrice(context.Background(), 4, dto.UpdatePriceDTO{Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
