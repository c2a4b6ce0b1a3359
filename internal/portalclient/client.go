package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/pkg/api"
	apperrors "tax-portal/pkg/errors"
)

// APIError is a non-2xx answer. errors.Is matches it against the portal error taxonomy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == apperrors.ErrNotFound
	case http.StatusConflict:
		return target == apperrors.ErrInvalidTransition
	case http.StatusBadRequest:
		return target == apperrors.ErrValidation
	case http.StatusUnauthorized:
		return target == apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return target == apperrors.ErrForbidden
	case http.StatusTooManyRequests:
		return target == apperrors.ErrTooManyAttempts
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return target == apperrors.ErrUnreachable
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer credential. Admin operations need an admin token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy that authenticates with token.
func (c *Client) As(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperrors.Unreachable(method+" "+path, err)
	}
	defer resp.Body.Close()

	var env api.Response[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("portal: decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Body) == 0 {
		return nil
	}
	return json.Unmarshal(env.Body, out)
}

func requestPath(category, id string) string {
	p := "/api/requests/" + url.PathEscape(category)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Client) ListRequests(ctx context.Context, category string) ([]dto.ServiceRequestDTO, error) {
	var body api.ListBody[dto.ServiceRequestDTO]
	if err := c.do(ctx, http.MethodGet, requestPath(category, ""), nil, &body); err != nil {
		return nil, err
	}
	return body.List, nil
}

func (c *Client) ListMyRequests(ctx context.Context) ([]dto.ServiceRequestDTO, error) {
	var body api.ListBody[dto.ServiceRequestDTO]
	if err := c.do(ctx, http.MethodGet, "/api/requests/mine", nil, &body); err != nil {
		return nil, err
	}
	return body.List, nil
}

func (c *Client) GetRequest(ctx context.Context, category, id string) (*dto.ServiceRequestDTO, error) {
	var out dto.ServiceRequestDTO
	if err := c.do(ctx, http.MethodGet, requestPath(category, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, category, id string, payload dto.UpdateStatusDTO) (*dto.ServiceRequestDTO, error) {
	var out dto.ServiceRequestDTO
	if err := c.do(ctx, http.MethodPut, requestPath(category, id)+"/status", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRequest(ctx context.Context, category, id string) error {
	return c.do(ctx, http.MethodDelete, requestPath(category, id), nil, nil)
}

func (c *Client) ListPricing(ctx context.Context) ([]entities.PricingEntry, error) {
	var body api.ListBody[entities.PricingEntry]
	if err := c.do(ctx, http.MethodGet, "/api/pricing", nil, &body); err != nil {
		return nil, err
	}
	return body.List, nil
}

func (c *Client) Quote(ctx context.Context, key entities.PriceKey) (*dto.QuoteDTO, error) {
	var out dto.QuoteDTO
	path := "/api/pricing/" + url.PathEscape(string(key.Category)) + "/" + url.PathEscape(key.ServiceType)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePrice(ctx context.Context, entryID uint64, payload dto.UpdatePriceDTO) (*entities.PricingEntry, error) {
	var out entities.PricingEntry
	if err := c.do(ctx, http.MethodPut, "/api/pricing/"+strconv.FormatUint(entryID, 10), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InitializePricing(ctx context.Context) (int, error) {
	var out dto.InitializePricingDTO
	if err := c.do(ctx, http.MethodPost, "/api/pricing/initialize", nil, &out); err != nil {
		return 0, err
	}
	return out.Inserted, nil
}
