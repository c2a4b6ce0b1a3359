package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tax-portal/internal/entities"
	"tax-portal/internal/repositories"
	"tax-portal/pkg/contextkeys"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/types"
)

func userCtx(id uint64) context.Context {
	return context.WithValue(context.Background(), contextkeys.UserIDKey, id)
}

// fakeTxManager runs fn with a nil tx; the fakes ignore it.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeRequestRepo struct {
	mu      sync.Mutex
	records map[string]entities.ServiceRequest
	writes  int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{records: make(map[string]entities.ServiceRequest)}
}

func cloneRequest(r entities.ServiceRequest) entities.ServiceRequest {
	if r.Bill != nil {
		b := *r.Bill
		r.Bill = &b
	}
	return r
}

func (f *fakeRequestRepo) Create(_ context.Context, req *entities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	f.records[req.ID] = cloneRequest(*req)
	f.writes++
	return nil
}

func (f *fakeRequestRepo) FindByID(_ context.Context, category entities.Category, id string) (*entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.Category != category {
		return nil, apperrors.ErrNotFound
	}
	c := cloneRequest(r)
	return &c, nil
}

func (f *fakeRequestRepo) FindByIDForUpdate(ctx context.Context, _ pgx.Tx, category entities.Category, id string) (*entities.ServiceRequest, error) {
	return f.FindByID(ctx, category, id)
}

func (f *fakeRequestRepo) ListByCategory(_ context.Context, category entities.Category, _ types.Filter) ([]entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.ServiceRequest
	for _, r := range f.records {
		if r.Category == category {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequestRepo) ListByUser(_ context.Context, userID uint64) ([]entities.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.ServiceRequest
	for _, r := range f.records {
		if r.UserID.Valid && r.UserID.Uint64 == userID {
			out = append(out, cloneRequest(r))
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, _ pgx.Tx, req *entities.ServiceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[req.ID]; !ok {
		return apperrors.ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	f.records[req.ID] = cloneRequest(*req)
	f.writes++
	return nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, _ pgx.Tx, category entities.Category, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.Category != category {
		return apperrors.ErrNotFound
	}
	delete(f.records, id)
	f.writes++
	return nil
}

func (f *fakeRequestRepo) CountByStatus(_ context.Context) (map[entities.Category]map[entities.RequestStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[entities.Category]map[entities.RequestStatus]int)
	for _, r := range f.records {
		if out[r.Category] == nil {
			out[r.Category] = make(map[entities.RequestStatus]int)
		}
		out[r.Category][r.Status]++
	}
	return out, nil
}

type fakePricingRepo struct {
	mu          sync.Mutex
	entries     map[uint64]entities.PricingEntry
	nextID      uint64
	unreachable bool
	findCalls   int
	// afterFind runs once, after the next FindByKey has read the entry
	afterFind func()
}

func newFakePricingRepo() *fakePricingRepo {
	return &fakePricingRepo{entries: make(map[uint64]entities.PricingEntry)}
}

func (f *fakePricingRepo) add(category entities.Category, serviceType string, price int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	key := entities.PriceKey{Category: category, ServiceType: serviceType}
	f.entries[f.nextID] = entities.PricingEntry{
		ID:          f.nextID,
		Category:    category,
		ServiceType: serviceType,
		ServiceName: entities.ServiceName(key),
		Price:       decimal.NewFromInt(price),
		IsActive:    true,
	}
	return f.nextID
}

func (f *fakePricingRepo) List(_ context.Context) ([]entities.PricingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return nil, apperrors.Unreachable("list pricing", fmt.Errorf("connection refused"))
	}
	out := make([]entities.PricingEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePricingRepo) FindByKey(_ context.Context, key entities.PriceKey) (*entities.PricingEntry, error) {
	entry, err := f.findByKey(key)

	f.mu.Lock()
	hook := f.afterFind
	f.afterFind = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return entry, err
}

func (f *fakePricingRepo) findByKey(key entities.PriceKey) (*entities.PricingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.unreachable {
		return nil, apperrors.Unreachable("find price", fmt.Errorf("connection refused"))
	}
	for _, e := range f.entries {
		if e.Key() == key {
			c := e
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakePricingRepo) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.PricingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return nil, apperrors.Unreachable("find price", fmt.Errorf("connection refused"))
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

func (f *fakePricingRepo) UpdatePrice(_ context.Context, _ pgx.Tx, id uint64, price decimal.Decimal, isActive null.Bool) (*entities.PricingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	e.Price = price
	if isActive.Valid {
		e.IsActive = isActive.Bool
	}
	f.entries[id] = e
	return &e, nil
}

func (f *fakePricingRepo) InsertDefaults(_ context.Context, entries []entities.PricingEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[entities.PriceKey]bool, len(f.entries))
	for _, e := range f.entries {
		existing[e.Key()] = true
	}
	inserted := 0
	for _, e := range entries {
		if existing[e.Key()] {
			continue
		}
		f.nextID++
		e.ID = f.nextID
		f.entries[e.ID] = e
		inserted++
	}
	return inserted, nil
}

func (f *fakePricingRepo) Counts(_ context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := 0
	for _, e := range f.entries {
		if e.IsActive {
			active++
		}
	}
	return len(f.entries), active, nil
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failDel bool
	down    bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return fmt.Errorf("redis down")
	}
	c.data[key] = fmt.Sprint(value)
	c.ttls[key] = expiration
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", fmt.Errorf("redis down")
	}
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDel || c.down {
		return fmt.Errorf("redis down")
	}
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return 0, fmt.Errorf("redis down")
	}
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *fakeCache) Expire(_ context.Context, key string, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[key] = expiration
	return nil
}

type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, file io.Reader, originalFileName, prefix string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := fmt.Sprintf("%s/%d-%s", prefix, len(s.files)+1, originalFileName)
	s.files[path] = data
	return path, nil
}

func (s *fakeStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]entities.User
	nextID uint64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]entities.User)}
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint64) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			c := u
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return apperrors.NewValidationError("email", "is already registered")
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.Email] = *user
	return nil
}
