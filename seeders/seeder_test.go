package seeders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tax-portal/internal/entities"
	"tax-portal/internal/repositories"
	"tax-portal/pkg/config"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
)

type memUsers struct {
	byEmail map[string]*entities.User
	nextID  uint64
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*entities.User{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (*entities.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user *entities.User) error {
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.byEmail[user.Email] = &cp
	return nil
}

type defaultsRecorder struct {
	repositories.PricingRepositoryInterface
	got []entities.PricingEntry
	err error
}

func (r *defaultsRecorder) InsertDefaults(_ context.Context, entries []entities.PricingEntry) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.got = entries
	return len(entries), nil
}

var adminCfg = config.SeederConfig{AdminName: "Portal Administrator", AdminEmail: "admin@example.com", AdminPassword: "s3cret-pass"}

func TestSeedAdmin_CreatesOnce(t *testing.T) {
	users := newMemUsers()

	require.NoError(t, SeedAdmin(context.Background(), users, adminCfg, zap.NewNop()))
	require.NoError(t, SeedAdmin(context.Background(), users, adminCfg, zap.NewNop()))

	require.Len(t, users.byEmail, 1)
	admin := users.byEmail["admin@example.com"]
	assert.Equal(t, constants.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))
}

func TestSeedAdmin_SkipsWhenNotConfigured(t *testing.T) {
	users := newMemUsers()

	require.NoError(t, SeedAdmin(context.Background(), users, config.SeederConfig{AdminEmail: "admin@example.com"}, zap.NewNop()))
	assert.Empty(t, users.byEmail)
}

func TestSeedAdmin_RefusesToPromoteExistingUser(t *testing.T) {
	users := newMemUsers()
	require.NoError(t, users.Create(context.Background(), &entities.User{Email: "admin@example.com", Role: constants.RoleUser}))

	err := SeedAdmin(context.Background(), users, adminCfg, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, constants.RoleUser, users.byEmail["admin@example.com"].Role)
}

func TestSeedPricing_InsertsBundledList(t *testing.T) {
	repo := &defaultsRecorder{}

	require.NoError(t, SeedPricing(context.Background(), repo, zap.NewNop()))
	assert.Equal(t, entities.DefaultPricingEntries(), repo.got)
}

func TestSeedPricing_WrapsStoreError(t *testing.T) {
	repo := &defaultsRecorder{err: apperrors.Unreachable("postgres", errors.New("dial tcp: refused"))}

	err := SeedPricing(context.Background(), repo, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)
}
