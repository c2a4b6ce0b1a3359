package seeders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tax-portal/internal/entities"
	"tax-portal/internal/repositories"
	"tax-portal/internal/services"
	"tax-portal/pkg/config"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
)

// SeedPricing inserts the bundled price list. Existing (category, serviceType) rows are left as they are.
func SeedPricing(ctx context.Context, repo repositories.PricingRepositoryInterface, logger *zap.Logger) error {
	logger.Info("seeding pricing")
	inserted, err := repo.InsertDefaults(ctx, entities.DefaultPricingEntries())
	if err != nil {
		return fmt.Errorf("seed pricing: %w", err)
	}
	logger.Info("pricing seeded",
		zap.Int("inserted", inserted),
		zap.Int("bundled", len(entities.DefaultPricingEntries())))
	return nil
}

// SeedAdmin creates the back-office account from SEED_ADMIN_* when it does not exist yet.
func SeedAdmin(ctx context.Context, repo repositories.UserRepositoryInterface, cfg config.SeederConfig, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping admin")
		return nil
	}

	existing, err := repo.FindByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		if existing.Role != constants.RoleAdmin {
			return fmt.Errorf("seed admin: %s already exists with role %q", cfg.AdminEmail, existing.Role)
		}
		logger.Info("admin already exists", zap.String("email", cfg.AdminEmail))
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := services.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &entities.User{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         constants.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("admin created", zap.Uint64("id", admin.ID), zap.String("email", admin.Email))
	return nil
}
