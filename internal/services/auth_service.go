package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tax-portal/internal/dto"
	"tax-portal/internal/entities"
	"tax-portal/internal/repositories"
	"tax-portal/pkg/constants"
	apperrors "tax-portal/pkg/errors"
	"tax-portal/pkg/service"
)

const loginAttemptWindow = 15 * time.Minute

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO, role string) (*dto.AuthResponseDTO, error)
	Register(ctx context.Context, payload dto.RegisterDTO) (*dto.AuthResponseDTO, error)
}

type AuthService struct {
	userRepo  repositories.UserRepositoryInterface
	cacheRepo repositories.CacheRepositoryInterface
	userJWT   service.JWTService
	adminJWT  service.JWTService
	logger    *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	userJWT service.JWTService,
	adminJWT service.JWTService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		cacheRepo: cacheRepo,
		userJWT:   userJWT,
		adminJWT:  adminJWT,
		logger:    logger,
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

func (s *AuthService) tokenService(role string) (service.JWTService, error) {
	switch role {
	case constants.RoleUser:
		return s.userJWT, nil
	case constants.RoleAdmin:
		return s.adminJWT, nil
	default:
		return nil, apperrors.ErrForbidden
	}
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO, role string) (*dto.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	attemptsKey := fmt.Sprintf(constants.CacheKeyLoginAttempts, email)

	if err := s.checkAttempts(ctx, attemptsKey); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.recordFailure(ctx, attemptsKey)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		s.recordFailure(ctx, attemptsKey)
		s.logger.Info("failed login", zap.String("email", email))
		return nil, apperrors.ErrInvalidCredentials
	}
	// an admin may not use the user login, and vice versa
	if user.Role != role {
		return nil, apperrors.ErrForbidden
	}

	if err := s.cacheRepo.Del(ctx, attemptsKey); err != nil {
		s.logger.Warn("could not reset login attempts", zap.Error(err))
	}
	return s.issue(user)
}

func (s *AuthService) Register(ctx context.Context, payload dto.RegisterDTO) (*dto.AuthResponseDTO, error) {
	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		Phone:        strings.TrimSpace(payload.Phone),
		PasswordHash: hash,
		Role:         constants.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint64("userId", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *entities.User) (*dto.AuthResponseDTO, error) {
	jwtSvc, err := s.tokenService(user.Role)
	if err != nil {
		return nil, err
	}
	token, err := jwtSvc.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponseDTO{
		AccessToken: token,
		ExpiresIn:   int64(jwtSvc.GetAccessTokenTTL().Seconds()),
		User: dto.UserPublicDTO{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Phone: user.Phone,
			Role:  user.Role,
		},
	}, nil
}

// checkAttempts fails open when the cache is down.
func (s *AuthService) checkAttempts(ctx context.Context, key string) error {
	val, err := s.cacheRepo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("login throttle unavailable", zap.Error(err))
		}
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err == nil && n >= constants.MaxLoginAttempts {
		return apperrors.ErrTooManyAttempts
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	n, err := s.cacheRepo.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("login attempt not recorded", zap.Error(err))
		return
	}
	if n == 1 {
		if err := s.cacheRepo.Expire(ctx, key, loginAttemptWindow); err != nil {
			s.logger.Warn("login attempt window not set", zap.Error(err))
		}
	}
}
