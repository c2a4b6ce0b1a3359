package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
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
	"tax-portal/pkg/filestorage"
	"tax-portal/pkg/types"
	"tax-portal/pkg/utils"
	"tax-portal/pkg/validation"
)

type ServiceRequestServiceInterface interface {
	Submit(ctx context.Context, category string, payload dto.CreateServiceRequestDTO, file *multipart.FileHeader) (*entities.ServiceRequest, error)
	ListMine(ctx context.Context) ([]entities.ServiceRequest, error)
	List(ctx context.Context, category string, filter types.Filter) ([]entities.ServiceRequest, error)
	Find(ctx context.Context, category, id string) (*entities.ServiceRequest, error)
	FindOwned(ctx context.Context, category, id string) (*entities.ServiceRequest, error)
	UpdateStatus(ctx context.Context, category, id string, payload dto.UpdateStatusDTO) (*entities.ServiceRequest, error)
	Delete(ctx context.Context, category, id string) error
	Stats(ctx context.Context) (*dto.StatsDTO, error)
}

type ServiceRequestService struct {
	repo        repositories.ServiceRequestRepositoryInterface
	pricingRepo repositories.PricingRepositoryInterface
	pricing     PricingServiceInterface
	txManager   repositories.TxManagerInterface
	fileStorage filestorage.FileStorageInterface
	bus         *eventbus.Bus
	logger      *zap.Logger
	now         func() time.Time
}

func NewServiceRequestService(
	repo repositories.ServiceRequestRepositoryInterface,
	pricingRepo repositories.PricingRepositoryInterface,
	pricing PricingServiceInterface,
	txManager repositories.TxManagerInterface,
	fileStorage filestorage.FileStorageInterface,
	bus *eventbus.Bus,
	logger *zap.Logger,
) *ServiceRequestService {
	return &ServiceRequestService{
		repo:        repo,
		pricingRepo: pricingRepo,
		pricing:     pricing,
		txManager:   txManager,
		fileStorage: fileStorage,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// parseRef validates the path parameters. A malformed id cannot exist, so it is NotFound.
func parseRef(category, id string) (entities.Category, string, error) {
	c, err := entities.ParseCategory(category)
	if err != nil {
		return "", "", err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", "", apperrors.ErrNotFound
	}
	return c, parsed.String(), nil
}

func (s *ServiceRequestService) Submit(ctx context.Context, category string, payload dto.CreateServiceRequestDTO, file *multipart.FileHeader) (*entities.ServiceRequest, error) {
	c, err := entities.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	serviceType := strings.ToLower(strings.TrimSpace(payload.ServiceType))
	if serviceType == "" {
		return nil, apperrors.NewValidationError("serviceType", "is required")
	}

	fields := make(map[string]interface{}, len(payload.CategoryFields)+2)
	for k, v := range payload.CategoryFields {
		fields[k] = v
	}
	if payload.GSTIN.Valid {
		fields["gstin"] = strings.ToUpper(payload.GSTIN.String)
	}
	if payload.PAN.Valid {
		fields["pan"] = strings.ToUpper(payload.PAN.String)
	}

	req := &entities.ServiceRequest{
		ID:          uuid.NewString(),
		Category:    c,
		ServiceType: serviceType,
		UserID:      null.Uint64From(userID),
		Submitter: entities.Submitter{
			Name:  strings.TrimSpace(payload.Name),
			Email: strings.ToLower(strings.TrimSpace(payload.Email)),
			Phone: strings.TrimSpace(payload.Phone),
		},
		CategoryFields: fields,
		Status:         entities.StatusPending,
	}

	if file != nil {
		path, err := s.saveDocument(ctx, file)
		if err != nil {
			return nil, err
		}
		req.DocumentPath = null.StringFrom(path)
	}

	if err := s.repo.Create(ctx, req); err != nil {
		if req.DocumentPath.Valid {
			if delErr := s.fileStorage.Delete(ctx, req.DocumentPath.String); delErr != nil {
				s.logger.Warn("orphaned document after failed submit", zap.String("path", req.DocumentPath.String), zap.Error(delErr))
			}
		}
		return nil, err
	}

	s.logger.Info("service request submitted",
		zap.String("requestId", req.ID),
		zap.String("category", string(c)),
		zap.String("serviceType", serviceType),
		zap.Uint64("userId", userID))
	return req, nil
}

func (s *ServiceRequestService) saveDocument(ctx context.Context, header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", apperrors.NewHttpError(http.StatusBadRequest, "cannot read uploaded file", err, nil)
	}
	defer src.Close()

	if err := validation.ValidateFile(header, src, "request_document"); err != nil {
		return "", apperrors.NewValidationError("file", "%s", err.Error())
	}

	path, err := s.fileStorage.Save(ctx, src, header.Filename, constants.UploadContextRequestDocument.String())
	if err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return path, nil
}

func (s *ServiceRequestService) ListMine(ctx context.Context) ([]entities.ServiceRequest, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *ServiceRequestService) List(ctx context.Context, category string, filter types.Filter) ([]entities.ServiceRequest, error) {
	c, err := entities.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCategory(ctx, c, filter)
}

func (s *ServiceRequestService) Find(ctx context.Context, category, id string) (*entities.ServiceRequest, error) {
	c, rid, err := parseRef(category, id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, c, rid)
}

// FindOwned hides requests of other users behind NotFound.
func (s *ServiceRequestService) FindOwned(ctx context.Context, category, id string) (*entities.ServiceRequest, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.Find(ctx, category, id)
	if err != nil {
		return nil, err
	}
	if !req.UserID.Valid || req.UserID.Uint64 != userID {
		return nil, apperrors.ErrNotFound
	}
	return req, nil
}

// UpdateStatus applies one admin transition. Validation and transition checks run before any write;
// status, notes and bill are written in a single statement under a row lock.
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, category, id string, payload dto.UpdateStatusDTO) (*entities.ServiceRequest, error) {
	c, rid, err := parseRef(category, id)
	if err != nil {
		return nil, err
	}
	to, err := entities.ParseStatus(payload.Status)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("requestId", rid), zap.String("category", string(c)), zap.String("to", string(to)))

	var (
		updated *entities.ServiceRequest
		from    entities.RequestStatus
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.repo.FindByIDForUpdate(ctx, tx, c, rid)
		if err != nil {
			return err
		}
		// terminal records answer InvalidTransition whatever the payload carries
		if err := entities.ValidateTransition(req.Status, to); err != nil {
			return err
		}
		if to != entities.StatusCompleted && (payload.BillAmount.Valid || payload.BillDescription.Valid) {
			return apperrors.NewValidationError("billAmount", "bill fields are only accepted when completing a request")
		}
		from = req.Status

		next := *req
		next.Status = to
		if payload.AdminNotes.Valid {
			next.AdminNotes = null.StringFrom(strings.TrimSpace(payload.AdminNotes.String))
		}

		if to == entities.StatusCompleted {
			bill, err := s.buildBill(ctx, req, payload)
			if err != nil {
				return err
			}
			next.Bill = bill
		}

		if err := s.repo.UpdateStatus(ctx, tx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) || errors.Is(err, apperrors.ErrValidation) {
			logger.Info("status change rejected", zap.Error(err))
		}
		return nil, err
	}

	logger.Info("status changed", zap.String("from", string(from)))

	s.bus.Publish(ctx, events.ServiceRequestStatusChangedEvent{Request: *updated, From: from})
	if updated.Status == entities.StatusCompleted {
		s.bus.Publish(ctx, events.ServiceRequestCompletedEvent{Request: *updated})
	}
	return updated, nil
}

// buildBill resolves the standard price at completion time unless the admin supplied an amount.
func (s *ServiceRequestService) buildBill(ctx context.Context, req *entities.ServiceRequest, payload dto.UpdateStatusDTO) (*entities.Bill, error) {
	key := entities.PriceKey{Category: req.Category, ServiceType: req.ServiceType}

	var amount decimal.Decimal
	serviceName := entities.ServiceName(key)
	if payload.BillAmount.Valid {
		amount = payload.BillAmount.Decimal
	} else {
		quote, err := s.pricing.StandardPrice(ctx, key)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError("billAmount", "no standard price for %s, an amount is required", key)
			}
			return nil, err
		}
		amount = quote.Price
		serviceName = quote.ServiceName
	}
	amount, err := entities.NormalizeAmount("billAmount", amount)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("%s - %s", serviceName, req.ServiceType)
	if payload.BillDescription.Valid {
		description = strings.TrimSpace(payload.BillDescription.String)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("billDescription", "must not be empty")
	}

	return &entities.Bill{
		Amount:      amount,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// Delete removes a declined request permanently, together with its document.
func (s *ServiceRequestService) Delete(ctx context.Context, category, id string) error {
	c, rid, err := parseRef(category, id)
	if err != nil {
		return err
	}

	var documentPath null.String
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.repo.FindByIDForUpdate(ctx, tx, c, rid)
		if err != nil {
			return err
		}
		if req.Status != entities.StatusDeclined {
			return &apperrors.TransitionError{From: string(req.Status), To: "DELETED"}
		}
		documentPath = req.DocumentPath
		return s.repo.Delete(ctx, tx, c, rid)
	})
	if err != nil {
		return err
	}

	if documentPath.Valid {
		if err := s.fileStorage.Delete(ctx, documentPath.String); err != nil {
			s.logger.Warn("document not removed", zap.String("path", documentPath.String), zap.Error(err))
		}
	}
	s.logger.Info("declined service request deleted", zap.String("requestId", rid), zap.String("category", string(c)))
	return nil
}

func (s *ServiceRequestService) Stats(ctx context.Context) (*dto.StatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, active, err := s.pricingRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	out := &dto.StatsDTO{PricingTotal: total, PricingActive: active}
	for _, c := range entities.AllCategories {
		cs := dto.CategoryStatsDTO{Category: string(c), ByStatus: make(map[string]int, len(entities.AllStatuses))}
		for _, st := range entities.AllStatuses {
			n := counts[c][st]
			cs.ByStatus[string(st)] = n
			cs.Total += n
		}
		out.Requests = append(out.Requests, cs)
	}
	return out, nil
}
