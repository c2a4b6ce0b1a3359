package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tax-portal/internal/entities"
	db "tax-portal/internal/infrastructure/bd"
	"tax-portal/pkg/types"
)

const serviceRequestTable = "service_requests"

var serviceRequestColumns = []string{
	"id::text", "category", "service_type", "user_id",
	"submitter_name", "submitter_email", "submitter_phone",
	"category_fields", "document_path", "status", "admin_notes",
	"bill_amount", "bill_description", "bill_created_at",
	"created_at", "updated_at",
}

// filter/sort keys accepted from the query string
var serviceRequestMap = map[string]string{
	"id":          "id",
	"status":      "status",
	"serviceType": "service_type",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

var serviceRequestSearchColumns = []string{"id::text", "submitter_name", "submitter_email", "submitter_phone"}

type ServiceRequestRepositoryInterface interface {
	Create(ctx context.Context, req *entities.ServiceRequest) error
	FindByID(ctx context.Context, category entities.Category, id string) (*entities.ServiceRequest, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, category entities.Category, id string) (*entities.ServiceRequest, error)
	ListByCategory(ctx context.Context, category entities.Category, filter types.Filter) ([]entities.ServiceRequest, error)
	ListByUser(ctx context.Context, userID uint64) ([]entities.ServiceRequest, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, req *entities.ServiceRequest) error
	Delete(ctx context.Context, tx pgx.Tx, category entities.Category, id string) error
	CountByStatus(ctx context.Context) (map[entities.Category]map[entities.RequestStatus]int, error)
}

type ServiceRequestRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewServiceRequestRepository(storage *pgxpool.Pool, logger *zap.Logger) ServiceRequestRepositoryInterface {
	return &ServiceRequestRepository{storage: storage, logger: logger}
}

func scanServiceRequest(row pgx.Row) (*entities.ServiceRequest, error) {
	var r entities.ServiceRequest
	var billAmount decimal.NullDecimal
	var billDescription null.String
	var billCreatedAt null.Time

	err := row.Scan(
		&r.ID, &r.Category, &r.ServiceType, &r.UserID,
		&r.Submitter.Name, &r.Submitter.Email, &r.Submitter.Phone,
		&r.CategoryFields, &r.DocumentPath, &r.Status, &r.AdminNotes,
		&billAmount, &billDescription, &billCreatedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if billAmount.Valid {
		r.Bill = &entities.Bill{
			Amount:      billAmount.Decimal,
			Description: billDescription.String,
			CreatedAt:   billCreatedAt.Time,
		}
	}
	return &r, nil
}

func (r *ServiceRequestRepository) selectBuilder() sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return psql.Select(serviceRequestColumns...).From(serviceRequestTable)
}

func (r *ServiceRequestRepository) findOne(ctx context.Context, querier Querier, where sq.Eq, forUpdate bool) (*entities.ServiceRequest, error) {
	builder := r.selectBuilder().Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	req, err := scanServiceRequest(querier.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapDBError("find service request", err)
	}
	return req, nil
}

func (r *ServiceRequestRepository) FindByID(ctx context.Context, category entities.Category, id string) (*entities.ServiceRequest, error) {
	return r.findOne(ctx, r.storage, sq.Eq{"id": id, "category": category}, false)
}

// FindByIDForUpdate locks the row until tx ends.
func (r *ServiceRequestRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, category entities.Category, id string) (*entities.ServiceRequest, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"id": id, "category": category}, true)
}

func (r *ServiceRequestRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.ServiceRequest, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, mapDBError("list service requests", err)
	}
	defer rows.Close()

	out := make([]entities.ServiceRequest, 0)
	for rows.Next() {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}
		out = append(out, *req)
	}
	return out, mapDBError("list service requests", rows.Err())
}

func (r *ServiceRequestRepository) ListByCategory(ctx context.Context, category entities.Category, filter types.Filter) ([]entities.ServiceRequest, error) {
	builder := r.selectBuilder().Where(sq.Eq{"category": category})
	builder = db.ApplySearch(builder, filter.Search, serviceRequestSearchColumns...)
	builder = db.ApplyListParams(builder, filter, serviceRequestMap)
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("created_at DESC")
	}
	return r.list(ctx, builder)
}

func (r *ServiceRequestRepository) ListByUser(ctx context.Context, userID uint64) ([]entities.ServiceRequest, error) {
	return r.list(ctx, r.selectBuilder().Where(sq.Eq{"user_id": userID}).OrderBy("created_at DESC"))
}

func (r *ServiceRequestRepository) Create(ctx context.Context, req *entities.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (id, category, service_type, user_id, submitter_name, submitter_email, submitter_phone,
			category_fields, document_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	fields := req.CategoryFields
	if fields == nil {
		fields = map[string]interface{}{}
	}

	err := r.storage.QueryRow(ctx, query,
		req.ID, req.Category, req.ServiceType, req.UserID,
		req.Submitter.Name, req.Submitter.Email, req.Submitter.Phone,
		fields, req.DocumentPath, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return mapDBError("create service request", err)
	}
	return nil
}

// UpdateStatus writes status, notes and bill in one statement and refreshes req.UpdatedAt.
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, req *entities.ServiceRequest) error {
	var billAmount decimal.NullDecimal
	var billDescription null.String
	var billCreatedAt null.Time
	if req.Bill != nil {
		billAmount = decimal.NewNullDecimal(req.Bill.Amount)
		billDescription = null.StringFrom(req.Bill.Description)
		billCreatedAt = null.TimeFrom(req.Bill.CreatedAt)
	}

	query := `
		UPDATE service_requests
		SET status = $1, admin_notes = $2, bill_amount = $3, bill_description = $4, bill_created_at = $5, updated_at = NOW()
		WHERE id = $6 AND category = $7
		RETURNING updated_at
	`
	err := pick(r.storage, tx).QueryRow(ctx, query,
		req.Status, req.AdminNotes, billAmount, billDescription, billCreatedAt, req.ID, req.Category,
	).Scan(&req.UpdatedAt)
	if err != nil {
		return mapDBError("update service request status", err)
	}
	return nil
}

func (r *ServiceRequestRepository) Delete(ctx context.Context, tx pgx.Tx, category entities.Category, id string) error {
	tag, err := pick(r.storage, tx).Exec(ctx, `DELETE FROM service_requests WHERE id = $1 AND category = $2`, id, category)
	if err != nil {
		return mapDBError("delete service request", err)
	}
	if tag.RowsAffected() == 0 {
		return mapDBError("delete service request", pgx.ErrNoRows)
	}
	return nil
}

func (r *ServiceRequestRepository) CountByStatus(ctx context.Context) (map[entities.Category]map[entities.RequestStatus]int, error) {
	rows, err := r.storage.Query(ctx, `SELECT category, status, COUNT(*) FROM service_requests GROUP BY category, status`)
	if err != nil {
		return nil, mapDBError("count service requests", err)
	}
	defer rows.Close()

	out := make(map[entities.Category]map[entities.RequestStatus]int)
	for rows.Next() {
		var category entities.Category
		var status entities.RequestStatus
		var n int
		if err := rows.Scan(&category, &status, &n); err != nil {
			return nil, err
		}
		if out[category] == nil {
			out[category] = make(map[entities.RequestStatus]int)
		}
		out[category][status] = n
	}
	return out, mapDBError("count service requests", rows.Err())
}
