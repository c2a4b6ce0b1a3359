package repositories

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tax-portal/internal/entities"
)

const pricingTable = "pricing_entries"

var pricingColumns = []string{"id", "category", "service_type", "service_name", "price", "is_active", "created_at", "updated_at"}

type PricingRepositoryInterface interface {
	List(ctx context.Context) ([]entities.PricingEntry, error)
	FindByKey(ctx context.Context, key entities.PriceKey) (*entities.PricingEntry, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.PricingEntry, error)
	UpdatePrice(ctx context.Context, tx pgx.Tx, id uint64, price decimal.Decimal, isActive null.Bool) (*entities.PricingEntry, error)
	InsertDefaults(ctx context.Context, entries []entities.PricingEntry) (int, error)
	Counts(ctx context.Context) (total int, active int, err error)
}

type PricingRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewPricingRepository(storage *pgxpool.Pool, logger *zap.Logger) PricingRepositoryInterface {
	return &PricingRepository{storage: storage, logger: logger}
}

func scanPricingEntry(row pgx.Row) (*entities.PricingEntry, error) {
	var p entities.PricingEntry
	err := row.Scan(&p.ID, &p.Category, &p.ServiceType, &p.ServiceName, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PricingRepository) findOne(ctx context.Context, querier Querier, where sq.Eq) (*entities.PricingEntry, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(pricingColumns...).From(pricingTable).Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	entry, err := scanPricingEntry(querier.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapDBError("find pricing entry", err)
	}
	return entry, nil
}

func (r *PricingRepository) List(ctx context.Context) ([]entities.PricingEntry, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(pricingColumns...).From(pricingTable).OrderBy("category", "service_type").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, mapDBError("list pricing", err)
	}
	defer rows.Close()

	out := make([]entities.PricingEntry, 0)
	for rows.Next() {
		entry, err := scanPricingEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, mapDBError("list pricing", rows.Err())
}

// FindByKey does not filter on is_active: inactive entries still quote.
func (r *PricingRepository) FindByKey(ctx context.Context, key entities.PriceKey) (*entities.PricingEntry, error) {
	return r.findOne(ctx, r.storage, sq.Eq{"category": key.Category, "service_type": key.ServiceType})
}

func (r *PricingRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.PricingEntry, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"id": id})
}

func (r *PricingRepository) UpdatePrice(ctx context.Context, tx pgx.Tx, id uint64, price decimal.Decimal, isActive null.Bool) (*entities.PricingEntry, error) {
	query := `
		UPDATE pricing_entries
		SET price = $1, is_active = COALESCE($2, is_active), updated_at = NOW()
		WHERE id = $3
		RETURNING id, category, service_type, service_name, price, is_active, created_at, updated_at
	`
	entry, err := scanPricingEntry(pick(r.storage, tx).QueryRow(ctx, query, price, isActive, id))
	if err != nil {
		return nil, mapDBError("update pricing entry", err)
	}
	return entry, nil
}

// InsertDefaults is idempotent; existing keys keep their price.
func (r *PricingRepository) InsertDefaults(ctx context.Context, entries []entities.PricingEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Insert(pricingTable).Columns("category", "service_type", "service_name", "price", "is_active")
	for _, e := range entries {
		builder = builder.Values(e.Category, e.ServiceType, e.ServiceName, e.Price, e.IsActive)
	}
	query, args, err := builder.Suffix("ON CONFLICT (category, service_type) DO NOTHING").ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapDBError("initialize pricing", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PricingRepository) Counts(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.storage.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM pricing_entries`).Scan(&total, &active)
	if err != nil {
		return 0, 0, mapDBError("count pricing", err)
	}
	return total, active, nil
}
