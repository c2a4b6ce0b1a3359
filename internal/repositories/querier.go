package repositories

import (
	"context"
	"errors"
	"fmt"
	"net"

	apperrors "tax-portal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pick(pool *pgxpool.Pool, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return pool
}

// mapDBError turns driver errors into the error taxonomy: no rows is NotFound, connectivity is Unreachable,
// out-of-range values and check violations are Validation.
func mapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.Unreachable(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P01 admin_shutdown, 08xxx connection exceptions
		if pgErr.Code == "57P01" || len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return apperrors.Unreachable(op, err)
		}
		switch pgErr.Code {
		case "22003": // numeric_value_out_of_range
			return apperrors.NewValidationError(pgField(pgErr), "value out of range")
		case "23514": // check_violation
			return apperrors.NewValidationError(pgField(pgErr), "violates %s", pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func pgField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.TableName
}
