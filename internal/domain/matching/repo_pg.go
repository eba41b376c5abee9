package matching

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Test Code Mapping Repository ===========

type mappingRepoPG struct{ pool *pgxpool.Pool }

// NewMappingRepoPG returns a MappingStore backed by the test_code_mappings
// table. Row position preserves the configured order.
func NewMappingRepoPG(pool *pgxpool.Pool) MappingStore { return &mappingRepoPG{pool: pool} }

func (r *mappingRepoPG) LoadTestMappings(ctx context.Context) ([]TestMapping, error) {
	return loadMappings(ctx, r.pool)
}

func (r *mappingRepoPG) ReplaceTestMappings(ctx context.Context, mappings []TestMapping) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := replaceMappings(ctx, tx, mappings); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func loadMappings(ctx context.Context, q queryable) ([]TestMapping, error) {
	rows, err := q.Query(ctx, `SELECT booking_test_id, claim_test_id FROM test_code_mappings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query test mappings: %w", err)
	}
	defer rows.Close()

	mappings := []TestMapping{}
	for rows.Next() {
		var m TestMapping
		if err := rows.Scan(&m.BookingTestID, &m.ClaimTestID); err != nil {
			return nil, fmt.Errorf("scan test mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test mappings: %w", err)
	}
	return mappings, nil
}

func replaceMappings(ctx context.Context, q queryable, mappings []TestMapping) error {
	if _, err := q.Exec(ctx, `DELETE FROM test_code_mappings`); err != nil {
		return fmt.Errorf("clear test mappings: %w", err)
	}
	for i, m := range mappings {
		if _, err := q.Exec(ctx,
			`INSERT INTO test_code_mappings (position, booking_test_id, claim_test_id) VALUES ($1, $2, $3)`,
			i+1, m.BookingTestID, m.ClaimTestID,
		); err != nil {
			return fmt.Errorf("insert test mapping %q: %w", m.BookingTestID, err)
		}
	}
	return nil
}
