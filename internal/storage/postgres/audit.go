package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/oolio-fulfillment/internal/domain/audit"
)

const (
	insertAuditSQL = `INSERT INTO audit_entries (event, account_id, sku, details, recorded_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)`

	listAuditByAccountSQL = `SELECT event, account_id, COALESCE(sku, ''), details, recorded_at
		FROM audit_entries WHERE account_id = $1 ORDER BY id`
)

var _ audit.Sink = (*AuditStore)(nil)

// AuditStore persists audit entries. It is used as an audit.Sink.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore returns an AuditStore that uses the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Publish inserts e.
func (s *AuditStore) Publish(ctx context.Context, e audit.Entry) error {
	if _, err := s.pool.Exec(ctx, insertAuditSQL, e.Event, e.AccountID, e.SKU, e.Details, e.At); err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	return nil
}

// ListByAccount returns the account's entries in insertion order.
func (s *AuditStore) ListByAccount(ctx context.Context, accountID string) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx, listAuditByAccountSQL, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "list audit entries")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(&e.Event, &e.AccountID, &e.SKU, &e.Details, &e.At)
		return e, err
	})
}
