// Package postgres keeps the deleted-record ledger in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/warp/leave-sync/generic"
)

const (
	defaultTableName = "leavesync_deleted_records"
	operationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// Store implements generic.LedgerStore. The connection is opened and the
// table created lazily, on first use.
type Store struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func New(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres ledger: empty dsn")
	}
	return &Store{
		dsn:       dsn,
		tableName: defaultTableName,
		openDB:    sql.Open,
	}, nil
}

func (s *Store) Load(ctx context.Context) ([]string, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT approval_id FROM %s ORDER BY approval_id", pq.QuoteIdentifier(s.tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Append(ctx context.Context, approvalID string) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (approval_id, recorded_at)
		VALUES ($1, NOW())
		ON CONFLICT (approval_id) DO NOTHING`, pq.QuoteIdentifier(s.tableName))
	_, err := s.db.ExecContext(ctx, query, approvalID)
	return err
}

func (s *Store) Entries(ctx context.Context) ([]generic.LedgerEntry, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT approval_id, recorded_at FROM %s ORDER BY approval_id", pq.QuoteIdentifier(s.tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.LedgerEntry
	for rows.Next() {
		var (
			e  generic.LedgerEntry
			at time.Time
		)
		if err := rows.Scan(&e.ApprovalID, &at); err != nil {
			return nil, err
		}
		e.RecordedAt = &at
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		db, err := s.openDB("postgres", s.dsn)
		if err != nil {
			s.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(ctx, operationTimeout)
		defer cancel()

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				approval_id TEXT PRIMARY KEY,
				recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, pq.QuoteIdentifier(s.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			s.initErr = fmt.Errorf("create ledger table: %w", err)
			return
		}
		s.db = db
	})
	return s.initErr
}

var (
	_ generic.LedgerStore = (*Store)(nil)
	_ generic.EntryLister = (*Store)(nil)
)
