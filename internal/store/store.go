// Package store persists batch history in PostgreSQL.
//
// Each converted file becomes one label_batches row and one label_batch_rows
// row per parsed remark. Rows are bulk loaded with COPY inside the same
// transaction as their batch, so a batch is either fully recorded or absent.
// Deleting a batch cascades to its rows.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DefaultListLimit is used when ListBatches is called with a non-positive limit.
const DefaultListLimit = 100

var batchRowColumns = []string{
	"batch_id", "row_num",
	"first_name", "last_name",
	"address_line1", "address_line2",
	"city", "state", "zip_code",
	"phone", "parse_note",
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements core.HistoryStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.HistoryStore = (*Store)(nil)

// Open connects to PostgreSQL, verifies the connection and applies the schema.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordBatch inserts a batch and copies its parsed rows.
func (s *Store) RecordBatch(ctx context.Context, rec core.BatchRecord) (err error) {
	sum := rec.Summary

	id := toPgUUID(sum.ID)
	if !id.Valid {
		return fmt.Errorf("record batch: invalid batch id %q", sum.ID)
	}
	shipDate := toPgDate(sum.ShipDate)
	if !shipDate.Valid {
		return fmt.Errorf("record batch %s: invalid ship date %q", sum.ID, sum.ShipDate)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO label_batches (
			id, file_name, row_count, warning_count, blank_rows,
			remark_column, handle_column, ship_date, bytes, duration_ms,
			client_ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, sum.FileName, sum.Rows, sum.Warnings, sum.BlankRows,
		sum.RemarkColumn, sum.HandleColumn, shipDate, sum.Bytes, sum.DurationMs,
		toPgText(sum.ClientIP), toPgText(sum.UserAgent), sum.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", sum.ID, err)
	}

	if len(rec.Rows) > 0 {
		src := pgx.CopyFromSlice(len(rec.Rows), func(i int) ([]any, error) {
			p := rec.Rows[i]
			return []any{
				id, i + 1,
				p.FirstName, p.LastName,
				p.AddressLine1, p.AddressLine2,
				p.City, p.State, p.ZipCode,
				p.Phone, p.ParseNote,
			}, nil
		})

		n, copyErr := tx.CopyFrom(ctx, pgx.Identifier{"label_batch_rows"}, batchRowColumns, src)
		if copyErr != nil {
			err = fmt.Errorf("copy rows for batch %s: %w", sum.ID, copyErr)
			return err
		}
		if int(n) != len(rec.Rows) {
			err = fmt.Errorf("copy rows for batch %s: wrote %d of %d", sum.ID, n, len(rec.Rows))
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch %s: %w", sum.ID, err)
	}
	return nil
}

// ListBatches returns up to limit batches, newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]core.BatchSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, row_count, warning_count, blank_rows,
			remark_column, handle_column, ship_date, bytes, duration_ms,
			client_ip, user_agent, created_at
		FROM label_batches
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	batches, err := pgx.CollectRows(rows, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("scan batches: %w", err)
	}
	return batches, nil
}

// LoadBatch returns a stored batch with its parsed rows in file order.
func (s *Store) LoadBatch(ctx context.Context, batchID string) (*core.BatchRecord, error) {
	id := toPgUUID(batchID)
	if !id.Valid {
		return nil, fmt.Errorf("%w: %s", core.ErrBatchNotFound, batchID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, row_count, warning_count, blank_rows,
			remark_column, handle_column, ship_date, bytes, duration_ms,
			client_ip, user_agent, created_at
		FROM label_batches
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query batch %s: %w", batchID, err)
	}
	sum, err := pgx.CollectExactlyOneRow(rows, scanSummary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrBatchNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan batch %s: %w", batchID, err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT first_name, last_name, address_line1, address_line2,
			city, state, zip_code, phone, parse_note
		FROM label_batch_rows
		WHERE batch_id = $1
		ORDER BY row_num`, id)
	if err != nil {
		return nil, fmt.Errorf("query rows for batch %s: %w", batchID, err)
	}

	parsed, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (address.ParsedAddress, error) {
		var p address.ParsedAddress
		err := row.Scan(
			&p.FirstName, &p.LastName, &p.AddressLine1, &p.AddressLine2,
			&p.City, &p.State, &p.ZipCode, &p.Phone, &p.ParseNote,
		)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows for batch %s: %w", batchID, err)
	}

	return &core.BatchRecord{Summary: sum, Rows: parsed}, nil
}

// PurgeBefore deletes batches created before cutoff and reports how many
// were removed. Their rows go with them.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM label_batches WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge batches: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSummary(row pgx.CollectableRow) (core.BatchSummary, error) {
	var (
		sum       core.BatchSummary
		id        pgtype.UUID
		shipDate  pgtype.Date
		clientIP  pgtype.Text
		userAgent pgtype.Text
	)
	err := row.Scan(
		&id, &sum.FileName, &sum.Rows, &sum.Warnings, &sum.BlankRows,
		&sum.RemarkColumn, &sum.HandleColumn, &shipDate, &sum.Bytes, &sum.DurationMs,
		&clientIP, &userAgent, &sum.CreatedAt,
	)
	if err != nil {
		return core.BatchSummary{}, err
	}

	sum.ID = uuidString(id)
	sum.ShipDate = dateString(shipDate)
	sum.ClientIP = textString(clientIP)
	sum.UserAgent = textString(userAgent)
	return sum, nil
}
