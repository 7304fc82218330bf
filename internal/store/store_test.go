package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/core"
)

func TestToPgText(t *testing.T) {
	assert.Equal(t, pgtype.Text{String: "x", Valid: true}, toPgText("  x "))
	assert.False(t, toPgText("   ").Valid)
	assert.Equal(t, "", textString(pgtype.Text{}))
}

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.NewString()
	u := toPgUUID(id)
	require.True(t, u.Valid)
	assert.Equal(t, id, uuidString(u))

	assert.False(t, toPgUUID("").Valid)
	assert.False(t, toPgUUID("not-a-uuid").Valid)
	assert.Equal(t, "", uuidString(pgtype.UUID{}))
}

func TestToPgDate(t *testing.T) {
	d := toPgDate("2024-03-05")
	require.True(t, d.Valid)
	assert.Equal(t, "2024-03-05", dateString(d))

	assert.False(t, toPgDate("03/05/2024").Valid)
	assert.False(t, toPgDate("").Valid)
	assert.Equal(t, "", dateString(pgtype.Date{}))
}

// openTestStore connects to SHIPLABEL_TEST_DATABASE_URL, skipping when unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("SHIPLABEL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SHIPLABEL_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func sampleRecord(createdAt time.Time) core.BatchRecord {
	rows := []address.ParsedAddress{
		{FirstName: "Jane", LastName: "Doe", AddressLine1: "123 Main St", AddressLine2: "Apt 4",
			City: "Austin", State: "TX", ZipCode: "78701", Phone: "5125551234"},
		address.Default("bobby"),
	}
	return core.BatchRecord{
		Summary: core.BatchSummary{
			ID:           uuid.NewString(),
			FileName:     "remarks.csv",
			Rows:         len(rows),
			Warnings:     1,
			RemarkColumn: "发货备注",
			HandleColumn: "Handle",
			ShipDate:     createdAt.Format("2006-01-02"),
			Bytes:        128,
			ClientIP:     "203.0.113.7",
			CreatedAt:    createdAt,
		},
		Rows: rows,
	}
}

func TestStore_RecordAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord(time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, s.RecordBatch(ctx, rec))
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM label_batches WHERE id = $1`, toPgUUID(rec.Summary.ID))
	})

	loaded, err := s.LoadBatch(ctx, rec.Summary.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Summary.ID, loaded.Summary.ID)
	assert.Equal(t, rec.Summary.ShipDate, loaded.Summary.ShipDate)
	assert.Equal(t, "203.0.113.7", loaded.Summary.ClientIP)
	assert.Empty(t, loaded.Summary.UserAgent)
	assert.True(t, rec.Summary.CreatedAt.Equal(loaded.Summary.CreatedAt))
	assert.Equal(t, rec.Rows, loaded.Rows)

	batches, err := s.ListBatches(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, batches)
	assert.Equal(t, rec.Summary.ID, batches[0].ID)
}

func TestStore_LoadBatchNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadBatch(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, core.ErrBatchNotFound))

	_, err = s.LoadBatch(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, core.ErrBatchNotFound))
}

func TestStore_RecordBatchRejectsBadID(t *testing.T) {
	s := openTestStore(t)

	rec := sampleRecord(time.Now())
	rec.Summary.ID = "bad"
	assert.Error(t, s.RecordBatch(context.Background(), rec))
}

func TestStore_PurgeBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := sampleRecord(time.Now().Add(-48 * time.Hour))
	fresh := sampleRecord(time.Now())
	require.NoError(t, s.RecordBatch(ctx, old))
	require.NoError(t, s.RecordBatch(ctx, fresh))
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM label_batches WHERE id = $1`, toPgUUID(fresh.Summary.ID))
	})

	n, err := s.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = s.LoadBatch(ctx, old.Summary.ID)
	assert.ErrorIs(t, err, core.ErrBatchNotFound)

	var rows int
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT count(*) FROM label_batch_rows WHERE batch_id = $1`, toPgUUID(old.Summary.ID),
	).Scan(&rows))
	assert.Zero(t, rows)

	_, err = s.LoadBatch(ctx, fresh.Summary.ID)
	assert.NoError(t, err)
}
