package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/label"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

type fakeHistory struct {
	mu       sync.Mutex
	records  []BatchRecord
	cutoffs  []time.Time
	failWith error
}

func (f *fakeHistory) RecordBatch(_ context.Context, rec BatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) ListBatches(_ context.Context, limit int) ([]BatchSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]BatchSummary, 0, len(f.records))
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i].Summary)
	}
	return out, nil
}

func (f *fakeHistory) LoadBatch(_ context.Context, batchID string) (*BatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].Summary.ID == batchID {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
}

func (f *fakeHistory) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 0, nil
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	s := NewService(opts)
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown(context.Background()))
	})
	return s
}

const sampleCSV = "发货备注,Handle\n" +
	"\"Jane Doe\n123 Main St Apt 4\nAustin, TX 78701\n(512) 555-1234\",jdoe\n" +
	",,\n" +
	"\"Bob\",bobby\n"

func TestConvert(t *testing.T) {
	hist := &fakeHistory{}
	s := newTestService(t, Options{History: hist})

	ctx := ContextWithClientIP(context.Background(), "203.0.113.7")
	res, err := s.Convert(ctx, "remarks.csv", strings.NewReader(sampleCSV), int64(len(sampleCSV)))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, res.Warnings)
	assert.Equal(t, 1, res.BlankRows)
	assert.Equal(t, "发货备注", res.RemarkColumn)
	assert.Equal(t, "Handle", res.HandleColumn)
	assert.Equal(t, "2024-03-05", res.ShipDate)
	assert.Equal(t, "203.0.113.7", res.ClientIP)
	assert.Equal(t, int64(len(sampleCSV)), res.Bytes)

	require.Len(t, res.Parsed, 2)
	assert.Equal(t, "Jane", res.Parsed[0].FirstName)
	assert.Equal(t, "Apt 4", res.Parsed[0].AddressLine2)
	assert.Equal(t, "bobby", res.Parsed[1].FirstName)

	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, "R100001", res.Table.Value(0, label.ColReferenceID))
	assert.Equal(t, "RR100002", res.Table.Value(1, label.ColReferenceID2))
	assert.Equal(t, "78701", res.Table.Value(0, label.ColRecipientZip))

	got, err := s.GetBatch(res.ID)
	require.NoError(t, err)
	assert.Same(t, res, got)

	require.Len(t, hist.records, 1)
	assert.Equal(t, res.ID, hist.records[0].Summary.ID)
	assert.Len(t, hist.records[0].Rows, 2)
}

func TestConvert_BOMAndInvalidUTF8(t *testing.T) {
	s := newTestService(t, Options{})

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	buf.WriteString("Remarks,Customer\n")
	buf.WriteString("\"Jane Doe\n1 Elm Rd\nBoise, ID 83702\",j\xffdoe\n")

	res, err := s.Convert(context.Background(), "bom.csv", &buf, 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	assert.Equal(t, "Remarks", res.RemarkColumn)
	assert.Equal(t, "ID", res.Parsed[0].State)
	assert.Equal(t, "1 Elm Rd", res.Parsed[0].AddressLine1)
}

func TestConvert_HeaderAfterPreamble(t *testing.T) {
	s := newTestService(t, Options{})

	csv := "Order export\n,\nHandle,发货备注\nh1,\"Jane Doe\n5 Oak Ave\nDallas, TX 75201\"\n"
	res, err := s.Convert(context.Background(), "preamble.csv", strings.NewReader(csv), 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	assert.Equal(t, "Dallas", res.Parsed[0].City)
	assert.Equal(t, "", res.Parsed[0].ParseNote)
}

func TestConvert_ShortRowYieldsDefault(t *testing.T) {
	s := newTestService(t, Options{})

	csv := "Handle,发货备注\nonly-handle\n"
	res, err := s.Convert(context.Background(), "short.csv", strings.NewReader(csv), 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Rows)
	assert.Equal(t, address.Default("only-handle"), res.Parsed[0])
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantErr  error
		wantCode string
	}{
		{"missing remark column", "Notes,Handle\nx,y\n", ErrMissingColumn, "VAL004"},
		{"missing handle column", "发货备注,Name\nx,y\n", ErrMissingColumn, "VAL004"},
		{"no header at all", strings.Repeat("a,b\n", 30), ErrMissingColumn, "VAL004"},
		{"empty file", "", ErrEmptyFile, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &fakeHistory{}
			s := newTestService(t, Options{History: hist})

			_, err := s.Convert(context.Background(), "bad.csv", strings.NewReader(tt.csv), 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, MapError(err).Code)
			assert.Empty(t, hist.records, "failed batches must not be recorded")
			assert.Empty(t, s.RecentBatches())
		})
	}
}

func TestConvert_MissingColumnNamesColumn(t *testing.T) {
	s := newTestService(t, Options{})

	_, err := s.Convert(context.Background(), "bad.csv", strings.NewReader("发货备注,Name\n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle (accepted: Handle, Customer)")
}

func TestConvert_CustomColumns(t *testing.T) {
	s := newTestService(t, Options{
		Columns: ColumnSet{Remark: []string{"Address"}, Handle: []string{"Buyer"}},
	})

	csv := "Buyer,Address\nb1,\"Jane Doe\n9 Pine St\nReno, NV 89501\"\n"
	res, err := s.Convert(context.Background(), "custom.csv", strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, "NV", res.Parsed[0].State)

	_, err = s.Convert(context.Background(), "default.csv", strings.NewReader(sampleCSV), 0)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestConvert_PreservesOrderAcrossWorkers(t *testing.T) {
	s := newTestService(t, Options{Workers: 8})

	var b strings.Builder
	b.WriteString("Handle,发货备注\n")
	const n = 1000
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "h%d,\"Jane Doe\n%d Main St\nAustin, TX 78701\"\n", i, i+1)
	}

	res, err := s.Convert(context.Background(), "big.csv", strings.NewReader(b.String()), 0)
	require.NoError(t, err)
	require.Equal(t, n, res.Rows)
	for i := 0; i < n; i++ {
		require.Equal(t, fmt.Sprintf("%d Main St", i+1), res.Parsed[i].AddressLine1, "row %d", i)
	}
	assert.Equal(t, fmt.Sprintf("R%d", label.DefaultProfile().Reference.Start+n-1), res.Table.Value(n-1, label.ColReferenceID))
}

func TestConvert_CancelledContext(t *testing.T) {
	s := newTestService(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Convert(ctx, "remarks.csv", strings.NewReader(sampleCSV), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvert_Busy(t *testing.T) {
	limiter := NewBatchLimiter(1, 20*time.Millisecond)
	s := newTestService(t, Options{Limiter: limiter})

	require.True(t, limiter.TryAcquire())
	_, err := s.Convert(context.Background(), "remarks.csv", strings.NewReader(sampleCSV), 0)
	limiter.Release()

	assert.ErrorIs(t, err, ErrTooManyBatches)
	assert.Equal(t, "BAT001", MapError(err).Code)
}

func TestConvert_HistoryFailureIsNotFatal(t *testing.T) {
	hist := &fakeHistory{failWith: errors.New("connection refused")}
	s := newTestService(t, Options{History: hist})

	res, err := s.Convert(context.Background(), "remarks.csv", strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
}

func TestGetBatch_NotFound(t *testing.T) {
	s := newTestService(t, Options{})

	_, err := s.GetBatch("nope")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestBatchExpires(t *testing.T) {
	s := newTestService(t, Options{ResultTTL: 20 * time.Millisecond})

	res, err := s.Convert(context.Background(), "remarks.csv", strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.GetBatch(res.ID)
		return errors.Is(err, ErrBatchNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestLoadBatch_FallsBackToHistory(t *testing.T) {
	hist := &fakeHistory{}
	s := newTestService(t, Options{History: hist, ResultTTL: 20 * time.Millisecond})

	res, err := s.Convert(context.Background(), "remarks.csv", strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := s.GetBatch(res.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	loaded, err := s.LoadBatch(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, loaded.ID)
	require.Equal(t, 2, loaded.Table.Len())
	assert.Equal(t, "R100001", loaded.Table.Value(0, label.ColReferenceID))
	assert.Equal(t, "2024-03-05", loaded.Table.Value(0, label.ColShippingDate))

	_, err = s.LoadBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestLoadBatch_NoStore(t *testing.T) {
	s := newTestService(t, Options{})

	_, err := s.LoadBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestRecentBatches_EvictsOldest(t *testing.T) {
	clock := fixedNow
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	s := newTestService(t, Options{MaxRecent: 2, Now: now})

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := s.Convert(context.Background(), fmt.Sprintf("f%d.csv", i), strings.NewReader(sampleCSV), 0)
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	recent := s.RecentBatches()
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	_, err := s.GetBatch(ids[0])
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestHistory(t *testing.T) {
	t.Run("falls back to memory", func(t *testing.T) {
		s := newTestService(t, Options{})
		_, err := s.Convert(context.Background(), "a.csv", strings.NewReader(sampleCSV), 0)
		require.NoError(t, err)

		got, err := s.History(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.False(t, s.HistoryEnabled())
	})

	t.Run("reads the store", func(t *testing.T) {
		hist := &fakeHistory{}
		s := newTestService(t, Options{History: hist})
		for i := 0; i < 3; i++ {
			_, err := s.Convert(context.Background(), "a.csv", strings.NewReader(sampleCSV), 0)
			require.NoError(t, err)
		}

		got, err := s.History(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.True(t, s.HistoryEnabled())
	})

	t.Run("wraps store errors", func(t *testing.T) {
		hist := &fakeHistory{failWith: errors.New("connection reset by peer")}
		s := newTestService(t, Options{History: hist})

		_, err := s.History(context.Background(), 10)
		require.Error(t, err)
		assert.Equal(t, "DB005", MapError(err).Code)
	})
}

func TestParseRemark(t *testing.T) {
	s := newTestService(t, Options{Extractor: address.New(address.WithCityScan(address.ScanForward))})

	got := s.ParseRemark("Jane Doe\n1 A St\nAustin, TX 78701\nDallas, TX 75201", "h")
	assert.Equal(t, "Austin", got.City)
}

func TestStartHistoryPurge(t *testing.T) {
	hist := &fakeHistory{}
	s := newTestService(t, Options{History: hist})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartHistoryPurge(ctx, PurgeConfig{Retention: 48 * time.Hour, Interval: time.Hour})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		hist.mu.Lock()
		defer hist.mu.Unlock()
		return len(hist.cutoffs) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, fixedNow.Add(-48*time.Hour), hist.cutoffs[0])
}

func TestStartHistoryPurge_NoStore(t *testing.T) {
	s := newTestService(t, Options{})

	done := make(chan struct{})
	go func() {
		s.StartHistoryPurge(context.Background(), PurgeConfig{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartHistoryPurge should return without a store")
	}
}
