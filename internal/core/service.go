package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/label"
	"github.com/JonMunkholm/shiplabel/internal/logging"
)

const (
	// DefaultResultTTL is how long a converted batch stays downloadable.
	DefaultResultTTL = 30 * time.Minute

	// DefaultMaxRecent caps the number of batches held in memory.
	DefaultMaxRecent = 50

	// extractChunk is the number of rows handed to one worker at a time.
	extractChunk = 256
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Extractor *address.Extractor
	Profile   label.Profile
	Columns   ColumnSet
	Limiter   *BatchLimiter
	History   HistoryStore // nil disables persistent history
	Workers   int
	ResultTTL time.Duration
	MaxRecent int
	Now       func() time.Time
}

// Service converts remark files into label tables and keeps recent results
// available for download.
type Service struct {
	extractor *address.Extractor
	profile   label.Profile
	columns   ColumnSet
	limiter   *BatchLimiter
	history   HistoryStore
	workers   int
	resultTTL time.Duration
	maxRecent int
	now       func() time.Time

	mu      sync.RWMutex
	batches map[string]*BatchResult
	timers  map[string]*time.Timer
}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	s := &Service{
		extractor: opts.Extractor,
		profile:   opts.Profile,
		columns:   opts.Columns,
		limiter:   opts.Limiter,
		history:   opts.History,
		workers:   opts.Workers,
		resultTTL: opts.ResultTTL,
		maxRecent: opts.MaxRecent,
		now:       opts.Now,
		batches:   make(map[string]*BatchResult),
		timers:    make(map[string]*time.Timer),
	}

	if s.extractor == nil {
		s.extractor = address.New()
	}
	if s.profile == (label.Profile{}) {
		s.profile = label.DefaultProfile()
	}
	defaults := DefaultColumns()
	if len(s.columns.Remark) == 0 {
		s.columns.Remark = defaults.Remark
	}
	if len(s.columns.Handle) == 0 {
		s.columns.Handle = defaults.Handle
	}
	if s.limiter == nil {
		s.limiter = NewBatchLimiter(DefaultMaxConcurrentBatches, DefaultMaxWaitTime)
	}
	if s.workers <= 0 {
		s.workers = 4
	}
	if s.resultTTL <= 0 {
		s.resultTTL = DefaultResultTTL
	}
	if s.maxRecent <= 0 {
		s.maxRecent = DefaultMaxRecent
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Convert reads a remark CSV, extracts every remark and merges the results
// into a label table. The batch is kept in memory for the result TTL and
// recorded to history when a store is configured. A history failure is
// logged and does not fail the conversion.
func (s *Service) Convert(ctx context.Context, fileName string, r io.Reader, size int64) (*BatchResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := s.now()
	batchID := uuid.New().String()
	logger := logging.WithBatch(ctx, batchID, fileName)

	body, counter := WrapForStreaming(r, size)
	sheet, err := readRemarks(body, s.columns)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}

	parsed, err := s.extractAll(ctx, sheet.Inputs)
	if err != nil {
		return nil, err
	}

	table := label.Merge(parsed, s.profile, start)

	res := &BatchResult{
		BatchSummary: BatchSummary{
			ID:           batchID,
			FileName:     fileName,
			Rows:         len(parsed),
			Warnings:     countWarnings(parsed),
			BlankRows:    sheet.BlankRows,
			RemarkColumn: sheet.RemarkColumn,
			HandleColumn: sheet.HandleColumn,
			ShipDate:     start.Format(label.ShipDateLayout),
			Bytes:        counter.BytesRead,
			DurationMs:   s.now().Sub(start).Milliseconds(),
			ClientIP:     ClientIPFromContext(ctx),
			UserAgent:    UserAgentFromContext(ctx),
			CreatedAt:    start,
		},
		Parsed: parsed,
		Table:  table,
	}
	s.remember(res)

	logger.Info("batch converted",
		"rows", res.Rows,
		"warnings", res.Warnings,
		"blank_rows", res.BlankRows,
		"header_row", sheet.HeaderRow,
		"bytes", res.Bytes,
		"duration_ms", res.DurationMs,
	)

	if s.history != nil {
		rec := BatchRecord{Summary: res.BatchSummary, Rows: parsed}
		if err := s.history.RecordBatch(ctx, rec); err != nil {
			logger.Warn("record batch history failed", "error", err)
		}
	}

	return res, nil
}

// extractAll parses inputs on a bounded set of workers. Results keep input order.
func (s *Service) extractAll(ctx context.Context, inputs []address.RemarkInput) ([]address.ParsedAddress, error) {
	out := make([]address.ParsedAddress, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for lo := 0; lo < len(inputs); lo += extractChunk {
		hi := min(lo+extractChunk, len(inputs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = s.extractor.ExtractInput(inputs[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract remarks: %w", err)
	}
	return out, nil
}

// ParseRemark extracts a single remark.
func (s *Service) ParseRemark(text, handle string) address.ParsedAddress {
	return s.extractor.Extract(text, handle)
}

// Profile returns the label profile used for merging.
func (s *Service) Profile() label.Profile {
	return s.profile
}

// Columns returns the accepted remark and handle header names.
func (s *Service) Columns() ColumnSet {
	return s.columns
}

// LimiterStatus reports the batch limiter state.
func (s *Service) LimiterStatus() BatchLimiterStatus {
	return s.limiter.Status()
}

// HistoryEnabled reports whether batches are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// GetBatch returns a batch that has not yet expired.
func (s *Service) GetBatch(batchID string) (*BatchResult, error) {
	s.mu.RLock()
	res, ok := s.batches[batchID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return res, nil
}

// LoadBatch returns a batch from memory or, once expired, rebuilds it from
// the history store using the current profile.
func (s *Service) LoadBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	if res, err := s.GetBatch(batchID); err == nil || s.history == nil {
		return res, err
	}

	rec, err := s.history.LoadBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}

	shipDate, err := time.Parse(label.ShipDateLayout, rec.Summary.ShipDate)
	if err != nil {
		shipDate = rec.Summary.CreatedAt
	}

	return &BatchResult{
		BatchSummary: rec.Summary,
		Parsed:       rec.Rows,
		Table:        label.Merge(rec.Rows, s.profile, shipDate),
	}, nil
}

// RecentBatches returns the in-memory batches, newest first.
func (s *Service) RecentBatches() []BatchSummary {
	s.mu.RLock()
	out := make([]BatchSummary, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b.BatchSummary)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// History returns up to limit persisted batches, newest first. Without a
// store it falls back to the in-memory batches.
func (s *Service) History(ctx context.Context, limit int) ([]BatchSummary, error) {
	if s.history == nil {
		recent := s.RecentBatches()
		if limit > 0 && len(recent) > limit {
			recent = recent[:limit]
		}
		return recent, nil
	}

	batches, err := s.history.ListBatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return batches, nil
}

// Shutdown waits for running batches to finish, then drops every cached
// result.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for batches: %w", err)
	}

	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		delete(s.batches, id)
	}
	s.mu.Unlock()
	return nil
}

// remember caches res and schedules its removal. The oldest batch is evicted
// when the cache is full.
func (s *Service) remember(res *BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.batches) >= s.maxRecent {
		s.evictOldestLocked()
	}

	s.batches[res.ID] = res
	s.timers[res.ID] = time.AfterFunc(s.resultTTL, func() {
		s.forget(res.ID)
	})
}

func (s *Service) forget(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[batchID]; ok {
		t.Stop()
		delete(s.timers, batchID)
	}
	delete(s.batches, batchID)
}

func (s *Service) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, b := range s.batches {
		if oldestID == "" || b.CreatedAt.Before(oldest) {
			oldestID, oldest = id, b.CreatedAt
		}
	}
	if oldestID == "" {
		return
	}
	if t, ok := s.timers[oldestID]; ok {
		t.Stop()
		delete(s.timers, oldestID)
	}
	delete(s.batches, oldestID)
}
