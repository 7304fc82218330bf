package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/shiplabel/internal/address"
	"github.com/JonMunkholm/shiplabel/internal/label"
)

var (
	// ErrBatchNotFound is returned for an unknown or expired batch ID.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrHistoryDisabled is returned by history queries when no store is configured.
	ErrHistoryDisabled = errors.New("history store not configured")
)

// BatchSummary describes one converted file.
type BatchSummary struct {
	ID           string    `json:"id"`
	FileName     string    `json:"fileName"`
	Rows         int       `json:"rows"`
	Warnings     int       `json:"warnings"`
	BlankRows    int       `json:"blankRows"`
	RemarkColumn string    `json:"remarkColumn"`
	HandleColumn string    `json:"handleColumn"`
	ShipDate     string    `json:"shipDate"`
	Bytes        int64     `json:"bytes"`
	DurationMs   int64     `json:"durationMs"`
	ClientIP     string    `json:"clientIp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BatchResult is a converted file held in memory until it expires.
type BatchResult struct {
	BatchSummary
	Parsed []address.ParsedAddress `json:"-"`
	Table  *label.Table            `json:"-"`
}

// BatchRecord is what the history store persists for a batch.
type BatchRecord struct {
	Summary BatchSummary
	Rows    []address.ParsedAddress
}

// HistoryStore persists batch history. Implementations must be safe for
// concurrent use.
type HistoryStore interface {
	RecordBatch(ctx context.Context, rec BatchRecord) error
	ListBatches(ctx context.Context, limit int) ([]BatchSummary, error)
	LoadBatch(ctx context.Context, batchID string) (*BatchRecord, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeConfig controls the history purge scheduler.
type PurgeConfig struct {
	Retention time.Duration // keep batches newer than this (default: 30 days)
	Interval  time.Duration // how often to purge (default: 24h)
}

func countWarnings(parsed []address.ParsedAddress) int {
	n := 0
	for _, p := range parsed {
		if !p.Clean() {
			n++
		}
	}
	return n
}
