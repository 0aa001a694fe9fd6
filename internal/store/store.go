// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stock-tracker/internal/models"
)

// DataStore defines the interface for data persistence.
//
// It covers the three record sets the tracker owns: samples (append-only),
// alert rules (mutable by deactivation only) and the watchlist
// (insert/delete). Each call is independently atomic at the store
// boundary; there are no cross-call transactions.
type DataStore interface {
	// Samples
	AppendSample(ctx context.Context, sample *models.Sample) error
	GetSamples(ctx context.Context, symbol string, since time.Time) ([]models.Sample, error)
	GetLatestSample(ctx context.Context, symbol string) (*models.Sample, error)

	// Alert rules
	CreateAlert(ctx context.Context, rule *models.AlertRule) error
	GetActiveAlerts(ctx context.Context) ([]models.AlertRule, error)
	DeactivateAlert(ctx context.Context, ruleID string) error

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol string) error
	RemoveFromWatchlist(ctx context.Context, symbol string) error
	GetWatchlist(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}
