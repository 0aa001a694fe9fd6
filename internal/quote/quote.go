// Package quote provides market data fetching from external providers.
package quote

import (
	"context"

	"stock-tracker/internal/models"
)

// Source fetches a normalized quote snapshot for a symbol.
//
// Fetch returns errors.ErrQuoteUnavailable (possibly wrapped) when the
// provider has nothing usable for the symbol; callers treat that as
// "skip this symbol", not as a fatal error. Any other error indicates a
// network or parse failure.
type Source interface {
	Fetch(ctx context.Context, symbol string) (*models.Quote, error)
}
