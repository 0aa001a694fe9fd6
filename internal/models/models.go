// Package models defines the core data types shared across the application.
package models

import (
	"strings"
	"time"
)

// Quote represents a point-in-time price snapshot for a symbol.
// Change and ChangePercent are always derived from Price and PreviousClose,
// never supplied independently.
type Quote struct {
	Symbol        string
	Price         float64
	PreviousClose float64
	Change        float64
	ChangePercent float64
	Volume        int64
	MarketCap     float64
	Timestamp     time.Time
}

// NewQuote builds a quote from a resolved price and previous close,
// computing the derived change fields. A zero or missing previous close
// yields zero change rather than a division error.
func NewQuote(symbol string, price, previousClose float64, volume int64, ts time.Time) Quote {
	if previousClose == 0 {
		previousClose = price
	}
	change := price - previousClose
	changePercent := 0.0
	if previousClose != 0 {
		changePercent = change / previousClose * 100
	}
	return Quote{
		Symbol:        NormalizeSymbol(symbol),
		Price:         price,
		PreviousClose: previousClose,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
		Timestamp:     ts,
	}
}

// Sample is a persisted quote, immutable once written. Samples form the
// stored time series for a symbol.
type Sample struct {
	ID            int64
	Symbol        string
	Price         float64
	ChangePercent float64
	Volume        int64
	Timestamp     time.Time
}

// SampleFromQuote converts a fetched quote into a storable sample.
func SampleFromQuote(q Quote) Sample {
	return Sample{
		Symbol:        q.Symbol,
		Price:         q.Price,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		Timestamp:     q.Timestamp,
	}
}

// AlertKind identifies the condition an alert rule checks.
type AlertKind string

const (
	// AlertPriceAbove fires when price >= threshold.
	AlertPriceAbove AlertKind = "price_above"
	// AlertPriceBelow fires when price <= threshold.
	AlertPriceBelow AlertKind = "price_below"
	// AlertChangeAbove fires when percent change >= threshold.
	AlertChangeAbove AlertKind = "change_above"
	// AlertChangeBelow fires when percent change <= threshold.
	AlertChangeBelow AlertKind = "change_below"
)

// ValidAlertKind reports whether k is a recognized alert kind.
func ValidAlertKind(k AlertKind) bool {
	switch k {
	case AlertPriceAbove, AlertPriceBelow, AlertChangeAbove, AlertChangeBelow:
		return true
	}
	return false
}

// AlertRule is a persisted alert condition plus its notification
// destinations. A rule is active until it fires once; it is never
// reactivated. Both destinations may be empty, in which case the rule
// still fires and deactivates but notifies nobody.
type AlertRule struct {
	ID        string
	Symbol    string
	Kind      AlertKind
	Threshold float64
	Email     string
	ChatID    string
	Active    bool
	CreatedAt time.Time
}

// WatchlistEntry is a symbol the tracking loop monitors each cycle.
type WatchlistEntry struct {
	Symbol  string
	AddedAt time.Time
}

// NormalizeSymbol uppercases and trims a ticker symbol. Symbols are
// normalized once at the boundary so later comparisons are exact-match.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
