// Package tracker runs the periodic watchlist tracking loop.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stock-tracker/internal/alert"
	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/logging"
	"stock-tracker/internal/models"
	"stock-tracker/internal/notify"
	"stock-tracker/internal/quote"
	"stock-tracker/internal/store"
)

// Tracker owns the tracking-loop state machine. It is Stopped until
// Start schedules the background loop and Running until Stop is called.
// The running flag is owned by the Tracker and mutated only through
// Start and Stop; the loop itself only observes the stop channel at
// cycle boundaries.
type Tracker struct {
	source     quote.Source
	store      store.DataStore
	dispatcher notify.Dispatcher
	logger     zerolog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// CycleStats summarizes one pass over the watchlist.
type CycleStats struct {
	Symbols int
	Fetched int
	Fired   int
}

// New creates a tracker. The dispatcher may be nil, in which case fired
// alerts are still deactivated but nobody is notified.
func New(source quote.Source, dataStore store.DataStore, dispatcher notify.Dispatcher, logger zerolog.Logger) *Tracker {
	return &Tracker{
		source:     source,
		store:      dataStore,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "tracker").Logger(),
	}
}

// Start transitions Stopped -> Running and schedules the background
// loop. It returns as soon as the goroutine is scheduled; the first
// cycle runs immediately, subsequent cycles once per interval.
func (t *Tracker) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", interval)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return trackererrors.ErrAlreadyRunning
	}

	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.run(interval, t.stop, t.done)

	t.logger.Info().Dur("interval", interval).Msg("Tracking started")
	return nil
}

// Stop transitions Running -> Stopped. It returns immediately; a cycle
// already in progress is allowed to finish, but no further cycle starts.
// Stopping an already-stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	close(t.stop)
	t.running = false
	t.logger.Info().Msg("Tracking stopped")
}

// Running reports whether the loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Done returns a channel closed when the background loop has exited,
// including any in-flight cycle. On a tracker that was never started
// there is no loop to wait for, so the channel is already closed.
func (t *Tracker) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

func (t *Tracker) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		t.Cycle(context.Background())

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Cycle performs one full pass over the watchlist: fetch each symbol,
// persist the sample, evaluate active rules, notify and deactivate
// fired rules. Every error is contained to the symbol or operation that
// produced it; a cycle never aborts early and never panics.
func (t *Tracker) Cycle(ctx context.Context) CycleStats {
	start := time.Now()
	var stats CycleStats

	symbols, err := t.store.GetWatchlist(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to read watchlist, skipping cycle")
		return stats
	}
	stats.Symbols = len(symbols)

	rules, err := t.store.GetActiveAlerts(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to read active alerts, evaluating none this cycle")
		rules = nil
	}

	for _, symbol := range symbols {
		stats.Fired += t.processSymbol(ctx, symbol, rules, &stats)
	}

	logging.LogCycle(t.logger, stats.Symbols, stats.Fetched, stats.Fired, time.Since(start))
	return stats
}

// processSymbol handles one symbol within a cycle and returns the number
// of alerts fired for it.
func (t *Tracker) processSymbol(ctx context.Context, symbol string, rules []models.AlertRule, stats *CycleStats) int {
	logger := logging.WithSymbol(t.logger, symbol)

	q, err := t.source.Fetch(ctx, symbol)
	if err != nil {
		if trackererrors.Is(err, trackererrors.ErrQuoteUnavailable) {
			logger.Debug().Msg("Quote not available, skipping symbol")
		} else {
			logger.Error().Err(err).Msg("Fetch failed, skipping symbol")
		}
		return 0
	}
	stats.Fetched++

	sample := models.SampleFromQuote(*q)
	if err := t.store.AppendSample(ctx, &sample); err != nil {
		// The sample for this cycle is lost; alert evaluation still runs.
		logger.Error().Err(err).Msg("Failed to store sample")
	} else {
		logging.LogSample(logger, q.Symbol, q.Price, q.ChangePercent)
	}

	symbolRules := filterRules(rules, q.Symbol)
	if len(symbolRules) == 0 {
		return 0
	}

	fired := 0
	for _, eval := range alert.Evaluate(q, symbolRules) {
		if !eval.Triggered {
			continue
		}
		fired++
		t.fire(ctx, eval.Rule, q, logger)
	}
	return fired
}

// fire notifies then deactivates a triggered rule, in that order.
// Deactivation happens even when every transport fails, so a broken
// transport cannot cause repeat notifications on later cycles.
func (t *Tracker) fire(ctx context.Context, rule models.AlertRule, q *models.Quote, logger zerolog.Logger) {
	logging.LogAlert(logger, rule.ID, rule.Symbol, string(rule.Kind), rule.Threshold, q.Price)

	if t.dispatcher != nil {
		for _, res := range t.dispatcher.Notify(ctx, &rule, q) {
			if res.Err != nil {
				logger.Warn().Err(res.Err).Str("transport", res.Transport).Msg("Alert delivery failed")
			}
		}
	}

	if err := t.store.DeactivateAlert(ctx, rule.ID); err != nil {
		logger.Error().Err(err).Str("alert_id", rule.ID).Msg("Failed to deactivate alert")
	}
}

func filterRules(rules []models.AlertRule, symbol string) []models.AlertRule {
	var matched []models.AlertRule
	for _, r := range rules {
		if r.Symbol == symbol {
			matched = append(matched, r)
		}
	}
	return matched
}
