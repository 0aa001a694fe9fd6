package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/models"
	"stock-tracker/internal/notify"
)

// fakeSource serves canned quotes per symbol.
type fakeSource struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	errs   map[string]error
}

func (f *fakeSource) Fetch(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if q, ok := f.quotes[symbol]; ok {
		qCopy := *q
		return &qCopy, nil
	}
	return nil, fmt.Errorf("%w: %s", trackererrors.ErrQuoteUnavailable, symbol)
}

func (f *fakeSource) setPrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = &models.Quote{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	}
}

// fakeStore is an in-memory DataStore.
type fakeStore struct {
	mu        sync.Mutex
	watchlist []string
	samples   []models.Sample
	alerts    map[string]*models.AlertRule
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerts: make(map[string]*models.AlertRule)}
}

func (f *fakeStore) AppendSample(ctx context.Context, sample *models.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	sample.ID = int64(len(f.samples) + 1)
	f.samples = append(f.samples, *sample)
	return nil
}

func (f *fakeStore) GetSamples(ctx context.Context, symbol string, since time.Time) ([]models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Sample
	for _, s := range f.samples {
		if s.Symbol == symbol && !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLatestSample(ctx context.Context, symbol string) (*models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.samples) - 1; i >= 0; i-- {
		if f.samples[i].Symbol == symbol {
			s := f.samples[i]
			return &s, nil
		}
	}
	return nil, trackererrors.ErrDataNotFound
}

func (f *fakeStore) CreateAlert(ctx context.Context, rule *models.AlertRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", len(f.alerts)+1)
	}
	rule.Active = true
	r := *rule
	f.alerts[rule.ID] = &r
	return nil
}

func (f *fakeStore) GetActiveAlerts(ctx context.Context) ([]models.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AlertRule
	for _, r := range f.alerts {
		if r.Active {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) DeactivateAlert(ctx context.Context, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.alerts[ruleID]
	if !ok {
		return trackererrors.ErrAlertNotFound
	}
	r.Active = false
	return nil
}

func (f *fakeStore) AddToWatchlist(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.watchlist {
		if s == symbol {
			return nil
		}
	}
	f.watchlist = append(f.watchlist, symbol)
	return nil
}

func (f *fakeStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.watchlist {
		if s == symbol {
			f.watchlist = append(f.watchlist[:i], f.watchlist[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) GetWatchlist(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.watchlist...), nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) sampleCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.samples {
		if s.Symbol == symbol {
			n++
		}
	}
	return n
}

// fakeDispatcher records notifications and can fail on demand.
type fakeDispatcher struct {
	mu       sync.Mutex
	notified []string
	fail     bool
}

func (f *fakeDispatcher) Notify(ctx context.Context, rule *models.AlertRule, quote *models.Quote) []notify.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, rule.ID)
	if f.fail {
		return []notify.Result{{Transport: "email", Err: errors.New("smtp connection refused")}}
	}
	return []notify.Result{{Transport: "email"}}
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notified)
}

func newTestTracker(source *fakeSource, store *fakeStore, dispatcher *fakeDispatcher) *Tracker {
	var d notify.Dispatcher
	if dispatcher != nil {
		d = dispatcher
	}
	return New(source, store, d, zerolog.Nop())
}

func TestCycle_FiresAlertOnceAndDeactivates(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}

	store.AddToWatchlist(ctx, "AAPL")
	source.setPrice("AAPL", 199.99)

	rule := models.AlertRule{Symbol: "AAPL", Kind: models.AlertPriceAbove, Threshold: 200}
	store.CreateAlert(ctx, &rule)

	tr := newTestTracker(source, store, dispatcher)

	// Below threshold: nothing fires.
	stats := tr.Cycle(ctx)
	if stats.Fired != 0 {
		t.Fatalf("expected 0 fired below threshold, got %d", stats.Fired)
	}
	if dispatcher.count() != 0 {
		t.Fatalf("dispatcher called below threshold")
	}

	// Exactly at threshold: fires once, rule deactivated.
	source.setPrice("AAPL", 200.00)
	stats = tr.Cycle(ctx)
	if stats.Fired != 1 {
		t.Fatalf("expected 1 fired at threshold, got %d", stats.Fired)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", dispatcher.count())
	}

	// Still above threshold later: the fired rule stays quiet.
	source.setPrice("AAPL", 205.00)
	stats = tr.Cycle(ctx)
	if stats.Fired != 0 {
		t.Fatalf("expected 0 fired after deactivation, got %d", stats.Fired)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("rule notified twice")
	}
}

func TestCycle_UnavailableSymbolDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()

	store.AddToWatchlist(ctx, "ZZZZ")
	store.AddToWatchlist(ctx, "AAPL")
	source.setPrice("AAPL", 150)
	// ZZZZ has no quote; fakeSource reports ErrQuoteUnavailable.

	tr := newTestTracker(source, store, nil)
	stats := tr.Cycle(ctx)

	if stats.Symbols != 2 {
		t.Fatalf("expected 2 symbols, got %d", stats.Symbols)
	}
	if stats.Fetched != 1 {
		t.Fatalf("expected 1 fetched, got %d", stats.Fetched)
	}
	if store.sampleCount("ZZZZ") != 0 {
		t.Error("sample stored for unavailable symbol")
	}
	if store.sampleCount("AAPL") != 1 {
		t.Errorf("expected 1 AAPL sample, got %d", store.sampleCount("AAPL"))
	}
}

func TestCycle_FetchErrorContainedToSymbol(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{
		quotes: map[string]*models.Quote{},
		errs:   map[string]error{"TSLA": errors.New("connection reset")},
	}
	store := newFakeStore()

	store.AddToWatchlist(ctx, "TSLA")
	store.AddToWatchlist(ctx, "MSFT")
	source.setPrice("MSFT", 400)

	tr := newTestTracker(source, store, nil)
	stats := tr.Cycle(ctx)

	if stats.Fetched != 1 {
		t.Fatalf("expected MSFT still fetched, got %d fetched", stats.Fetched)
	}
	if store.sampleCount("MSFT") != 1 {
		t.Error("MSFT sample missing after TSLA fetch error")
	}
}

func TestCycle_DeactivatesEvenWhenNotifyFails(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()
	dispatcher := &fakeDispatcher{fail: true}

	store.AddToWatchlist(ctx, "NVDA")
	source.setPrice("NVDA", 1000)

	rule := models.AlertRule{Symbol: "NVDA", Kind: models.AlertPriceAbove, Threshold: 900}
	store.CreateAlert(ctx, &rule)

	tr := newTestTracker(source, store, dispatcher)
	tr.Cycle(ctx)

	active, _ := store.GetActiveAlerts(ctx)
	if len(active) != 0 {
		t.Fatal("rule still active after failed delivery; would repeat-notify")
	}

	// Later cycles must not retry the failed notification.
	tr.Cycle(ctx)
	if dispatcher.count() != 1 {
		t.Fatalf("expected exactly 1 delivery attempt, got %d", dispatcher.count())
	}
}

func TestCycle_StoreFailureStillEvaluatesAlerts(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()
	store.appendErr = errors.New("disk full")
	dispatcher := &fakeDispatcher{}

	store.AddToWatchlist(ctx, "AAPL")
	source.setPrice("AAPL", 250)

	rule := models.AlertRule{Symbol: "AAPL", Kind: models.AlertPriceAbove, Threshold: 200}
	store.CreateAlert(ctx, &rule)

	tr := newTestTracker(source, store, dispatcher)
	stats := tr.Cycle(ctx)

	if stats.Fired != 1 {
		t.Fatalf("expected alert to fire despite append failure, fired=%d", stats.Fired)
	}
	if dispatcher.count() != 1 {
		t.Fatal("notification not sent when sample append failed")
	}
}

func TestStartStop_Semantics(t *testing.T) {
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()

	tr := newTestTracker(source, store, nil)

	if tr.Running() {
		t.Fatal("tracker running before Start")
	}

	// Stop before Start is a no-op.
	tr.Stop()

	if err := tr.Start(time.Hour); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !tr.Running() {
		t.Fatal("tracker not running after Start")
	}

	if err := tr.Start(time.Hour); !trackererrors.Is(err, trackererrors.ErrAlreadyRunning) {
		t.Fatalf("second Start: expected ErrAlreadyRunning, got %v", err)
	}

	tr.Stop()
	if tr.Running() {
		t.Fatal("tracker still running after Stop")
	}

	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}

	// A stopped tracker can be started again.
	if err := tr.Start(time.Hour); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	tr.Stop()
	<-tr.Done()
}

func TestDone_BeforeStartDoesNotBlock(t *testing.T) {
	tr := newTestTracker(
		&fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}},
		newFakeStore(), nil)

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Done blocked on a never-started tracker")
	}
}

func TestStart_RejectsInvalidInterval(t *testing.T) {
	tr := newTestTracker(
		&fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}},
		newFakeStore(), nil)

	if err := tr.Start(0); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if err := tr.Start(-time.Minute); err == nil {
		t.Fatal("expected error for negative interval")
	}
	if tr.Running() {
		t.Fatal("tracker running after rejected Start")
	}
}

func TestStart_RunsFirstCycleImmediately(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{quotes: map[string]*models.Quote{}, errs: map[string]error{}}
	store := newFakeStore()

	store.AddToWatchlist(ctx, "AAPL")
	source.setPrice("AAPL", 150)

	tr := newTestTracker(source, store, nil)
	if err := tr.Start(time.Hour); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		tr.Stop()
		<-tr.Done()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.sampleCount("AAPL") >= 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("first cycle did not run promptly after Start")
}
