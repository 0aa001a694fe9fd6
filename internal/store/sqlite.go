package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Samples table for the per-symbol price time series
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		change_percent REAL NOT NULL,
		volume INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_symbol_time ON samples(symbol, timestamp);

	-- Alert rules table
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		kind TEXT NOT NULL,
		threshold REAL NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		chat_id TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts(active);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT UNIQUE NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Sample Methods
// ============================================================================

// AppendSample inserts a single sample. Each append is one atomic insert;
// a failure never affects previously written rows.
func (s *SQLiteStore) AppendSample(ctx context.Context, sample *models.Sample) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (symbol, price, change_percent, volume, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, sample.Symbol, sample.Price, sample.ChangePercent, sample.Volume, sample.Timestamp)
	if err != nil {
		return trackererrors.NewStoreError("append", sample.Symbol, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		sample.ID = id
	}
	return nil
}

// GetSamples retrieves samples for a symbol since the given time,
// ascending by timestamp. Repeated calls with no intervening writes
// return identical sequences.
func (s *SQLiteStore) GetSamples(ctx context.Context, symbol string, since time.Time) ([]models.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, price, change_percent, volume, timestamp
		FROM samples
		WHERE symbol = ? AND timestamp >= ?
		ORDER BY timestamp ASC, id ASC
	`, models.NormalizeSymbol(symbol), since)
	if err != nil {
		return nil, trackererrors.NewStoreError("query", symbol, err)
	}
	defer rows.Close()

	var samples []models.Sample
	for rows.Next() {
		var sm models.Sample
		if err := rows.Scan(&sm.ID, &sm.Symbol, &sm.Price, &sm.ChangePercent, &sm.Volume, &sm.Timestamp); err != nil {
			return nil, trackererrors.NewStoreError("scan", symbol, err)
		}
		samples = append(samples, sm)
	}

	return samples, rows.Err()
}

// GetLatestSample retrieves the most recent sample for a symbol.
func (s *SQLiteStore) GetLatestSample(ctx context.Context, symbol string) (*models.Sample, error) {
	var sm models.Sample
	err := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, price, change_percent, volume, timestamp
		FROM samples
		WHERE symbol = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, models.NormalizeSymbol(symbol)).Scan(&sm.ID, &sm.Symbol, &sm.Price, &sm.ChangePercent, &sm.Volume, &sm.Timestamp)
	if err == sql.ErrNoRows {
		return nil, trackererrors.ErrDataNotFound
	}
	if err != nil {
		return nil, trackererrors.NewStoreError("query", symbol, err)
	}
	return &sm, nil
}

// ============================================================================
// Alert Methods
// ============================================================================

// CreateAlert validates and persists a new alert rule. Validation
// failures are surfaced to the caller as RuleError, never dropped.
func (s *SQLiteStore) CreateAlert(ctx context.Context, rule *models.AlertRule) error {
	rule.Symbol = models.NormalizeSymbol(rule.Symbol)
	if rule.Symbol == "" {
		return trackererrors.NewRuleError(rule.Symbol, "symbol", "symbol must not be empty", nil)
	}
	if !models.ValidAlertKind(rule.Kind) {
		return trackererrors.NewRuleError(rule.Symbol, "kind", fmt.Sprintf("unknown alert kind %q", rule.Kind), nil)
	}

	if rule.ID == "" {
		rule.ID = generateAlertID()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	rule.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, symbol, kind, threshold, email, chat_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, rule.ID, rule.Symbol, string(rule.Kind), rule.Threshold, rule.Email, rule.ChatID, rule.CreatedAt)
	if err != nil {
		return trackererrors.NewRuleError(rule.Symbol, "persist", "failed to save alert", err)
	}
	return nil
}

// GetActiveAlerts retrieves all active alert rules, oldest first.
func (s *SQLiteStore) GetActiveAlerts(ctx context.Context) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, kind, threshold, email, chat_id, active, created_at
		FROM alerts WHERE active = 1 ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, trackererrors.NewStoreError("query", "", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		var kind string
		var active int
		if err := rows.Scan(&r.ID, &r.Symbol, &kind, &r.Threshold, &r.Email, &r.ChatID, &active, &r.CreatedAt); err != nil {
			return nil, trackererrors.NewStoreError("scan", "", err)
		}
		r.Kind = models.AlertKind(kind)
		r.Active = active == 1
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// DeactivateAlert marks an alert rule inactive. Deactivating an already
// inactive rule is a no-op; an unknown id is reported so typos do not
// pass silently.
func (s *SQLiteStore) DeactivateAlert(ctx context.Context, ruleID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET active = 0 WHERE id = ?
	`, ruleID)
	if err != nil {
		return trackererrors.NewStoreError("deactivate", "", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", trackererrors.ErrAlertNotFound, ruleID)
	}

	return nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to the watchlist. Adding a symbol that is
// already present is a no-op.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol) VALUES (?)
	`, models.NormalizeSymbol(symbol))
	if err != nil {
		return trackererrors.NewStoreError("watchlist_add", symbol, err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ?
	`, models.NormalizeSymbol(symbol))
	if err != nil {
		return trackererrors.NewStoreError("watchlist_remove", symbol, err)
	}
	return nil
}

// GetWatchlist retrieves watched symbols in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist ORDER BY id ASC
	`)
	if err != nil {
		return nil, trackererrors.NewStoreError("watchlist", "", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, trackererrors.NewStoreError("watchlist_scan", "", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// generateAlertID generates a unique alert ID that sorts by creation time.
func generateAlertID() string {
	return time.Now().Format("20060102150405.000000")
}
