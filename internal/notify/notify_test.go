package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-tracker/internal/config"
	"stock-tracker/internal/models"
)

func testRule(kind models.AlertKind, threshold float64) *models.AlertRule {
	return &models.AlertRule{
		ID:        "20250602143000.000001",
		Symbol:    "AAPL",
		Kind:      kind,
		Threshold: threshold,
		Active:    true,
	}
}

func testQuote() *models.Quote {
	return &models.Quote{
		Symbol:        "AAPL",
		Price:         201.5,
		Change:        3.25,
		ChangePercent: 1.64,
		Timestamp:     time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestFormatAlertMessage_PriceAlert(t *testing.T) {
	msg := FormatAlertMessage(testRule(models.AlertPriceAbove, 200), testQuote())

	if !strings.Contains(msg.Title, "AAPL") {
		t.Errorf("title missing symbol: %q", msg.Title)
	}
	if !strings.Contains(msg.Title, "📈") {
		t.Errorf("above alert should use rising emoji: %q", msg.Title)
	}

	for _, want := range []string{
		"Symbol: AAPL",
		"Current Price: $201.50",
		"+3.25",
		"+1.64%",
		"price_above $200.00",
		"2025-06-02 14:30:00",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestFormatAlertMessage_ChangeAlertUsesPercentThreshold(t *testing.T) {
	msg := FormatAlertMessage(testRule(models.AlertChangeBelow, -5), testQuote())

	if !strings.Contains(msg.Title, "📉") {
		t.Errorf("below alert should use falling emoji: %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "change_below -5.00%") {
		t.Errorf("change threshold should render as percent:\n%s", msg.Body)
	}
	if strings.Contains(msg.Body, "change_below $") {
		t.Errorf("change threshold rendered as currency:\n%s", msg.Body)
	}
}

func TestFormatAlertMessage_NegativeChangeCarriesSign(t *testing.T) {
	q := testQuote()
	q.Change = -2.5
	q.ChangePercent = -1.23

	msg := FormatAlertMessage(testRule(models.AlertPriceBelow, 205), q)
	if !strings.Contains(msg.Body, "-2.50") || !strings.Contains(msg.Body, "-1.23%") {
		t.Errorf("negative change lost its sign:\n%s", msg.Body)
	}
}

func TestMultiDispatcher_NoDestinationsNoAttempts(t *testing.T) {
	d := NewMultiDispatcher(config.NotificationConfig{
		Enabled: true,
		Email:   config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "t@example.com"},
	}, zerolog.Nop())

	rule := testRule(models.AlertPriceAbove, 200)
	rule.Email = ""
	rule.ChatID = ""

	results := d.Notify(context.Background(), rule, testQuote())
	if len(results) != 0 {
		t.Fatalf("expected no delivery attempts without destinations, got %d", len(results))
	}
}

func TestMultiDispatcher_WebhookIndependentOfRuleDestinations(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewMultiDispatcher(config.NotificationConfig{
		Enabled: true,
		Webhook: config.WebhookConfig{Enabled: true, URL: server.URL},
	}, zerolog.Nop())

	rule := testRule(models.AlertPriceAbove, 200)
	results := d.Notify(context.Background(), rule, testQuote())

	if len(results) != 1 {
		t.Fatalf("expected 1 webhook attempt, got %d", len(results))
	}
	if results[0].Transport != "webhook" || results[0].Err != nil {
		t.Fatalf("unexpected result: %+v", results[0])
	}

	if received["type"] != "alert" {
		t.Errorf("payload type = %v", received["type"])
	}
	data, _ := received["data"].(map[string]interface{})
	if data["symbol"] != "AAPL" {
		t.Errorf("payload symbol = %v", data["symbol"])
	}
	if data["alert_id"] != rule.ID {
		t.Errorf("payload alert_id = %v", data["alert_id"])
	}
}

func TestMultiDispatcher_FailureReportedNotSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewMultiDispatcher(config.NotificationConfig{
		Enabled: true,
		Webhook: config.WebhookConfig{Enabled: true, URL: server.URL},
	}, zerolog.Nop())

	results := d.Notify(context.Background(), testRule(models.AlertPriceAbove, 200), testQuote())
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("server error not surfaced in result")
	}
}

func TestWebhookTransport_RejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tr := NewWebhookTransport(config.WebhookConfig{Enabled: true, URL: server.URL})
	err := tr.Send(context.Background(), testRule(models.AlertPriceAbove, 200), testQuote(),
		FormatAlertMessage(testRule(models.AlertPriceAbove, 200), testQuote()))
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`A&B <AAPL> "quote"`)
	want := `A&amp;B &lt;AAPL&gt; "quote"`
	if got != want {
		t.Errorf("escapeHTML = %q, want %q", got, want)
	}
}
