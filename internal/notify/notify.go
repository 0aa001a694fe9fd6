// Package notify delivers alert notifications through configured transports.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-tracker/internal/config"
	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/models"
	"stock-tracker/pkg/utils"
)

// Dispatcher formats and sends alert-fired messages. Implementations
// never panic; each configured transport is attempted independently and
// the per-transport outcomes are returned so a failure on one cannot
// hide a success on another.
type Dispatcher interface {
	Notify(ctx context.Context, rule *models.AlertRule, quote *models.Quote) []Result
}

// Result is the outcome of one transport's delivery attempt.
type Result struct {
	Transport string
	Err       error
}

// Message is a formatted notification ready for any transport.
type Message struct {
	Title     string
	Body      string
	Timestamp time.Time
}

// FormatAlertMessage renders the alert-fired message for a rule and the
// quote that fired it. Currency and percentage fields use two decimal
// places; change values carry an explicit sign.
func FormatAlertMessage(rule *models.AlertRule, quote *models.Quote) Message {
	var emoji string
	switch rule.Kind {
	case models.AlertPriceAbove, models.AlertChangeAbove:
		emoji = "📈"
	case models.AlertPriceBelow, models.AlertChangeBelow:
		emoji = "📉"
	default:
		emoji = "⚠️"
	}

	threshold := utils.FormatUSD(rule.Threshold)
	if rule.Kind == models.AlertChangeAbove || rule.Kind == models.AlertChangeBelow {
		threshold = fmt.Sprintf("%.2f%%", rule.Threshold)
	}

	title := fmt.Sprintf("%s Stock Alert: %s", emoji, rule.Symbol)
	body := fmt.Sprintf(
		"Symbol: %s\nCurrent Price: %s\nChange: %s (%s)\nAlert: %s %s\nTime: %s",
		quote.Symbol,
		utils.FormatUSD(quote.Price),
		utils.FormatSigned(quote.Change),
		utils.FormatSignedPercent(quote.ChangePercent),
		rule.Kind,
		threshold,
		quote.Timestamp.Format("2006-01-02 15:04:05"),
	)

	return Message{Title: title, Body: body, Timestamp: quote.Timestamp}
}

// MultiDispatcher fans a notification out to every transport the rule
// has a destination for.
type MultiDispatcher struct {
	email    *EmailTransport
	telegram *TelegramTransport
	webhook  *WebhookTransport
	logger   zerolog.Logger
}

// NewMultiDispatcher builds a dispatcher from validated notification
// configuration. Disabled transports are left nil and never attempted.
func NewMultiDispatcher(cfg config.NotificationConfig, logger zerolog.Logger) *MultiDispatcher {
	d := &MultiDispatcher{
		logger: logger.With().Str("component", "notify").Logger(),
	}

	if cfg.Email.Enabled {
		d.email = NewEmailTransport(cfg.Email)
	}
	if cfg.Telegram.Enabled {
		d.telegram = NewTelegramTransport(cfg.Telegram)
	}
	if cfg.Webhook.Enabled {
		d.webhook = NewWebhookTransport(cfg.Webhook)
	}

	return d
}

// Notify sends the alert through every transport the rule addresses.
// A rule with no destinations produces no attempts and no error.
func (d *MultiDispatcher) Notify(ctx context.Context, rule *models.AlertRule, quote *models.Quote) []Result {
	msg := FormatAlertMessage(rule, quote)

	var results []Result

	if d.email != nil && rule.Email != "" {
		err := d.email.Send(ctx, rule.Email, msg)
		results = append(results, d.result("email", rule, err))
	}

	if d.telegram != nil && rule.ChatID != "" {
		err := d.telegram.Send(ctx, rule.ChatID, msg)
		results = append(results, d.result("telegram", rule, err))
	}

	if d.webhook != nil {
		err := d.webhook.Send(ctx, rule, quote, msg)
		results = append(results, d.result("webhook", rule, err))
	}

	return results
}

func (d *MultiDispatcher) result(transport string, rule *models.AlertRule, err error) Result {
	if err != nil {
		wrapped := trackererrors.NewNotifyError(transport, rule.ID, err)
		d.logger.Error().Err(err).
			Str("transport", transport).
			Str("alert_id", rule.ID).
			Str("symbol", rule.Symbol).
			Msg("Notification delivery failed")
		return Result{Transport: transport, Err: wrapped}
	}

	d.logger.Info().
		Str("transport", transport).
		Str("alert_id", rule.ID).
		Str("symbol", rule.Symbol).
		Msg("Notification sent")
	return Result{Transport: transport}
}

// escapeHTML escapes HTML special characters for Telegram.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
