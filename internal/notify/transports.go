package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/go-resty/resty/v2"

	"stock-tracker/internal/config"
	"stock-tracker/internal/models"
)

// EmailTransport sends notifications via SMTP.
type EmailTransport struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
}

// NewEmailTransport creates an email transport from validated config.
func NewEmailTransport(cfg config.EmailConfig) *EmailTransport {
	return &EmailTransport{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers the message to a single recipient address.
func (e *EmailTransport) Send(ctx context.Context, to string, msg Message) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.from, to, msg.Title, msg.Body)

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	// Implicit TLS on 465, STARTTLS (or plain) otherwise
	if e.smtpPort == 465 {
		return e.sendWithTLS(addr, auth, to, body)
	}

	return smtp.SendMail(addr, auth, e.from, []string{to}, []byte(body))
}

// sendWithTLS sends email using implicit TLS (port 465).
func (e *EmailTransport) sendWithTLS(addr string, auth smtp.Auth, to, body string) error {
	tlsConfig := &tls.Config{
		ServerName: e.smtpHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}

	return client.Quit()
}

// TelegramTransport sends notifications through the Telegram bot API.
type TelegramTransport struct {
	botToken string
	client   *resty.Client
}

// NewTelegramTransport creates a Telegram transport from validated config.
func NewTelegramTransport(cfg config.TelegramConfig) *TelegramTransport {
	return &TelegramTransport{
		botToken: cfg.BotToken,
		client: resty.New().
			SetBaseURL("https://api.telegram.org").
			SetTimeout(10 * time.Second),
	}
}

// Send delivers the message to a single chat ID.
func (t *TelegramTransport) Send(ctx context.Context, chatID string, msg Message) error {
	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(msg.Title), escapeHTML(msg.Body))

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.botToken))
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode())
	}

	return nil
}

// WebhookTransport posts alert events to a fixed HTTP endpoint.
type WebhookTransport struct {
	url    string
	client *resty.Client
}

// NewWebhookTransport creates a webhook transport from validated config.
func NewWebhookTransport(cfg config.WebhookConfig) *WebhookTransport {
	return &WebhookTransport{
		url: cfg.URL,
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", "stock-tracker/0.1"),
	}
}

// Send posts the alert payload as JSON.
func (w *WebhookTransport) Send(ctx context.Context, rule *models.AlertRule, quote *models.Quote, msg Message) error {
	payload := map[string]interface{}{
		"type":      "alert",
		"title":     msg.Title,
		"message":   msg.Body,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
		"data": map[string]interface{}{
			"alert_id":       rule.ID,
			"symbol":         quote.Symbol,
			"kind":           rule.Kind,
			"threshold":      rule.Threshold,
			"price":          quote.Price,
			"change":         quote.Change,
			"change_percent": quote.ChangePercent,
		},
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	return nil
}
