package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Tracker Configuration

[tracker]
# Path to the SQLite database file
database_path = ""
# How often the tracking loop polls the watchlist (e.g. "5m", "30s")
poll_interval = "5m"

[provider]
# Market data API base URL
base_url = "https://query1.finance.yahoo.com"
# Per-request timeout
request_timeout = "10s"
# Retries for transient provider failures (rate limits, 5xx)
max_retries = 3

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log to the terminal
console = true
# Log to a rotated file
file = true
# Log file path (empty = <config dir>/logs/tracker.log)
file_path = ""
# Rotation limits
max_size_mb = 100
max_backups = 7
max_age_days = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false

[notifications.email]
enabled = false
smtp_host = "smtp.gmail.com"
smtp_port = 587
username = ""
# Prefer the TRACKER_SMTP_PASSWORD environment variable over this field
password = ""
from = ""

[notifications.telegram]
enabled = false
# Prefer the TRACKER_TELEGRAM_BOT_TOKEN environment variable over this field
bot_token = ""

[notifications.webhook]
enabled = false
url = ""
`

// createTemplateConfig writes a template config file when none exists.
func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
