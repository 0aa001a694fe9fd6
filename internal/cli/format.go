package cli

import (
	"fmt"
	"time"
)

// FormatPrice formats a price with appropriate decimal places. Prices
// under $10 keep four decimals so penny stocks stay readable.
func FormatPrice(price float64) string {
	if price >= 10 || price <= -10 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatChange formats a price change with its percentage.
func FormatChange(change, changePct float64) string {
	return fmt.Sprintf("%+.2f (%+.2f%%)", change, changePct)
}

// FormatTime formats a timestamp's time-of-day in local time.
func FormatTime(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// FormatDateTime formats a full timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
