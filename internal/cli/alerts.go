package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/models"
)

func newAlertCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage price alerts",
		Long: `Create, list, and deactivate alert rules.

An alert fires at most once: when its condition is met during a tracking
cycle, notifications are sent and the rule is deactivated.`,
	}

	cmd.AddCommand(newAlertAddCmd(app))
	cmd.AddCommand(newAlertListCmd(app))
	cmd.AddCommand(newAlertDeactivateCmd(app))

	return cmd
}

func newAlertAddCmd(app *App) *cobra.Command {
	var (
		above       float64
		below       float64
		changeAbove float64
		changeBelow float64
		email       string
		chatID      string
	)

	cmd := &cobra.Command{
		Use:   "add SYMBOL",
		Short: "Create an alert rule for a symbol",
		Long: `Create an alert rule. Exactly one condition flag is required:

  --above         fire when price >= threshold
  --below         fire when price <= threshold
  --change-above  fire when day change %% >= threshold
  --change-below  fire when day change %% <= threshold`,
		Example: `  stock-tracker alert add AAPL --above 200
  stock-tracker alert add TSLA --below 150 --email trader@example.com
  stock-tracker alert add NVDA --change-above 5 --chat-id 123456789`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			kind, threshold, err := resolveCondition(cmd, above, below, changeAbove, changeBelow)
			if err != nil {
				return err
			}

			rule := models.AlertRule{
				Symbol:    models.NormalizeSymbol(args[0]),
				Kind:      kind,
				Threshold: threshold,
				Email:     email,
				ChatID:    chatID,
			}

			if err := app.Store.CreateAlert(cmd.Context(), &rule); err != nil {
				return fmt.Errorf("failed to create alert: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(rule)
			}

			output.Success("✓ Alert created: %s %s %.2f", rule.Symbol, describeKind(rule.Kind), rule.Threshold)
			output.Dim("  ID: %s", rule.ID)
			return nil
		},
	}

	cmd.Flags().Float64Var(&above, "above", 0, "fire when price rises to or above this value")
	cmd.Flags().Float64Var(&below, "below", 0, "fire when price falls to or below this value")
	cmd.Flags().Float64Var(&changeAbove, "change-above", 0, "fire when day change %% rises to or above this value")
	cmd.Flags().Float64Var(&changeBelow, "change-below", 0, "fire when day change %% falls to or below this value")
	cmd.Flags().StringVar(&email, "email", "", "email address to notify")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat ID to notify")

	return cmd
}

// resolveCondition maps the mutually exclusive condition flags onto an
// alert kind and threshold.
func resolveCondition(cmd *cobra.Command, above, below, changeAbove, changeBelow float64) (models.AlertKind, float64, error) {
	type condition struct {
		flag  string
		kind  models.AlertKind
		value float64
	}
	conditions := []condition{
		{"above", models.AlertPriceAbove, above},
		{"below", models.AlertPriceBelow, below},
		{"change-above", models.AlertChangeAbove, changeAbove},
		{"change-below", models.AlertChangeBelow, changeBelow},
	}

	var set []condition
	for _, c := range conditions {
		if cmd.Flags().Changed(c.flag) {
			set = append(set, c)
		}
	}

	if len(set) == 0 {
		return "", 0, fmt.Errorf("one of --above, --below, --change-above, --change-below is required")
	}
	if len(set) > 1 {
		return "", 0, fmt.Errorf("only one condition flag may be set")
	}
	return set[0].kind, set[0].value, nil
}

func describeKind(kind models.AlertKind) string {
	switch kind {
	case models.AlertPriceAbove:
		return "price >="
	case models.AlertPriceBelow:
		return "price <="
	case models.AlertChangeAbove:
		return "change% >="
	case models.AlertChangeBelow:
		return "change% <="
	default:
		return string(kind)
	}
}

func newAlertListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			rules, err := app.Store.GetActiveAlerts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read alerts: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"alerts": rules, "count": len(rules)})
			}

			if len(rules) == 0 {
				output.Info("No active alerts.")
				return nil
			}

			output.Bold("Active Alerts (%d)", len(rules))
			table := NewTable(output, "ID", "SYMBOL", "CONDITION", "THRESHOLD", "CREATED")
			for _, r := range rules {
				table.AddRow(
					r.ID,
					output.Cyan(r.Symbol),
					describeKind(r.Kind),
					fmt.Sprintf("%.2f", r.Threshold),
					FormatDateTime(r.CreatedAt),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newAlertDeactivateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "deactivate ID",
		Aliases: []string{"rm", "cancel"},
		Short:   "Deactivate an alert rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			if err := app.Store.DeactivateAlert(cmd.Context(), args[0]); err != nil {
				if trackererrors.Is(err, trackererrors.ErrAlertNotFound) {
					return fmt.Errorf("no alert with ID %s", args[0])
				}
				return fmt.Errorf("failed to deactivate alert: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deactivated": args[0]})
			}
			output.Success("✓ Alert %s deactivated", args[0])
			return nil
		},
	}
}
