package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stock-tracker/internal/models"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage the tracked watchlist",
		Long:    "Add, remove, and list the symbols polled by the tracking loop.",
	}

	cmd.AddCommand(newWatchlistAddCmd(app))
	cmd.AddCommand(newWatchlistRemoveCmd(app))
	cmd.AddCommand(newWatchlistListCmd(app))

	return cmd
}

func newWatchlistAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add SYMBOL...",
		Short: "Add symbols to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			var added []string
			for _, arg := range args {
				symbol := models.NormalizeSymbol(arg)
				if symbol == "" {
					output.Warning("Skipping empty symbol")
					continue
				}
				if err := app.Store.AddToWatchlist(cmd.Context(), symbol); err != nil {
					output.Error("Failed to add %s: %v", symbol, err)
					continue
				}
				added = append(added, symbol)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"added": added})
			}
			for _, symbol := range added {
				output.Success("✓ Added %s to watchlist", symbol)
			}
			return nil
		},
	}
}

func newWatchlistRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove SYMBOL...",
		Aliases: []string{"rm"},
		Short:   "Remove symbols from the watchlist",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			var removed []string
			for _, arg := range args {
				symbol := models.NormalizeSymbol(arg)
				if err := app.Store.RemoveFromWatchlist(cmd.Context(), symbol); err != nil {
					output.Error("Failed to remove %s: %v", symbol, err)
					continue
				}
				removed = append(removed, symbol)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"removed": removed})
			}
			for _, symbol := range removed {
				output.Success("✓ Removed %s from watchlist", symbol)
			}
			return nil
		},
	}
}

func newWatchlistListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List watchlist symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			symbols, err := app.Store.GetWatchlist(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read watchlist: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"symbols": symbols, "count": len(symbols)})
			}

			if len(symbols) == 0 {
				output.Info("Watchlist is empty. Add symbols with 'stock-tracker watchlist add SYMBOL'.")
				return nil
			}

			output.Bold("Watchlist (%d symbols)", len(symbols))
			table := NewTable(output, "#", "SYMBOL", "LAST PRICE", "CHANGE")
			for i, symbol := range symbols {
				price := "-"
				change := "-"
				if sample, err := app.Store.GetLatestSample(cmd.Context(), symbol); err == nil && sample != nil {
					price = "$" + FormatPrice(sample.Price)
					change = output.FormatPercent(sample.ChangePercent)
				}
				table.AddRow(fmt.Sprintf("%d", i+1), output.Cyan(symbol), price, change)
			}
			table.Render()
			return nil
		},
	}
}
