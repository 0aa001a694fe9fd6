package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/models"
	"stock-tracker/pkg/utils"
)

func newTrackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run the tracking loop",
		Long: `Run the watchlist tracking loop. Each cycle fetches a quote for every
watchlist symbol, stores it, evaluates active alerts, and dispatches
notifications for any that fire.`,
	}

	cmd.AddCommand(newTrackStartCmd(app))
	cmd.AddCommand(newTrackOnceCmd(app))

	return cmd
}

func newTrackStartCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start continuous tracking",
		Long: `Start the tracking loop in the foreground. The first cycle runs
immediately; subsequent cycles run once per interval. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Tracker == nil {
				return fmt.Errorf("tracker not available (store failed to initialize)")
			}

			if !cmd.Flags().Changed("interval") {
				interval = app.Config.Tracker.PollInterval
			}

			symbols, err := app.Store.GetWatchlist(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read watchlist: %w", err)
			}
			if len(symbols) == 0 {
				output.Warning("Watchlist is empty; the loop will idle. Add symbols with 'stock-tracker watchlist add'.")
			}

			if err := app.Tracker.Start(interval); err != nil {
				if trackererrors.Is(err, trackererrors.ErrAlreadyRunning) {
					return fmt.Errorf("tracking is already running")
				}
				return err
			}

			output.Info("Tracking %d symbols every %s. Press Ctrl-C to stop.", len(symbols), FormatDuration(interval))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			<-sigCh
			output.Println()
			output.Info("Stopping tracker...")
			app.Tracker.Stop()
			<-app.Tracker.Done()
			output.Success("✓ Tracking stopped")
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Minute, "polling interval")

	return cmd
}

func newTrackOnceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single tracking cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Tracker == nil {
				return fmt.Errorf("tracker not available (store failed to initialize)")
			}

			stats := app.Tracker.Cycle(cmd.Context())

			if output.IsJSON() {
				return output.JSON(map[string]int{
					"symbols": stats.Symbols,
					"fetched": stats.Fetched,
					"fired":   stats.Fired,
				})
			}

			output.Success("✓ Cycle complete: %d symbols, %d fetched, %d alerts fired",
				stats.Symbols, stats.Fetched, stats.Fired)
			return nil
		},
	}
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "quote SYMBOL...",
		Aliases: []string{"q"},
		Short:   "Fetch current quotes",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var quotes []*models.Quote
			for _, arg := range args {
				symbol := models.NormalizeSymbol(arg)
				q, err := app.Source.Fetch(cmd.Context(), symbol)
				if err != nil {
					if trackererrors.Is(err, trackererrors.ErrQuoteUnavailable) {
						output.Warning("No quote available for %s", symbol)
					} else {
						output.Error("Failed to fetch %s: %v", symbol, err)
					}
					continue
				}
				quotes = append(quotes, q)
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}

			if len(quotes) == 0 {
				return fmt.Errorf("no quotes fetched")
			}

			table := NewTable(output, "SYMBOL", "PRICE", "CHANGE", "VOLUME", "TIME")
			for _, q := range quotes {
				change := output.ColoredString(output.ChangeColor(q.Change),
					FormatChange(q.Change, q.ChangePercent))
				table.AddRow(
					output.Cyan(q.Symbol),
					"$"+FormatPrice(q.Price),
					change,
					utils.FormatVolume(q.Volume),
					FormatTime(q.Timestamp),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Show stored price history for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			symbol := models.NormalizeSymbol(args[0])
			since := time.Now().AddDate(0, 0, -days)

			samples, err := app.Store.GetSamples(cmd.Context(), symbol, since)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":  symbol,
					"days":    days,
					"samples": samples,
				})
			}

			if len(samples) == 0 {
				output.Info("No stored samples for %s in the last %d days.", symbol, days)
				return nil
			}

			first := samples[0]
			last := samples[len(samples)-1]
			periodChange := last.Price - first.Price
			periodPct := 0.0
			if first.Price != 0 {
				periodPct = periodChange / first.Price * 100
			}

			output.Bold("%s - %d samples over %d days", symbol, len(samples), days)
			output.Printf("  First: %s at %s\n", "$"+FormatPrice(first.Price), FormatDateTime(first.Timestamp))
			output.Printf("  Last:  %s at %s\n", "$"+FormatPrice(last.Price), FormatDateTime(last.Timestamp))
			output.Printf("  Period change: %s\n",
				output.ColoredString(output.ChangeColor(periodChange), FormatChange(periodChange, periodPct)))
			output.Println()

			table := NewTable(output, "TIME", "PRICE", "DAY CHANGE", "VOLUME")
			for _, s := range samples {
				table.AddRow(
					FormatDateTime(s.Timestamp),
					"$"+FormatPrice(s.Price),
					output.FormatPercent(s.ChangePercent),
					utils.FormatVolume(s.Volume),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "number of days of history")

	return cmd
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Show a live snapshot of all tracked symbols",
		Long: `Fetch a current quote for every watchlist symbol and render a table.
Symbols whose fetch fails fall back to the latest stored sample.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not available")
			}

			symbols, err := app.Store.GetWatchlist(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read watchlist: %w", err)
			}
			if len(symbols) == 0 {
				output.Info("Watchlist is empty.")
				return nil
			}

			type row struct {
				Symbol        string    `json:"symbol"`
				Price         float64   `json:"price"`
				ChangePercent float64   `json:"change_percent"`
				Volume        int64     `json:"volume"`
				AsOf          time.Time `json:"as_of"`
				Stale         bool      `json:"stale"`
				NoData        bool      `json:"no_data,omitempty"`
			}
			var rows []row
			for _, symbol := range symbols {
				q, err := app.Source.Fetch(cmd.Context(), symbol)
				if err == nil {
					rows = append(rows, row{
						Symbol:        q.Symbol,
						Price:         q.Price,
						ChangePercent: q.ChangePercent,
						Volume:        q.Volume,
						AsOf:          q.Timestamp,
					})
					continue
				}
				app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Fetch failed, falling back to stored sample")

				sample, serr := app.Store.GetLatestSample(cmd.Context(), symbol)
				if serr != nil {
					rows = append(rows, row{Symbol: symbol, NoData: true})
					continue
				}
				rows = append(rows, row{
					Symbol:        sample.Symbol,
					Price:         sample.Price,
					ChangePercent: sample.ChangePercent,
					Volume:        sample.Volume,
					AsOf:          sample.Timestamp,
					Stale:         true,
				})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			output.Bold("Portfolio Snapshot - %s", FormatDateTime(time.Now()))
			table := NewTable(output, "SYMBOL", "PRICE", "DAY CHANGE", "VOLUME", "AS OF")
			for _, r := range rows {
				if r.NoData {
					table.AddRow(output.Cyan(r.Symbol), "-", "-", "-", output.ColoredString(ColorDim, "no data"))
					continue
				}
				asOf := FormatDateTime(r.AsOf)
				if r.Stale {
					asOf = output.ColoredString(ColorDim, asOf+" (stored)")
				}
				table.AddRow(
					output.Cyan(r.Symbol),
					"$"+FormatPrice(r.Price),
					output.FormatPercent(r.ChangePercent),
					utils.FormatVolume(r.Volume),
					asOf,
				)
			}
			table.Render()
			return nil
		},
	}
}
