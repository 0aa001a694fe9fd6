package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-tracker/internal/config"
	"stock-tracker/internal/logging"
	"stock-tracker/internal/notify"
	"stock-tracker/internal/quote"
	"stock-tracker/internal/store"
	"stock-tracker/internal/tracker"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.DataStore
	Source     quote.Source
	Dispatcher notify.Dispatcher
	Tracker    *tracker.Tracker
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Tracker.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Tracker.DatabasePath).Msg("SQLite store initialized")
	}

	// Quote source
	app.Source = quote.NewYahooSource(cfg.Provider, logger)

	// Notification dispatcher
	if cfg.Notifications.Enabled {
		app.Dispatcher = notify.NewMultiDispatcher(cfg.Notifications, logger)
		logger.Debug().Msg("Notification dispatcher initialized")
	}

	// Tracking loop
	if app.Store != nil {
		app.Tracker = tracker.New(app.Source, app.Store, app.Dispatcher, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "stock-tracker",
		Short: "Stock Tracker - watchlist monitoring and price alerts",
		Long: `Stock Tracker polls market data for a watchlist of symbols, stores the
price history, and fires one-shot alerts when user-defined price or
percent-change conditions are met. Alerts are delivered by email,
Telegram, or webhook.

Use 'stock-tracker help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stock-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newAlertCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newTrackCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Stock Tracker v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}

			output.Bold("Tracker Configuration")
			output.Printf("  Database:       %s\n", app.Config.Tracker.DatabasePath)
			output.Printf("  Poll interval:  %s\n", app.Config.Tracker.PollInterval)
			output.Println()

			output.Bold("Provider")
			output.Printf("  Base URL:       %s\n", app.Config.Provider.BaseURL)
			output.Printf("  Timeout:        %s\n", app.Config.Provider.RequestTimeout)
			output.Printf("  Max retries:    %d\n", app.Config.Provider.MaxRetries)
			output.Println()

			output.Bold("Logging")
			output.Printf("  Level:          %s\n", app.Config.Logging.Level)
			output.Printf("  Console:        %t\n", app.Config.Logging.Console)
			output.Printf("  File:           %t (%s)\n", app.Config.Logging.File, app.Config.Logging.FilePath)
			output.Println()

			output.Bold("Notifications")
			output.Printf("  Enabled:        %t\n", app.Config.Notifications.Enabled)
			output.Printf("  Email:          %t\n", app.Config.Notifications.Email.Enabled)
			output.Printf("  Telegram:       %t\n", app.Config.Notifications.Telegram.Enabled)
			output.Printf("  Webhook:        %t\n", app.Config.Notifications.Webhook.Enabled)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
