package main

import (
	"fmt"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"stock-tracker/internal/cli"
	"stock-tracker/internal/config"
	"stock-tracker/internal/logging"
)

func main() {
	cfg, err := config.Load(configDirFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logConfigFrom(cfg.Logging))

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logConfigFrom maps the loaded [logging] section onto the logger's
// settings.
func logConfigFrom(cfg config.LoggingConfig) logging.LogConfig {
	return logging.LogConfig{
		Level:      cfg.Level,
		Console:    cfg.Console,
		File:       cfg.File,
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}

// configDirFromArgs extracts --config before cobra parses anything,
// since configuration has to be loaded to construct the commands.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}
