// Command tusktask runs the TuskTask API and its maintenance tasks.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/database"
	"github.com/tusktask/tusktask/internal/logging"
	"gorm.io/gorm"

	_ "time/tzdata"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "tusktask",
		Short:         "TuskTask - task and project management backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database. Every command
// starts here.
func bootstrap() (*config.Config, *gorm.DB, error) {
	logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("configuration loaded", "env", cfg.AppEnv, "driver", cfg.DBDriver)
	return cfg, db, nil
}
