package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tusktask/tusktask/internal/database"
	"github.com/tusktask/tusktask/internal/services"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send every due task reminder once and exit",
	Long: `Send due task reminders without starting the server.

Useful when reminders are driven by an external scheduler instead of
the built-in one:
  tusktask remind`,
	RunE: runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)

	reminders := services.NewReminderService(db, newMailer(cfg))
	sent, err := reminders.SendDue(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d reminders sent\n", sent)
	return nil
}
