package cli

import (
	"fmt"
	"pharmacist/internal/services"

	"github.com/spf13/cobra"
)

var generateDays int

var generateLogsCmd = &cobra.Command{
	Use:   "generate-logs",
	Short: "Create pending doses for every active reminder",
	Long: `Runs the schedule expander once over every active reminder, the same
top-up the reminder worker performs on each tick. Existing doses are kept.`,
	RunE: runGenerateLogs,
}

func init() {
	generateLogsCmd.Flags().IntVar(&generateDays, "days", 0, "Number of days to cover (default: reminder.default_days)")
}

func runGenerateLogs(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	days := generateDays
	if days == 0 {
		days = cfg.Reminder.DefaultDays
	}
	if days < 1 || days > cfg.Reminder.MaxDays {
		return fmt.Errorf("--days must be between 1 and %d", cfg.Reminder.MaxDays)
	}

	created, err := services.NewReminderService(cfg).TopUpAll(days)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d doses over the next %d days\n", created, days)
	return nil
}
