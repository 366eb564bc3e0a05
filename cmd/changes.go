package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/storage"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent catalog changes from the journal (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		journalPath, _ := cmd.Flags().GetString("journal")
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")
		since, _ := cmd.Flags().GetDuration("since")

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		db, err := openJournalReadOnly(settings, journalPath)
		if err != nil {
			return err
		}
		defer db.Close()

		filter := storage.ChangeFilter{Limit: limit, Source: source}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}
		changes, err := db.ListRecentChanges(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Fprintln(os.Stderr, "No changes journaled yet.")
			return nil
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %-9s  %-10s  %s\n", ts, c.ChangeType, c.Source, c.Type, c.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().String("journal", "", "Path to the journal SQLite file (default: journal.path or ~/.config/smartplaces/journal.sqlite)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	changesCmd.Flags().String("source", "", "Only changes from this source")
	changesCmd.Flags().Duration("since", 0, "Only changes newer than this (e.g. 24h)")
}
