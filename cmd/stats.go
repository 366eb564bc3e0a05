package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints how many records of each source the journal holds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		journalPath, _ := cmd.Flags().GetString("journal")

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		db, err := openJournalReadOnly(settings, journalPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No records journaled yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "SOURCE\tRECORDS\t")

		var total int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t\n", s.Source, s.RecordCount)
			total += s.RecordCount
		}

		fmt.Fprintln(w, " \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\n", total)

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("journal", "", "Path to the journal SQLite file")
}
