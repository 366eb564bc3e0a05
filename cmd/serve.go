package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/internal/server"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/internal/utils"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/refresher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog and web search over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		a, err := newApp(settings)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if settings.Server.RefreshSchedule != "" {
			r, err := refresher.New(utils.Component("refresher"), a.aggregator,
				settings.Server.RefreshSchedule, settings.Catalog.RefreshTimeout)
			if err != nil {
				return err
			}
			if err := r.Start(ctx, true); err != nil {
				return err
			}
			defer r.Stop()
		}

		srv := &server.Server{
			Catalog:  a.aggregator,
			Snapshot: a.collection,
			Search:   a.search,
			Username: settings.Server.Username,
			Password: settings.Server.Password,
			Log:      utils.Component("server"),
		}
		if a.journal != nil {
			srv.Journal = a.journal
		}
		return srv.Start(ctx, settings.Server.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("schedule", "@every 1h", "Cron schedule of the background refresh (empty to disable)")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("server.refresh_schedule", serveCmd.Flags().Lookup("schedule"))
}
