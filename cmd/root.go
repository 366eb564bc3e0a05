package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/internal/utils"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/config"
)

var cfgFile string

const (
	LOGO = `
   ____                       _       _
  / ___| _ __ ___   __ _ _ __| |_ ___| |_ __
  \___ \| '_ ' _ \ / _' | '__| __/ __| | '_ \
   ___) | | | | | | (_| | |  | |_\__ \ | |_) |
  |____/|_| |_| |_|\__,_|_|   \__|___/_| .__/
                                        |_|
`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smartplaces",
	Short: "Cultural events and museums of São Paulo, collected and cached.",
	Long: LOGO + `smartplaces collects cultural events, courses and museums of São Paulo from
FabLab Livre SP, Visite São Paulo and Wikipedia, normalizes them into one
catalog and keeps it cached, with live web search on top.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return utils.SetLogLevel(viper.GetString("loglevel"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.smartplaces.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")

	_ = viper.BindPFlag("http.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	_ = viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("loglevel"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.Bind(viper.GetViper()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	home, err := homedir.Dir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.SetConfigName(".smartplaces")
		viper.SetConfigType("yaml")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; create it with defaults.
			configPath := filepath.Join(home, ".smartplaces.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Warnf("Error creating config file: %s", err)
			}
		} else {
			utils.Log.Warnf("Error reading config file: %s", err)
		}
	}
}

// loadSettings decodes the global viper instance into validated settings.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}
