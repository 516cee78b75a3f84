package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/log"
	"github.com/conference-manager/meeting-publisher/internal/version"
)

var (
	cfgFile string
	conf    *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "meeting-publisher",
	Short:        "Assign meetings to host accounts and publish them on the remote scheduling service",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		conf, err = config.Parse(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to parse config %s: %w", cfgFile, err)
		}

		// Init logger
		err = log.Init(conf.Logs)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		log.Logger().V(1).Info("Using config", "config", fmt.Sprintf("%+v", *conf), "build", version.Info())

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
}
