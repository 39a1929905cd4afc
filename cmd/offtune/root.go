package main

import (
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/offtune/internal/app"
	"github.com/tejashwikalptaru/offtune/internal/config"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "offtune",
	Short:         "Offline music download core",
	Long:          `offtune downloads audio for offline playback and keeps the playback queue.`,
	Version:       app.GetVersionInfo().String(),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			loaded.HTTP.Addr = addr
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("addr", "", "Control API address (default: $OFFTUNE_HTTP_ADDR)")
	rootCmd.SetVersionTemplate("offtune version {{.Version}}\n")
}
