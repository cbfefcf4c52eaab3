// Package cmd implements the vizmap command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/phanxgames/vizmap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "vizmap",
	Short: "2D map view of a robot's transform tree and pose estimate",
	Long: `vizmap connects to a rosbridge server, subscribes to the transform tree
and a pose topic, and draws both on a pannable, zoomable 2D map.

Drag to pan, use the wheel to zoom, C centres on the pose estimate and P
saves a screenshot.`,
	SilenceUsage: true,
	RunE:         runView,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/vizmap/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	rootCmd.PersistentFlags().String("url", "", "rosbridge websocket URL")
	_ = viper.BindPFlag("rosbridge.url", rootCmd.PersistentFlags().Lookup("url"))
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug/info/warn/error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	addViewFlags(rootCmd)
}

func initConfig() {
	if err := config.Configure(viper.GetViper(), viper.GetString("config")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
	}
}
