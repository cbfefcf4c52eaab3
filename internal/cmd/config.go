package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/phanxgames/vizmap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create vizmap configuration",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at $XDG_CONFIG_HOME/vizmap/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "rosbridge.url:        %s\n", cfg.Rosbridge.URL)
	fmt.Fprintf(out, "rosbridge.dial_timeout: %s\n", cfg.Rosbridge.DialTimeout)
	fmt.Fprintf(out, "window:               %dx%d %q bg=%s status=%v\n",
		cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, cfg.Window.Background, cfg.Window.ShowStatus)
	fmt.Fprintf(out, "view:                 zoom=%g centre=(%g, %g)\n", cfg.View.Zoom, cfg.View.CenterX, cfg.View.CenterY)
	fmt.Fprintf(out, "tf.fixed_frame:       %s\n", cfg.TF.FixedFrame)
	fmt.Fprintf(out, "tf.topics:            %v\n", cfg.TF.Topics)
	fmt.Fprintf(out, "tf.widget_id:         %s\n", cfg.TF.WidgetID)
	fmt.Fprintf(out, "pose.topic:           %s\n", cfg.Pose.Topic)
	fmt.Fprintf(out, "pose.widget_id:       %s\n", cfg.Pose.WidgetID)
	fmt.Fprintf(out, "settings.path:        %s\n", cfg.Settings.Path)
	fmt.Fprintf(out, "logging:              level=%s format=%s file=%s\n", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "\nLoaded from: %s\n", used)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	config.SetDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFile())
	return nil
}
