// Package config loads viewer configuration from defaults, a YAML file and
// VIZMAP_* environment variables through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g.
// VIZMAP_ROSBRIDGE_URL for rosbridge.url.
const EnvPrefix = "VIZMAP"

// Config is the complete viewer configuration.
type Config struct {
	Rosbridge RosbridgeConfig `mapstructure:"rosbridge"`
	Window    WindowConfig    `mapstructure:"window"`
	View      ViewConfig      `mapstructure:"view"`
	TF        TFConfig        `mapstructure:"tf"`
	Pose      PoseConfig      `mapstructure:"pose"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Debug logs per-frame render timing.
	Debug bool `mapstructure:"debug"`
	// ScreenshotDir receives PNGs written by the P key and scripts.
	ScreenshotDir string `mapstructure:"screenshot_dir"`
	// Script is an optional JSON view script run at startup.
	Script string `mapstructure:"script"`
}

// RosbridgeConfig locates the robot's rosbridge server.
type RosbridgeConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// WindowConfig controls the viewer window.
type WindowConfig struct {
	Title      string `mapstructure:"title"`
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Background string `mapstructure:"background"` // #rrggbb or #rrggbbaa
	ShowStatus bool   `mapstructure:"show_status"`
}

// ViewConfig is the initial projection.
type ViewConfig struct {
	// Zoom is pixels per metre.
	Zoom    float64 `mapstructure:"zoom"`
	CenterX float64 `mapstructure:"center_x"`
	CenterY float64 `mapstructure:"center_y"`
}

// TFConfig configures the frame tree layer.
type TFConfig struct {
	FixedFrame string   `mapstructure:"fixed_frame"`
	Topics     []string `mapstructure:"topics"`
	// WidgetID keys the layer's persisted settings. Empty generates one.
	WidgetID string `mapstructure:"widget_id"`
}

// PoseConfig configures the pose layer.
type PoseConfig struct {
	// Topic overrides the stored topic when set.
	Topic    string `mapstructure:"topic"`
	WidgetID string `mapstructure:"widget_id"`
}

// SettingsConfig locates persisted widget settings.
type SettingsConfig struct {
	// Path is the SQLite database. ":memory:" disables persistence.
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`   // empty logs to stderr
	Format string `mapstructure:"format"` // json or text
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Rosbridge: RosbridgeConfig{
			URL:         "ws://localhost:9090",
			DialTimeout: 5 * time.Second,
		},
		Window: WindowConfig{
			Title:      "vizmap",
			Width:      1280,
			Height:     800,
			Background: "#1d2229",
			ShowStatus: true,
		},
		View: ViewConfig{Zoom: 50},
		TF: TFConfig{
			FixedFrame: "map",
			Topics:     []string{"/tf", "/tf_static"},
			WidgetID:   "tf",
		},
		Pose: PoseConfig{WidgetID: "pose"},
		Settings: SettingsConfig{
			Path: filepath.Join(DataDir(), "settings.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		ScreenshotDir: "screenshots",
	}
}

// SetDefaults registers every default with v so env and file values can
// override individual keys.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("rosbridge.url", d.Rosbridge.URL)
	v.SetDefault("rosbridge.dial_timeout", d.Rosbridge.DialTimeout)

	v.SetDefault("window.title", d.Window.Title)
	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.background", d.Window.Background)
	v.SetDefault("window.show_status", d.Window.ShowStatus)

	v.SetDefault("view.zoom", d.View.Zoom)
	v.SetDefault("view.center_x", d.View.CenterX)
	v.SetDefault("view.center_y", d.View.CenterY)

	v.SetDefault("tf.fixed_frame", d.TF.FixedFrame)
	v.SetDefault("tf.topics", d.TF.Topics)
	v.SetDefault("tf.widget_id", d.TF.WidgetID)

	v.SetDefault("pose.topic", d.Pose.Topic)
	v.SetDefault("pose.widget_id", d.Pose.WidgetID)

	v.SetDefault("settings.path", d.Settings.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("debug", d.Debug)
	v.SetDefault("screenshot_dir", d.ScreenshotDir)
	v.SetDefault("script", d.Script)
}

// Configure prepares v the way the CLI does: defaults, env overrides and
// the config file search path. cfgFile, when set, replaces the search.
func Configure(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// VIZMAP_TF_FIXED_FRAME for tf.fixed_frame
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine unless one was named explicitly.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the user's vizmap config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vizmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vizmap"
	}
	return filepath.Join(home, ".config", "vizmap")
}

// DataDir returns the directory for persisted state.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vizmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vizmap"
	}
	return filepath.Join(home, ".local", "share", "vizmap")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
