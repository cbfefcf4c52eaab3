package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Fatalf("default config invalid: %v", ValidationErrors(errs))
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rosbridge.URL != "ws://localhost:9090" {
		t.Errorf("rosbridge.url = %q", cfg.Rosbridge.URL)
	}
	if cfg.Rosbridge.DialTimeout != 5*time.Second {
		t.Errorf("dial_timeout = %v", cfg.Rosbridge.DialTimeout)
	}
	if cfg.TF.FixedFrame != "map" {
		t.Errorf("fixed_frame = %q", cfg.TF.FixedFrame)
	}
	if len(cfg.TF.Topics) != 2 || cfg.TF.Topics[0] != "/tf" || cfg.TF.Topics[1] != "/tf_static" {
		t.Errorf("topics = %v", cfg.TF.Topics)
	}
	if cfg.View.Zoom != 50 {
		t.Errorf("zoom = %v", cfg.View.Zoom)
	}
}

func TestConfigureReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := strings.Join([]string{
		"rosbridge:",
		"  url: ws://robot.local:9090",
		"tf:",
		"  fixed_frame: odom",
		"view:",
		"  zoom: 120",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VIZMAP_POSE_TOPIC", "/amcl_pose")
	t.Setenv("VIZMAP_LOGGING_LEVEL", "debug")

	v := viper.New()
	if err := Configure(v, path); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rosbridge.URL != "ws://robot.local:9090" {
		t.Errorf("url = %q", cfg.Rosbridge.URL)
	}
	if cfg.TF.FixedFrame != "odom" {
		t.Errorf("fixed_frame = %q", cfg.TF.FixedFrame)
	}
	if cfg.View.Zoom != 120 {
		t.Errorf("zoom = %v", cfg.View.Zoom)
	}
	if cfg.Pose.Topic != "/amcl_pose" {
		t.Errorf("pose.topic = %q, want env override", cfg.Pose.Topic)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestConfigureMissingSearchFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	v := viper.New()
	if err := Configure(v, ""); err != nil {
		t.Fatalf("Configure: %v", err)
	}
}

func TestConfigureMissingExplicitFileFails(t *testing.T) {
	v := viper.New()
	if err := Configure(v, filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Rosbridge.URL = "http://robot:9090" }, "rosbridge.url"},
		{"no host", func(c *Config) { c.Rosbridge.URL = "ws://" }, "rosbridge.url"},
		{"zero timeout", func(c *Config) { c.Rosbridge.DialTimeout = 0 }, "rosbridge.dial_timeout"},
		{"zero width", func(c *Config) { c.Window.Width = 0 }, "window.width"},
		{"huge height", func(c *Config) { c.Window.Height = 1 << 20 }, "window.height"},
		{"bad colour", func(c *Config) { c.Window.Background = "red" }, "window.background"},
		{"zoom too small", func(c *Config) { c.View.Zoom = 0 }, "view.zoom"},
		{"zoom too large", func(c *Config) { c.View.Zoom = 1e6 }, "view.zoom"},
		{"empty fixed frame", func(c *Config) { c.TF.FixedFrame = "/" }, "tf.fixed_frame"},
		{"blank topic", func(c *Config) { c.TF.Topics = []string{"/tf", " "} }, "tf.topics[1]"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty settings", func(c *Config) { c.Settings.Path = "" }, "settings.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), ValidationErrors(errs))
			}
			if errs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("view.zoom", -1)
	v.Set("logging.level", "loud")

	_, err := Load(v)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("got %d errors, want 2", len(verrs))
	}
	if !strings.Contains(err.Error(), "2 validation errors") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestConfigDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "vizmap") {
		t.Errorf("ConfigDir = %q", got)
	}
	if got := ConfigFile(); got != filepath.Join("/tmp/xdg", "vizmap", "config.yaml") {
		t.Errorf("ConfigFile = %q", got)
	}
}
