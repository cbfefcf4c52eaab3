package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/vizmap"
	"github.com/phanxgames/vizmap/internal/config"
	"github.com/phanxgames/vizmap/internal/logging"
	"github.com/phanxgames/vizmap/rosbridge"
	"github.com/phanxgames/vizmap/settings"
	"github.com/phanxgames/vizmap/settings/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func addViewFlags(c *cobra.Command) {
	c.Flags().Bool("demo", false, "drive the view from a synthetic robot instead of rosbridge")
	c.Flags().String("script", "", "JSON view script to run after startup")
	_ = viper.BindPFlag("script", c.Flags().Lookup("script"))
	c.Flags().String("fixed-frame", "", "frame the map is drawn in")
	_ = viper.BindPFlag("tf.fixed_frame", c.Flags().Lookup("fixed-frame"))
	c.Flags().String("pose-topic", "", "pose topic (overrides the stored one)")
	_ = viper.BindPFlag("pose.topic", c.Flags().Lookup("pose-topic"))
	c.Flags().Bool("debug", false, "log per-frame render timing")
	_ = viper.BindPFlag("debug", c.Flags().Lookup("debug"))
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	demo, _ := cmd.Flags().GetBool("demo")

	logger, logCloser, err := logging.New(logging.Options{
		File:  cfg.Logging.File,
		Level: cfg.Logging.Level,
		Text:  cfg.Logging.Format == "text",
	})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	ensureWidgetIDs(viper.GetViper(), cfg, logger)

	store, storeCloser, err := openSettings(cfg.Settings.Path)
	if err != nil {
		return err
	}
	defer func() { _ = storeCloser.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var sub vizmap.Subscriber
	if demo {
		src := newDemoSource(demoRate)
		go src.Run(ctx)
		sub = src
		logger.Info("running synthetic robot", "pose_topic", demoPoseTopic)
	} else {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Rosbridge.DialTimeout)
		client, err := rosbridge.Dial(dialCtx, cfg.Rosbridge.URL, logger.With("component", "rosbridge"))
		cancel()
		if err != nil {
			return fmt.Errorf("connect to rosbridge at %s: %w", cfg.Rosbridge.URL, err)
		}
		defer func() { _ = client.Close() }()
		go watchConnection(ctx, client, logger)
		sub = client
	}

	return runScene(ctx, cfg, store, sub, logger)
}

// runScene wires the map context, feeds and layers, then blocks in the
// game loop until the window closes, the script quits or ctx ends.
func runScene(ctx context.Context, cfg *config.Config, store settings.Store, sub vizmap.Subscriber, logger *slog.Logger) error {
	bg, err := vizmap.ParseHex(cfg.Window.Background)
	if err != nil {
		return err
	}

	vctx := vizmap.NewContext(vizmap.ContextOptions{
		FixedFrame: cfg.TF.FixedFrame,
		Viewport:   vizmap.Rect{Width: float64(cfg.Window.Width), Height: float64(cfg.Window.Height)},
		Zoom:       cfg.View.Zoom,
		Settings:   store,
		Logger:     logger,
	})
	defer func() {
		if err := vctx.Close(); err != nil {
			logger.Warn("flush settings", "error", err)
		}
	}()
	vctx.Projector.SetCenter(cfg.View.CenterX, cfg.View.CenterY)

	scene, err := vizmap.NewScene(vctx, vizmap.SceneConfig{
		Background:    bg,
		ScreenshotDir: cfg.ScreenshotDir,
		ShowStatus:    cfg.Window.ShowStatus,
		Debug:         cfg.Debug,
	})
	if err != nil {
		return err
	}
	defer scene.Close()

	if cfg.Script != "" {
		data, err := os.ReadFile(cfg.Script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		runner, err := vizmap.LoadScript(data)
		if err != nil {
			return err
		}
		scene.SetScript(runner)
	}

	dispatch := vizmap.Dispatcher(scene.Post)

	feed := vizmap.NewTFFeed(vctx.Tree, sub, dispatch, logger.With("component", "tffeed"), cfg.TF.Topics...)
	if err := feed.Start(); err != nil {
		return err
	}
	defer feed.Stop()

	tfLayer := vizmap.NewTFLayer(vctx, cfg.TF.WidgetID)
	poseLayer := vizmap.NewPoseLayer(vctx, cfg.Pose.WidgetID, sub, dispatch)
	scene.AddLayer(tfLayer)
	scene.AddLayer(poseLayer)

	// A bad topic leaves the layer showing its error status; the view still
	// runs so the user can see it.
	if cfg.Pose.Topic != "" {
		err = poseLayer.SetTopic(cfg.Pose.Topic)
	} else {
		err = poseLayer.Start()
	}
	if err != nil {
		logger.Warn("pose layer not subscribed", "error", err)
	}

	scene.BindKey(ebiten.KeyC, func() {
		if !poseLayer.CenterOnPose() {
			logger.Info("no pose estimate to centre on")
		}
	})

	go func() {
		<-ctx.Done()
		scene.Post(scene.Quit)
	}()

	if err := vizmap.Run(scene, vizmap.RunConfig{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	}); err != nil {
		return err
	}
	applied, rejected := feed.Stats()
	logger.Info("viewer closed", "tf_applied", applied, "tf_rejected", rejected)
	return nil
}

// ensureWidgetIDs gives every layer a stable settings key. Generated ids
// are written back to the config file when one is in use so the next run
// finds the same settings.
func ensureWidgetIDs(v *viper.Viper, cfg *config.Config, logger *slog.Logger) {
	changed := false
	if cfg.TF.WidgetID == "" {
		cfg.TF.WidgetID = uuid.NewString()
		v.Set("tf.widget_id", cfg.TF.WidgetID)
		changed = true
	}
	if cfg.Pose.WidgetID == "" {
		cfg.Pose.WidgetID = uuid.NewString()
		v.Set("pose.widget_id", cfg.Pose.WidgetID)
		changed = true
	}
	if !changed || v.ConfigFileUsed() == "" {
		return
	}
	if err := v.WriteConfig(); err != nil {
		logger.Warn("failed to persist widget ids", "error", err)
	}
}

// openSettings opens the SQLite store at path, creating its directory.
func openSettings(path string) (settings.Store, io.Closer, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create settings directory: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

// watchConnection logs when the rosbridge connection drops. Layers keep
// their last state and report stale data through their status.
func watchConnection(ctx context.Context, client *rosbridge.Client, logger *slog.Logger) {
	select {
	case <-ctx.Done():
	case <-client.Done():
		if err := client.Err(); err != nil && !errors.Is(err, rosbridge.ErrClosed) {
			logger.Error("rosbridge connection lost", "error", err)
		}
	}
}
