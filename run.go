package vizmap

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// FixedSize disables window resizing.
	FixedSize bool
}

// Run opens a window and blocks in the game loop until the window closes or
// the scene quits. Quitting through Scene.Quit is not an error.
func Run(scene *Scene, cfg RunConfig) error {
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		ebiten.SetWindowSize(cfg.Width, cfg.Height)
	}
	if !cfg.FixedSize {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	if err := ebiten.RunGame(scene); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
