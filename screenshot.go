package vizmap

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
)

// screenshotRequest is one pending capture. An empty layer captures the
// composited frame; otherwise only that layer's canvas is written.
type screenshotRequest struct {
	label string
	layer string
}

// Screenshot queues a capture of the composited map, taken at the end of
// the current Draw. The file name records the fixed frame and zoom the map
// was drawn with.
func (s *Scene) Screenshot(label string) {
	s.screenshotQueue = append(s.screenshotQueue, screenshotRequest{label: label})
}

// ScreenshotLayer queues a capture of a single layer's canvas, without the
// background or the other layers. layerID is the layer's widget id.
func (s *Scene) ScreenshotLayer(layerID, label string) {
	s.screenshotQueue = append(s.screenshotQueue, screenshotRequest{label: label, layer: layerID})
}

// flushScreenshots writes every queued capture. Called at the end of
// Scene.Draw, after all canvases are up to date.
func (s *Scene) flushScreenshots(screen *ebiten.Image) {
	if len(s.screenshotQueue) == 0 {
		return
	}
	reqs := s.screenshotQueue
	s.screenshotQueue = nil

	if err := os.MkdirAll(s.ScreenshotDir, 0o755); err != nil {
		s.logger.Error("screenshot: create directory", "dir", s.ScreenshotDir, "error", err)
		return
	}

	stamp := time.Now().Format("20060102_150405")
	var frame *image.NRGBA // the composited frame is read back at most once
	for _, r := range reqs {
		var img *image.NRGBA
		switch {
		case r.layer == "":
			if frame == nil {
				frame = readImage(screen)
			}
			img = frame
		default:
			canvas := s.layerImage(r.layer)
			if canvas == nil {
				s.logger.Warn("screenshot: layer has no canvas", "layer", r.layer, "label", r.label)
				continue
			}
			img = readImage(canvas)
		}

		path := filepath.Join(s.ScreenshotDir, s.screenshotName(stamp, r))
		if err := writePNG(path, img); err != nil {
			s.logger.Error("screenshot", "error", err)
			continue
		}
		s.logger.Info("screenshot saved", "path", path, "layer", r.layer)
	}
}

// layerImage returns the canvas of the layer with the given id, or nil when
// the layer is unknown or has not drawn yet.
func (s *Scene) layerImage(id string) *ebiten.Image {
	for i, l := range s.layers {
		if l.ID() == id && s.canvases[i] != nil {
			return s.canvases[i].Image()
		}
	}
	return nil
}

// screenshotName builds <stamp>_<label>[_<layer>]_<fixed frame>_z<zoom>.png.
func (s *Scene) screenshotName(stamp string, r screenshotRequest) string {
	parts := []string{stamp, sanitizeLabel(r.label)}
	if r.layer != "" {
		parts = append(parts, sanitizeLabel(r.layer))
	}
	parts = append(parts,
		sanitizeLabel(s.ctx.Tree.FixedFrame()),
		"z"+strconv.FormatFloat(s.ctx.Projector.Zoom(), 'f', -1, 64))
	return strings.Join(parts, "_") + ".png"
}

func readImage(img *ebiten.Image) *image.NRGBA {
	b := img.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	img.ReadPixels(pixels)
	return unpremultiply(pixels, b.Dx(), b.Dy())
}

// unpremultiply converts premultiplied RGBA pixels to straight-alpha NRGBA.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := min(len(pixels), len(img.Pix))
	for i := 0; i+3 < n; i += 4 {
		a := pixels[i+3]
		img.Pix[i+3] = a
		for c := range 3 {
			v := pixels[i+c]
			if a > 0 && a < 255 {
				v = uint8(min(int(v)*255/int(a), 255))
			}
			img.Pix[i+c] = v
		}
	}
	return img
}

// writePNG encodes img next to path and renames it into place, so a
// partially written file never carries the final name.
func writePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".shot-*.png")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmp := f.Name()
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel keeps ASCII letters, digits, '-' and '.', maps everything
// else to '_', and names an empty label "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, label)
}
