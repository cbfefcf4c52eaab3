package vizmap

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	overlayRefresh = 30 // frames between text refreshes
	overlayMargin  = 4
	overlayLineH   = 16 // DebugPrint glyph height
	overlayCharW   = 6
)

// statusOverlay draws each layer's status in the top-left corner together
// with FPS and TPS. The text is rebuilt every overlayRefresh frames.
type statusOverlay struct {
	img    *ebiten.Image
	text   string
	frames int
}

func (o *statusOverlay) draw(screen *ebiten.Image, layers []Layer) {
	if o.frames%overlayRefresh == 0 || o.img == nil {
		o.text = statusText(layers, ebiten.ActualFPS(), ebiten.ActualTPS())
		lines := strings.Split(o.text, "\n")
		w, h := 0, len(lines)*overlayLineH
		for _, l := range lines {
			w = max(w, len(l)*overlayCharW)
		}
		if o.img == nil || o.img.Bounds().Dx() != w+2*overlayMargin || o.img.Bounds().Dy() != h+2*overlayMargin {
			if o.img != nil {
				o.img.Deallocate()
			}
			o.img = ebiten.NewImage(w+2*overlayMargin, h+2*overlayMargin)
		}
		o.img.Clear()
		// Semi-transparent background for readability
		o.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrintAt(o.img, o.text, overlayMargin, overlayMargin)
	}
	o.frames++

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(overlayMargin, overlayMargin)
	screen.DrawImage(o.img, &op)
}

// statusText renders one line per layer plus the frame rates.
func statusText(layers []Layer, fps, tps float64) string {
	var b strings.Builder
	for _, l := range layers {
		st := l.Status()
		fmt.Fprintf(&b, "[%s] %s: %s\n", st.Level, l.Name(), st.Message)
	}
	fmt.Fprintf(&b, "FPS: %.1f  TPS: %.1f", fps, tps)
	return b.String()
}
