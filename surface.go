package vizmap

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// Surface is the drawing target renderers write to. Coordinates are screen
// pixels with Y down. Polygons must be convex.
type Surface interface {
	Size() (w, h int)
	Clear()
	StrokeLine(x0, y0, x1, y1, width float64, c Color)
	FillPolygon(points []Vec2, c Color)
	FillEllipse(cx, cy, rx, ry, rotation float64, c Color)
	DrawText(s string, x, y, size float64, fill, outline Color, outlineWidth float64)
}

var (
	whiteOnce     sync.Once
	whiteSubImage *ebiten.Image
)

// whiteSource returns the solid source image sampled by DrawTriangles. The
// inner pixel of a 3x3 image is used so filtering never reads the border.
func whiteSource() *ebiten.Image {
	whiteOnce.Do(func() {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whiteSubImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	})
	return whiteSubImage
}

// LabelFont is the TrueType source used for frame labels.
type LabelFont struct {
	source *text.GoTextFaceSource
	faces  map[float64]*text.GoTextFace
}

// LoadLabelFont parses TTF/OTF data. Nil data selects Go Regular.
func LoadLabelFont(ttfData []byte) (*LabelFont, error) {
	if ttfData == nil {
		ttfData = goregular.TTF
	}
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("vizmap: failed to parse TTF data: %w", err)
	}
	return &LabelFont{source: source, faces: make(map[float64]*text.GoTextFace)}, nil
}

func (f *LabelFont) face(size float64) *text.GoTextFace {
	if face, ok := f.faces[size]; ok {
		return face
	}
	face := &text.GoTextFace{Source: f.source, Size: size}
	f.faces[size] = face
	return face
}

// EbitenSurface draws into an offscreen ebiten.Image using DrawTriangles
// with a solid white source, so each shape is one batched draw.
type EbitenSurface struct {
	img   *ebiten.Image
	font  *LabelFont
	verts []ebiten.Vertex
	inds  []uint16
}

var _ Surface = (*EbitenSurface)(nil)

// NewEbitenSurface allocates a w x h offscreen surface. font may be nil,
// in which case DrawText is a no-op.
func NewEbitenSurface(w, h int, font *LabelFont) *EbitenSurface {
	return &EbitenSurface{
		img:  ebiten.NewImage(max(w, 1), max(h, 1)),
		font: font,
	}
}

// Image returns the backing image for compositing.
func (s *EbitenSurface) Image() *ebiten.Image {
	return s.img
}

// Resize reallocates the backing image when the size changes. Idempotent.
func (s *EbitenSurface) Resize(w, h int) bool {
	w, h = max(w, 1), max(h, 1)
	b := s.img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return false
	}
	s.img.Deallocate()
	s.img = ebiten.NewImage(w, h)
	return true
}

// Size implements Surface.
func (s *EbitenSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear implements Surface.
func (s *EbitenSurface) Clear() {
	s.img.Clear()
}

// StrokeLine implements Surface.
func (s *EbitenSurface) StrokeLine(x0, y0, x1, y1, width float64, c Color) {
	if width <= 0 {
		return
	}
	s.FillPolygon(lineQuad(x0, y0, x1, y1, width), c)
}

// FillEllipse implements Surface.
func (s *EbitenSurface) FillEllipse(cx, cy, rx, ry, rotation float64, c Color) {
	if rx <= 0 || ry <= 0 {
		return
	}
	s.FillPolygon(ellipsePolygon(cx, cy, rx, ry, rotation, ellipseSegments), c)
}

// FillPolygon implements Surface.
func (s *EbitenSurface) FillPolygon(points []Vec2, c Color) {
	if len(points) < 3 {
		return
	}
	s.verts, s.inds = appendPolygon(s.verts[:0], s.inds[:0], points, c)
	s.img.DrawTriangles(s.verts, s.inds, whiteSource(), &ebiten.DrawTrianglesOptions{})
}

// DrawText implements Surface. The text is centred horizontally and
// vertically on (x, y); a positive outlineWidth draws a halo first.
func (s *EbitenSurface) DrawText(str string, x, y, size float64, fill, outline Color, outlineWidth float64) {
	if s.font == nil || str == "" || size <= 0 {
		return
	}
	face := s.font.face(size)
	draw := func(dx, dy float64, c Color) {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x+dx, y+dy)
		op.ColorScale.ScaleWithColor(c.RGBA())
		op.PrimaryAlign = text.AlignCenter
		op.SecondaryAlign = text.AlignCenter
		text.Draw(s.img, str, face, op)
	}
	if outlineWidth > 0 {
		r := outlineWidth / 2
		for _, d := range [8][2]float64{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}} {
			draw(d[0]*r, d[1]*r, outline)
		}
	}
	draw(0, 0, fill)
}

// appendPolygon triangulates a convex polygon as a fan around its first
// vertex and appends the result.
func appendPolygon(verts []ebiten.Vertex, inds []uint16, points []Vec2, c Color) ([]ebiten.Vertex, []uint16) {
	r, g, b, a := c.premultiplied()
	base := uint16(len(verts))
	for _, p := range points {
		verts = append(verts, ebiten.Vertex{
			DstX:   float32(p.X),
			DstY:   float32(p.Y),
			SrcX:   1,
			SrcY:   1,
			ColorR: r, ColorG: g, ColorB: b, ColorA: a,
		})
	}
	for i := 1; i < len(points)-1; i++ {
		inds = append(inds, base, base+uint16(i), base+uint16(i+1))
	}
	return verts, inds
}
