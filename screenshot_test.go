package vizmap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "unlabeled"},
		{"   ", "unlabeled"},
		{"centred", "centred"},
		{"zoom 2x", "zoom_2x"},
		{"a/b\\c", "a_b_c"},
		{"v1.2-rc", "v1.2-rc"},
		{"ünï", "_n_"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnpremultiply(t *testing.T) {
	pixels := []byte{
		128, 64, 0, 128, // half-transparent
		10, 20, 30, 255, // opaque
		0, 0, 0, 0, // clear
	}
	img := unpremultiply(pixels, 3, 1)
	want := []color.NRGBA{{255, 127, 0, 128}, {10, 20, 30, 255}, {0, 0, 0, 0}}
	for x, w := range want {
		if got := img.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 255})
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := writePNG(path, img); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(filepath.Dir(path)); len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b, _ := got.At(1, 1).RGBA(); r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("pixel = %v", got.At(1, 1))
	}
}

func TestWritePNGBadPath(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if err := writePNG(filepath.Join(t.TempDir(), "missing", "x.png"), img); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestScreenshotQueues(t *testing.T) {
	s := newTestScene(t, nil)
	s.Screenshot("a")
	s.ScreenshotLayer("tf-1", "b")
	want := []screenshotRequest{{label: "a"}, {label: "b", layer: "tf-1"}}
	if len(s.screenshotQueue) != len(want) || s.ScreenshotDir != "screenshots" {
		t.Fatalf("queue = %v, dir = %q", s.screenshotQueue, s.ScreenshotDir)
	}
	for i := range want {
		if s.screenshotQueue[i] != want[i] {
			t.Errorf("queue[%d] = %+v, want %+v", i, s.screenshotQueue[i], want[i])
		}
	}
}

func TestScreenshotNameRecordsView(t *testing.T) {
	ctx := testContext(nil)
	s := newTestScene(t, ctx)
	ctx.Tree.SetFixedFrame("/odom")
	ctx.Projector.SetZoom(62.5)

	if got := s.screenshotName("20260101_120000", screenshotRequest{label: "after drag"}); got != "20260101_120000_after_drag_odom_z62.5.png" {
		t.Errorf("frame name = %q", got)
	}
	got := s.screenshotName("20260101_120000", screenshotRequest{label: "tf", layer: "tf-1"})
	if got != "20260101_120000_tf_tf-1_odom_z62.5.png" {
		t.Errorf("layer name = %q", got)
	}
}

func TestScreenshotLayerImageBeforeDraw(t *testing.T) {
	ctx := testContext(nil)
	s := newTestScene(t, ctx)
	s.AddLayer(&stubLayer{id: "tf-1"})
	if s.layerImage("tf-1") != nil || s.layerImage("missing") != nil {
		t.Error("canvas reported before the layer was drawn")
	}
}

func TestScriptLayerScreenshot(t *testing.T) {
	s := newTestScene(t, nil)
	runner, err := LoadScript([]byte(`{"steps": [{"action": "screenshot", "label": "tf", "layer": "tf-1"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	runner.step(s)
	if len(s.screenshotQueue) != 1 || s.screenshotQueue[0] != (screenshotRequest{label: "tf", layer: "tf-1"}) {
		t.Errorf("queue = %+v", s.screenshotQueue)
	}
}
