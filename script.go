package vizmap

import (
	"encoding/json"
	"fmt"

	"github.com/tanema/gween/ease"
)

// scriptStep is a single action in a view script.
type scriptStep struct {
	Action   string  `json:"action"`
	Label    string  `json:"label,omitempty"`
	Layer    string  `json:"layer,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	FromX    float64 `json:"fromX,omitempty"`
	FromY    float64 `json:"fromY,omitempty"`
	ToX      float64 `json:"toX,omitempty"`
	ToY      float64 `json:"toY,omitempty"`
	Zoom     float64 `json:"zoom,omitempty"`
	Notches  float64 `json:"notches,omitempty"`
	Duration float32 `json:"duration,omitempty"`
	Frames   int     `json:"frames,omitempty"`
}

// script is the top-level JSON structure of a view script.
type script struct {
	Steps []scriptStep `json:"steps"`
}

var scriptActions = map[string]bool{
	"screenshot": true,
	"drag":       true,
	"wheel":      true,
	"zoom":       true,
	"center":     true,
	"wait":       true,
	"quit":       true,
}

// ScriptRunner sequences view changes and screenshots across frames for
// automated visual checks. Attach it with Scene.SetScript.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON view script.
//
//	{"steps": [
//	  {"action": "zoom", "zoom": 80},
//	  {"action": "center", "x": 1, "y": 2, "duration": 0.5},
//	  {"action": "wait", "frames": 40},
//	  {"action": "screenshot", "label": "centred"},
//	  {"action": "screenshot", "label": "tf-only", "layer": "tf"},
//	  {"action": "quit"}
//	]}
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var sc script
	if err := json.Unmarshal(jsonData, &sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range sc.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{steps: sc.Steps}, nil
}

// SetScript attaches a script; its steps run from Scene.Update.
func (s *Scene) SetScript(runner *ScriptRunner) {
	s.script = runner
}

// Done reports whether every step has run.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// step advances the runner by one frame.
func (r *ScriptRunner) step(s *Scene) {
	if r.done {
		return
	}
	// Wait for injected input and scroll animation to finish.
	if len(s.injectQueue) > 0 || s.ctx.Projector.Scrolling() {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	p := s.ctx.Projector
	switch st.Action {
	case "screenshot":
		if st.Layer != "" {
			s.ScreenshotLayer(st.Layer, st.Label)
		} else {
			s.Screenshot(st.Label)
		}
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wheel":
		s.InjectWheel(st.X, st.Y, st.Notches)
	case "zoom":
		p.SetZoom(st.Zoom)
	case "center":
		p.ScrollTo(st.X, st.Y, st.Duration, ease.InOutQuad)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "quit":
		s.Quit()
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}
