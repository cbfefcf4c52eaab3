package vizmap

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/phanxgames/vizmap/settings"
)

// visibilityWarnSize is the entry count past which the set logs a one-time
// warning. Entries are never pruned, so long sessions with many ephemeral
// frames keep growing.
const visibilityWarnSize = 1000

// FrameToggle is one row of the operator-facing frame list.
type FrameToggle struct {
	ID      string
	Visible bool
}

// FrameVisibilitySet tracks which frames are drawn. Every id ever seen gets
// an entry (default visible) that is never removed. Mutations are written to
// the settings store immediately.
type FrameVisibilitySet struct {
	store   settings.Store
	key     string
	logger  *slog.Logger
	visible map[string]bool
	warned  bool
}

// NewFrameVisibilitySet loads the set stored under key. Missing, partial or
// unreadable data is tolerated: the set starts empty and every frame
// defaults to visible when first tracked. A nil store keeps the set in
// memory only.
func NewFrameVisibilitySet(store settings.Store, key string, logger *slog.Logger) *FrameVisibilitySet {
	if logger == nil {
		logger = discardLogger()
	}
	v := &FrameVisibilitySet{
		store:   store,
		key:     key,
		logger:  logger,
		visible: make(map[string]bool),
	}
	if store == nil {
		return v
	}
	// Entries are decoded one by one so a single bad value does not discard
	// the operator's other choices.
	var loaded map[string]json.RawMessage
	if _, err := settings.LoadJSON(store, key, &loaded); err != nil {
		logger.Warn("frame visibility unreadable, defaulting to visible", "key", key, "error", err)
		return v
	}
	skipped := 0
	for id, raw := range loaded {
		var shown *bool
		if id == "" || json.Unmarshal(raw, &shown) != nil || shown == nil {
			skipped++
			continue
		}
		v.visible[id] = *shown
	}
	if skipped > 0 {
		logger.Warn("skipped unreadable frame visibility entries", "key", key, "skipped", skipped)
	}
	return v
}

// EnsureTracked inserts id as visible when absent and reports whether it
// inserted. Calling it again for the same id is a no-op.
func (v *FrameVisibilitySet) EnsureTracked(id string) bool {
	if !v.track(id) {
		return false
	}
	v.persist()
	return true
}

// Track ensures every child and parent in relative has an entry and returns
// how many were new. The store is written once per call.
func (v *FrameVisibilitySet) Track(relative map[string]Frame) int {
	added := 0
	for id, f := range relative {
		if v.track(id) {
			added++
		}
		if f.Parent != "" && v.track(f.Parent) {
			added++
		}
	}
	if added > 0 {
		v.persist()
	}
	return added
}

func (v *FrameVisibilitySet) track(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := v.visible[id]; ok {
		return false
	}
	v.visible[id] = true
	if !v.warned && len(v.visible) > visibilityWarnSize {
		v.warned = true
		v.logger.Warn("frame visibility set is large; entries are never pruned",
			"entries", len(v.visible), "threshold", visibilityWarnSize)
	}
	return true
}

// SetVisible shows or hides a frame and persists the change.
func (v *FrameVisibilitySet) SetVisible(id string, visible bool) {
	if id == "" {
		return
	}
	if cur, ok := v.visible[id]; ok && cur == visible {
		return
	}
	v.visible[id] = visible
	v.persist()
}

// IsVisible reports whether id is tracked and shown.
func (v *FrameVisibilitySet) IsVisible(id string) bool {
	return v.visible[id]
}

// Len returns the number of tracked ids.
func (v *FrameVisibilitySet) Len() int {
	return len(v.visible)
}

// Filter returns the parts of snapshot whose ids are marked visible. Values
// are passed through unchanged.
func (v *FrameVisibilitySet) Filter(snapshot FrameSnapshot) FrameSnapshot {
	return FrameSnapshot{
		Relative: FilterVisible(v, snapshot.Relative),
		Absolute: FilterVisible(v, snapshot.Absolute),
	}
}

// FilterVisible returns the entries of m whose keys are marked visible.
func FilterVisible[V any](v *FrameVisibilitySet, m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for id, val := range m {
		if v.visible[id] {
			out[id] = val
		}
	}
	return out
}

// Toggles tracks relative and lists every child and parent id it
// references, including roots that never received a transform. The list is
// de-duplicated and sorted by id.
func (v *FrameVisibilitySet) Toggles(relative map[string]Frame) []FrameToggle {
	v.Track(relative)
	ids := frameIDs(relative)
	out := make([]FrameToggle, len(ids))
	for i, id := range ids {
		out[i] = FrameToggle{ID: id, Visible: v.visible[id]}
	}
	return out
}

// Snapshot returns a copy of the visibility map.
func (v *FrameVisibilitySet) Snapshot() map[string]bool {
	out := make(map[string]bool, len(v.visible))
	for id, shown := range v.visible {
		out[id] = shown
	}
	return out
}

// IDs returns every tracked id, sorted.
func (v *FrameVisibilitySet) IDs() []string {
	ids := make([]string, 0, len(v.visible))
	for id := range v.visible {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (v *FrameVisibilitySet) persist() {
	if v.store == nil {
		return
	}
	if err := settings.SaveJSON(v.store, v.key, v.visible); err != nil {
		v.logger.Warn("persist frame visibility", "key", v.key, "error", err)
	}
}
