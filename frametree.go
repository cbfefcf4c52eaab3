package vizmap

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Frame is a named coordinate frame and its pose in its parent.
type Frame struct {
	ID       string
	Parent   string // empty for a root
	Relative Transform
}

// FrameSnapshot is a read-only view of the tree at one instant: relative
// transforms keyed by child id and absolute poses keyed by frame id.
type FrameSnapshot struct {
	Relative map[string]Frame
	Absolute map[string]Transform
}

// TransformOracle resolves frames against the fixed frame. Renderers and
// trackers consume it read-only.
type TransformOracle interface {
	// FixedFrame returns the id all absolute poses are expressed in.
	FixedFrame() string
	// Relative returns every known parent-relative transform. The returned
	// map MUST NOT be mutated.
	Relative() map[string]Frame
	// Absolute returns every frame resolvable to the fixed frame. Unresolved
	// frames are absent. The returned map MUST NOT be mutated.
	Absolute() map[string]Transform
	// TransformPose re-expresses a pose given in source into target.
	TransformPose(source, target string, position mgl64.Vec3, rotation mgl64.Quat) (Transform, error)
}

// FrameTree is the in-process transform oracle. It stores the latest
// relative transform per child and lazily resolves absolute poses, caching
// the result until the next mutation or fixed-frame change.
type FrameTree struct {
	bus    *Bus
	logger *slog.Logger

	fixed    string
	frames   map[string]Frame
	absolute map[string]Transform
	dirty    bool
}

var _ TransformOracle = (*FrameTree)(nil)

// NewFrameTree creates an empty tree with the given fixed frame. Mutations
// publish TopologyChanged on bus when bus is non-nil.
func NewFrameTree(fixedFrame string, bus *Bus, logger *slog.Logger) *FrameTree {
	if logger == nil {
		logger = discardLogger()
	}
	return &FrameTree{
		bus:      bus,
		logger:   logger,
		fixed:    NormalizeFrameID(fixedFrame),
		frames:   make(map[string]Frame),
		absolute: make(map[string]Transform),
		dirty:    true,
	}
}

// NormalizeFrameID strips the leading slash some producers still send.
func NormalizeFrameID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "/")
}

// FixedFrame returns the current fixed frame id.
func (t *FrameTree) FixedFrame() string {
	return t.fixed
}

// SetFixedFrame changes the reference frame and invalidates every cached
// absolute pose.
func (t *FrameTree) SetFixedFrame(id string) {
	id = NormalizeFrameID(id)
	if id == t.fixed {
		return
	}
	t.logger.Info("fixed frame changed", "from", t.fixed, "to", id)
	t.fixed = id
	t.dirty = true
	t.publish(true)
}

// SetTransform records child's pose in parent.
func (t *FrameTree) SetTransform(child, parent string, relative Transform) error {
	return t.Apply([]Frame{{ID: child, Parent: parent, Relative: relative}})
}

// Apply records a batch of relative transforms and publishes a single
// TopologyChanged for the whole batch. Invalid entries are skipped and
// reported in the returned error; valid ones are still applied.
func (t *FrameTree) Apply(frames []Frame) error {
	var bad []string
	applied := 0
	for _, f := range frames {
		f.ID = NormalizeFrameID(f.ID)
		f.Parent = NormalizeFrameID(f.Parent)
		switch {
		case f.ID == "":
			bad = append(bad, "empty child frame id")
			continue
		case f.ID == f.Parent:
			bad = append(bad, fmt.Sprintf("frame %q is its own parent", f.ID))
			continue
		}
		f.Relative = NewTransform(f.Relative.Translation, f.Relative.Rotation)
		t.frames[f.ID] = f
		applied++
	}
	if applied > 0 {
		t.dirty = true
		t.publish(false)
	}
	if len(bad) > 0 {
		return invalidMessagef("%s", strings.Join(bad, "; "))
	}
	return nil
}

// Remove deletes the relative transforms for the given children.
func (t *FrameTree) Remove(ids ...string) {
	removed := false
	for _, id := range ids {
		id = NormalizeFrameID(id)
		if _, ok := t.frames[id]; ok {
			delete(t.frames, id)
			removed = true
		}
	}
	if removed {
		t.dirty = true
		t.publish(false)
	}
}

// Relative returns the relative transforms keyed by child id.
func (t *FrameTree) Relative() map[string]Frame {
	return t.frames
}

// Absolute returns the poses resolvable to the fixed frame.
func (t *FrameTree) Absolute() map[string]Transform {
	if t.dirty {
		t.absolute = resolveAbsolute(t.frames, t.fixed)
		t.dirty = false
	}
	return t.absolute
}

// Resolved returns a single frame's absolute pose.
func (t *FrameTree) Resolved(id string) (Transform, bool) {
	tf, ok := t.Absolute()[NormalizeFrameID(id)]
	return tf, ok
}

// Snapshot returns the current relative and absolute maps together.
func (t *FrameTree) Snapshot() FrameSnapshot {
	return FrameSnapshot{Relative: t.Relative(), Absolute: t.Absolute()}
}

// FrameIDs returns every child and parent id referenced by the tree,
// de-duplicated and sorted.
func (t *FrameTree) FrameIDs() []string {
	return frameIDs(t.frames)
}

// TransformPose re-expresses a pose given in source into target. Both
// frames must be resolved against the fixed frame.
func (t *FrameTree) TransformPose(source, target string, position mgl64.Vec3, rotation mgl64.Quat) (Transform, error) {
	abs := t.Absolute()
	src, ok := abs[NormalizeFrameID(source)]
	if !ok {
		return Transform{}, &UnresolvedFrameError{Frame: source}
	}
	dst, ok := abs[NormalizeFrameID(target)]
	if !ok {
		return Transform{}, &UnresolvedFrameError{Frame: target}
	}
	pose := NewTransform(position, rotation)
	return dst.Inverse().Compose(src.Compose(pose)), nil
}

func (t *FrameTree) publish(fixedChanged bool) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(TopologyChanged{FixedFrame: t.fixed, FixedFrameChanged: fixedChanged})
}

// frameIDs collects the union of child and parent ids.
func frameIDs(frames map[string]Frame) []string {
	seen := make(map[string]struct{}, len(frames)*2)
	for id, f := range frames {
		seen[id] = struct{}{}
		if f.Parent != "" {
			seen[f.Parent] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

const (
	visitNone uint8 = iota
	visitActive
	visitDone
	visitCyclic
)

// resolveAbsolute computes every frame's pose in the fixed frame. Each frame
// is first expressed in the root of its own tree; frames sharing the fixed
// frame's root are then re-based with inverse(fixedInRoot). Frames on or
// below a cycle never reach a root and stay unresolved.
func resolveAbsolute(frames map[string]Frame, fixed string) map[string]Transform {
	out := make(map[string]Transform)
	if fixed == "" {
		return out
	}

	inRoot := make(map[string]Transform, len(frames))
	rootOf := make(map[string]string, len(frames))
	state := make(map[string]uint8, len(frames))

	var walk func(id string) bool
	walk = func(id string) bool {
		switch state[id] {
		case visitDone:
			return true
		case visitActive, visitCyclic:
			return false
		}
		f, ok := frames[id]
		if !ok || f.Parent == "" {
			state[id] = visitDone
			rootOf[id] = id
			inRoot[id] = IdentityTransform()
			return true
		}
		state[id] = visitActive
		if !walk(f.Parent) {
			state[id] = visitCyclic
			return false
		}
		inRoot[id] = inRoot[f.Parent].Compose(f.Relative)
		rootOf[id] = rootOf[f.Parent]
		state[id] = visitDone
		return true
	}

	ids := frameIDs(frames)
	known := false
	for _, id := range ids {
		if id == fixed {
			known = true
			break
		}
	}
	if !known || !walk(fixed) {
		return out
	}

	root := rootOf[fixed]
	base := inRoot[fixed].Inverse()
	for _, id := range ids {
		if !walk(id) || rootOf[id] != root {
			continue
		}
		out[id] = base.Compose(inRoot[id])
	}
	return out
}
