package vizmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Subscriber delivers raw JSON messages published on a topic. Handlers may
// be called from any goroutine. The returned cancel func stops delivery and
// is safe to call more than once. rosbridge.Client implements it.
type Subscriber interface {
	Subscribe(topic, msgType string, handler func(json.RawMessage)) (cancel func(), err error)
}

// Dispatcher runs fn on the goroutine that owns core state. Scene.Post is
// the production dispatcher; a nil Dispatcher runs fn inline.
type Dispatcher func(fn func())

func (d Dispatcher) run(fn func()) {
	if d == nil {
		fn()
		return
	}
	d(fn)
}

// TrackerState is the PoseTracker lifecycle state.
type TrackerState uint8

const (
	Disconnected TrackerState = iota // no subscription
	AwaitingData                     // subscribed, nothing resolved yet
	Degraded                         // last message's frame was unresolved
	Nominal                          // last message resolved and displayed
)

func (s TrackerState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AwaitingData:
		return "awaiting-data"
	case Degraded:
		return "degraded"
	case Nominal:
		return "nominal"
	}
	return fmt.Sprintf("TrackerState(%d)", uint8(s))
}

// Status messages shown by the pose tracker.
const (
	msgEmptyTopic      = "Empty topic."
	msgNoData          = "No data received."
	msgFrameNotFound   = "Required transform frame not found."
	msgSubscribeFailed = "Subscribe failed."
	msgNotSubscribed   = "Not subscribed."
)

// PoseTrackerConfig configures NewPoseTracker.
type PoseTrackerConfig struct {
	ID         string          // widget id, used as DataReceived.Source
	Oracle     TransformOracle // resolves message frames into the fixed frame
	Subscriber Subscriber
	Dispatch   Dispatcher
	Bus        *Bus         // optional; receives DataReceived
	Logger     *slog.Logger // nil discards
	OnUpdate   func()       // called after each accepted message
}

// PoseTracker follows one pose topic and keeps the latest estimate
// resolved into the fixed frame. At most one subscription is active; every
// subscribe or unsubscribe bumps a generation counter, and messages tagged
// with an older generation are dropped on delivery.
type PoseTracker struct {
	cfg    PoseTrackerConfig
	logger *slog.Logger

	topic      string
	state      TrackerState
	status     Status
	generation uint64
	cancel     func()

	estimate    PoseEstimate
	hasEstimate bool
	noticed     bool // degenerate orientation logged this subscription
}

// NewPoseTracker creates a disconnected tracker.
func NewPoseTracker(cfg PoseTrackerConfig) *PoseTracker {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &PoseTracker{
		cfg:    cfg,
		logger: logger,
		state:  Disconnected,
		status: statusWarn(msgNotSubscribed),
	}
}

// Subscribe tears down any current subscription and follows topic. Choosing
// a different topic discards the current estimate. An empty topic is a
// configuration error: the tracker stays disconnected and reports it.
func (t *PoseTracker) Subscribe(topic string) error {
	topic = strings.TrimSpace(topic)
	t.Unsubscribe()

	if topic != t.topic {
		t.estimate, t.hasEstimate = PoseEstimate{}, false
	}
	t.topic = topic
	if topic == "" {
		t.status = statusError(msgEmptyTopic)
		return configErrorf("pose tracker %s: empty topic", t.cfg.ID)
	}
	if t.cfg.Subscriber == nil {
		t.status = statusError(msgSubscribeFailed)
		return configErrorf("pose tracker %s: no subscriber", t.cfg.ID)
	}

	gen := t.generation
	cancel, err := t.cfg.Subscriber.Subscribe(topic, PoseMessageType, func(raw json.RawMessage) {
		t.cfg.Dispatch.run(func() { t.Deliver(gen, raw) })
	})
	if err != nil {
		t.status = statusError(msgSubscribeFailed)
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	t.cancel = cancel
	t.noticed = false
	t.state = AwaitingData
	t.status = statusWarn(msgNoData)
	t.logger.Info("pose subscription started", "topic", topic, "generation", gen)
	return nil
}

// Unsubscribe stops delivery and invalidates in-flight messages. The last
// estimate is kept so a resubscribe to the same topic shows it meanwhile.
func (t *PoseTracker) Unsubscribe() {
	t.generation++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
		t.logger.Info("pose subscription stopped", "topic", t.topic)
	}
	t.state = Disconnected
	t.status = statusWarn(msgNotSubscribed)
}

// Close releases the subscription.
func (t *PoseTracker) Close() {
	t.Unsubscribe()
}

// Generation returns the current subscription generation.
func (t *PoseTracker) Generation() uint64 {
	return t.generation
}

// Topic returns the followed topic.
func (t *PoseTracker) Topic() string {
	return t.topic
}

// State returns the lifecycle state.
func (t *PoseTracker) State() TrackerState {
	return t.state
}

// Status returns the indicator for the status overlay.
func (t *PoseTracker) Status() Status {
	return t.status
}

// Estimate returns the latest resolved pose.
func (t *PoseTracker) Estimate() (PoseEstimate, bool) {
	return t.estimate, t.hasEstimate
}

// Deliver handles one raw message tagged with the generation it was
// subscribed under and reports whether the estimate changed. It must run on
// the goroutine that owns the tracker.
func (t *PoseTracker) Deliver(generation uint64, raw []byte) bool {
	if generation != t.generation {
		t.logger.Debug("dropping stale pose message",
			"generation", generation, "current", t.generation)
		return false
	}
	msg, err := DecodePoseMessage(raw)
	if err != nil {
		t.logger.Warn("rejecting pose message", "topic", t.topic, "error", err)
		return false
	}
	return t.apply(msg)
}

func (t *PoseTracker) apply(msg PoseMessage) bool {
	source := NormalizeFrameID(msg.Header.FrameID)
	fixed := t.cfg.Oracle.FixedFrame()

	rotation := msg.Pose.Pose.Orientation.Quat()
	invalid := msg.Pose.Pose.Orientation.Degenerate()
	if invalid {
		rotation = mgl64.QuatIdent()
		if !t.noticed {
			t.noticed = true
			t.logger.Info("pose has no orientation, using identity",
				"topic", t.topic, "error", ErrDegenerateOrientation)
		}
	}

	resolved, err := t.cfg.Oracle.TransformPose(source, fixed, msg.Pose.Pose.Position.Vec3(), rotation)
	if err != nil {
		if !errors.Is(err, ErrUnresolvedFrame) {
			t.logger.Warn("transform pose", "topic", t.topic, "error", err)
		}
		t.state = Degraded
		t.status = statusWarn(msgFrameNotFound)
		return false
	}

	cov := make([]float64, len(msg.Pose.Covariance))
	copy(cov, msg.Pose.Covariance)
	t.estimate = PoseEstimate{
		Frame:           fixed,
		X:               resolved.Translation[0],
		Y:               resolved.Translation[1],
		Yaw:             resolved.Yaw(),
		RotationInvalid: invalid,
		Covariance:      cov,
	}
	t.hasEstimate = true
	t.state = Nominal
	t.status = statusOK()

	if t.cfg.Bus != nil {
		t.cfg.Bus.Publish(DataReceived{Source: t.cfg.ID, Stream: t.topic})
	}
	if t.cfg.OnUpdate != nil {
		t.cfg.OnUpdate()
	}
	return true
}
