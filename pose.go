package vizmap

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Message types consumed from the robot.
const (
	PoseMessageType = "geometry_msgs/PoseWithCovarianceStamped"
	TFMessageType   = "tf2_msgs/TFMessage"
)

// minCovarianceLen is the shortest covariance accepted: indices 0 and 7 hold
// the x and y variance.
const minCovarianceLen = 8

// Header carries the frame a message is expressed in.
type Header struct {
	FrameID string `json:"frame_id"`
}

// Vector3 is a point or translation.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec3 converts to mgl64.
func (v Vector3) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Quaternion is an orientation. All components zero means "no orientation".
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Quat converts to mgl64 without normalising.
func (q Quaternion) Quat() mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

// Degenerate reports the all-zero sentinel.
func (q Quaternion) Degenerate() bool {
	return isDegenerate(q.Quat())
}

// Pose is a position and orientation.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseWithCovariance pairs a pose with its row-major 6x6 covariance.
type PoseWithCovariance struct {
	Pose       Pose      `json:"pose"`
	Covariance []float64 `json:"covariance"`
}

// PoseMessage is a geometry_msgs/PoseWithCovarianceStamped.
type PoseMessage struct {
	Header Header             `json:"header"`
	Pose   PoseWithCovariance `json:"pose"`
}

// Validate checks the fields the tracker relies on.
func (m *PoseMessage) Validate() error {
	if NormalizeFrameID(m.Header.FrameID) == "" {
		return invalidMessagef("pose: empty header.frame_id")
	}
	if len(m.Pose.Covariance) < minCovarianceLen {
		return invalidMessagef("pose: covariance has %d entries, need at least %d",
			len(m.Pose.Covariance), minCovarianceLen)
	}
	if err := checkFinite("pose.position", m.Pose.Pose.Position.Vec3()); err != nil {
		return err
	}
	q := m.Pose.Pose.Orientation
	if !finite(q.X) || !finite(q.Y) || !finite(q.Z) || !finite(q.W) {
		return invalidMessagef("pose.orientation is not finite")
	}
	return nil
}

// DecodePoseMessage parses and validates a pose message.
func DecodePoseMessage(raw []byte) (PoseMessage, error) {
	var m PoseMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return PoseMessage{}, fmt.Errorf("%w: pose: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return PoseMessage{}, err
	}
	return m, nil
}

// TransformStamped is one parent→child transform.
type TransformStamped struct {
	Header       Header `json:"header"`
	ChildFrameID string `json:"child_frame_id"`
	Transform    struct {
		Translation Vector3    `json:"translation"`
		Rotation    Quaternion `json:"rotation"`
	} `json:"transform"`
}

// TFMessage is a tf2_msgs/TFMessage.
type TFMessage struct {
	Transforms []TransformStamped `json:"transforms"`
}

// Frames converts the message into frame tree entries. Entries with a
// non-finite translation are dropped and reported; the rest are returned.
func (m *TFMessage) Frames() ([]Frame, error) {
	frames := make([]Frame, 0, len(m.Transforms))
	var firstErr error
	for i, ts := range m.Transforms {
		tr := ts.Transform.Translation.Vec3()
		if err := checkFinite(fmt.Sprintf("transforms[%d].translation", i), tr); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		frames = append(frames, Frame{
			ID:       ts.ChildFrameID,
			Parent:   ts.Header.FrameID,
			Relative: NewTransform(tr, ts.Transform.Rotation.Quat()),
		})
	}
	return frames, firstErr
}

// DecodeTFMessage parses a transform batch. Per-entry problems are left to
// Frames and FrameTree.Apply so one bad entry does not discard the batch.
func DecodeTFMessage(raw []byte) (TFMessage, error) {
	var m TFMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return TFMessage{}, fmt.Errorf("%w: tf: %v", ErrInvalidMessage, err)
	}
	return m, nil
}

func checkFinite(field string, v mgl64.Vec3) error {
	for _, c := range v {
		if !finite(c) {
			return invalidMessagef("%s is not finite", field)
		}
	}
	return nil
}

// PoseEstimate is the latest pose resolved into the fixed frame. It is
// replaced wholesale on every accepted message.
type PoseEstimate struct {
	Frame           string // fixed frame at the time of resolution
	X, Y            float64
	Yaw             float64
	RotationInvalid bool
	Covariance      []float64
}

// Variances returns the x and y variance (covariance indices 0 and 7), or
// zeros when the covariance is too short.
func (e PoseEstimate) Variances() (vx, vy float64) {
	if len(e.Covariance) < minCovarianceLen {
		return 0, 0
	}
	return e.Covariance[0], e.Covariance[7]
}
