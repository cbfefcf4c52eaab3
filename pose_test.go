package vizmap

import (
	"errors"
	"math"
	"testing"
)

func TestDecodePoseMessage(t *testing.T) {
	raw := []byte(`{
		"header": {"frame_id": "/odom"},
		"pose": {
			"pose": {"position": {"x": 1, "y": 2}, "orientation": {"w": 1}},
			"covariance": [0.04,0,0,0,0,0, 0,0.09,0,0,0,0]
		}
	}`)
	msg, err := DecodePoseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Header.FrameID != "/odom" || msg.Pose.Pose.Position.X != 1 || msg.Pose.Covariance[7] != 0.09 {
		t.Errorf("decoded %+v", msg)
	}
}

func TestDecodePoseMessageRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `{"header":`},
		{"empty frame", `{"header":{"frame_id":"/"},"pose":{"covariance":[0,0,0,0,0,0,0,0]}}`},
		{"short covariance", `{"header":{"frame_id":"map"},"pose":{"covariance":[1,2,3]}}`},
		{"missing covariance", `{"header":{"frame_id":"map"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePoseMessage([]byte(tt.raw)); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("err = %v, want ErrInvalidMessage", err)
			}
		})
	}
}

func TestPoseMessageValidateNonFinite(t *testing.T) {
	msg := poseMessage("map", 0, 0, 0)
	msg.Pose.Pose.Position.Y = math.Inf(1)
	if err := msg.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("position: err = %v", err)
	}
	msg = poseMessage("map", 0, 0, 0)
	msg.Pose.Pose.Orientation.W = math.NaN()
	if err := msg.Validate(); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("orientation: err = %v", err)
	}
}

func TestQuaternionDegenerate(t *testing.T) {
	if !(Quaternion{}).Degenerate() {
		t.Error("zero quaternion not degenerate")
	}
	if (Quaternion{W: 1}).Degenerate() {
		t.Error("identity reported degenerate")
	}
}

func TestPoseEstimateVariances(t *testing.T) {
	vx, vy := PoseEstimate{Covariance: covariance(0.5, 0.25)}.Variances()
	if vx != 0.5 || vy != 0.25 {
		t.Errorf("Variances = %v, %v", vx, vy)
	}
	vx, vy = PoseEstimate{Covariance: []float64{1}}.Variances()
	if vx != 0 || vy != 0 {
		t.Errorf("short covariance Variances = %v, %v", vx, vy)
	}
}
