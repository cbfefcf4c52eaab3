package cmd

import (
	"context"
	"math"
	"time"

	"github.com/phanxgames/vizmap"
)

const (
	demoRate      = 50 * time.Millisecond
	demoPoseTopic = "/amcl_pose"
	demoRadius    = 3.0 // metres
	demoSpeed     = 0.3 // rad/s around the loop
)

// demoSource publishes a robot driving a loop around the odom origin, with
// a laser on top and an uncertain pose estimate. It stands in for rosbridge
// in --demo mode.
type demoSource struct {
	*vizmap.Loopback
	rate time.Duration
}

func newDemoSource(rate time.Duration) *demoSource {
	return &demoSource{Loopback: vizmap.NewLoopback(), rate: rate}
}

// Run publishes until ctx is done.
func (d *demoSource) Run(ctx context.Context) {
	ticker := time.NewTicker(d.rate)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.publishAt(now.Sub(start).Seconds())
		}
	}
}

// publishAt sends one round of messages for time t seconds into the run.
func (d *demoSource) publishAt(t float64) {
	_, _ = d.Publish("/tf", demoDynamicTF(t))
	_, _ = d.Publish("/tf_static", demoStaticTF())
	_, _ = d.Publish(demoPoseTopic, demoPose(t))
}

// demoRobot returns the robot's odom-frame pose at time t.
func demoRobot(t float64) (x, y, yaw float64) {
	a := demoSpeed * t
	return demoRadius * math.Cos(a), demoRadius * math.Sin(a), a + math.Pi/2
}

func demoStamped(parent, child string, x, y, yaw float64) vizmap.TransformStamped {
	var ts vizmap.TransformStamped
	ts.Header.FrameID = parent
	ts.ChildFrameID = child
	ts.Transform.Translation = vizmap.Vector3{X: x, Y: y}
	ts.Transform.Rotation = yawQuaternion(yaw)
	return ts
}

func demoDynamicTF(t float64) vizmap.TFMessage {
	x, y, yaw := demoRobot(t)
	return vizmap.TFMessage{Transforms: []vizmap.TransformStamped{
		demoStamped("map", "odom", 1, 0.5, 0.1),
		demoStamped("odom", "base_link", x, y, yaw),
	}}
}

func demoStaticTF() vizmap.TFMessage {
	return vizmap.TFMessage{Transforms: []vizmap.TransformStamped{
		demoStamped("base_link", "laser", 0.2, 0, 0),
		demoStamped("base_link", "imu_link", -0.1, 0.05, 0),
	}}
}

// demoPose is the estimate in odom with a covariance that breathes over
// time so the ellipse visibly changes.
func demoPose(t float64) vizmap.PoseMessage {
	x, y, yaw := demoRobot(t)
	cov := make([]float64, 36)
	cov[0] = 0.04 + 0.03*math.Sin(t)
	cov[7] = 0.09 + 0.03*math.Cos(t)
	cov[35] = 0.02
	return vizmap.PoseMessage{
		Header: vizmap.Header{FrameID: "odom"},
		Pose: vizmap.PoseWithCovariance{
			Pose: vizmap.Pose{
				Position:    vizmap.Vector3{X: x, Y: y},
				Orientation: yawQuaternion(yaw),
			},
			Covariance: cov,
		},
	}
}

func yawQuaternion(yaw float64) vizmap.Quaternion {
	return vizmap.Quaternion{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}
