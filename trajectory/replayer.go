package trajectory

import (
	"github.com/pthm-cable/swarm/hex"
)

// Replayer plays a trajectory back through a transform, linearly
// interpolating between samples so the output stays smooth at any speed.
type Replayer struct {
	Transform *PointTransform

	traj           *Trajectory
	timeMultiplier float64
	idx            int
	elapsed        float64
}

// NewReplayer wraps a trajectory and transform. timeMultiplier scales
// playback speed: 2 replays twice as fast as recorded.
func NewReplayer(traj *Trajectory, transform *PointTransform, timeMultiplier float64) *Replayer {
	if timeMultiplier <= 0 {
		timeMultiplier = 1
	}
	return &Replayer{
		Transform:      transform,
		traj:           traj,
		timeMultiplier: timeMultiplier,
	}
}

// Step returns the current playback point and then advances elapsed time by
// delta (scaled by the time multiplier). After the trajectory has finished
// it keeps returning the transformed last sample.
func (r *Replayer) Step(delta float64) (hex.Vec, error) {
	for !r.HasFinished() && r.elapsed >= r.next().Timestamp {
		r.idx++
	}

	if r.HasFinished() {
		return r.Transform.Apply(r.current().Pos)
	}

	cur := r.current()
	next := r.next()
	span := next.Timestamp - cur.Timestamp
	spent := r.elapsed - cur.Timestamp

	r.elapsed += delta * r.timeMultiplier

	from, err := r.Transform.Apply(cur.Pos)
	if err != nil {
		return hex.Vec{}, err
	}
	to, err := r.Transform.Apply(next.Pos)
	if err != nil {
		return hex.Vec{}, err
	}
	return hex.Lerp(from, to, spent/span), nil
}

// Duration returns how long the replay takes at the configured speed.
func (r *Replayer) Duration() float64 {
	return r.traj.Points[len(r.traj.Points)-1].Timestamp / r.timeMultiplier
}

// HasFinished reports whether playback has reached the last sample.
func (r *Replayer) HasFinished() bool {
	return r.idx == len(r.traj.Points)-1
}

func (r *Replayer) current() Point { return r.traj.Points[r.idx] }

func (r *Replayer) next() Point { return r.traj.Points[r.idx+1] }

// Options tunes Generator.SetTrajectory.
type Options struct {
	// TimeMultiplier sets playback speed directly. When zero, it is
	// derived from Duration.
	TimeMultiplier float64

	// Duration is the requested replay length in seconds, used when
	// TimeMultiplier is zero. When both are zero the recording plays at
	// its original speed.
	Duration float64

	// OriginSpeedMultiplier and TargetSpeedMultiplier scale the two drift
	// speeds. Zero means 1.
	OriginSpeedMultiplier float64
	TargetSpeedMultiplier float64
}

// Generator produces arena trajectories between two arbitrary points from
// recordings that run origin-to-vertex. One generator is reused across many
// replays; SetTrajectory rearms it.
type Generator struct {
	radius   float64
	vertices []hex.Vec

	replayer *Replayer
	updaters []Updater
}

// NewGenerator builds a generator for an arena. The radius is passed
// separately because vertex coordinates are truncated and do not recover it
// exactly.
func NewGenerator(radius float64, vertices []hex.Vec) *Generator {
	return &Generator{radius: radius, vertices: vertices}
}

// SetTrajectory arms a replay from start to end. The recording is rotated
// so its target vertex matches the vertex closest to end, and two drift
// transforms run during playback: the polygon center slides from start to
// the origin, and the chosen target vertex slides to end, so the first
// sample lands on start and the last on end.
func (g *Generator) SetTrajectory(start, end hex.Vec, traj *Trajectory, opts Options) {
	closest, _ := hex.Sector(end, g.vertices)

	timeMultiplier := opts.TimeMultiplier
	if timeMultiplier <= 0 && opts.Duration > 0 {
		timeMultiplier = FactorForDuration(opts.Duration, traj)
	}

	transform := TransformToVertex(closest, traj.OriginalTarget, g.vertices, start, g.radius)
	g.replayer = NewReplayer(traj, transform, timeMultiplier)

	originMult := opts.OriginSpeedMultiplier
	if originMult <= 0 {
		originMult = 1
	}
	targetMult := opts.TargetSpeedMultiplier
	if targetMult <= 0 {
		targetMult = 1
	}

	replayDuration := g.replayer.Duration()
	g.updaters = []Updater{
		centerToOrigin{speed: originMult * start.Norm() / replayDuration},
		vertexToTarget{
			speed:  targetMult * end.Dist(g.vertices[closest]) / replayDuration,
			target: end,
			idx:    closest,
		},
	}
}

// Step returns the next playback point and advances the drift transforms.
func (g *Generator) Step(delta float64) (hex.Vec, error) {
	point, err := g.replayer.Step(delta)
	if err != nil {
		return hex.Vec{}, err
	}
	for _, u := range g.updaters {
		u.Update(g.replayer.Transform, delta)
	}
	return point, nil
}

// Current returns the trajectory being replayed, or nil before the first
// SetTrajectory.
func (g *Generator) Current() *Trajectory {
	if g.replayer == nil {
		return nil
	}
	return g.replayer.traj
}

// Duration returns the active replay's duration at its configured speed.
func (g *Generator) Duration() float64 { return g.replayer.Duration() }

// HasFinished reports whether the active replay has reached its last sample.
func (g *Generator) HasFinished() bool {
	return g.replayer != nil && g.replayer.HasFinished()
}
