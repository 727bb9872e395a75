package trajectory

import (
	"math"
	"testing"

	"github.com/pthm-cable/swarm/hex"
)

func vecNear(t *testing.T, got, want hex.Vec, tol float64) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Errorf("got (%v, %v), want (%v, %v)", got.X, got.Y, want.X, want.Y)
	}
}

// straightTo builds a synthetic recording that runs from the origin straight
// to lastPos over the given duration, tagged with the original target index.
func straightTo(lastPos hex.Vec, duration float64, target int) *Trajectory {
	return &Trajectory{
		Points: []Point{
			{Timestamp: 0, Pos: hex.Vec{}},
			{Timestamp: duration / 2, Pos: lastPos.Scale(0.5)},
			{Timestamp: duration, Pos: lastPos},
		},
		OriginalTarget: target,
	}
}

func TestTransformIdentityBasisReturnsRotatedPoint(t *testing.T) {
	vertices := hex.Layout(6, 430)

	// With untouched output vertices and a zero center, the sector remap
	// reconstructs exactly the rotated input.
	tr := TransformToVertex(1, 0, vertices, hex.Vec{}, 430)
	p := hex.Vec{X: 0.3, Y: -0.6}

	got, err := tr.Apply(p)
	if err != nil {
		t.Fatal(err)
	}
	want := p.Rotate(math.Pi / 3).Scale(430)
	vecNear(t, got, want, 1e-9)
}

func TestTransformZeroMapsToCenter(t *testing.T) {
	vertices := hex.Layout(6, 430)
	center := hex.Vec{X: 120, Y: -80}

	tr := TransformToVertex(4, 1, vertices, center, 430)
	got, err := tr.Apply(hex.Vec{})
	if err != nil {
		t.Fatal(err)
	}
	vecNear(t, got, center, 1e-9)
}

func TestCenterToOriginClamps(t *testing.T) {
	vertices := hex.Layout(6, 430)
	tr := NewPointTransform(0, vertices, hex.Vec{X: 3, Y: 4}, 430)

	u := centerToOrigin{speed: 1}

	u.Update(tr, 1)
	vecNear(t, tr.Center, hex.Vec{X: 2.4, Y: 3.2}, 1e-9)

	u.Update(tr, 100)
	vecNear(t, tr.Center, hex.Vec{}, 0)

	// Idempotent at the origin.
	u.Update(tr, 1)
	vecNear(t, tr.Center, hex.Vec{}, 0)
}

func TestVertexToTargetClamps(t *testing.T) {
	vertices := hex.Layout(6, 430)
	tr := NewPointTransform(0, vertices, hex.Vec{}, 430)
	target := hex.Vec{X: 10, Y: -400}

	u := vertexToTarget{speed: 10, target: target, idx: 0}

	before := tr.New[0]
	u.Update(tr, 1)
	moved := tr.New[0]
	if moved.Dist(before) > 10+1e-9 {
		t.Fatalf("vertex moved %v, want at most speed*delta", moved.Dist(before))
	}

	u.Update(tr, 1e6)
	if tr.New[0] != target {
		t.Fatalf("vertex at %v, want clamped on target", tr.New[0])
	}
	// Other vertices stay put.
	if tr.New[1] != vertices[1] {
		t.Fatalf("unrelated vertex moved to %v", tr.New[1])
	}
}

func TestReplayerDuration(t *testing.T) {
	vertices := hex.Layout(6, 430)
	traj := straightTo(hex.Vec{Y: -1}, 2, 0)

	gen := NewGenerator(430, vertices)
	gen.SetTrajectory(hex.Vec{X: 100, Y: 50}, hex.Vec{X: 30, Y: -380}, traj, Options{Duration: 4})

	if got := gen.Duration(); math.Abs(got-4) > 0.04 {
		t.Fatalf("replay duration = %v, want 4 within 1%%", got)
	}
}

func TestReplayerEndpoints(t *testing.T) {
	vertices := hex.Layout(6, 430)
	start := hex.Vec{X: 100, Y: 50}
	end := hex.Vec{X: 30, Y: -380} // inside vertex 0's sector

	traj := straightTo(hex.Vec{Y: -1}, 2, 0)
	gen := NewGenerator(430, vertices)
	gen.SetTrajectory(start, end, traj, Options{Duration: 4})

	first, err := gen.Step(0.1)
	if err != nil {
		t.Fatal(err)
	}
	vecNear(t, first, start, 1e-6)

	var last hex.Vec
	for elapsed := 0.1; elapsed < 4.5; elapsed += 0.1 {
		last, err = gen.Step(0.1)
		if err != nil {
			t.Fatal(err)
		}
	}
	if !gen.HasFinished() {
		t.Fatal("replay not finished after driving past its duration")
	}
	vecNear(t, last, end, 1e-6)
}

func TestReplayerEndpointsRotated(t *testing.T) {
	vertices := hex.Layout(6, 430)
	start := hex.Vec{X: -50, Y: 120}
	end := hex.Vec{X: 350, Y: 190} // inside vertex 2's sector

	// Pick the recording's endpoint so that rotating it toward vertex 2
	// lands exactly on the truncated vertex; the drift transforms then
	// carry the endpoint exactly onto end.
	angle := float64(2-0) * math.Pi / 3
	lastPos := vertices[2].Rotate(-angle).Scale(1.0 / 430)

	traj := straightTo(lastPos, 3, 0)
	gen := NewGenerator(430, vertices)
	gen.SetTrajectory(start, end, traj, Options{Duration: 2})

	first, err := gen.Step(0.05)
	if err != nil {
		t.Fatal(err)
	}
	vecNear(t, first, start, 1e-6)

	var last hex.Vec
	for elapsed := 0.05; elapsed < 2.6; elapsed += 0.05 {
		last, err = gen.Step(0.05)
		if err != nil {
			t.Fatal(err)
		}
	}
	if !gen.HasFinished() {
		t.Fatal("replay not finished after driving past its duration")
	}
	vecNear(t, last, end, 1e-6)
}

func TestReplayerHoldsLastPointAfterFinish(t *testing.T) {
	vertices := hex.Layout(6, 430)
	end := hex.Vec{X: 10, Y: -390}

	traj := straightTo(hex.Vec{Y: -1}, 1, 0)
	gen := NewGenerator(430, vertices)
	gen.SetTrajectory(hex.Vec{}, end, traj, Options{Duration: 1})

	for i := 0; i < 30; i++ {
		if _, err := gen.Step(0.1); err != nil {
			t.Fatal(err)
		}
	}

	p1, err := gen.Step(0.1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := gen.Step(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatalf("finished replay still moving: %v then %v", p1, p2)
	}
}

func TestGeneratorStartAtVertexIsStable(t *testing.T) {
	// Ending exactly on the chosen vertex makes the target drift speed
	// zero; that updater must behave as a no-op instead of dividing by
	// zero, while the center still drifts from the vertex to the origin.
	vertices := hex.Layout(6, 430)
	start := vertices[0]
	end := vertices[0]

	traj := straightTo(hex.Vec{Y: -1}, 1, 0)
	gen := NewGenerator(430, vertices)
	gen.SetTrajectory(start, end, traj, Options{Duration: 1})

	for i := 0; i < 15; i++ {
		p, err := gen.Step(0.1)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Fatal("replay produced NaN")
		}
	}
	vecNear(t, mustStep(t, gen, 0.1), end, 1e-6)
}

func mustStep(t *testing.T, gen *Generator, delta float64) hex.Vec {
	t.Helper()
	p, err := gen.Step(delta)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
