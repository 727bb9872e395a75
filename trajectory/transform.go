package trajectory

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/swarm/hex"
)

// PointTransform maps a recorded normalized point into the arena: scale to
// the radius, rotate so the recording's target vertex lines up with the
// requested one, then remap the point's sector onto a polygon whose center
// and vertices may themselves be moving.
type PointTransform struct {
	// Angle rotates every source point before the sector remap.
	Angle float64

	// Radius scales normalized samples back to arena units.
	Radius float64

	// Actual holds the fixed arena vertices used to classify the rotated
	// point's sector.
	Actual []hex.Vec

	// Center is the moving origin of the transformed polygon. Drift
	// updaters pull it toward the true origin during replay.
	Center hex.Vec

	// New holds the possibly-moving output vertices. It starts as a copy
	// of Actual; drift updaters move the target vertex toward the replay
	// endpoint.
	New []hex.Vec
}

// NewPointTransform builds a transform with New initialized as a copy of the
// actual vertices.
func NewPointTransform(angle float64, actual []hex.Vec, center hex.Vec, radius float64) *PointTransform {
	newVertices := make([]hex.Vec, len(actual))
	copy(newVertices, actual)
	return &PointTransform{
		Angle:  angle,
		Radius: radius,
		Actual: actual,
		Center: center,
		New:    newVertices,
	}
}

// TransformToVertex builds the transform that rotates the recording's
// original target vertex onto targetIdx.
func TransformToVertex(targetIdx, originalTarget int, actual []hex.Vec, center hex.Vec, radius float64) *PointTransform {
	sectorAngle := 2 * math.Pi / float64(len(actual))
	angle := float64(targetIdx-originalTarget) * sectorAngle
	return NewPointTransform(angle, actual, center, radius)
}

// Apply maps one normalized recorded point into the arena.
func (t *PointTransform) Apply(p hex.Vec) (hex.Vec, error) {
	rotated := p.Rotate(t.Angle).Scale(t.Radius)

	i, j := hex.Sector(rotated, t.Actual)
	vi, vj := t.Actual[i], t.Actual[j]

	basis := mat.NewDense(2, 2, []float64{
		vi.X, vj.X,
		vi.Y, vj.Y,
	})
	rhs := mat.NewVecDense(2, []float64{rotated.X, rotated.Y})

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(basis, rhs); err != nil {
		return hex.Vec{}, err
	}

	ni := t.New[i].Sub(t.Center)
	nj := t.New[j].Sub(t.Center)
	out := ni.Scale(coeffs.AtVec(0)).Add(nj.Scale(coeffs.AtVec(1))).Add(t.Center)
	return out, nil
}

// Updater mutates a PointTransform once per replay step.
type Updater interface {
	Update(t *PointTransform, delta float64)
}

// centerToOrigin moves the transform's center toward the true origin at a
// constant speed, clamping on arrival.
type centerToOrigin struct {
	speed float64
}

func (u centerToOrigin) Update(t *PointTransform, delta float64) {
	mag := t.Center.Norm()
	step := u.speed * delta
	if mag > step && mag > 0 {
		t.Center = t.Center.Add(t.Center.Scale(-step / mag))
		return
	}
	t.Center = hex.Vec{}
}

// vertexToTarget moves one output vertex toward a target point at a constant
// speed, clamping on arrival.
type vertexToTarget struct {
	speed  float64
	target hex.Vec
	idx    int
}

func (u vertexToTarget) Update(t *PointTransform, delta float64) {
	disp := u.target.Sub(t.New[u.idx])
	mag := disp.Norm()
	step := u.speed * delta
	if mag > step && mag > 0 {
		t.New[u.idx] = t.New[u.idx].Add(disp.Scale(step / mag))
		return
	}
	t.New[u.idx] = u.target
}
