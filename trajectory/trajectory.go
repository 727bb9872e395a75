// Package trajectory replays recorded unit-hexagon paths between arbitrary
// start and end points. A recorded trajectory starts at the origin and ends
// near one vertex; the replayer rotates it toward the requested target
// sector, remaps it through an affine sector transform and drifts the
// transform so the playback lands exactly on the requested endpoint.
package trajectory

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/swarm/hex"
)

// pointRow is the CSV shape of one recorded sample: timestamp, x, y.
type pointRow struct {
	T float64 `csv:"t"`
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
}

// Point is one recorded sample.
type Point struct {
	// Timestamp is seconds elapsed since the first sample. The first
	// sample is at 0 and timestamps increase strictly.
	Timestamp float64

	// Pos is radius-independent: recorded positions are normalized so the
	// same file replays on any arena size.
	Pos hex.Vec
}

// Trajectory is a recorded path. Loaded once, read-only afterwards.
type Trajectory struct {
	Points []Point

	// OriginalTarget is the index of the vertex the recording ended at.
	OriginalTarget int
}

// Load parses the trajectory file format: the original target vertex index,
// a blank line, then one t,x,y row per sample.
func Load(r io.Reader) (*Trajectory, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading trajectory: %w", err)
	}

	head, rows, ok := strings.Cut(strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n")), "\n\n")
	if !ok {
		return nil, fmt.Errorf("trajectory: missing blank line after target index")
	}

	target, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return nil, fmt.Errorf("trajectory: parsing target index: %w", err)
	}

	var parsed []pointRow
	if err := gocsv.UnmarshalWithoutHeaders(strings.NewReader(rows), &parsed); err != nil {
		return nil, fmt.Errorf("trajectory: parsing rows: %w", err)
	}
	if len(parsed) < 2 {
		return nil, fmt.Errorf("trajectory: need at least two points, got %d", len(parsed))
	}

	points := make([]Point, len(parsed))
	for i, row := range parsed {
		points[i] = Point{Timestamp: row.T, Pos: hex.Vec{X: row.X, Y: row.Y}}
	}

	if points[0].Timestamp != 0 {
		return nil, fmt.Errorf("trajectory: first timestamp must be 0, got %v", points[0].Timestamp)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp <= points[i-1].Timestamp {
			return nil, fmt.Errorf("trajectory: timestamps must increase strictly at row %d", i)
		}
	}

	return &Trajectory{Points: points, OriginalTarget: target}, nil
}

// LoadFile reads a trajectory from disk.
func LoadFile(path string) (*Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Duration returns the time the recording took.
func (t *Trajectory) Duration() float64 {
	return t.Points[len(t.Points)-1].Timestamp - t.Points[0].Timestamp
}

// FactorForDuration returns the time multiplier that makes the trajectory
// replay in the given number of seconds.
func FactorForDuration(seconds float64, t *Trajectory) float64 {
	return t.Duration() / seconds
}
