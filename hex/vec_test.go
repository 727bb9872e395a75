package hex

import (
	"math"
	"testing"
)

const eps = 1e-9

func vecNear(t *testing.T, got, want Vec, tol float64) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Errorf("got (%v, %v), want (%v, %v)", got.X, got.Y, want.X, want.Y)
	}
}

func TestLayoutHexagon(t *testing.T) {
	vertices := Layout(6, 430)

	want := []Vec{
		{0, -430},
		{372, -215},
		{372, 215},
		{0, 430},
		{-372, 215},
		{-372, -215},
	}

	if len(vertices) != 6 {
		t.Fatalf("got %d vertices, want 6", len(vertices))
	}
	for i, v := range vertices {
		if v != want[i] {
			t.Errorf("vertex %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestLayoutTruncatesTowardZero(t *testing.T) {
	// Negative coordinates must truncate toward zero, not floor.
	vertices := Layout(6, 430)
	for i, v := range vertices {
		if v.X != math.Trunc(v.X) || v.Y != math.Trunc(v.Y) {
			t.Errorf("vertex %d not integral: %v", i, v)
		}
	}
	if vertices[4].X != -372 {
		t.Errorf("vertex 4 x: got %v, want -372", vertices[4].X)
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		p     Vec
		angle float64
		want  Vec
	}{
		{"quarter turn", Vec{1, 0}, math.Pi / 2, Vec{0, 1}},
		{"half turn", Vec{1, 0}, math.Pi, Vec{-1, 0}},
		{"identity", Vec{3, -4}, 0, Vec{3, -4}},
		{"negative angle", Vec{0, 1}, -math.Pi / 2, Vec{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vecNear(t, tt.p.Rotate(tt.angle), tt.want, eps)
		})
	}
}

func TestLerp(t *testing.T) {
	a := Vec{0, 0}
	b := Vec{10, -20}

	vecNear(t, Lerp(a, b, 0), a, eps)
	vecNear(t, Lerp(a, b, 1), b, eps)
	vecNear(t, Lerp(a, b, 0.5), Vec{5, -10}, eps)
	// Extrapolation is allowed.
	vecNear(t, Lerp(a, b, 2), Vec{20, -40}, eps)
}

func TestSector(t *testing.T) {
	vertices := Layout(6, 430)

	tests := []struct {
		name    string
		p       Vec
		closest int
		second  int
	}{
		{"near vertex 0 leaning next", Vec{50, -400}, 0, 1},
		{"near vertex 0 leaning previous", Vec{-50, -400}, 0, 5},
		{"near vertex 3", Vec{10, 420}, 3, 2},
		{"wraparound previous of 0", Vec{-250, -330}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closest, second := Sector(tt.p, vertices)
			if closest != tt.closest || second != tt.second {
				t.Errorf("Sector(%v) = (%d, %d), want (%d, %d)",
					tt.p, closest, second, tt.closest, tt.second)
			}
		})
	}
}

func TestSectorSecondIsRingNeighbor(t *testing.T) {
	vertices := Layout(6, 430)
	points := []Vec{
		{100, 100}, {-300, 20}, {0, -100}, {370, 210}, {-5, 425},
	}

	for _, p := range points {
		closest, second := Sector(p, vertices)
		next := (closest + 1) % 6
		prev := (closest + 5) % 6
		if second != next && second != prev {
			t.Errorf("Sector(%v): second %d is not a ring neighbor of %d", p, second, closest)
		}
	}
}
