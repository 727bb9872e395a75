package hex

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularEncoding is returned by Codec.Encode when the two closest
// vertices are colinear with the origin and the change of basis cannot be
// solved.
var ErrSingularEncoding = errors.New("hex: encoding basis is singular")

// Codec converts between arena coordinates and the convex-combination
// encoding the platform uses on the wire. It is stateless after construction
// and safe for concurrent use.
type Codec struct {
	answers []Vec
}

// NewCodec builds a codec over the given answer vertices.
func NewCodec(answers []Vec) *Codec {
	return &Codec{answers: answers}
}

// Answers returns the vertex positions the codec was built with. The slice
// must not be mutated.
func (c *Codec) Answers() []Vec { return c.answers }

// Encode expresses p as a combination of the two answer vertices nearest to
// it. The result has one entry per answer, zero everywhere except at those
// two indices. Points inside the arena produce non-negative coefficients.
func (c *Codec) Encode(p Vec) ([]float64, error) {
	i, j := Sector(p, c.answers)
	vi, vj := c.answers[i], c.answers[j]

	basis := mat.NewDense(2, 2, []float64{
		vi.X, vj.X,
		vi.Y, vj.Y,
	})
	rhs := mat.NewVecDense(2, []float64{p.X, p.Y})

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(basis, rhs); err != nil {
		return nil, ErrSingularEncoding
	}

	encoded := make([]float64, len(c.answers))
	encoded[i] = coeffs.AtVec(0)
	encoded[j] = coeffs.AtVec(1)
	return encoded, nil
}

// Decode is the inverse of Encode on points inside the arena: the weighted
// sum of the answer vertices.
func (c *Codec) Decode(encoded []float64) Vec {
	var p Vec
	for k, w := range encoded {
		if k >= len(c.answers) {
			break
		}
		p = p.Add(c.answers[k].Scale(w))
	}
	return p
}
