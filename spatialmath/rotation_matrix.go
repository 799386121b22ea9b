package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of floats in row
// major order. The input must describe a proper rotation: orthonormal columns
// and determinant +1 within floating tolerance.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	mat := [9]float64{m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]}
	rm := &RotationMatrix{mat}
	if err := rm.checkValid(); err != nil {
		return nil, err
	}
	return rm, nil
}

// checkValid verifies orthonormality and positive determinant.
func (rmat *RotationMatrix) checkValid() error {
	const tol = 1e-6
	cols := [3]r3.Vector{rmat.Col(0), rmat.Col(1), rmat.Col(2)}
	for i := 0; i < 3; i++ {
		if !floatAlmostEqual(cols[i].Norm(), 1, tol) {
			return errors.Errorf("column %d is not unit length, matrix is not a rotation", i)
		}
		if !floatAlmostEqual(cols[i].Dot(cols[(i+1)%3]), 0, tol) {
			return errors.Errorf("columns %d and %d are not orthogonal, matrix is not a rotation", i, (i+1)%3)
		}
	}
	if det := rmat.determinant(); !floatAlmostEqual(det, 1, tol) {
		return errors.Errorf("matrix determinant is %f, not a proper rotation", det)
	}
	return nil
}

func (rmat *RotationMatrix) determinant() float64 {
	m := rmat.mat
	return m[0]*(m[4]*m[8]-m[5]*m[7]) - m[1]*(m[3]*m[8]-m[5]*m[6]) + m[2]*(m[3]*m[7]-m[4]*m[6])
}

// At returns the float corresponding to the element at the specified location.
func (rmat *RotationMatrix) At(row, col int) float64 {
	return rmat.mat[3*row+col]
}

// Row returns the a vector of the values in the specified row.
func (rmat *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rmat.At(row, 0), Y: rmat.At(row, 1), Z: rmat.At(row, 2)}
}

// Col returns the a vector of the values in the specified col.
func (rmat *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rmat.At(0, col), Y: rmat.At(1, col), Z: rmat.At(2, col)}
}

// Mul returns the product of the rotation matrix with an r3 vector.
func (rmat *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rmat.Row(0).Dot(v),
		Y: rmat.Row(1).Dot(v),
		Z: rmat.Row(2).Dot(v),
	}
}

// Transpose returns the transpose of the rotation matrix, which for a proper
// rotation is also its inverse.
func (rmat *RotationMatrix) Transpose() *RotationMatrix {
	m := rmat.mat
	return &RotationMatrix{[9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// Dense returns the rotation matrix as a gonum Dense matrix.
func (rmat *RotationMatrix) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, rmat.mat[:])
	return mat.NewDense(3, 3, data)
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (rmat *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rmat
}

// EulerAngles returns the orientation in Euler angle representation.
func (rmat *RotationMatrix) EulerAngles() *EulerAngles {
	return quatToEulerAngles(rmat.Quaternion())
}

// Quaternion returns the orientation in quaternion representation. Uses
// Shepperd's method, branching on the largest diagonal element for numerical
// stability.
func (rmat *RotationMatrix) Quaternion() quat.Number {
	m := rmat.mat
	var q quat.Number

	tr := m[0] + m[4] + m[8]
	switch {
	case tr > 0:
		s := 0.5 / math.Sqrt(tr+1.0)
		q = quat.Number{
			Real: 0.25 / s,
			Imag: (m[7] - m[5]) * s,
			Jmag: (m[2] - m[6]) * s,
			Kmag: (m[3] - m[1]) * s,
		}
	case m[0] > m[4] && m[0] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[0]-m[4]-m[8])
		q = quat.Number{
			Real: (m[7] - m[5]) / s,
			Imag: 0.25 * s,
			Jmag: (m[1] + m[3]) / s,
			Kmag: (m[2] + m[6]) / s,
		}
	case m[4] > m[8]:
		s := 2.0 * math.Sqrt(1.0+m[4]-m[0]-m[8])
		q = quat.Number{
			Real: (m[2] - m[6]) / s,
			Imag: (m[1] + m[3]) / s,
			Jmag: 0.25 * s,
			Kmag: (m[5] + m[7]) / s,
		}
	default:
		s := 2.0 * math.Sqrt(1.0+m[8]-m[0]-m[4])
		q = quat.Number{
			Real: (m[3] - m[1]) / s,
			Imag: (m[2] + m[6]) / s,
			Jmag: (m[5] + m[7]) / s,
			Kmag: 0.25 * s,
		}
	}
	return normalize(q)
}

// MatMul returns the product a*b of two rotation matrices. The product of two
// proper rotations is a proper rotation, so no revalidation is done.
func MatMul(a, b *RotationMatrix) *RotationMatrix {
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = a.Row(i).Dot(b.Col(j))
		}
	}
	return &RotationMatrix{out}
}

// NearestRotation projects an arbitrary 3x3 matrix onto the closest proper
// rotation in the Frobenius sense, via the polar factor of its SVD. The sign
// of the smallest singular direction is flipped if needed so the determinant
// comes out +1.
func NearestRotation(m *mat.Dense) (*RotationMatrix, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("expected a 3x3 matrix, got %dx%d", r, c)
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		// negate the last column of U to stay in SO(3)
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}

	out := [9]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = rot.At(i, j)
		}
	}
	return &RotationMatrix{out}, nil
}
