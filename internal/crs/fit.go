package crs

import (
	"fmt"
	"math"

	"autotrace/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ControlPoint pairs the same location expressed in two systems.
type ControlPoint struct {
	Src geometry.Point2D `json:"src"`
	Dst geometry.Point2D `json:"dst"`
}

// FitAffine computes a least-squares affine transform mapping Src onto Dst.
func FitAffine(points []ControlPoint) (geometry.AffineTransform, error) {
	n := len(points)
	if n < 3 {
		return geometry.AffineTransform{}, fmt.Errorf("need at least 3 control points, got %d", n)
	}

	// [x', y'] = [a, b, tx; c, d, ty] * [x, y, 1]
	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)

	for i, cp := range points {
		x, y := cp.Src.X, cp.Src.Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, cp.Dst.X)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, cp.Dst.Y)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("solve affine: %w", err)
	}

	return geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}, nil
}

// Residual returns the RMS distance between transformed Src points and Dst.
func Residual(t geometry.AffineTransform, points []ControlPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, cp := range points {
		sum += t.Apply(cp.Src).DistanceSq(cp.Dst)
	}
	return math.Sqrt(sum / float64(len(points)))
}
