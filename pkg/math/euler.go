package math

import "math"

// Euler holds XYZ rotation angles in radians. The rotation matrix is
// Rz * Ry * Rx, i.e. X is applied first.
type Euler struct {
	X, Y, Z float64
}

// ToMat4 returns the rotation matrix for the angles.
func (e Euler) ToMat4() Mat4 {
	return RotateZ(e.Z).Mul(RotateY(e.Y)).Mul(RotateX(e.X))
}

// EulerFromBasis recovers XYZ angles from the images of the X, Y and Z axes
// of an orthonormal rotation.
func EulerFromBasis(x, y, z Vec3) Euler {
	// Row/column naming below is r[row][col] of the rotation matrix whose
	// columns are x, y, z.
	r20 := x.Z
	r21 := y.Z
	r22 := z.Z
	r10 := x.Y
	r00 := x.X

	sy := math.Hypot(r00, r10)
	if sy < 1e-9 {
		// Gimbal lock: Z is folded into X.
		return Euler{
			X: math.Atan2(-z.Y, y.Y),
			Y: math.Atan2(-r20, sy),
			Z: 0,
		}
	}
	return Euler{
		X: math.Atan2(r21, r22),
		Y: math.Atan2(-r20, sy),
		Z: math.Atan2(r10, r00),
	}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
