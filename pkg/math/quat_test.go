package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	if got := QuatIdentity().ToMat4(); got != Identity() {
		t.Errorf("QuatIdentity().ToMat4() = %v, want identity", got)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 0, Y: 0, Z: 0, W: 2}.Normalize()
	if abs(q.W-1) > epsilon {
		t.Errorf("Normalize().W = %v, want 1", q.W)
	}
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero Normalize() = %v, want identity", got)
	}
}

func TestQuatToMat4MatchesRotate(t *testing.T) {
	q := Quat{Y: math.Sin(math.Pi / 6), W: math.Cos(math.Pi / 6)}
	a := q.ToMat4()
	b := RotateY(math.Pi / 3)
	for i := range a {
		if abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("ToMat4()[%d] = %v, want %v", i, a[i], b[i])
		}
	}
}
