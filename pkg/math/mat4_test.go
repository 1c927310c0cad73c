package math

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func vecNear(a, b Vec3) bool {
	return abs(a.X-b.X) < 1e-6 && abs(a.Y-b.Y) < 1e-6 && abs(a.Z-b.Z) < 1e-6
}

func TestIdentity(t *testing.T) {
	m := Identity()
	p := Vec3{1, 2, 3}
	if got := m.TransformPoint(p); got != p {
		t.Errorf("Identity.TransformPoint(%v) = %v, want %v", p, got, p)
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	if got := m.Mul(Identity()); got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * m = %v, want %v", got, m)
	}
}

func TestTranslate(t *testing.T) {
	got := Translate(10, 20, 30).TransformPoint(Vec3{1, 1, 1})
	want := Vec3{11, 21, 31}
	if got != want {
		t.Errorf("Translate().TransformPoint() = %v, want %v", got, want)
	}
}

func TestTranslateIgnoresDirection(t *testing.T) {
	d := Vec3{0, 0, 1}
	if got := Translate(5, 5, 5).TransformDirection(d); got != d {
		t.Errorf("TransformDirection() = %v, want %v", got, d)
	}
}

func TestScale(t *testing.T) {
	got := Scale(2, 3, 4).TransformPoint(Vec3{1, 1, 1})
	want := Vec3{2, 3, 4}
	if got != want {
		t.Errorf("Scale().TransformPoint() = %v, want %v", got, want)
	}
}

func TestRotateZ90(t *testing.T) {
	got := RotateZ(math.Pi / 2).TransformPoint(Vec3{1, 0, 0})
	want := Vec3{0, 1, 0}
	if !vecNear(got, want) {
		t.Errorf("RotateZ(90).TransformPoint(X) = %v, want %v", got, want)
	}
}

func TestRotateY90(t *testing.T) {
	got := RotateY(math.Pi / 2).TransformPoint(Vec3{1, 0, 0})
	want := Vec3{0, 0, -1}
	if !vecNear(got, want) {
		t.Errorf("RotateY(90).TransformPoint(X) = %v, want %v", got, want)
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{0, -10, 0}
	view := LookAt(eye, Vec3{}, Vec3{0, 0, 1})

	// Target lands on the -Z axis at distance 10.
	got := view.TransformPoint(Vec3{})
	want := Vec3{0, 0, -10}
	if !vecNear(got, want) {
		t.Errorf("LookAt target = %v, want %v", got, want)
	}

	// World up maps to camera +Y.
	got = view.TransformPoint(Vec3{0, 0, 1})
	want = Vec3{0, 1, -10}
	if !vecNear(got, want) {
		t.Errorf("LookAt up = %v, want %v", got, want)
	}
}

func TestFromTRS(t *testing.T) {
	m := FromTRS(Vec3{1, 0, 0}, Quat{Z: math.Sqrt2 / 2, W: math.Sqrt2 / 2}, Vec3{2, 2, 2})
	got := m.TransformPoint(Vec3{1, 0, 0})
	want := Vec3{1, 2, 0}
	if !vecNear(got, want) {
		t.Errorf("FromTRS().TransformPoint() = %v, want %v", got, want)
	}
}
