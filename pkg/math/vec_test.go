package math

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	want := Vec3{0, 0, 1}
	if got := x.Cross(y); got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	got := Vec3{3, 0, 4}.Normalize()
	if abs(got.Length()-1) > epsilon {
		t.Errorf("Vec3.Normalize().Length() = %v, want 1", got.Length())
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero Normalize() = %v, want zero", got)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, 2, 0}
	if got, want := a.Min(b), (Vec3{1, 2, -2}); got != want {
		t.Errorf("Vec3.Min() = %v, want %v", got, want)
	}
	if got, want := a.Max(b), (Vec3{3, 5, 0}); got != want {
		t.Errorf("Vec3.Max() = %v, want %v", got, want)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("finite vector reported as non-finite")
	}
	if (Vec3{math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN vector reported as finite")
	}
	if (Vec3{0, math.Inf(1), 0}).IsFinite() {
		t.Error("Inf vector reported as finite")
	}
}

func TestEulerRoundTrip(t *testing.T) {
	cases := []Euler{
		{0, 0, 0},
		{0.3, -0.2, 1.1},
		{math.Pi / 2, 0, math.Pi},
		{1.2, 0.4, -2.5},
	}
	for _, e := range cases {
		m := e.ToMat4()
		got := EulerFromBasis(m.Column(0), m.Column(1), m.Column(2)).ToMat4()
		for i := range m {
			if abs(got[i]-m[i]) > 1e-9 {
				t.Fatalf("EulerFromBasis(%v) rebuilt matrix differs at %d: %v vs %v", e, i, got[i], m[i])
			}
		}
	}
}

func TestEulerGimbalLock(t *testing.T) {
	e := Euler{X: 0.5, Y: math.Pi / 2, Z: 0}
	m := e.ToMat4()
	got := EulerFromBasis(m.Column(0), m.Column(1), m.Column(2)).ToMat4()
	for i := range m {
		if abs(got[i]-m[i]) > 1e-9 {
			t.Fatalf("gimbal lock rebuild differs at %d: %v vs %v", i, got[i], m[i])
		}
	}
}

func TestRadiansDegrees(t *testing.T) {
	if got := Radians(180); abs(got-math.Pi) > epsilon {
		t.Errorf("Radians(180) = %v, want pi", got)
	}
	if got := Degrees(math.Pi / 2); abs(got-90) > epsilon {
		t.Errorf("Degrees(pi/2) = %v, want 90", got)
	}
}
