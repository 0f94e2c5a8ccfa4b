package math

import (
	"testing"
)

const tolerance = 1e-5

func floatNear(a, b, tol float32) bool {
	return kabs(a-b) <= tol
}

func matNear(a, b Mat4, tol float32) bool {
	for i := range a.Data {
		if !floatNear(a.Data[i], b.Data[i], tol) {
			return false
		}
	}
	return true
}

func TestMat4MulIdentity(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3)).Mul(NewMat4EulerY(0.7))
	got := m.Mul(NewMat4Identity())
	if !matNear(got, m, tolerance) {
		t.Errorf("m * I = %v, want %v", got.Data, m.Data)
	}
	got = NewMat4Identity().Mul(m)
	if !matNear(got, m, tolerance) {
		t.Errorf("I * m = %v, want %v", got.Data, m.Data)
	}
}

func TestMat4MulOrder(t *testing.T) {
	// Translate then scale must differ from scale then translate.
	tr := NewMat4Translation(NewVec3(1, 0, 0))
	sc := NewMat4Scale(NewVec3(2, 2, 2))

	p := NewVec4(0, 0, 0, 1)
	got := sc.Mul(tr).MulVec4(p)
	if !floatNear(got.X, 2, tolerance) {
		t.Errorf("scale(translate(p)).X = %f, want 2", got.X)
	}
	got = tr.Mul(sc).MulVec4(p)
	if !floatNear(got.X, 1, tolerance) {
		t.Errorf("translate(scale(p)).X = %f, want 1", got.X)
	}
}

func TestMat4MulVec4(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		v    Vec4
		want Vec4
	}{
		{
			name: "translation moves a point",
			m:    NewMat4Translation(NewVec3(1, 2, 3)),
			v:    NewVec4(0, 0, 0, 1),
			want: NewVec4(1, 2, 3, 1),
		},
		{
			name: "translation ignores a direction",
			m:    NewMat4Translation(NewVec3(1, 2, 3)),
			v:    NewVec4(0, 0, -1, 0),
			want: NewVec4(0, 0, -1, 0),
		},
		{
			name: "yaw 90 degrees maps -Z to -X",
			m:    NewMat4EulerY(90 * K_DEG2RAD_MULTIPLIER),
			v:    NewVec4(0, 0, -1, 0),
			want: NewVec4(-1, 0, 0, 0),
		},
		{
			name: "pitch 90 degrees maps -Z to +Y",
			m:    NewMat4EulerX(90 * K_DEG2RAD_MULTIPLIER),
			v:    NewVec4(0, 0, -1, 0),
			want: NewVec4(0, 1, 0, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.MulVec4(tt.v)
			if !floatNear(got.X, tt.want.X, tolerance) ||
				!floatNear(got.Y, tt.want.Y, tolerance) ||
				!floatNear(got.Z, tt.want.Z, tolerance) ||
				!floatNear(got.W, tt.want.W, tolerance) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMat4Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{name: "identity", m: NewMat4Identity()},
		{name: "translation", m: NewMat4Translation(NewVec3(4, -2, 9))},
		{name: "rotation", m: NewMat4AxisRotation(NewVec3(1, 1, 0), 0.5)},
		{
			name: "composite view-like matrix",
			m: NewMat4EulerX(0.3).
				Mul(NewMat4EulerY(-1.2)).
				Mul(NewMat4Translation(NewVec3(0, 0, -20))),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Mul(tt.m.Inverse())
			if !matNear(got, NewMat4Identity(), 1e-4) {
				t.Errorf("m * m^-1 = %v, want identity", got.Data)
			}
		})
	}
}

func TestMat4NormalMatrix(t *testing.T) {
	// For a pure rotation the normal matrix equals the rotation's
	// upper 3x3.
	rot := NewMat4AxisRotation(NewVec3(1, 1, 0), 0.5)
	nm := rot.NormalMatrix()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if !floatNear(nm.at(r, c), rot.at(r, c), 1e-4) {
				t.Fatalf("normal[%d][%d] = %f, want %f", r, c, nm.at(r, c), rot.at(r, c))
			}
		}
	}

	// Non-uniform scale must not carry into transformed normals: a
	// normal of a plane scaled along X stays aligned with X.
	sc := NewMat4Scale(NewVec3(4, 1, 1))
	n := sc.NormalMatrix()
	got := Vec3{
		X: n.at(0, 0)*1 + n.at(0, 1)*0 + n.at(0, 2)*0,
		Y: n.at(1, 0)*1 + n.at(1, 1)*0 + n.at(1, 2)*0,
		Z: n.at(2, 0)*1 + n.at(2, 1)*0 + n.at(2, 2)*0,
	}.Normalized()
	if !floatNear(got.X, 1, tolerance) || !floatNear(got.Y, 0, tolerance) || !floatNear(got.Z, 0, tolerance) {
		t.Errorf("transformed normal = %v, want (1,0,0)", got)
	}
}

func TestMat4Perspective(t *testing.T) {
	proj := NewMat4Perspective(45*K_DEG2RAD_MULTIPLIER, 16.0/9.0, 0.01, 1000)

	// A point on the near plane maps to z/w = -1, far plane to z/w = 1.
	near := proj.MulVec4(NewVec4(0, 0, -0.01, 1))
	if !floatNear(near.Z/near.W, -1, 1e-3) {
		t.Errorf("near plane z/w = %f, want -1", near.Z/near.W)
	}
	far := proj.MulVec4(NewVec4(0, 0, -1000, 1))
	if !floatNear(far.Z/far.W, 1, 1e-3) {
		t.Errorf("far plane z/w = %f, want 1", far.Z/far.W)
	}
}

func TestVulkanClipCorrection(t *testing.T) {
	proj := NewMat4VulkanClipCorrection().
		Mul(NewMat4Perspective(45*K_DEG2RAD_MULTIPLIER, 1, 0.01, 1000))

	// Near plane maps to z/w = 0, far plane to z/w = 1, Y flipped.
	near := proj.MulVec4(NewVec4(0, 1, -0.01, 1))
	if !floatNear(near.Z/near.W, 0, 1e-3) {
		t.Errorf("near plane z/w = %f, want 0", near.Z/near.W)
	}
	if near.Y/near.W >= 0 {
		t.Errorf("up in view space must point down in clip space, got y/w = %f", near.Y/near.W)
	}
	far := proj.MulVec4(NewVec4(0, 0, -1000, 1))
	if !floatNear(far.Z/far.W, 1, 1e-3) {
		t.Errorf("far plane z/w = %f, want 1", far.Z/far.W)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name            string
		v, lo, hi, want float32
	}{
		{name: "below", v: -3, lo: 0, hi: 10, want: 0},
		{name: "inside", v: 5, lo: 0, hi: 10, want: 5},
		{name: "above", v: 42, lo: 0, hi: 10, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%f) = %f, want %f", tt.v, got, tt.want)
			}
		})
	}
}

func TestRandomInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := RandomInRange(-5, 5)
		if v < -5 || v >= 5 {
			t.Fatalf("RandomInRange(-5, 5) = %f, out of range", v)
		}
	}
}
