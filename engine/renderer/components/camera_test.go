package components

import (
	"testing"

	"github.com/spaghettifunk/cubes/engine/math"
)

const tolerance = 1e-4

func vecNear(a, b math.Vec3, tol float32) bool {
	d := a.Sub(b)
	return d.Length() <= tol
}

func TestWalkMovesOnGroundPlaneOnly(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *Camera)
		walk    float32
		strafe  float32
		wantPos math.Vec3
	}{
		{
			name:    "walk straight ahead",
			setup:   func(c *Camera) {},
			walk:    5,
			wantPos: math.NewVec3(0, 0, 15),
		},
		{
			name:    "strafe right",
			setup:   func(c *Camera) {},
			strafe:  2,
			wantPos: math.NewVec3(2, 0, 20),
		},
		{
			name: "yaw 90 then walk heads along +X",
			setup: func(c *Camera) {
				c.Yaw(90)
			},
			walk:    3,
			wantPos: math.NewVec3(3, 0, 20),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera(math.NewVec3(0, 0, 20))
			tt.setup(c)
			if tt.walk != 0 {
				c.Walk(tt.walk)
			}
			if tt.strafe != 0 {
				c.Strafe(tt.strafe)
			}
			got := c.Position()
			if got.Y != 0 {
				t.Errorf("Y changed to %f", got.Y)
			}
			if !vecNear(got, tt.wantPos, tolerance) {
				t.Errorf("pos = %v, want %v", got, tt.wantPos)
			}
		})
	}
}

func TestPitchKeepsWalkDirection(t *testing.T) {
	// Walking while looking down still covers the full ground
	// distance along the heading's XZ projection of forward.
	level := NewCamera(math.NewVec3(0, 0, 0))
	level.Walk(1)

	down := NewCamera(math.NewVec3(0, 0, 0))
	down.Pitch(-45)
	down.Walk(1)

	if down.Position().Y != 0 {
		t.Errorf("pitched walk changed Y: %f", down.Position().Y)
	}
	// The XZ direction matches; magnitude shrinks with the pitched
	// forward's XZ projection.
	if down.Position().X != level.Position().X {
		t.Errorf("pitched walk bent sideways: %v", down.Position())
	}
	if down.Position().Z >= 0 || down.Position().Z < level.Position().Z {
		t.Errorf("pitched walk Z = %f, want within (%f, 0)", down.Position().Z, level.Position().Z)
	}
}

func TestAngleAccumulationWraps(t *testing.T) {
	c := NewCamera(math.NewVec3(0, 0, 0))
	for i := 0; i < 100; i++ {
		c.Yaw(30)
		if c.yaw < -360 || c.yaw > 360 {
			t.Fatalf("yaw escaped range after %d steps: %f", i+1, c.yaw)
		}
	}
	for i := 0; i < 100; i++ {
		c.Pitch(-45)
		if c.pitch < -360 || c.pitch > 360 {
			t.Fatalf("pitch escaped range after %d steps: %f", i+1, c.pitch)
		}
	}
}

func TestFullYawTurnRestoresHeading(t *testing.T) {
	c := NewCamera(math.NewVec3(0, 0, 0))
	for i := 0; i < 8; i++ {
		c.Yaw(45)
	}
	c.Walk(1)
	if !vecNear(c.Position(), math.NewVec3(0, 0, -1), 1e-3) {
		t.Errorf("pos after 360 turn and walk = %v, want (0,0,-1)", c.Position())
	}
}

func TestViewMatrixIsPure(t *testing.T) {
	c := NewCamera(math.NewVec3(1, 2, 3))
	c.Yaw(30)
	c.Pitch(-10)

	a := c.ViewMatrix()
	b := c.ViewMatrix()
	if a != b {
		t.Error("consecutive ViewMatrix calls disagree")
	}
}

func TestViewMatrixTransformsEyeToOrigin(t *testing.T) {
	c := NewCamera(math.NewVec3(4, -1, 7))
	c.Yaw(120)
	c.Pitch(15)

	eye := c.ViewMatrix().MulVec4(math.NewVec4(4, -1, 7, 1))
	if !vecNear(eye.ToVec3(), math.NewVec3(0, 0, 0), tolerance) {
		t.Errorf("view * eye = %v, want origin", eye)
	}
}

func TestViewMatrixInverseRecoversEye(t *testing.T) {
	c := NewCamera(math.NewVec3(0, 0, 20))
	c.Yaw(-35)
	c.Pitch(22)

	eye := c.ViewMatrix().Inverse().Column(3).ToVec3()
	if !vecNear(eye, math.NewVec3(0, 0, 20), 1e-3) {
		t.Errorf("recovered eye = %v, want (0,0,20)", eye)
	}
}
