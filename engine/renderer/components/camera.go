package components

import (
	"github.com/spaghettifunk/cubes/engine/math"
)

/**
 * @brief A first-person camera constrained to walking: yaw and pitch
 * rotate the view, while movement happens on the XZ plane only.
 */
type Camera struct {
	forward math.Vec3
	right   math.Vec3
	up      math.Vec3

	pos math.Vec3

	/** @brief Accumulated yaw in degrees, kept inside [-360, 360]. */
	yaw float32
	/** @brief Accumulated pitch in degrees, kept inside [-360, 360]. */
	pitch float32

	yawMatrix   math.Mat4
	pitchMatrix math.Mat4
}

func NewCamera(pos math.Vec3) *Camera {
	return &Camera{
		forward:     math.NewVec3(0, 0, -1),
		right:       math.NewVec3(1, 0, 0),
		up:          math.NewVec3(0, 1, 0),
		pos:         pos,
		yawMatrix:   math.NewMat4Identity(),
		pitchMatrix: math.NewMat4Identity(),
	}
}

func (c *Camera) Position() math.Vec3 {
	return c.pos
}

// wrap360 keeps an accumulated angle inside (-360, 360) with a single
// correction step.
func wrap360(angle float32) float32 {
	if angle > 360 {
		angle -= 360
	}
	if angle < -360 {
		angle += 360
	}
	return angle
}

// Yaw rotates the view left/right by degrees degrees.
func (c *Camera) Yaw(degrees float32) {
	c.yaw = wrap360(c.yaw + degrees)
	c.yawMatrix = math.NewMat4EulerY(c.yaw * math.K_DEG2RAD_MULTIPLIER)

	rot := c.pitchMatrix.Mul(c.yawMatrix).Transposed()
	c.forward = rot.MulVec4(math.NewVec4(0, 0, -1, 0)).ToVec3()
	c.right = rot.MulVec4(math.NewVec4(1, 0, 0, 0)).ToVec3()
}

// Pitch rotates the view up/down by degrees degrees.
func (c *Camera) Pitch(degrees float32) {
	c.pitch = wrap360(c.pitch + degrees)
	c.pitchMatrix = math.NewMat4EulerX(c.pitch * math.K_DEG2RAD_MULTIPLIER)

	rot := c.pitchMatrix.Mul(c.yawMatrix).Transposed()
	c.forward = rot.MulVec4(math.NewVec4(0, 0, -1, 0)).ToVec3()
	c.up = rot.MulVec4(math.NewVec4(0, 1, 0, 0)).ToVec3()
}

// Walk moves along the forward direction projected onto the XZ plane.
// The Y position never changes, pitch included.
func (c *Camera) Walk(amount float32) {
	c.pos.X += amount * c.forward.X
	c.pos.Z += amount * c.forward.Z
}

// Strafe moves along the right direction projected onto the XZ plane.
func (c *Camera) Strafe(amount float32) {
	c.pos.X += amount * c.right.X
	c.pos.Z += amount * c.right.Z
}

/**
 * @brief Builds the view matrix: pitch and yaw applied to the world,
 * then the inverse translation. Pure, the camera is not mutated.
 */
func (c *Camera) ViewMatrix() math.Mat4 {
	m := c.pitchMatrix.Mul(c.yawMatrix)
	return m.Mul(math.NewMat4Translation(c.pos.Scale(-1)))
}
