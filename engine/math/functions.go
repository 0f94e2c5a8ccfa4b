package math

import (
	m "math"
	"time"

	"golang.org/x/exp/rand"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 1.0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07

	/** @brief The maximum value of an unsigned 32-bit integer. */
	MaxUint32 uint32 = 0xFFFFFFFF
	/** @brief The maximum value of an unsigned 64-bit integer. */
	MaxUint64 uint64 = 0xFFFFFFFFFFFFFFFF
	/** @brief The maximum value of an unsigned 8-bit integer, widened for scoring. */
	MaxUint8 uint32 = 0xFF
)

var rand_seeded bool = false

/**
 * Note that these are here in order to prevent having to convert
 * to and from float64 everywhere.
 */
func ksin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func kcos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func ktan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

/**
 * @brief Returns a uniformly distributed random float32 in [min, max).
 */
func RandomInRange(min, max float32) float32 {
	if !rand_seeded {
		rand.Seed(uint64(time.Now().UnixNano()))
		rand_seeded = true
	}
	return min + rand.Float32()*(max-min)
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

/**
 * @brief Creates and returns a new 3-element vector using the supplied values.
 */
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float32 {
	return ksqrt(v.Dot(v))
}

/**
 * @brief Returns a normalized copy of the vector. Zero-length vectors
 * are returned unchanged.
 */
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < K_FLOAT_EPSILON {
		return v
	}
	return v.Scale(1.0 / l)
}

// ------------------------------------------
// Vector 4
// ------------------------------------------

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func (v Vec4) ToVec3() Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// ------------------------------------------
// Matrix 3
// ------------------------------------------

func NewMat3Identity() Mat3 {
	out := Mat3{}
	out.Data[0] = 1.0
	out.Data[4] = 1.0
	out.Data[8] = 1.0
	return out
}

func (a Mat3) at(row, col int) float32 {
	return a.Data[col*3+row]
}

func (a *Mat3) set(row, col int, v float32) {
	a.Data[col*3+row] = v
}

func (a Mat3) Determinant() float32 {
	return a.at(0, 0)*(a.at(1, 1)*a.at(2, 2)-a.at(1, 2)*a.at(2, 1)) -
		a.at(0, 1)*(a.at(1, 0)*a.at(2, 2)-a.at(1, 2)*a.at(2, 0)) +
		a.at(0, 2)*(a.at(1, 0)*a.at(2, 1)-a.at(1, 1)*a.at(2, 0))
}

func (a Mat3) Transposed() Mat3 {
	out := Mat3{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.set(r, c, a.at(c, r))
		}
	}
	return out
}

/**
 * @brief Returns the inverse of the matrix via the adjugate. Singular
 * matrices return the identity.
 */
func (a Mat3) Inverse() Mat3 {
	det := a.Determinant()
	if kabs(det) < K_FLOAT_EPSILON {
		return NewMat3Identity()
	}
	inv := 1.0 / det
	out := Mat3{}
	out.set(0, 0, (a.at(1, 1)*a.at(2, 2)-a.at(1, 2)*a.at(2, 1))*inv)
	out.set(0, 1, (a.at(0, 2)*a.at(2, 1)-a.at(0, 1)*a.at(2, 2))*inv)
	out.set(0, 2, (a.at(0, 1)*a.at(1, 2)-a.at(0, 2)*a.at(1, 1))*inv)
	out.set(1, 0, (a.at(1, 2)*a.at(2, 0)-a.at(1, 0)*a.at(2, 2))*inv)
	out.set(1, 1, (a.at(0, 0)*a.at(2, 2)-a.at(0, 2)*a.at(2, 0))*inv)
	out.set(1, 2, (a.at(0, 2)*a.at(1, 0)-a.at(0, 0)*a.at(1, 2))*inv)
	out.set(2, 0, (a.at(1, 0)*a.at(2, 1)-a.at(1, 1)*a.at(2, 0))*inv)
	out.set(2, 1, (a.at(0, 1)*a.at(2, 0)-a.at(0, 0)*a.at(2, 1))*inv)
	out.set(2, 2, (a.at(0, 0)*a.at(1, 1)-a.at(0, 1)*a.at(1, 0))*inv)
	return out
}

// ------------------------------------------
// Matrix 4
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

func (a Mat4) at(row, col int) float32 {
	return a.Data[col*4+row]
}

func (a *Mat4) set(row, col int, v float32) {
	a.Data[col*4+row] = v
}

/**
 * @brief Returns the product a * b.
 */
func (a Mat4) Mul(b Mat4) Mat4 {
	out := Mat4{}
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a.at(r, k) * b.at(k, c)
			}
			out.set(r, c, sum)
		}
	}
	return out
}

/**
 * @brief Returns the product a * v with v as a column vector.
 */
func (a Mat4) MulVec4(v Vec4) Vec4 {
	in := [4]float32{v.X, v.Y, v.Z, v.W}
	out := [4]float32{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r] += a.at(r, c) * in[c]
		}
	}
	return Vec4{X: out[0], Y: out[1], Z: out[2], W: out[3]}
}

func (a Mat4) Transposed() Mat4 {
	out := Mat4{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out.set(r, c, a.at(c, r))
		}
	}
	return out
}

/**
 * @brief Returns column col of the matrix as a 4-element vector.
 */
func (a Mat4) Column(col int) Vec4 {
	return Vec4{
		X: a.Data[col*4+0],
		Y: a.Data[col*4+1],
		Z: a.Data[col*4+2],
		W: a.Data[col*4+3],
	}
}

/**
 * @brief Returns the inverse of the matrix via cofactor expansion.
 * Singular matrices return the identity.
 */
func (a Mat4) Inverse() Mat4 {
	cof := Mat4{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			minor := a.minor3(r, c)
			sign := float32(1)
			if (r+c)%2 == 1 {
				sign = -1
			}
			cof.set(r, c, sign*minor)
		}
	}
	det := float32(0)
	for c := 0; c < 4; c++ {
		det += a.at(0, c) * cof.at(0, c)
	}
	if kabs(det) < K_FLOAT_EPSILON {
		return NewMat4Identity()
	}
	adj := cof.Transposed()
	inv := 1.0 / det
	out := Mat4{}
	for i := 0; i < 16; i++ {
		out.Data[i] = adj.Data[i] * inv
	}
	return out
}

// minor3 is the determinant of the 3x3 submatrix with row and col removed.
func (a Mat4) minor3(row, col int) float32 {
	sub := [9]float32{}
	i := 0
	for c := 0; c < 4; c++ {
		if c == col {
			continue
		}
		for r := 0; r < 4; r++ {
			if r == row {
				continue
			}
			sub[i] = a.at(r, c)
			i++
		}
	}
	return Mat3{Data: sub}.Determinant()
}

/**
 * @brief Returns the matrix that transforms normals for this model
 * matrix, the inverse-transpose of the upper-left 3x3.
 */
func (a Mat4) NormalMatrix() Mat3 {
	upper := Mat3{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			upper.set(r, c, a.at(r, c))
		}
	}
	return upper.Inverse().Transposed()
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

/**
 * @brief Returns a scale matrix using the provided scale.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

/**
 * @brief Creates a rotation matrix from the provided x angle in radians.
 */
func NewMat4EulerX(angleRad float32) Mat4 {
	out := NewMat4Identity()
	c := kcos(angleRad)
	s := ksin(angleRad)
	out.Data[5] = c
	out.Data[6] = s
	out.Data[9] = -s
	out.Data[10] = c
	return out
}

/**
 * @brief Creates a rotation matrix from the provided y angle in radians.
 */
func NewMat4EulerY(angleRad float32) Mat4 {
	out := NewMat4Identity()
	c := kcos(angleRad)
	s := ksin(angleRad)
	out.Data[0] = c
	out.Data[2] = -s
	out.Data[8] = s
	out.Data[10] = c
	return out
}

/**
 * @brief Creates a rotation matrix from the provided z angle in radians.
 */
func NewMat4EulerZ(angleRad float32) Mat4 {
	out := NewMat4Identity()
	c := kcos(angleRad)
	s := ksin(angleRad)
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}

/**
 * @brief Creates a rotation matrix of angleRad radians around the
 * given axis. The axis does not need to be normalized.
 */
func NewMat4AxisRotation(axis Vec3, angleRad float32) Mat4 {
	n := axis.Normalized()
	c := kcos(angleRad)
	s := ksin(angleRad)
	t := 1.0 - c

	out := NewMat4Identity()
	out.set(0, 0, t*n.X*n.X+c)
	out.set(0, 1, t*n.X*n.Y-s*n.Z)
	out.set(0, 2, t*n.X*n.Z+s*n.Y)
	out.set(1, 0, t*n.X*n.Y+s*n.Z)
	out.set(1, 1, t*n.Y*n.Y+c)
	out.set(1, 2, t*n.Y*n.Z-s*n.X)
	out.set(2, 0, t*n.X*n.Z-s*n.Y)
	out.set(2, 1, t*n.Y*n.Z+s*n.X)
	out.set(2, 2, t*n.Z*n.Z+c)
	return out
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to
 * represent a 3d rendered scene. Depth maps to [-1, 1] as OpenGL
 * expects; combine with NewMat4VulkanClipCorrection for Vulkan.
 *
 * @param fovRad The field of view in radians.
 * @param aspect The aspect ratio.
 * @param near The near clipping plane distance.
 * @param far The far clipping plane distance.
 */
func NewMat4Perspective(fovRad, aspect, near, far float32) Mat4 {
	f := 1.0 / ktan(fovRad*0.5)
	out := Mat4{}
	out.Data[0] = f / aspect
	out.Data[5] = f
	out.Data[10] = (far + near) / (near - far)
	out.Data[11] = -1.0
	out.Data[14] = (2.0 * far * near) / (near - far)
	return out
}

/**
 * @brief Returns the fixed correction matrix that maps OpenGL-style
 * clip space onto Vulkan's: Y is flipped and depth is compressed from
 * [-1, 1] to [0, 1].
 */
func NewMat4VulkanClipCorrection() Mat4 {
	out := NewMat4Identity()
	out.Data[5] = -1.0
	out.Data[10] = 0.5
	out.Data[14] = 0.5
	return out
}
