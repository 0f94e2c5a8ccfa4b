package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 3x3 matrix with column-major storage. */
type Mat3 struct {
	/** @brief The matrix elements, Data[col*3+row]. */
	Data [9]float32
}

/** @brief a 4x4 matrix with column-major storage, typically used to represent object transformations. */
type Mat4 struct {
	/** @brief The matrix elements, Data[col*4+row]. */
	Data [16]float32
}
