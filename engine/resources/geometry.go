package resources

import (
	"encoding/binary"
	gomath "math"

	"github.com/spaghettifunk/cubes/engine/math"
)

// QuadVertices is the position-only floor quad, drawn as a triangle
// strip with clockwise front faces.
var QuadVertices = []float32{
	-1, -1, 0,
	-1, 1, 0,
	1, -1, 0,
	1, 1, 0,
}

// QuadVertexCount is the strip length of QuadVertices.
const QuadVertexCount = 4

type meshBuilder struct {
	verts []float32
}

func (b *meshBuilder) vertex(pos math.Vec3, u, v float32, normal math.Vec3) {
	b.verts = append(b.verts, pos.X, pos.Y, pos.Z, u, v, normal.X, normal.Y, normal.Z)
}

// quad appends two triangles for the face p0-p1-p2-p3 given in
// counter-clockwise order seen from outside.
func (b *meshBuilder) quad(p0, p1, p2, p3 math.Vec3, normal math.Vec3) {
	b.vertex(p0, 0, 0, normal)
	b.vertex(p1, 1, 0, normal)
	b.vertex(p2, 1, 1, normal)
	b.vertex(p0, 0, 0, normal)
	b.vertex(p2, 1, 1, normal)
	b.vertex(p3, 0, 1, normal)
}

func (b *meshBuilder) triangle(p0, p1, p2 math.Vec3, u0, v0, u1, v1, u2, v2 float32) {
	normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalized()
	b.vertex(p0, u0, v0, normal)
	b.vertex(p1, u1, v1, normal)
	b.vertex(p2, u2, v2, normal)
}

func (b *meshBuilder) build() *MeshData {
	count := uint32(len(b.verts) / VertexFloats)
	data := make([]byte, len(b.verts)*4)
	for i, f := range b.verts {
		binary.LittleEndian.PutUint32(data[i*4:], gomath.Float32bits(f))
	}
	return &MeshData{
		VertexCount: count,
		Vertices:    data,
	}
}

/**
 * @brief Generates a unit cube mesh with per-face normals. Fallback
 * for when the packed cube asset is missing, and the source of truth
 * for the mesh packing build target.
 */
func GenerateCube() *MeshData {
	b := &meshBuilder{}
	v := math.NewVec3

	// +Z
	b.quad(v(-1, -1, 1), v(1, -1, 1), v(1, 1, 1), v(-1, 1, 1), v(0, 0, 1))
	// -Z
	b.quad(v(1, -1, -1), v(-1, -1, -1), v(-1, 1, -1), v(1, 1, -1), v(0, 0, -1))
	// +X
	b.quad(v(1, -1, 1), v(1, -1, -1), v(1, 1, -1), v(1, 1, 1), v(1, 0, 0))
	// -X
	b.quad(v(-1, -1, -1), v(-1, -1, 1), v(-1, 1, 1), v(-1, 1, -1), v(-1, 0, 0))
	// +Y
	b.quad(v(-1, 1, 1), v(1, 1, 1), v(1, 1, -1), v(-1, 1, -1), v(0, 1, 0))
	// -Y
	b.quad(v(-1, -1, -1), v(1, -1, -1), v(1, -1, 1), v(-1, -1, 1), v(0, -1, 0))

	return b.build()
}

/**
 * @brief Generates a square pyramid mesh, the switchable second scene
 * mesh.
 */
func GeneratePrism() *MeshData {
	b := &meshBuilder{}
	v := math.NewVec3
	apex := v(0, 1, 0)

	// Sides, counter-clockwise seen from outside.
	b.triangle(v(-1, -1, 1), v(1, -1, 1), apex, 0, 0, 1, 0, 0.5, 1)
	b.triangle(v(1, -1, 1), v(1, -1, -1), apex, 0, 0, 1, 0, 0.5, 1)
	b.triangle(v(1, -1, -1), v(-1, -1, -1), apex, 0, 0, 1, 0, 0.5, 1)
	b.triangle(v(-1, -1, -1), v(-1, -1, 1), apex, 0, 0, 1, 0, 0.5, 1)

	// Base.
	b.quad(v(-1, -1, -1), v(1, -1, -1), v(1, -1, 1), v(-1, -1, 1), v(0, -1, 0))

	return b.build()
}
