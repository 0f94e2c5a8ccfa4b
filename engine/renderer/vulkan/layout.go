package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Uniform block sizes before alignment. The vertex block holds two
// mat4s and the upper 3x3 of the normal matrix as three padded vec3
// columns; the fragment block holds the light and material parameters.
const (
	rawVertexUniformSize   = 2*64 + 48
	rawFragmentUniformSize = 6*16 + 12 + 2*4
)

func aligned(v, byteAlign vk.DeviceSize) vk.DeviceSize {
	return (v + byteAlign - 1) &^ (byteAlign - 1)
}

// vertexUniformSize is the per-slot size of the vertex stage uniform
// block, padded to the device's dynamic offset alignment.
func vertexUniformSize(align vk.DeviceSize) vk.DeviceSize {
	return aligned(rawVertexUniformSize, align)
}

func fragmentUniformSize(align vk.DeviceSize) vk.DeviceSize {
	return aligned(rawFragmentUniformSize, align)
}

type regionRequirement struct {
	Size      vk.DeviceSize
	Alignment vk.DeviceSize
}

// bufferLayout places each buffer's region inside the shared device
// allocation.
type bufferLayout struct {
	CubeMeshOffset  vk.DeviceSize
	PrismMeshOffset vk.DeviceSize
	FloorMeshOffset vk.DeviceSize
	UniformOffset   vk.DeviceSize
	TotalSize       vk.DeviceSize
}

// computeBufferLayout packs the three vertex buffers and the uniform
// buffer back to back, honoring each region's reported alignment. The
// first region sits at offset zero; every subsequent region starts at
// the previous end rounded up to its own alignment.
func computeBufferLayout(cubeMesh, prismMesh, floorMesh, uniform regionRequirement) bufferLayout {
	layout := bufferLayout{}
	layout.CubeMeshOffset = 0
	layout.PrismMeshOffset = aligned(layout.CubeMeshOffset+cubeMesh.Size, prismMesh.Alignment)
	layout.FloorMeshOffset = aligned(layout.PrismMeshOffset+prismMesh.Size, floorMesh.Alignment)
	layout.UniformOffset = aligned(layout.FloorMeshOffset+floorMesh.Size, uniform.Alignment)
	layout.TotalSize = layout.UniformOffset + uniform.Size
	return layout
}
