package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
)

// sceneBuffers packs the three mesh vertex buffers and the per-frame
// uniform slots into one host-visible device allocation. The mapping
// is kept for the buffers' lifetime; uniform writes go straight to the
// current frame slot.
type sceneBuffers struct {
	CubeBuf    vk.Buffer
	PrismBuf   vk.Buffer
	FloorBuf   vk.Buffer
	UniformBuf vk.Buffer

	Memory vk.DeviceMemory
	Layout bufferLayout
	mapped unsafe.Pointer

	VertUniSize vk.DeviceSize
	FragUniSize vk.DeviceSize

	DescPool vk.DescriptorPool
	DescSet  vk.DescriptorSet
}

// newSceneDescriptorSetLayout describes the two dynamic uniform
// bindings shared by the buffers' descriptor set and the instanced
// pipeline's layout. Created eagerly so concurrent pipeline creation
// never races lazy buffer setup.
func newSceneDescriptorSetLayout(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	layoutBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var setLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &setLayout); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create descriptor set layout with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullDescriptorSetLayout, err
	}
	return setLayout, nil
}

func (b *sceneBuffers) valid() bool {
	return b.UniformBuf != vk.NullBuffer
}

// frameSlotSize is the combined size of one frame's vertex and
// fragment uniform blocks. Dynamic offsets are multiples of it.
func (b *sceneBuffers) frameSlotSize() vk.DeviceSize {
	return b.VertUniSize + b.FragUniSize
}

func createBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags) (vk.Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create buffer with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullBuffer, err
	}
	return buffer, nil
}

func bufferRequirement(context *VulkanContext, buffer vk.Buffer) regionRequirement {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &requirements)
	requirements.Deref()
	return regionRequirement{Size: requirements.Size, Alignment: requirements.Alignment}
}

// create builds the packed allocation: vertex buffers for both meshes
// and the floor, then the uniform buffer holding frameCount slots. The
// vertex regions are filled immediately; uniform slots are written
// during frame recording.
func (b *sceneBuffers) create(context *VulkanContext, frameCount uint32, setLayout vk.DescriptorSetLayout, cubeMesh, prismMesh, floorMesh []byte) error {
	align := context.MinUniformBufferOffsetAlignment()
	b.VertUniSize = vertexUniformSize(align)
	b.FragUniSize = fragmentUniformSize(align)
	uniformSize := b.frameSlotSize() * vk.DeviceSize(frameCount)

	var err error
	if b.CubeBuf, err = createBuffer(context, vk.DeviceSize(len(cubeMesh)), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if b.PrismBuf, err = createBuffer(context, vk.DeviceSize(len(prismMesh)), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if b.FloorBuf, err = createBuffer(context, vk.DeviceSize(len(floorMesh)), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if b.UniformBuf, err = createBuffer(context, uniformSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)); err != nil {
		return err
	}

	cubeReq := bufferRequirement(context, b.CubeBuf)
	prismReq := bufferRequirement(context, b.PrismBuf)
	floorReq := bufferRequirement(context, b.FloorBuf)
	uniformReq := bufferRequirement(context, b.UniformBuf)

	b.Layout = computeBufferLayout(cubeReq, prismReq, floorReq, uniformReq)

	// All four buffers must come out of one memory type.
	var typeBits uint32 = 0xFFFFFFFF
	for _, buf := range []vk.Buffer{b.CubeBuf, b.PrismBuf, b.FloorBuf, b.UniformBuf} {
		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buf, &requirements)
		requirements.Deref()
		typeBits &= requirements.MemoryTypeBits
	}
	memoryType := context.HostVisibleMemoryIndex(typeBits)
	if memoryType < 0 {
		err := fmt.Errorf("no host visible memory type serves all scene buffers")
		core.LogError(err.Error())
		return err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  b.Layout.TotalSize,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to allocate scene buffer memory with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	b.Memory = memory

	for _, bind := range []struct {
		buf    vk.Buffer
		offset vk.DeviceSize
	}{
		{b.CubeBuf, b.Layout.CubeMeshOffset},
		{b.PrismBuf, b.Layout.PrismMeshOffset},
		{b.FloorBuf, b.Layout.FloorMeshOffset},
		{b.UniformBuf, b.Layout.UniformOffset},
	} {
		if res := vk.BindBufferMemory(context.Device.LogicalDevice, bind.buf, b.Memory, bind.offset); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to bind scene buffer with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, b.Layout.TotalSize, 0, &mapped); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to map scene buffer memory with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	b.mapped = mapped

	b.writeBytes(b.Layout.CubeMeshOffset, cubeMesh)
	b.writeBytes(b.Layout.PrismMeshOffset, prismMesh)
	b.writeBytes(b.Layout.FloorMeshOffset, floorMesh)

	return b.createDescriptors(context, setLayout)
}

func (b *sceneBuffers) createDescriptors(context *VulkanContext, setLayout vk.DescriptorSetLayout) error {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 2,
		},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create descriptor pool with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	b.DescPool = pool

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     b.DescPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{setLayout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to allocate descriptor set with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	b.DescSet = set

	// The descriptors address frame slot zero; uniform reads are
	// shifted per frame via dynamic offsets at bind time.
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          b.DescSet,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: b.UniformBuf, Offset: 0, Range: b.VertUniSize},
			},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          b.DescSet,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: b.UniformBuf, Offset: b.VertUniSize, Range: b.FragUniSize},
			},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// writeBytes copies data into the mapped allocation at the given
// offset from the start of the allocation.
func (b *sceneBuffers) writeBytes(offset vk.DeviceSize, data []byte) {
	dst := unsafe.Pointer(uintptr(b.mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
}

// writeUniformBytes copies data into the uniform region. The offset is
// relative to the start of the uniform buffer, matching the dynamic
// offsets handed to the descriptor binding.
func (b *sceneBuffers) writeUniformBytes(offset vk.DeviceSize, data []byte) {
	b.writeBytes(b.Layout.UniformOffset+offset, data)
}

func (b *sceneBuffers) destroy(context *VulkanContext) {
	dev := context.Device.LogicalDevice
	if b.DescPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, b.DescPool, context.Allocator)
		b.DescPool = vk.NullDescriptorPool
		b.DescSet = vk.NullDescriptorSet
	}
	if b.mapped != nil {
		vk.UnmapMemory(dev, b.Memory)
		b.mapped = nil
	}
	for _, buf := range []*vk.Buffer{&b.CubeBuf, &b.PrismBuf, &b.FloorBuf, &b.UniformBuf} {
		if *buf != vk.NullBuffer {
			vk.DestroyBuffer(dev, *buf, context.Allocator)
			*buf = vk.NullBuffer
		}
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(dev, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// encodeFloats packs float32 values little-endian, the layout mapped
// GPU memory expects on every supported platform.
func encodeFloats(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
