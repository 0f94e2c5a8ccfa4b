package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
	m "github.com/spaghettifunk/cubes/engine/math"
)

const (
	// MaxInstances caps the instanced mesh count; Add saturates here.
	MaxInstances = 16384
	// InstanceGrowth is how many instances one Add request appends.
	InstanceGrowth = 16
	// Per-instance attributes: translation vec3 + diffuse adjust vec3.
	instanceStride = 24
)

// instanceSet holds the per-instance attribute records. Records are
// generated once when first covered by the count and never touched
// again, so instances keep their position and tint across growth and
// buffer recreation.
type instanceSet struct {
	Count    int
	Prepared int
	data     []byte

	Buf    vk.Buffer
	Memory vk.DeviceMemory
}

func newInstanceSet(initialCount int) *instanceSet {
	if initialCount > MaxInstances {
		initialCount = MaxInstances
	}
	return &instanceSet{
		Count: initialCount,
		data:  make([]byte, MaxInstances*instanceStride),
	}
}

// Add grows the instance count by one increment, saturating at the
// maximum.
func (s *instanceSet) Add() {
	s.Count += InstanceGrowth
	if s.Count > MaxInstances {
		s.Count = MaxInstances
	}
}

// prepare generates attribute records for instances that the count now
// covers but which have never been generated. Existing records are
// left alone.
func (s *instanceSet) prepare() {
	if s.Prepared >= s.Count {
		return
	}
	for i := s.Prepared; i < s.Count; i++ {
		record := []float32{
			m.RandomInRange(-5, 5),
			m.RandomInRange(-4, 6),
			m.RandomInRange(-30, 5),
			m.RandomInRange(-6, 3) / 10.0,
			m.RandomInRange(-6, 3) / 10.0,
			m.RandomInRange(-6, 3) / 10.0,
		}
		copy(s.data[i*instanceStride:], encodeFloats(record))
	}
	s.Prepared = s.Count
}

// ensureBuffer creates the instance vertex buffer on first use (sized
// for the maximum up front) and uploads the active records whenever
// new instances have appeared.
func (s *instanceSet) ensureBuffer(context *VulkanContext) error {
	upload := s.Prepared < s.Count

	if s.Buf == vk.NullBuffer {
		buf, err := createBuffer(context, MaxInstances*instanceStride, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
		if err != nil {
			return err
		}
		s.Buf = buf

		req := bufferRequirement(context, s.Buf)
		memoryType := context.HostVisibleMemoryIndex(0xFFFFFFFF)
		if memoryType < 0 {
			err := fmt.Errorf("no host visible memory type for the instance buffer")
			core.LogError(err.Error())
			return err
		}
		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  req.Size,
			MemoryTypeIndex: uint32(memoryType),
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to allocate instance buffer memory with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		s.Memory = memory
		if res := vk.BindBufferMemory(context.Device.LogicalDevice, s.Buf, s.Memory, 0); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to bind instance buffer with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		upload = true
	}

	if !upload {
		return nil
	}

	s.prepare()

	var mapped unsafe.Pointer
	size := vk.DeviceSize(s.Count * instanceStride)
	if res := vk.MapMemory(context.Device.LogicalDevice, s.Memory, 0, size, 0, &mapped); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to map instance buffer with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(mapped, s.data[:size])
	vk.UnmapMemory(context.Device.LogicalDevice, s.Memory)
	return nil
}

func (s *instanceSet) destroyBuffer(context *VulkanContext) {
	if s.Buf != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, s.Buf, context.Allocator)
		s.Buf = vk.NullBuffer
	}
	if s.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, s.Memory, context.Allocator)
		s.Memory = vk.NullDeviceMemory
	}
}
