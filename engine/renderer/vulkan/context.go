package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain must be recreated.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when it was last created.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	GraphicsCommandBuffers []*VulkanCommandBuffer

	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore

	InFlightFences []*VulkanFence

	// Holds pointers to fences which exist and are owned elsewhere.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// HostVisibleMemoryIndex returns a memory type index suitable for the
// mapped uniform and vertex staging allocations, preferring coherent
// memory.
func (vc *VulkanContext) HostVisibleMemoryIndex(typeFilter uint32) int32 {
	wanted := uint32(vk.MemoryPropertyHostVisibleBit) | uint32(vk.MemoryPropertyHostCoherentBit)
	if idx := vc.FindMemoryIndex(typeFilter, wanted); idx >= 0 {
		return idx
	}
	return vc.FindMemoryIndex(typeFilter, uint32(vk.MemoryPropertyHostVisibleBit))
}

// MinUniformBufferOffsetAlignment returns the device's required
// alignment for dynamic uniform buffer offsets.
func (vc *VulkanContext) MinUniformBufferOffsetAlignment() vk.DeviceSize {
	align := vc.Device.Properties.Limits.MinUniformBufferOffsetAlignment
	if align == 0 {
		align = 256
	}
	return align
}
