package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
	m "github.com/spaghettifunk/cubes/engine/math"
)

// MaxFramesInFlight is the number of frames that can be worked on
// concurrently before waiting on the presentation engine.
const MaxFramesInFlight = 2

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain

	ImageCount uint32
	Images     []vk.Image
	ImageViews []vk.ImageView

	Extent vk.Extent2D

	DepthAttachment *VulkanImage
	// Multisampled color target resolved into the swapchain image.
	// Nil when the device renders single sampled.
	ColorAttachment *VulkanImage
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{}
	if err := createSwapchainInternal(context, swapchain, width, height); err != nil {
		return nil, err
	}
	return swapchain, nil
}

func (swapchain *VulkanSwapchain) Recreate(context *VulkanContext, width, height uint32) error {
	destroySwapchainInternal(context, swapchain)
	return createSwapchainInternal(context, swapchain, width, height)
}

func (swapchain *VulkanSwapchain) Destroy(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	destroySwapchainInternal(context, swapchain)
}

// AcquireNextImageIndex obtains the index of the next swapchain image
// to render to. Triggers a swapchain recreation on out-of-date.
func (swapchain *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNs uint64,
	imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {

	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, swapchain.Handle, timeoutNs, imageAvailableSemaphore, fence, &imageIndex)
	if result == vk.ErrorOutOfDate {
		if err := swapchain.Recreate(context, context.FramebufferWidth, context.FramebufferHeight); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("swapchain out of date, recreated")
	}
	if result != vk.Success && result != vk.Suboptimal {
		err := fmt.Errorf("failed to acquire swapchain image with error %s", VulkanResultString(result, true))
		core.LogError(err.Error())
		return 0, err
	}
	return imageIndex, nil
}

func (swapchain *VulkanSwapchain) Present(context *VulkanContext, presentQueue vk.Queue,
	renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	var result vk.Result
	if err := lockPool.SafeCall(QueueManagement, func() error {
		result = vk.QueuePresent(presentQueue, &presentInfo)
		return nil
	}); err != nil {
		return err
	}

	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		if err := swapchain.Recreate(context, context.FramebufferWidth, context.FramebufferHeight); err != nil {
			return err
		}
	} else if result != vk.Success {
		err := fmt.Errorf("failed to present swapchain image with error %s", VulkanResultString(result, true))
		core.LogError(err.Error())
		return err
	}

	// Increment (and loop) the index.
	context.CurrentFrame = (context.CurrentFrame + 1) % MaxFramesInFlight
	return nil
}

func createSwapchainInternal(context *VulkanContext, swapchain *VulkanSwapchain, width, height uint32) error {
	swapchainExtent := vk.Extent2D{Width: width, Height: height}

	// Choose a swap surface format.
	found := false
	for _, format := range context.Device.SwapchainSupport.Formats {
		// Preferred format.
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			found = true
			break
		}
	}
	if !found {
		swapchain.ImageFormat = context.Device.SwapchainSupport.Formats[0]
	}

	// Mailbox when available, FIFO otherwise.
	presentMode := vk.PresentModeFifo
	for _, mode := range context.Device.SwapchainSupport.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	// Requery swapchain support.
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, context.Device.SwapchainSupport); err != nil {
		return err
	}

	capabilities := context.Device.SwapchainSupport.Capabilities
	if capabilities.CurrentExtent.Width != m.MaxUint32 {
		swapchainExtent = capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	swapchainExtent.Width = m.Clamp(swapchainExtent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	swapchainExtent.Height = m.Clamp(swapchainExtent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices.
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create swapchain with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	swapchain.Handle = handle
	swapchain.Extent = swapchainExtent

	// Start with a zero frame index.
	context.CurrentFrame = 0

	// Images.
	var swapchainImageCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchainImageCount, nil); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to get swapchain images with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	swapchain.ImageCount = swapchainImageCount
	swapchain.Images = make([]vk.Image, swapchainImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchainImageCount, swapchain.Images); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to get swapchain images with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	// Views.
	swapchain.ImageViews = make([]vk.ImageView, swapchainImageCount)
	for i := uint32(0); i < swapchainImageCount; i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create swapchain image view with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		swapchain.ImageViews[i] = view
	}

	// Depth resources.
	if err := DeviceDetectDepthFormat(context.Device); err != nil {
		return err
	}
	samples := context.Device.MSAASamples
	swapchain.DepthAttachment = &VulkanImage{}
	if err := ImageCreate(context, swapchainExtent.Width, swapchainExtent.Height, context.Device.DepthFormat,
		vk.ImageTilingOptimal, vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), samples,
		true, vk.ImageAspectFlags(vk.ImageAspectDepthBit), swapchain.DepthAttachment); err != nil {
		return err
	}

	// Multisampled color target, resolved into the swapchain image.
	if samples != vk.SampleCount1Bit {
		swapchain.ColorAttachment = &VulkanImage{}
		if err := ImageCreate(context, swapchainExtent.Width, swapchainExtent.Height, swapchain.ImageFormat.Format,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)|vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), samples,
			true, vk.ImageAspectFlags(vk.ImageAspectColorBit), swapchain.ColorAttachment); err != nil {
			return err
		}
	} else {
		swapchain.ColorAttachment = nil
	}

	core.LogInfo("Swapchain created successfully.")
	return nil
}

func destroySwapchainInternal(context *VulkanContext, swapchain *VulkanSwapchain) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	if swapchain.DepthAttachment != nil {
		ImageDestroy(context, swapchain.DepthAttachment)
		swapchain.DepthAttachment = nil
	}
	if swapchain.ColorAttachment != nil {
		ImageDestroy(context, swapchain.ColorAttachment)
		swapchain.ColorAttachment = nil
	}

	// Only destroy the views, not the images, since those are owned by
	// the swapchain and destroyed with it.
	for _, view := range swapchain.ImageViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	swapchain.ImageViews = nil

	vk.DestroySwapchain(context.Device.LogicalDevice, swapchain.Handle, context.Allocator)
	swapchain.Handle = vk.NullSwapchain
}
