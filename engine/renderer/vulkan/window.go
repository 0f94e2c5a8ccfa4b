package vulkan

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
	m "github.com/spaghettifunk/cubes/engine/math"
)

// VulkanWindow owns the presentation side: instance, device,
// swapchain, framebuffers, per-frame sync objects, and the draw loop
// handshake with the renderer. It implements PresentationLayer.
type VulkanWindow struct {
	context  *VulkanContext
	renderer *Renderer

	window *glfw.Window

	framebuffers []*VulkanFramebuffer

	// Buffered handshake channel; the worker signals recording done,
	// the draw loop receives before submitting.
	frameReadyCh chan struct{}

	updateRequested atomic.Bool

	validationEnabled bool
}

func NewVulkanWindow(appName string, window *glfw.Window, width, height uint32, enableValidation bool) (*VulkanWindow, error) {
	w := &VulkanWindow{
		context: &VulkanContext{
			FramebufferWidth:  width,
			FramebufferHeight: height,
			Device:            &VulkanDevice{},
		},
		window:            window,
		frameReadyCh:      make(chan struct{}, 1),
		validationEnabled: enableValidation,
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize the Vulkan loader: %s", err.Error())
		return nil, err
	}

	if err := w.createInstance(appName); err != nil {
		return nil, err
	}
	if w.validationEnabled {
		if err := w.createDebugCallback(); err != nil {
			return nil, err
		}
	}
	if err := w.createSurface(); err != nil {
		return nil, err
	}
	if err := DeviceCreate(w.context); err != nil {
		return nil, err
	}

	swapchain, err := SwapchainCreate(w.context, w.context.FramebufferWidth, w.context.FramebufferHeight)
	if err != nil {
		return nil, err
	}
	w.context.Swapchain = swapchain

	renderpass, err := RenderpassCreate(w.context,
		0, 0, float32(w.context.FramebufferWidth), float32(w.context.FramebufferHeight),
		0.67, 0.84, 0.9, 1.0,
		1.0, 0)
	if err != nil {
		return nil, err
	}
	w.context.MainRenderpass = renderpass

	if err := w.regenerateFramebuffers(); err != nil {
		return nil, err
	}
	if err := w.createCommandBuffers(); err != nil {
		return nil, err
	}
	if err := w.createSyncObjects(); err != nil {
		return nil, err
	}

	core.LogInfo("Vulkan window initialized successfully.")
	return w, nil
}

func (w *VulkanWindow) createInstance(appName string) error {
	requiredExtensions := w.window.GetRequiredInstanceExtensions()
	if w.validationEnabled {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_get_physical_device_properties2",
			"VK_KHR_portability_enumeration")
	}

	requiredLayers := []string{}
	if w.validationEnabled {
		core.LogInfo("Validation layers enabled. Verifying...")
		requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to enumerate instance layer properties with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to enumerate instance layer properties with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}

		for _, required := range requiredLayers {
			found := false
			for i := uint32(0); i < availableLayerCount; i++ {
				availableLayers[i].Deref()
				end := FindFirstZeroInByteArray(availableLayers[i].LayerName[:])
				if required == vk.ToString(availableLayers[i].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("cubes"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        applicationInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
		EnabledLayerCount:       uint32(len(requiredLayers)),
		PpEnabledLayerNames:     VulkanSafeStrings(requiredLayers),
	}
	if runtime.GOOS == "darwin" {
		instanceCreateInfo.Flags |= vk.InstanceCreateFlags(0x00000001) // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceCreateInfo, w.context.Allocator, &instance); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create instance with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	w.context.Instance = instance
	vk.InitInstance(w.context.Instance)

	core.LogInfo("Vulkan instance created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64,
	location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("[perf] [%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogDebug("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}

func (w *VulkanWindow) createDebugCallback() error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(w.context.Instance, &createInfo, w.context.Allocator, &callback); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create debug callback with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	w.context.debugMessenger = callback
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (w *VulkanWindow) createSurface() error {
	surfacePtr, err := w.window.CreateWindowSurface(w.context.Instance, nil)
	if err != nil {
		core.LogError("failed to create window surface: %s", err.Error())
		return err
	}
	w.context.Surface = vk.SurfaceFromPointer(surfacePtr)
	core.LogInfo("Vulkan surface created.")
	return nil
}

func (w *VulkanWindow) createCommandBuffers() error {
	if w.context.GraphicsCommandBuffers == nil {
		w.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, w.context.Swapchain.ImageCount)
	}
	for i := range w.context.GraphicsCommandBuffers {
		if w.context.GraphicsCommandBuffers[i] != nil {
			w.context.GraphicsCommandBuffers[i].Free(w.context, w.context.Device.GraphicsCommandPool)
		}
		cb, err := NewCommandBuffer(w.context, w.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		w.context.GraphicsCommandBuffers[i] = cb
	}
	return nil
}

// regenerateFramebuffers builds one framebuffer per swapchain image.
// With multisampling the pass renders into the shared MSAA color
// target and resolves into the per-image swapchain view.
func (w *VulkanWindow) regenerateFramebuffers() error {
	swapchain := w.context.Swapchain

	for _, framebuffer := range w.framebuffers {
		framebuffer.Destroy(w.context)
	}
	w.framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)

	for i := uint32(0); i < swapchain.ImageCount; i++ {
		var attachments []vk.ImageView
		if swapchain.ColorAttachment != nil {
			attachments = []vk.ImageView{
				swapchain.ColorAttachment.View,
				swapchain.DepthAttachment.View,
				swapchain.ImageViews[i],
			}
		} else {
			attachments = []vk.ImageView{
				swapchain.ImageViews[i],
				swapchain.DepthAttachment.View,
			}
		}
		framebuffer, err := FramebufferCreate(w.context, w.context.MainRenderpass,
			swapchain.Extent.Width, swapchain.Extent.Height, attachments)
		if err != nil {
			return err
		}
		w.framebuffers[i] = framebuffer
	}
	return nil
}

func (w *VulkanWindow) createSyncObjects() error {
	w.context.ImageAvailableSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	w.context.QueueCompleteSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	w.context.InFlightFences = make([]*VulkanFence, MaxFramesInFlight)

	for i := 0; i < MaxFramesInFlight; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		var imageAvailable vk.Semaphore
		if res := vk.CreateSemaphore(w.context.Device.LogicalDevice, &semaphoreCreateInfo, w.context.Allocator, &imageAvailable); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create semaphore with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		w.context.ImageAvailableSemaphores[i] = imageAvailable

		var queueComplete vk.Semaphore
		if res := vk.CreateSemaphore(w.context.Device.LogicalDevice, &semaphoreCreateInfo, w.context.Allocator, &queueComplete); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create semaphore with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		w.context.QueueCompleteSemaphores[i] = queueComplete

		// Created signaled so the first frame does not deadlock
		// waiting on a fence that was never submitted.
		fence, err := NewFence(w.context, true)
		if err != nil {
			return err
		}
		w.context.InFlightFences[i] = fence
	}

	w.context.ImagesInFlight = make([]*VulkanFence, w.context.Swapchain.ImageCount)
	return nil
}

// AttachRenderer wires the scene renderer to the window and builds its
// GPU resources.
func (w *VulkanWindow) AttachRenderer(renderer *Renderer) error {
	w.renderer = renderer
	renderer.PreInitResources()
	if err := renderer.InitResources(); err != nil {
		return err
	}
	renderer.InitSwapChainResources()
	w.RequestUpdate()
	return nil
}

// PresentationLayer implementation.

func (w *VulkanWindow) Context() *VulkanContext { return w.context }

func (w *VulkanWindow) ConcurrentFrameCount() uint32 { return MaxFramesInFlight }

func (w *VulkanWindow) CurrentFrameIndex() uint32 { return w.context.CurrentFrame }

func (w *VulkanWindow) CurrentCommandBuffer() *VulkanCommandBuffer {
	return w.context.GraphicsCommandBuffers[w.context.ImageIndex]
}

func (w *VulkanWindow) CurrentFramebuffer() vk.Framebuffer {
	return w.framebuffers[w.context.ImageIndex].Handle
}

func (w *VulkanWindow) DefaultRenderpass() *VulkanRenderpass { return w.context.MainRenderpass }

func (w *VulkanWindow) SwapchainExtent() vk.Extent2D { return w.context.Swapchain.Extent }

func (w *VulkanWindow) FrameReady() {
	w.frameReadyCh <- struct{}{}
}

// RequestUpdate asks the run loop for another frame. Calls coalesce;
// a single draw serves any number of requests made before it.
func (w *VulkanWindow) RequestUpdate() {
	w.updateRequested.Store(true)
}

// ConsumeUpdateRequest reports whether a redraw was requested since
// the last call, clearing the flag.
func (w *VulkanWindow) ConsumeUpdateRequest() bool {
	return w.updateRequested.Swap(false)
}

// Resized tells the window the framebuffer size changed. The swapchain
// is recreated lazily on the next draw.
func (w *VulkanWindow) Resized(width, height uint32) {
	w.context.FramebufferWidth = width
	w.context.FramebufferHeight = height
	w.context.FramebufferSizeGeneration++
	w.RequestUpdate()
	core.LogDebug("Vulkan window resized: %d x %d gen %d", width, height, w.context.FramebufferSizeGeneration)
}

// DrawFrame runs one full frame: wait for the frame slot, acquire an
// image, let the renderer record on its worker, then submit and
// present. Returns without drawing while a resize is being absorbed.
func (w *VulkanWindow) DrawFrame() error {
	context := w.context

	if context.RecreatingSwapchain {
		if res := vk.DeviceWaitIdle(context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to wait for device idle with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		return nil
	}

	if context.FramebufferSizeGeneration != context.FramebufferSizeLastGeneration {
		return w.recreateSwapchain()
	}

	if !context.InFlightFences[context.CurrentFrame].Wait(context, m.MaxUint64) {
		core.LogWarn("in-flight fence wait failure")
		return nil
	}

	imageIndex, err := context.Swapchain.AcquireNextImageIndex(context, m.MaxUint64,
		context.ImageAvailableSemaphores[context.CurrentFrame], vk.NullFence)
	if err != nil {
		// Out-of-date acquires already recreated the swapchain.
		return nil
	}
	context.ImageIndex = imageIndex

	commandBuffer := context.GraphicsCommandBuffers[context.ImageIndex]
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	// Hand recording to the renderer's worker and wait for it to
	// finish the frame.
	w.renderer.StartNextFrame()
	<-w.frameReadyCh

	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image.
	if context.ImagesInFlight[context.ImageIndex] != nil {
		context.ImagesInFlight[context.ImageIndex].Wait(context, m.MaxUint64)
	}
	context.ImagesInFlight[context.ImageIndex] = context.InFlightFences[context.CurrentFrame]

	if err := context.InFlightFences[context.CurrentFrame].Reset(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{context.QueueCompleteSemaphores[context.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{context.ImageAvailableSemaphores[context.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if err := lockPool.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo},
			context.InFlightFences[context.CurrentFrame].Handle); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("failed to submit queue with error %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()

	return context.Swapchain.Present(context, context.Device.PresentQueue,
		context.QueueCompleteSemaphores[context.CurrentFrame], context.ImageIndex)
}

func (w *VulkanWindow) recreateSwapchain() error {
	context := w.context

	if context.RecreatingSwapchain {
		return nil
	}
	if context.FramebufferWidth == 0 || context.FramebufferHeight == 0 {
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return nil
	}
	context.RecreatingSwapchain = true

	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	for i := range context.ImagesInFlight {
		context.ImagesInFlight[i] = nil
	}

	// Finish any frame the worker is still recording before the
	// swapchain resources go away underneath it.
	w.renderer.ReleaseSwapChainResources()
	w.drainFrameReady()

	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, context.Device.SwapchainSupport); err != nil {
		context.RecreatingSwapchain = false
		return err
	}
	if err := context.Swapchain.Recreate(context, context.FramebufferWidth, context.FramebufferHeight); err != nil {
		context.RecreatingSwapchain = false
		return err
	}

	context.MainRenderpass.W = float32(context.Swapchain.Extent.Width)
	context.MainRenderpass.H = float32(context.Swapchain.Extent.Height)
	context.FramebufferSizeLastGeneration = context.FramebufferSizeGeneration

	if err := w.regenerateFramebuffers(); err != nil {
		context.RecreatingSwapchain = false
		return err
	}
	if err := w.createCommandBuffers(); err != nil {
		context.RecreatingSwapchain = false
		return err
	}

	context.RecreatingSwapchain = false
	w.renderer.InitSwapChainResources()
	w.RequestUpdate()
	return nil
}

// drainFrameReady consumes a FrameReady signal left by an interrupted
// frame so the next draw does not see a stale one.
func (w *VulkanWindow) drainFrameReady() {
	select {
	case <-w.frameReadyCh:
	default:
	}
}

// Shutdown tears the presentation stack down in reverse creation
// order. The renderer's resources must be released first.
func (w *VulkanWindow) Shutdown() {
	context := w.context
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if w.renderer != nil {
		w.renderer.ReleaseSwapChainResources()
		w.drainFrameReady()
		w.renderer.ReleaseResources()
		w.renderer = nil
	}

	for i := 0; i < MaxFramesInFlight; i++ {
		if w.context.ImageAvailableSemaphores != nil {
			vk.DestroySemaphore(context.Device.LogicalDevice, context.ImageAvailableSemaphores[i], context.Allocator)
		}
		if w.context.QueueCompleteSemaphores != nil {
			vk.DestroySemaphore(context.Device.LogicalDevice, context.QueueCompleteSemaphores[i], context.Allocator)
		}
		if w.context.InFlightFences != nil {
			context.InFlightFences[i].Destroy(context)
		}
	}
	context.ImageAvailableSemaphores = nil
	context.QueueCompleteSemaphores = nil
	context.InFlightFences = nil
	context.ImagesInFlight = nil

	for _, cb := range context.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(context, context.Device.GraphicsCommandPool)
		}
	}
	context.GraphicsCommandBuffers = nil

	for _, framebuffer := range w.framebuffers {
		framebuffer.Destroy(context)
	}
	w.framebuffers = nil

	if context.MainRenderpass != nil {
		context.MainRenderpass.Destroy(context)
		context.MainRenderpass = nil
	}
	if context.Swapchain != nil {
		context.Swapchain.Destroy(context)
		context.Swapchain = nil
	}

	DeviceDestroy(context)

	if context.Surface != vk.NullSurface {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}
	if w.validationEnabled && context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
	}
	if context.Instance != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
	core.LogInfo("Vulkan window shut down.")
}
