package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/core"
	m "github.com/spaghettifunk/cubes/engine/math"
)

type VulkanDevice struct {
	SupportsDeviceLocalHostVisible bool

	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	SwapchainSupport *VulkanSwapchainSupportInfo

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
	// The highest color+depth sample count the device supports,
	// clamped to 4x. Used for the multisampled render target.
	MSAASamples vk.SampleCountFlagBits
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics          bool
	Present           bool
	Compute           bool
	Transfer          bool
	SamplerAnisotropy bool
	DiscreteGPU       bool
	DeviceExtensionNames []string
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
	ComputeFamilyIndex  uint32
	TransferFamilyIndex uint32
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")
	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := context.Device.GraphicsQueueIndex == context.Device.PresentQueueIndex
	transferSharesGraphicsQueue := context.Device.GraphicsQueueIndex == context.Device.TransferQueueIndex

	indices := []uint32{context.Device.GraphicsQueueIndex}
	if !presentSharesGraphicsQueue {
		indices = append(indices, context.Device.PresentQueueIndex)
	}
	if !transferSharesGraphicsQueue {
		indices = append(indices, context.Device.TransferQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	// Request device features.
	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	extensionNames := []string{VulkanSafeString(vk.KhrSwapchainExtensionName)}

	// If the device supports the portability subset it must be enabled.
	var availableExtensionCount uint32
	vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, nil)
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, availableExtensions); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to enumerate device extension properties with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		for i := uint32(0); i < availableExtensionCount; i++ {
			availableExtensions[i].Deref()
			end := FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])
			name := vk.ToString(availableExtensions[i].ExtensionName[:end+1])
			if name == "VK_KHR_portability_subset" {
				core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
				extensionNames = append(extensionNames, VulkanSafeString("VK_KHR_portability_subset"))
			}
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create logical device with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.GraphicsQueueIndex, 0, &graphicsQueue)
	context.Device.GraphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.PresentQueueIndex, 0, &presentQueue)
	context.Device.PresentQueue = presentQueue

	var transferQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.TransferQueueIndex, 0, &transferQueue)
	context.Device.TransferQueue = transferQueue
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create command pool with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) error {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	core.LogInfo("Releasing physical device resources...")
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = nil
	context.Device.GraphicsQueueIndex = 0
	context.Device.PresentQueueIndex = 0
	context.Device.TransferQueueIndex = 0

	return nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, outSupportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities.
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &capabilities); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to get physical device surface capabilities with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	outSupportInfo.Capabilities = capabilities

	// Surface formats.
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to get physical device surface formats with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	outSupportInfo.FormatCount = formatCount

	if formatCount != 0 {
		outSupportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, outSupportInfo.Formats); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to get physical device surface formats with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		for i := range outSupportInfo.Formats {
			outSupportInfo.Formats[i].Deref()
		}
	}

	// Present modes.
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to get physical device surface present modes with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	outSupportInfo.PresentModeCount = presentModeCount

	if presentModeCount != 0 {
		outSupportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, outSupportInfo.PresentModes); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to get physical device surface present modes with error %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
	}

	return nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) error {
	// Format candidates, in order of preference.
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}

	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()

		if (properties.LinearTilingFeatures&flags) == flags || (properties.OptimalTilingFeatures&flags) == flags {
			device.DepthFormat = candidate
			return nil
		}
	}

	err := fmt.Errorf("failed to find a supported depth format")
	core.LogError(err.Error())
	return err
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to enumerate physical devices with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to enumerate physical devices with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		properties.Limits.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
		memory.Deref()

		// Check if device supports local/host visible combo.
		supportsDeviceLocalHostVisible := false
		for i := uint32(0); i < memory.MemoryTypeCount; i++ {
			memory.MemoryTypes[i].Deref()
			flags := uint32(memory.MemoryTypes[i].PropertyFlags)
			if (flags&uint32(vk.MemoryPropertyDeviceLocalBit)) != 0 && (flags&uint32(vk.MemoryPropertyHostVisibleBit)) != 0 {
				supportsDeviceLocalHostVisible = true
				break
			}
		}

		requirements := VulkanPhysicalDeviceRequirements{
			Graphics:          true,
			Present:           true,
			Transfer:          true,
			SamplerAnisotropy: true,
			DiscreteGPU:       runtime.GOOS != "darwin",
			DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		}

		queueInfo := &VulkanPhysicalDeviceQueueFamilyInfo{}
		supportInfo := &VulkanSwapchainSupportInfo{}
		ok, err := PhysicalDeviceMeetsRequirements(pd, context.Surface, &properties, &features, &requirements, queueInfo, supportInfo)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		end := FindFirstZeroInByteArray(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:end+1]))
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo("GPU Driver version: %d.%d.%d",
			(properties.DriverVersion>>22)&0x3FF,
			(properties.DriverVersion>>12)&0x3FF,
			properties.DriverVersion&0xFFF)

		context.Device.PhysicalDevice = pd
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
		context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		context.Device.SupportsDeviceLocalHostVisible = supportsDeviceLocalHostVisible
		context.Device.SwapchainSupport = supportInfo
		context.Device.MSAASamples = maxUsableSampleCount(properties)
		break
	}

	// Ensure a device was selected.
	if context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements")
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Physical device selected.")
	return nil
}

// maxUsableSampleCount picks the multisample count for the scene's
// color and depth targets. The swapchain image itself is always single
// sampled; 4x is requested when the device allows it.
func maxUsableSampleCount(properties vk.PhysicalDeviceProperties) vk.SampleCountFlagBits {
	counts := uint32(properties.Limits.FramebufferColorSampleCounts) & uint32(properties.Limits.FramebufferDepthSampleCounts)
	if counts&uint32(vk.SampleCount4Bit) != 0 {
		return vk.SampleCount4Bit
	}
	if counts&uint32(vk.SampleCount2Bit) != 0 {
		return vk.SampleCount2Bit
	}
	return vk.SampleCount1Bit
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties,
	features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements,
	outQueueInfo *VulkanPhysicalDeviceQueueFamilyInfo, outSwapchainSupport *VulkanSwapchainSupportInfo) (bool, error) {

	end := FindFirstZeroInByteArray(properties.DeviceName[:])
	deviceName := vk.ToString(properties.DeviceName[:end+1])

	outQueueInfo.GraphicsFamilyIndex = m.MaxUint32
	outQueueInfo.PresentFamilyIndex = m.MaxUint32
	outQueueInfo.ComputeFamilyIndex = m.MaxUint32
	outQueueInfo.TransferFamilyIndex = m.MaxUint32

	// Discrete GPU?
	if requirements.DiscreteGPU {
		if properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
			core.LogInfo("Device '%s' is not a discrete GPU. Skipping.", deviceName)
			return false, nil
		}
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Look at each queue and see what queues it supports.
	minTransferScore := m.MaxUint8
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		currentTransferScore := uint32(0)

		// Graphics queue?
		if outQueueInfo.GraphicsFamilyIndex == m.MaxUint32 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			outQueueInfo.GraphicsFamilyIndex = i
			currentTransferScore++

			// If also a present queue this prioritizes grouping of the two.
			var supportsPresent vk.Bool32
			if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); !VulkanResultIsSuccess(res) {
				err := fmt.Errorf("failed to get physical device surface support with error %s", VulkanResultString(res, true))
				core.LogError(err.Error())
				return false, err
			}
			if supportsPresent == vk.True {
				outQueueInfo.PresentFamilyIndex = i
				currentTransferScore++
			}
		}

		// Compute queue?
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			outQueueInfo.ComputeFamilyIndex = i
			currentTransferScore++
		}

		// Transfer queue?
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
			// Take the index if it is the current lowest. This increases the
			// likelihood that it is a dedicated transfer queue.
			if currentTransferScore <= minTransferScore {
				minTransferScore = currentTransferScore
				outQueueInfo.TransferFamilyIndex = i
			}
		}
	}

	// If a present queue hasn't been found, iterate again and take the first one.
	if outQueueInfo.PresentFamilyIndex == m.MaxUint32 {
		for i := uint32(0); i < queueFamilyCount; i++ {
			var supportsPresent vk.Bool32
			if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); !VulkanResultIsSuccess(res) {
				err := fmt.Errorf("failed to get physical device surface support with error %s", VulkanResultString(res, true))
				core.LogError(err.Error())
				return false, err
			}
			if supportsPresent == vk.True {
				outQueueInfo.PresentFamilyIndex = i
				if outQueueInfo.PresentFamilyIndex != outQueueInfo.GraphicsFamilyIndex {
					core.LogWarn("Warning: Different queue index used for present vs graphics: %d.", i)
				}
				break
			}
		}
	}

	if (requirements.Graphics && outQueueInfo.GraphicsFamilyIndex == m.MaxUint32) ||
		(requirements.Present && outQueueInfo.PresentFamilyIndex == m.MaxUint32) ||
		(requirements.Compute && outQueueInfo.ComputeFamilyIndex == m.MaxUint32) ||
		(requirements.Transfer && outQueueInfo.TransferFamilyIndex == m.MaxUint32) {
		return false, nil
	}

	core.LogInfo("Device '%s' meets queue requirements.", deviceName)

	// Query swapchain support.
	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		return false, err
	}
	if outSwapchainSupport.FormatCount < 1 || outSwapchainSupport.PresentModeCount < 1 {
		core.LogInfo("Required swapchain support not present, skipping device '%s'.", deviceName)
		return false, nil
	}

	// Device extensions.
	if len(requirements.DeviceExtensionNames) > 0 {
		var availableExtensionCount uint32
		vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil)
		if availableExtensionCount != 0 {
			availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
			if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); !VulkanResultIsSuccess(res) {
				err := fmt.Errorf("failed to enumerate device extension properties with error %s", VulkanResultString(res, true))
				core.LogError(err.Error())
				return false, err
			}
			for _, required := range requirements.DeviceExtensionNames {
				found := false
				for i := uint32(0); i < availableExtensionCount; i++ {
					availableExtensions[i].Deref()
					end := FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])
					if required == vk.ToString(availableExtensions[i].ExtensionName[:end+1]) {
						found = true
						break
					}
				}
				if !found {
					core.LogInfo("Required extension '%s' not found, skipping device '%s'.", required, deviceName)
					return false, nil
				}
			}
		}
	}

	// Sampler anisotropy.
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy != vk.True {
		core.LogInfo("Device '%s' does not support sampler anisotropy, skipping.", deviceName)
		return false, nil
	}

	// Device meets all requirements.
	return true, nil
}
