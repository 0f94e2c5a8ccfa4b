package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Returns the string representation of result.
 * @param result The result to get the string for.
 * @param getExtended Indicates whether to also return an extended result.
 * @returns The error code and/or extended error message in string form.
 */
func VulkanResultString(result vk.Result, getExtended bool) string {
	type resultInfo struct {
		name     string
		extended string
	}
	known := map[vk.Result]resultInfo{
		vk.Success:                   {"VK_SUCCESS", "Command successfully completed"},
		vk.NotReady:                  {"VK_NOT_READY", "A fence or query has not yet completed"},
		vk.Timeout:                   {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
		vk.EventSet:                  {"VK_EVENT_SET", "An event is signaled"},
		vk.EventReset:                {"VK_EVENT_RESET", "An event is unsignaled"},
		vk.Incomplete:                {"VK_INCOMPLETE", "A return array was too small for the result"},
		vk.Suboptimal:                {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present to the surface successfully"},
		vk.ErrorOutOfHostMemory:      {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed"},
		vk.ErrorOutOfDeviceMemory:    {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed"},
		vk.ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed for implementation-specific reasons"},
		vk.ErrorDeviceLost:           {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost"},
		vk.ErrorMemoryMapFailed:      {"VK_ERROR_MEMORY_MAP_FAILED", "Mapping of a memory object has failed"},
		vk.ErrorLayerNotPresent:      {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded"},
		vk.ErrorExtensionNotPresent:  {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported"},
		vk.ErrorFeatureNotPresent:    {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported"},
		vk.ErrorIncompatibleDriver:   {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver or is otherwise incompatible"},
		vk.ErrorTooManyObjects:       {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created"},
		vk.ErrorFormatNotSupported:   {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device"},
		vk.ErrorFragmentedPool:       {"VK_ERROR_FRAGMENTED_POOL", "A pool allocation has failed due to fragmentation of the pool's memory"},
		vk.ErrorSurfaceLost:          {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available"},
		vk.ErrorNativeWindowInUse:    {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The requested window is already in use by Vulkan or another API in a manner which prevents it from being used again"},
		vk.ErrorOutOfDate:            {"VK_ERROR_OUT_OF_DATE_KHR", "A surface has changed in such a way that it is no longer compatible with the swapchain"},
		vk.ErrorOutOfPoolMemory:      {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed"},
		vk.ErrorInvalidExternalHandle: {"VK_ERROR_INVALID_EXTERNAL_HANDLE", "An external handle is not a valid handle of the specified type"},
	}
	info, ok := known[result]
	if !ok {
		info = resultInfo{"VK_ERROR_UNKNOWN", "An unknown error has occurred"}
	}
	if getExtended {
		return info.name + ": " + info.extended
	}
	return info.name
}

/**
 * @brief Indicates if the passed result is a success or an error as defined by the Vulkan spec.
 * @returns True if success; otherwise false.
 */
func VulkanResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset, vk.Incomplete,
		vk.Suboptimal, vk.ThreadIdle, vk.ThreadDone, vk.OperationDeferred, vk.OperationNotDeferred:
		return true
	default:
		return false
	}
}

// VulkanSafeString appends the NUL terminator Vulkan's C strings need.
func VulkanSafeString(s string) string {
	return s + "\x00"
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = VulkanSafeString(s)
	}
	return out
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr) - 1
}
