package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/assets"
	"github.com/spaghettifunk/cubes/engine/assets/loaders"
	"github.com/spaghettifunk/cubes/engine/core"
	"github.com/spaghettifunk/cubes/engine/resources"
	"github.com/spaghettifunk/cubes/engine/systems"
)

type ShaderData struct {
	Module vk.ShaderModule
}

func (sd *ShaderData) IsValid() bool {
	return sd.Module != vk.NullShaderModule
}

// Shader loads SPIR-V bytecode on a worker and exposes the resulting
// module through a blocking read. Data may be called before the load
// finishes; it waits for the worker exactly once, so a failed load is
// observed as an invalid module without wedging later callers.
type Shader struct {
	data         ShaderData
	results      chan ShaderData
	maybeRunning bool
}

func NewShader() *Shader {
	return &Shader{
		results: make(chan ShaderData, 1),
	}
}

// Load begins reading and compiling the shader at name on the job
// system. Any previously held module is forgotten, not destroyed;
// callers own destruction via vk.DestroyShaderModule.
func (s *Shader) Load(jobs *systems.JobSystem, context *VulkanContext, assetManager *assets.AssetManager, name string) {
	s.start(jobs, func() ShaderData {
		resource, err := assetManager.LoadAsset(name, resources.ResourceTypeShaderBytecode, nil)
		if err != nil {
			core.LogError("failed to load shader '%s': %s", name, err.Error())
			return ShaderData{}
		}
		bytecode, err := loaders.BytesToBytecode(resource.Data.([]byte))
		if err != nil {
			core.LogError("shader '%s' is not valid SPIR-V: %s", name, err.Error())
			return ShaderData{}
		}

		createInfo := vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint64(len(bytecode)) * 4,
			PCode:    bytecode,
		}
		var module vk.ShaderModule
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to create shader module for '%s' with error %s", name, VulkanResultString(res, true))
			core.LogError(err.Error())
			return ShaderData{}
		}
		core.LogDebug("shader '%s' loaded", name)
		return ShaderData{Module: module}
	})
}

func (s *Shader) start(jobs *systems.JobSystem, producer func() ShaderData) {
	// Each load gets its own channel. A producer from before a Reset
	// sends into its original, now unreachable, channel; the buffer
	// keeps that send from blocking the worker.
	results := make(chan ShaderData, 1)
	s.results = results
	s.data = ShaderData{}
	s.maybeRunning = true
	jobs.Submit(systems.JobTask{
		OnStart: func() error {
			results <- producer()
			return nil
		},
	})
}

// Data returns the loaded module, blocking on the worker if the load
// has not been observed yet. Not safe for concurrent callers; the
// record worker is the only reader.
func (s *Shader) Data() *ShaderData {
	if s.maybeRunning && !s.data.IsValid() {
		s.data = <-s.results
		s.maybeRunning = false
	}
	return &s.data
}

func (s *Shader) IsValid() bool {
	return s.data.IsValid()
}

// Reset forgets the module handle and any load still in flight; a
// pending producer's result is discarded, never observed by Data. The
// caller is responsible for destroying the held module first.
func (s *Shader) Reset() {
	s.data = ShaderData{}
	s.maybeRunning = false
	s.results = make(chan ShaderData, 1)
}
