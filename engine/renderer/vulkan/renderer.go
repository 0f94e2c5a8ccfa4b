package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/assets"
	"github.com/spaghettifunk/cubes/engine/core"
	m "github.com/spaghettifunk/cubes/engine/math"
	"github.com/spaghettifunk/cubes/engine/renderer/components"
	"github.com/spaghettifunk/cubes/engine/resources"
	"github.com/spaghettifunk/cubes/engine/systems"
	"golang.org/x/sync/errgroup"
)

// PresentationLayer is what the renderer needs from the window that
// drives it: the Vulkan context, the per-frame recording targets, and
// the callbacks that hand a recorded frame back for submission.
type PresentationLayer interface {
	Context() *VulkanContext
	ConcurrentFrameCount() uint32
	CurrentFrameIndex() uint32
	CurrentCommandBuffer() *VulkanCommandBuffer
	CurrentFramebuffer() vk.Framebuffer
	DefaultRenderpass() *VulkanRenderpass
	SwapchainExtent() vk.Extent2D
	// FrameReady signals that command recording for the pending frame
	// has finished and the frame can be submitted.
	FrameReady()
	// RequestUpdate schedules another frame.
	RequestUpdate()
}

const initialInstanceCount = 128

var lightPosition = m.NewVec3(0, 0, 25)

// Renderer records the animated scene: a floor plane plus an instanced
// mesh lit by a single point light. Frame command recording happens on
// a job system worker while the window thread waits on FrameReady; at
// most one frame may be in flight through that path at a time.
type Renderer struct {
	window PresentationLayer
	jobs   *systems.JobSystem
	assets *assets.AssetManager

	instVertShader  *Shader
	instFragShader  *Shader
	floorVertShader *Shader
	floorFragShader *Shader

	pipelineCache   vk.PipelineCache
	descSetLayout   vk.DescriptorSetLayout
	itemPipeline    *VulkanPipeline
	floorPipeline   *VulkanPipeline
	pipelinesFuture *systems.Future

	buffers   sceneBuffers
	instances *instanceSet

	cubeMesh  resources.MeshData
	prismMesh resources.MeshData
	floorMesh []byte

	camera     *components.Camera
	projection m.Mat4
	floorModel m.Mat4

	rotation  float32
	animating bool
	usePrism  bool

	// guards scene state shared between input handlers on the window
	// thread and buildFrame on the worker.
	sceneMu sync.Mutex

	framePendingMu sync.Mutex
	framePending   bool
	frameFuture    *systems.Future

	// Number of frame slots whose uniforms still hold a stale
	// view-projection. Reset to the concurrent frame count whenever
	// the projection or camera changes.
	vpDirty uint32
}

func NewRenderer(window PresentationLayer, jobs *systems.JobSystem, assetManager *assets.AssetManager,
	cubeMesh, prismMesh resources.MeshData) *Renderer {

	floorModel := m.NewMat4Translation(m.NewVec3(0, -5, 0)).
		Mul(m.NewMat4EulerX(-90 * m.K_DEG2RAD_MULTIPLIER)).
		Mul(m.NewMat4Scale(m.NewVec3(20, 100, 1)))

	return &Renderer{
		window:          window,
		jobs:            jobs,
		assets:          assetManager,
		instVertShader:  NewShader(),
		instFragShader:  NewShader(),
		floorVertShader: NewShader(),
		floorFragShader: NewShader(),
		cubeMesh:        cubeMesh,
		prismMesh:       prismMesh,
		floorMesh:       encodeFloats(resources.QuadVertices),
		camera:          components.NewCamera(m.NewVec3(0, 0, 20)),
		floorModel:      floorModel,
		instances:       newInstanceSet(initialInstanceCount),
		animating:       true,
	}
}

// InitResources creates the pipeline cache and descriptor set layout,
// kicks off the shader loads, and starts pipeline creation on a
// worker. buildFrame joins the pipeline future before recording.
// PreInitResources runs before any Vulkan resource exists. The sample
// count is already settled at device selection; this is the place to
// report it before the pipelines bake it in.
func (r *Renderer) PreInitResources() {
	context := r.window.Context()
	core.LogInfo("rendering with %dx sample count", context.Device.MSAASamples)
}

func (r *Renderer) InitResources() error {
	context := r.window.Context()

	cacheInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if res := vk.CreatePipelineCache(context.Device.LogicalDevice, &cacheInfo, context.Allocator, &cache); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create pipeline cache with error %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	r.pipelineCache = cache

	setLayout, err := newSceneDescriptorSetLayout(context)
	if err != nil {
		return err
	}
	r.descSetLayout = setLayout

	for name, shader := range map[string]*Shader{
		"phong_inst.vert": r.instVertShader,
		"phong_inst.frag": r.instFragShader,
		"flat_color.vert": r.floorVertShader,
		"flat_color.frag": r.floorFragShader,
	} {
		if !shader.IsValid() {
			shader.Load(r.jobs, context, r.assets, name)
		}
	}

	r.pipelinesFuture = r.jobs.SubmitTracked(r.createPipelines, nil)
	return nil
}

func (r *Renderer) createPipelines() error {
	context := r.window.Context()

	g := errgroup.Group{}
	g.Go(func() error {
		pipeline, err := r.createItemPipeline(context)
		if err != nil {
			return err
		}
		r.itemPipeline = pipeline
		return nil
	})
	g.Go(func() error {
		pipeline, err := r.createFloorPipeline(context)
		if err != nil {
			return err
		}
		r.floorPipeline = pipeline
		return nil
	})
	return g.Wait()
}

func shaderStages(vert, frag *ShaderData) []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vert.Module,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: frag.Module,
			PName:  VulkanSafeString("main"),
		},
	}
}

func (r *Renderer) createItemPipeline(context *VulkanContext) (*VulkanPipeline, error) {
	vert := r.instVertShader.Data()
	frag := r.instFragShader.Data()
	if !vert.IsValid() || !frag.IsValid() {
		err := fmt.Errorf("instanced mesh shaders failed to load")
		core.LogError(err.Error())
		return nil, err
	}

	config := &VulkanPipelineConfig{
		Renderpass: r.window.DefaultRenderpass(),
		Bindings: []vk.VertexInputBindingDescription{
			{Binding: 0, Stride: resources.VertexStride, InputRate: vk.VertexInputRateVertex},
			{Binding: 1, Stride: instanceStride, InputRate: vk.VertexInputRateInstance},
		},
		Attributes: []vk.VertexInputAttributeDescription{
			// position
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			// normal
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 20},
			// per-instance translation
			{Location: 2, Binding: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			// per-instance diffuse adjustment
			{Location: 3, Binding: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		},
		DescriptorSetLayouts: []vk.DescriptorSetLayout{r.descSetLayout},
		Stages:               shaderStages(vert, frag),
		Topology:             vk.PrimitiveTopologyTriangleList,
		CullMode:             vk.CullModeBackBit,
		FrontFace:            vk.FrontFaceCounterClockwise,
		Cache:                r.pipelineCache,
	}
	return NewGraphicsPipeline(context, config)
}

func (r *Renderer) createFloorPipeline(context *VulkanContext) (*VulkanPipeline, error) {
	vert := r.floorVertShader.Data()
	frag := r.floorFragShader.Data()
	if !vert.IsValid() || !frag.IsValid() {
		err := fmt.Errorf("floor shaders failed to load")
		core.LogError(err.Error())
		return nil, err
	}

	config := &VulkanPipelineConfig{
		Renderpass: r.window.DefaultRenderpass(),
		Bindings: []vk.VertexInputBindingDescription{
			{Binding: 0, Stride: 3 * 4, InputRate: vk.VertexInputRateVertex},
		},
		Attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		},
		Stages: shaderStages(vert, frag),
		PushConstantRanges: []vk.PushConstantRange{
			{StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit), Offset: 0, Size: 64},
			{StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit), Offset: 64, Size: 12},
		},
		Topology:  vk.PrimitiveTopologyTriangleStrip,
		CullMode:  vk.CullModeBackBit,
		FrontFace: vk.FrontFaceClockwise,
		Cache:     r.pipelineCache,
	}
	return NewGraphicsPipeline(context, config)
}

// InitSwapChainResources recomputes the projection for the new extent
// and marks every frame slot's view-projection stale.
func (r *Renderer) InitSwapChainResources() {
	extent := r.window.SwapchainExtent()

	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	aspect := float32(extent.Width) / float32(extent.Height)
	r.projection = m.NewMat4VulkanClipCorrection().
		Mul(m.NewMat4Perspective(45*m.K_DEG2RAD_MULTIPLIER, aspect, 0.01, 1000.0))
	r.markViewProjDirty()
}

func (r *Renderer) markViewProjDirty() {
	r.vpDirty = r.window.ConcurrentFrameCount()
}

// ReleaseSwapChainResources drains the in-flight frame build. This is
// the last point where recording may still reference the swapchain, so
// an interrupted frame is finished here and handed back.
func (r *Renderer) ReleaseSwapChainResources() {
	r.framePendingMu.Lock()
	future := r.frameFuture
	r.framePendingMu.Unlock()
	if future != nil {
		future.Wait()
	}
	if r.completeFrame() {
		r.window.FrameReady()
	}
}

func (r *Renderer) ReleaseResources() {
	context := r.window.Context()

	if r.pipelinesFuture != nil {
		r.pipelinesFuture.Wait()
		r.pipelinesFuture = nil
	}

	if r.itemPipeline != nil {
		r.itemPipeline.Destroy(context)
		r.itemPipeline = nil
	}
	if r.floorPipeline != nil {
		r.floorPipeline.Destroy(context)
		r.floorPipeline = nil
	}

	for _, shader := range []*Shader{r.instVertShader, r.instFragShader, r.floorVertShader, r.floorFragShader} {
		if data := shader.Data(); data.IsValid() {
			vk.DestroyShaderModule(context.Device.LogicalDevice, data.Module, context.Allocator)
		}
		shader.Reset()
	}

	if r.descSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, r.descSetLayout, context.Allocator)
		r.descSetLayout = vk.NullDescriptorSetLayout
	}
	if r.pipelineCache != vk.NullPipelineCache {
		vk.DestroyPipelineCache(context.Device.LogicalDevice, r.pipelineCache, context.Allocator)
		r.pipelineCache = vk.NullPipelineCache
	}

	r.buffers.destroy(context)
	r.instances.destroyBuffer(context)
}

func (r *Renderer) shaderForAsset(name string) (*Shader, bool) {
	switch name {
	case "phong_inst.vert":
		return r.instVertShader, true
	case "phong_inst.frag":
		return r.instFragShader, true
	case "flat_color.vert":
		return r.floorVertShader, true
	case "flat_color.frag":
		return r.floorFragShader, true
	}
	return nil, false
}

// ReloadShader picks up a recompiled shader from disk and rebuilds the
// pipelines against it. Names are asset names without the bytecode
// extension; unknown names report false so the watcher can forward
// every change it sees.
func (r *Renderer) ReloadShader(name string) bool {
	shader, ok := r.shaderForAsset(name)
	if !ok {
		return false
	}
	context := r.window.Context()

	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()

	if r.pipelinesFuture != nil {
		r.pipelinesFuture.Wait()
	}
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	if data := shader.Data(); data.IsValid() {
		vk.DestroyShaderModule(context.Device.LogicalDevice, data.Module, context.Allocator)
	}
	shader.Reset()
	shader.Load(r.jobs, context, r.assets, name)

	if r.itemPipeline != nil {
		r.itemPipeline.Destroy(context)
		r.itemPipeline = nil
	}
	if r.floorPipeline != nil {
		r.floorPipeline.Destroy(context)
		r.floorPipeline = nil
	}
	r.pipelinesFuture = r.jobs.SubmitTracked(r.createPipelines, nil)
	core.LogInfo("shader '%s' changed, rebuilding pipelines", name)
	return true
}

// StartNextFrame hands frame recording to a worker. The window thread
// continues and blocks on FrameReady; a second call before the pending
// frame completes breaks the recording contract and panics.
func (r *Renderer) StartNextFrame() {
	r.markFramePending()

	r.framePendingMu.Lock()
	// Recording failures are logged, not propagated; the frame must
	// always be handed back or the window would wait forever.
	r.frameFuture = r.jobs.SubmitTracked(func() error {
		if err := r.buildFrame(); err != nil {
			core.LogError("frame recording failed: %s", err.Error())
		}
		return nil
	}, func() {
		if r.completeFrame() {
			r.window.FrameReady()
			r.window.RequestUpdate()
		}
	})
	r.framePendingMu.Unlock()
}

func (r *Renderer) markFramePending() {
	r.framePendingMu.Lock()
	defer r.framePendingMu.Unlock()
	if r.framePending {
		panic("frame recording started while the previous frame is still being built")
	}
	r.framePending = true
}

// completeFrame clears the pending flag, reporting whether it was set.
// Both the worker completion and ReleaseSwapChainResources call this;
// only the first one wins and signals the window.
func (r *Renderer) completeFrame() bool {
	r.framePendingMu.Lock()
	defer r.framePendingMu.Unlock()
	was := r.framePending
	r.framePending = false
	return was
}

func (r *Renderer) buildFrame() error {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()

	context := r.window.Context()

	if !r.buffers.valid() {
		if err := r.buffers.create(context, r.window.ConcurrentFrameCount(), r.descSetLayout,
			r.cubeMesh.Vertices, r.prismMesh.Vertices, r.floorMesh); err != nil {
			return err
		}
	}
	if err := r.instances.ensureBuffer(context); err != nil {
		return err
	}
	if r.pipelinesFuture != nil {
		r.pipelinesFuture.Wait()
	}
	if r.itemPipeline == nil || r.floorPipeline == nil {
		err := fmt.Errorf("pipelines unavailable, skipping frame recording")
		core.LogError(err.Error())
		return err
	}

	cb := r.window.CurrentCommandBuffer()
	extent := r.window.SwapchainExtent()
	renderpass := r.window.DefaultRenderpass()
	renderpass.W = float32(extent.Width)
	renderpass.H = float32(extent.Height)
	renderpass.Begin(cb, r.window.CurrentFramebuffer())

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	r.recordFloor(cb)
	r.recordItems(cb)

	renderpass.End(cb)
	return nil
}

func (r *Renderer) recordFloor(cb *VulkanCommandBuffer) {
	r.floorPipeline.Bind(cb, vk.PipelineBindPointGraphics)

	mvp := r.projection.Mul(r.camera.ViewMatrix()).Mul(r.floorModel)
	mvpBytes := encodeFloats(mvp.Data[:])
	vk.CmdPushConstants(cb.Handle, r.floorPipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, 64, unsafe.Pointer(&mvpBytes[0]))

	color := encodeFloats([]float32{0.67, 1.0, 0.2})
	vk.CmdPushConstants(cb.Handle, r.floorPipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageFragmentBit), 64, 12, unsafe.Pointer(&color[0]))

	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{r.buffers.FloorBuf}, []vk.DeviceSize{0})
	vk.CmdDraw(cb.Handle, resources.QuadVertexCount, 1, 0, 0)
}

func (r *Renderer) recordItems(cb *VulkanCommandBuffer) {
	r.itemPipeline.Bind(cb, vk.PipelineBindPointGraphics)

	frameIndex := r.window.CurrentFrameIndex()
	frameUniOffset := uint32(vk.DeviceSize(frameIndex) * r.buffers.frameSlotSize())
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, r.itemPipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{r.buffers.DescSet}, 2, []uint32{frameUniOffset, frameUniOffset})

	if r.animating {
		r.rotation += 0.5
	}

	if r.takeUniformWrite() {
		r.writeFrameUniforms(vk.DeviceSize(frameUniOffset))
	}

	mesh := r.cubeMesh
	meshBuf := r.buffers.CubeBuf
	if r.usePrism {
		mesh = r.prismMesh
		meshBuf = r.buffers.PrismBuf
	}

	vk.CmdBindVertexBuffers(cb.Handle, 0, 2,
		[]vk.Buffer{meshBuf, r.instances.Buf}, []vk.DeviceSize{0, 0})
	vk.CmdDraw(cb.Handle, mesh.VertexCount, uint32(r.instances.Count), 0, 0)
}

// takeUniformWrite reports whether the slot being recorded needs its
// uniforms rewritten, consuming one unit of the dirty counter. While
// animating every frame rewrites its slot; otherwise each slot is
// rewritten exactly once after a camera or projection change and then
// left alone.
func (r *Renderer) takeUniformWrite() bool {
	if r.vpDirty > 0 {
		r.vpDirty--
		return true
	}
	return r.animating
}

// writeFrameUniforms refreshes the current frame slot's uniform
// blocks. Slots are only ever written while their frame is being
// recorded, so the in-flight copies other frames read stay intact.
func (r *Renderer) writeFrameUniforms(slotOffset vk.DeviceSize) {
	view := r.camera.ViewMatrix()
	vp := r.projection.Mul(view)
	model := m.NewMat4AxisRotation(m.NewVec3(1, 1, 0), r.rotation*m.K_DEG2RAD_MULTIPLIER)
	normal := model.NormalMatrix()
	eye := view.Inverse().Column(3).ToVec3()

	r.buffers.writeUniformBytes(slotOffset, buildVertexUniform(vp, model, normal))
	r.buffers.writeUniformBytes(slotOffset+r.buffers.VertUniSize, buildFragmentUniform(eye, lightPosition))
}

// buildVertexUniform lays out the vertex stage block: the combined
// view-projection, the model matrix, and the normal matrix as three
// 16-byte-aligned vec3 columns.
func buildVertexUniform(vp, model m.Mat4, normal m.Mat3) []byte {
	out := make([]byte, rawVertexUniformSize)
	copy(out[0:], encodeFloats(vp.Data[:]))
	copy(out[64:], encodeFloats(model.Data[:]))
	for col := 0; col < 3; col++ {
		copy(out[128+col*16:], encodeFloats(normal.Data[col*3:col*3+3]))
	}
	return out
}

// buildFragmentUniform lays out the fragment stage block: eye and
// light positions plus the fixed Phong material and light parameters.
func buildFragmentUniform(eye, light m.Vec3) []byte {
	out := make([]byte, rawFragmentUniformSize)
	copy(out[0:], encodeFloats([]float32{eye.X, eye.Y, eye.Z}))
	copy(out[16:], encodeFloats([]float32{0.05, 0.05, 0.05})) // ka
	copy(out[32:], encodeFloats([]float32{0.7, 0.7, 0.7}))    // kd
	copy(out[48:], encodeFloats([]float32{0.66, 0.66, 0.66})) // ks
	copy(out[64:], encodeFloats([]float32{light.X, light.Y, light.Z}))
	copy(out[80:], encodeFloats([]float32{1, 0, 0}))       // attenuation
	copy(out[96:], encodeFloats([]float32{1, 1, 1}))       // light color
	copy(out[108:], encodeFloats([]float32{0.8}))          // intensity
	copy(out[112:], encodeFloats([]float32{150}))          // specular exponent
	return out
}

// AddInstances grows the instanced mesh count by one increment.
func (r *Renderer) AddInstances() {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.instances.Add()
}

func (r *Renderer) InstanceCount() int {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	return r.instances.Count
}

func (r *Renderer) SetAnimating(animating bool) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.animating = animating
}

func (r *Renderer) Animating() bool {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	return r.animating
}

// SetUsePrism switches the instanced mesh between the cube and the
// prism. Both vertex buffers live in the packed allocation, so the
// swap only changes which one the next frame binds.
func (r *Renderer) SetUsePrism(usePrism bool) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.usePrism = usePrism
}

func (r *Renderer) UsingPrism() bool {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	return r.usePrism
}

func (r *Renderer) Yaw(degrees float32) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.camera.Yaw(degrees)
	r.markViewProjDirty()
}

func (r *Renderer) Pitch(degrees float32) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.camera.Pitch(degrees)
	r.markViewProjDirty()
}

func (r *Renderer) Walk(amount float32) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.camera.Walk(amount)
	r.markViewProjDirty()
}

func (r *Renderer) Strafe(amount float32) {
	r.sceneMu.Lock()
	defer r.sceneMu.Unlock()
	r.camera.Strafe(amount)
	r.markViewProjDirty()
}
