package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spaghettifunk/cubes/engine/assets"
	"github.com/spaghettifunk/cubes/engine/config"
	"github.com/spaghettifunk/cubes/engine/core"
	"github.com/spaghettifunk/cubes/engine/platform"
	"github.com/spaghettifunk/cubes/engine/renderer/vulkan"
	"github.com/spaghettifunk/cubes/engine/resources"
	"github.com/spaghettifunk/cubes/engine/systems"
)

const jobQueueSize = 64

// Application ties the window, the input systems, and the scene
// renderer together and drives the run loop.
type Application struct {
	cfg          *config.Config
	platform     *platform.Platform
	window       *vulkan.VulkanWindow
	renderer     *vulkan.Renderer
	jobs         *systems.JobSystem
	assetManager *assets.AssetManager

	clock       *core.Clock
	isRunning   bool
	isSuspended bool
	width       uint32
	height      uint32

	// Left button drag rotates the camera.
	dragging   bool
	lastMouseX int32
	lastMouseY int32

	lastTitleUpdate float64
}

func New(cfg *config.Config) (*Application, error) {
	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	jobs, err := systems.NewJobSystem(cfg.Renderer.WorkerCount(), jobQueueSize)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Application{
		cfg:          cfg,
		platform:     platform.New(),
		assetManager: am,
		jobs:         jobs,
		clock:        core.NewClock(),
		isRunning:    true,
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
	}, nil
}

func (a *Application) Initialize() error {
	core.SetLogLevel(a.cfg.Application.LogLevel)

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, a.onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, a.onKey)
	core.EventRegister(core.EVENT_CODE_BUTTON_PRESSED, a.onButton)
	core.EventRegister(core.EVENT_CODE_BUTTON_RELEASED, a.onButton)
	core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, a.onMouseMove)
	core.EventRegister(core.EVENT_CODE_RESIZED, a.onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, a.onAssetChanged)

	if err := a.platform.Startup(a.cfg.Application.Name,
		a.cfg.Application.StartPosX, a.cfg.Application.StartPosY,
		a.width, a.height); err != nil {
		return err
	}
	if err := a.platform.SetWindowIcon(filepath.Join(a.cfg.Application.AssetsDir, "icon.png")); err != nil {
		core.LogDebug("no window icon: %s", err.Error())
	}

	if err := a.assetManager.Initialize(a.cfg.Application.AssetsDir); err != nil {
		return err
	}

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	window, err := vulkan.NewVulkanWindow(a.cfg.Application.Name, a.platform.Window,
		a.width, a.height, a.cfg.Renderer.EnableValidation)
	if err != nil {
		return err
	}
	a.window = window

	a.renderer = vulkan.NewRenderer(a.window, a.jobs, a.assetManager,
		a.loadMesh("cube", resources.GenerateCube),
		a.loadMesh("prism", resources.GeneratePrism))
	return a.window.AttachRenderer(a.renderer)
}

// loadMesh pulls a packed mesh from the asset directory, falling back
// to the procedurally generated version when the pack is absent.
func (a *Application) loadMesh(name string, generate func() *resources.MeshData) resources.MeshData {
	res, err := a.assetManager.LoadAsset(name, resources.ResourceTypeMesh, nil)
	if err == nil {
		if mesh, ok := res.Data.(*resources.MeshData); ok {
			core.LogInfo("mesh '%s' loaded, %d vertices", name, mesh.VertexCount)
			return *mesh
		}
	}
	core.LogInfo("mesh '%s' not packed, generating", name)
	return *generate()
}

func (a *Application) Run() error {
	a.clock.Start()
	a.clock.Update()

	for a.isRunning {
		if !a.platform.PumpMessages() {
			a.isRunning = false
			break
		}

		if a.isSuspended {
			core.InputUpdate()
			continue
		}

		a.clock.Update()
		currentTime := a.clock.Elapsed()

		a.pollMovementKeys()

		// A frame is drawn when something requested one or the scene
		// is animating on its own. Otherwise give the time back to
		// the OS instead of spinning on the event pump.
		if a.window.ConsumeUpdateRequest() || a.renderer.Animating() {
			frameStart := platform.GetAbsoluteTime()
			if err := a.window.DrawFrame(); err != nil {
				core.LogError("draw failed: %s", err.Error())
			}
			core.MetricsUpdate(platform.GetAbsoluteTime() - frameStart)
		} else {
			time.Sleep(2 * time.Millisecond)
		}

		if currentTime-a.lastTitleUpdate >= 1.0 {
			a.lastTitleUpdate = currentTime
			fps, frameTime := core.MetricsFrame()
			a.platform.SetTitle(fmt.Sprintf("%s | %.0f FPS (%.2f ms) | %d instances",
				a.cfg.Application.Name, fps, frameTime, a.renderer.InstanceCount()))
		}

		// Input state copying happens last so handlers above observe
		// this frame's transitions.
		core.InputUpdate()
	}

	return nil
}

// pollMovementKeys applies held movement keys once per loop pass.
// Shift moves a full unit, otherwise a tenth.
func (a *Application) pollMovementKeys() {
	amount := float32(0.1)
	if core.InputIsKeyDown(core.KEY_LSHIFT) || core.InputIsKeyDown(core.KEY_RSHIFT) {
		amount = 1.0
	}

	moved := false
	if core.InputIsKeyDown(core.KEY_W) {
		a.renderer.Walk(amount)
		moved = true
	}
	if core.InputIsKeyDown(core.KEY_S) {
		a.renderer.Walk(-amount)
		moved = true
	}
	if core.InputIsKeyDown(core.KEY_D) {
		a.renderer.Strafe(amount)
		moved = true
	}
	if core.InputIsKeyDown(core.KEY_A) {
		a.renderer.Strafe(-amount)
		moved = true
	}
	if moved {
		a.window.RequestUpdate()
	}
}

func (a *Application) Shutdown() error {
	core.LogInfo("shutting down...")

	if a.window != nil {
		a.window.Shutdown()
		a.window = nil
		a.renderer = nil
	}
	a.jobs.Shutdown()
	if err := a.assetManager.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := core.EventShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	return a.platform.Shutdown()
}

func (a *Application) onQuit(ctx core.EventContext) bool {
	core.LogInfo("application quit requested")
	a.isRunning = false
	return true
}

func (a *Application) onKey(ctx core.EventContext) bool {
	ke, ok := ctx.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event payload for event type `%d`", ctx.Type)
		return false
	}

	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	case core.KEY_N:
		a.renderer.AddInstances()
		a.window.RequestUpdate()
		return true
	case core.KEY_SPACE:
		a.renderer.SetAnimating(!a.renderer.Animating())
		a.window.RequestUpdate()
		return true
	case core.KEY_M:
		a.renderer.SetUsePrism(!a.renderer.UsingPrism())
		a.window.RequestUpdate()
		return true
	}
	return false
}

func (a *Application) onButton(ctx core.EventContext) bool {
	me, ok := ctx.Data.(*core.MouseEvent)
	if !ok {
		core.LogError("wrong event payload for event type `%d`", ctx.Type)
		return false
	}
	if me.Button != core.BUTTON_LEFT {
		return false
	}

	if ctx.Type == core.EVENT_CODE_BUTTON_PRESSED {
		a.dragging = true
		a.lastMouseX, a.lastMouseY = core.InputGetMousePosition()
	} else {
		a.dragging = false
	}
	return true
}

func (a *Application) onMouseMove(ctx core.EventContext) bool {
	me, ok := ctx.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	if !a.dragging {
		return false
	}

	dx := int32(me.PosX) - a.lastMouseX
	dy := int32(me.PosY) - a.lastMouseY
	a.lastMouseX = int32(me.PosX)
	a.lastMouseY = int32(me.PosY)

	if dx == 0 && dy == 0 {
		return false
	}
	a.renderer.Pitch(float32(dy) / 10.0)
	a.renderer.Yaw(float32(dx) / 10.0)
	a.window.RequestUpdate()
	return true
}

// shaderAssetName extracts the shader asset name from a watched
// bytecode path; non-bytecode paths report false.
func shaderAssetName(path string) (string, bool) {
	if filepath.Ext(path) != ".spv" {
		return "", false
	}
	return strings.TrimSuffix(filepath.Base(path), ".spv"), true
}

func (a *Application) onAssetChanged(ctx core.EventContext) bool {
	event, ok := ctx.Data.(*core.AssetEvent)
	if !ok {
		return false
	}
	name, ok := shaderAssetName(event.Path)
	if !ok {
		return false
	}
	if !a.renderer.ReloadShader(name) {
		return false
	}
	a.window.RequestUpdate()
	return true
}

func (a *Application) onResized(ctx core.EventContext) bool {
	re, ok := ctx.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event payload for event type `%d`", ctx.Type)
		return false
	}

	if re.Width == a.width && re.Height == a.height {
		return false
	}
	a.width = re.Width
	a.height = re.Height
	core.LogDebug("window resize: %d, %d", re.Width, re.Height)

	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("window minimized, suspending application")
		a.isSuspended = true
		return true
	}
	if a.isSuspended {
		core.LogInfo("window restored, resuming application")
		a.isSuspended = false
	}
	a.window.Resized(re.Width, re.Height)
	return true
}
