package vulkan

import (
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/cubes/engine/systems"
)

func newTestJobs(t *testing.T) *systems.JobSystem {
	t.Helper()
	jobs, err := systems.NewJobSystem(2, 16)
	if err != nil {
		t.Fatalf("job system: %v", err)
	}
	t.Cleanup(func() { jobs.Shutdown() })
	return jobs
}

// fakeModule stands in for a real shader module handle; the shader
// only inspects it for nilness.
var (
	moduleBacking byte
	fakeModule    = vk.ShaderModule(unsafe.Pointer(&moduleBacking))
)

func TestShaderDataBlocksUntilLoaded(t *testing.T) {
	jobs := newTestJobs(t)
	s := NewShader()

	release := make(chan struct{})
	s.start(jobs, func() ShaderData {
		<-release
		return ShaderData{Module: fakeModule}
	})

	done := make(chan *ShaderData, 1)
	go func() { done <- s.Data() }()

	select {
	case <-done:
		t.Fatal("Data returned before the load finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case data := <-done:
		if !data.IsValid() {
			t.Error("loaded shader reported invalid")
		}
	case <-time.After(time.Second):
		t.Fatal("Data never returned after the load finished")
	}
}

func TestShaderDataDoesNotBlockTwiceAfterFailure(t *testing.T) {
	jobs := newTestJobs(t)
	s := NewShader()

	s.start(jobs, func() ShaderData {
		return ShaderData{} // failed load
	})

	if data := s.Data(); data.IsValid() {
		t.Fatal("failed load reported a valid module")
	}

	// A second read must not block on a channel nothing will send to.
	done := make(chan struct{})
	go func() {
		s.Data()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Data blocked after the failed load was already observed")
	}
}

func TestShaderReloadReplacesData(t *testing.T) {
	jobs := newTestJobs(t)
	s := NewShader()

	s.start(jobs, func() ShaderData { return ShaderData{Module: fakeModule} })
	if !s.Data().IsValid() {
		t.Fatal("first load failed")
	}

	s.Reset()
	if s.IsValid() {
		t.Fatal("Reset left the shader valid")
	}

	var loads atomic.Int32
	s.start(jobs, func() ShaderData {
		loads.Add(1)
		return ShaderData{Module: fakeModule}
	})
	if !s.Data().IsValid() {
		t.Fatal("reload failed")
	}
	if loads.Load() != 1 {
		t.Errorf("producer ran %d times, want 1", loads.Load())
	}
}

func TestShaderResetForgetsPendingLoad(t *testing.T) {
	jobs := newTestJobs(t)
	s := NewShader()

	var staleBacking, freshBacking byte
	stale := vk.ShaderModule(unsafe.Pointer(&staleBacking))
	fresh := vk.ShaderModule(unsafe.Pointer(&freshBacking))

	gate := make(chan struct{})
	s.start(jobs, func() ShaderData {
		<-gate
		return ShaderData{Module: stale}
	})

	// Discard the still-running load, then start a new one. The first
	// producer finishes afterwards; its result must never surface.
	s.Reset()
	s.start(jobs, func() ShaderData {
		return ShaderData{Module: fresh}
	})
	close(gate)

	if got := s.Data(); got.Module != fresh {
		t.Fatalf("Data returned the discarded load's module")
	}
}

func TestShaderIsValidDoesNotBlock(t *testing.T) {
	jobs := newTestJobs(t)
	s := NewShader()

	release := make(chan struct{})
	defer close(release)
	s.start(jobs, func() ShaderData {
		<-release
		return ShaderData{}
	})

	// IsValid only looks at observed state.
	if s.IsValid() {
		t.Error("shader valid before any load was observed")
	}
}
