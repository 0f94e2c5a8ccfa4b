package vulkan

import (
	"sync"
)

type LockGroup string

const (
	PipelineManagement      LockGroup = "pipeline"
	CommandBufferManagement LockGroup = "commandbuffer"
	QueueManagement         LockGroup = "queue"
	BufferManagement        LockGroup = "buffer"
)

// VulkanLockPool serializes Vulkan calls that touch externally
// synchronized objects shared between the record worker and the
// presentation goroutine.
type VulkanLockPool struct {
	mu    sync.Mutex
	locks map[LockGroup]*sync.Mutex
}

var lockPool = NewVulkanLockPool()

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (p *VulkanLockPool) get(group LockGroup) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[group]
	if !ok {
		l = &sync.Mutex{}
		p.locks[group] = l
	}
	return l
}

func (p *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := p.get(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}
