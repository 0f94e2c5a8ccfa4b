package systems

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/cubes/engine/core"
)

/**
 * @brief Describes a job to be run on one of the worker goroutines.
 */
type JobTask struct {
	/** @brief Unique identifier, set by Submit when zero. */
	ID uuid.UUID
	/** @brief The work to perform. Required. */
	OnStart func() error
	/** @brief Invoked on the worker after OnStart succeeds. Optional. */
	OnComplete func()
	/** @brief Invoked on the worker after OnStart fails. Optional. */
	OnFailure func(err error)
}

// Future is a one-shot completion handle for a submitted job.
type Future struct {
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

// Wait blocks until the job has finished, returning its error.
// Waiting on an already-finished future returns immediately.
func (f *Future) Wait() error {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// IsReady reports whether the job has finished without blocking.
func (f *Future) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	jq := make(chan JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.OnStart(); err != nil {
					core.LogError("job %s failed: %s", job.ID, err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
				} else {
					if job.OnComplete != nil {
						job.OnComplete()
					}
				}
			}
		}()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run; new
 * submissions after this panic.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks
 * when the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) {
	if jt.ID == uuid.Nil {
		jt.ID = uuid.New()
	}
	js.jobQueue <- jt
}

// AddWorkNonBlocking adds work to the pool and returns immediately
func (js *JobSystem) AddWorkNonBlocking(jt JobTask) {
	go js.Submit(jt)
}

/**
 * @brief Submits work and returns a Future that resolves once the
 * work and its callbacks have run.
 */
func (js *JobSystem) SubmitTracked(work func() error, onComplete func()) *Future {
	f := newFuture()
	js.Submit(JobTask{
		ID: uuid.New(),
		OnStart: func() error {
			return work()
		},
		OnComplete: func() {
			if onComplete != nil {
				onComplete()
			}
			f.complete(nil)
		},
		OnFailure: func(err error) {
			f.complete(err)
		},
	})
	return f
}

// NewResolvedFuture returns a future that is already complete. Useful
// as the zero state for lifecycles that join before the first submit.
func NewResolvedFuture() *Future {
	f := newFuture()
	f.complete(nil)
	return f
}
