package core

import (
	"sync"

	"github.com/spaghettifunk/cubes/engine/containers"
)

const avgWindow int = 30

type MetricsState struct {
	msTimes            *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			msTimes: containers.NewRingQueue[float64](avgWindow),
		}
	})
	return nil
}

func MetricsUpdate(frameElapsedTime float64) {
	// Frame ms average over a sliding window
	frameMS := frameElapsedTime * 1000.0
	if metricsState.msTimes.IsFull() {
		metricsState.msTimes.Dequeue()
	}
	metricsState.msTimes.Enqueue(frameMS)
	if metricsState.msTimes.IsFull() {
		sum := 0.0
		for i := 0; i < avgWindow; i++ {
			ms, _ := metricsState.msTimes.Dequeue()
			sum += ms
			metricsState.msTimes.Enqueue(ms)
		}
		metricsState.MSavg = sum / float64(avgWindow)
	}

	// Frames per second
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	metricsState.Frames++
}

func MetricsFPS() float64 {
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	return metricsState.FPS, metricsState.MSavg
}
