package core

import "sync"

type EventCode uint16

// System internal event codes. Application should use codes beyond 255.
const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data is *MouseEvent with PosX/PosY set.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel scrolled. Data is *MouseEvent with Scroll set.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Resized/resolution changed from the OS. Data is *ResizeEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// A watched asset file changed on disk. Data is *AssetEvent.
	EVENT_CODE_ASSET_CHANGED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type AssetEvent struct {
	Path string
}

type EventContext struct {
	Type EventCode
	Data interface{}
}

// Should return true if handled; handled events are not passed on to
// any more listeners.
type FnOnEvent func(ctx EventContext) bool

type eventSystemState struct {
	mu         sync.Mutex
	registered map[EventCode][]FnOnEvent
}

var onceEvent sync.Once
var isInitialized bool = false
var eventState *eventSystemState = nil

func EventInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]FnOnEvent),
		}
	})
	isInitialized = true
	return true
}

func EventShutdown() error {
	if eventState != nil {
		eventState.mu.Lock()
		eventState.registered = make(map[EventCode][]FnOnEvent)
		eventState.mu.Unlock()
	}
	isInitialized = false
	return nil
}

// Register to listen for when events are sent with the provided code.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if !isInitialized {
		return false
	}
	eventState.mu.Lock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	eventState.mu.Unlock()
	return true
}

// Fires an event to listeners of the given code. Returns true when a
// listener handled the event.
func EventFire(ctx EventContext) bool {
	if !isInitialized {
		return false
	}
	eventState.mu.Lock()
	listeners := make([]FnOnEvent, len(eventState.registered[ctx.Type]))
	copy(listeners, eventState.registered[ctx.Type])
	eventState.mu.Unlock()

	for _, cb := range listeners {
		if cb(ctx) {
			return true
		}
	}
	return false
}
