package audio

import (
	"fmt"
	"sync"
)

// Engine owns the platform input stream for one recognition session at a
// time. The tap is the single registered buffer callback; install and
// remove are guarded by the installed flag so double calls are no-ops
// rather than relying on the platform to tolerate them.
type Engine struct {
	ctx    Context
	config CaptureConfig

	mu        sync.Mutex
	device    CaptureDevice
	installed bool
	running   bool
}

func NewEngine(ctx Context, config CaptureConfig) *Engine {
	return &Engine{ctx: ctx, config: config}
}

// Prepare allocates the capture device if not already allocated. Idempotent.
func (e *Engine) Prepare() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prepareLocked()
}

func (e *Engine) prepareLocked() error {
	if e.device != nil {
		return nil
	}
	dev, err := e.ctx.NewCapture(nil, e.config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTapInstall, err)
	}
	e.device = dev
	return nil
}

// InstallTap registers the buffer callback. Must be called before Start for
// the recognizer to receive any audio. A second install without an
// intervening RemoveTap keeps the existing tap; exactly one is ever active.
func (e *Engine) InstallTap(cb DataCallback) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.installed {
		return nil
	}
	if err := e.prepareLocked(); err != nil {
		return err
	}
	e.device.SetCallback(cb)
	e.installed = true
	return nil
}

// RemoveTap unregisters the callback. Calling with no tap installed is a
// no-op, not an error.
func (e *Engine) RemoveTap() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.installed {
		return
	}
	e.device.ClearCallback()
	e.installed = false
}

// TapInstalled reports whether a tap is currently registered.
func (e *Engine) TapInstalled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installed
}

// Start begins delivering buffers to the installed tap.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	if err := e.prepareLocked(); err != nil {
		return err
	}
	if err := e.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineStart, err)
	}
	e.running = true
	return nil
}

// Stop halts buffer delivery. Safe to call when already stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.device.Stop()
	e.running = false
}

// Running reports whether the engine is delivering buffers.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Close releases the capture device. The engine can be prepared again
// afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device == nil {
		return
	}
	if e.running {
		e.device.Stop()
		e.running = false
	}
	if e.installed {
		e.device.ClearCallback()
		e.installed = false
	}
	e.device.Close()
	e.device = nil
}
