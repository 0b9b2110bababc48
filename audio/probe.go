package audio

import (
	"fmt"
	"sync"
)

// Probe surfaces the OS microphone permission prompt by opening an input
// and closing it immediately, outside the recognizer's own error channel.
// A granted probe runs at most once per process no matter how often
// dictation toggles; only success is latched.
type Probe struct {
	ctx    Context
	config CaptureConfig

	mu    sync.Mutex
	asked bool
	err   error
}

func NewProbe(ctx Context, config CaptureConfig) *Probe {
	return &Probe{ctx: ctx, config: config}
}

// Ask performs the probe on first call. A grant is cached for the process
// lifetime; a failed result is probed again on the next call, so a revoked
// denial or a reconnected microphone is picked up before the next session.
func (p *Probe) Ask() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.asked && p.err == nil {
		return nil
	}
	p.asked = true
	p.err = p.probe()
	return p.err
}

// Asked reports whether the probe already ran.
func (p *Probe) Asked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asked
}

func (p *Probe) probe() error {
	devices, err := p.ctx.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoDevice
	}

	dev, err := p.ctx.NewCapture(nil, p.config)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer dev.Close()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("starting input: %w", err)
	}
	dev.Stop()
	return nil
}
