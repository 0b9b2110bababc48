package session

import (
	"sync"

	"dictate/bridge"
)

// NativeBackend adapts the native speech bridge's event channel to the
// manager. The bridge performs its own stale-event fencing; this adapter
// re-tags surviving events with the manager generation of the session it
// started.
type NativeBackend struct {
	bridge *bridge.Bridge
	events chan BackendEvent

	mu  sync.Mutex
	gen uint64
}

func NewNativeBackend(b *bridge.Bridge) *NativeBackend {
	nb := &NativeBackend{
		bridge: b,
		events: make(chan BackendEvent, 64),
	}
	go nb.pump()
	return nb
}

func (nb *NativeBackend) Name() string { return "native" }

func (nb *NativeBackend) Supported() bool { return nb.bridge.Available() }

// The native recognizer keeps running until told to stop.
func (nb *NativeBackend) AutoTerminates() bool { return false }

func (nb *NativeBackend) RequestPermission(fn func(granted bool, err error)) {
	nb.bridge.RequestAuthorization(func(ok bool) {
		if ok {
			fn(true, nil)
		} else {
			fn(false, ErrPermission)
		}
	})
}

func (nb *NativeBackend) Start(gen uint64) error {
	nb.mu.Lock()
	nb.gen = gen
	nb.mu.Unlock()

	if nb.bridge.StartRecording() {
		return nil
	}
	if err := nb.bridge.StartError(); err != nil {
		return err
	}
	if nb.bridge.AuthorizationState() != bridge.AuthAuthorized {
		return ErrPermission
	}
	return &Error{Kind: KindUnsupported}
}

func (nb *NativeBackend) Stop() {
	nb.bridge.StopRecording()
}

func (nb *NativeBackend) Events() <-chan BackendEvent { return nb.events }

func (nb *NativeBackend) pump() {
	for ev := range nb.bridge.Events() {
		nb.mu.Lock()
		gen := nb.gen
		nb.mu.Unlock()

		out := BackendEvent{Gen: gen}
		switch {
		case ev.Err != nil:
			out.Err = ev.Err
		case ev.Ended:
			out.Ended = true
		default:
			out.Transcript = &Event{Text: ev.Text, IsFinal: ev.IsFinal}
		}
		nb.events <- out
	}
}
