// Package bridge coordinates microphone authorization, the audio capture
// engine and a recognition task into one recording session, and delivers
// results as typed events on a channel. It is the host side of the
// native recognition path.
package bridge

import (
	"context"
	"sync"

	"dictate/audio"
	"dictate/log"
	"dictate/recognizer"
)

// AuthState tracks the platform microphone/speech permission.
type AuthState int

const (
	AuthUndetermined AuthState = iota
	AuthDenied
	AuthAuthorized
)

// Authorizer is the platform permission API. Request blocks until the user
// decides and reports the final decision.
type Authorizer interface {
	RequestMicrophonePermission() bool
}

// Event is one message on the host event channel. Either a transcription
// update (Text, IsFinal), a session-terminating backend error (Err), or a
// benign end of recognition (Ended). Gen tags the session that produced
// the event so stale messages from a torn-down session can be discarded.
type Event struct {
	Gen     uint64
	Text    string
	IsFinal bool
	Ended   bool
	Err     error
}

type Bridge struct {
	engine  *audio.Engine
	factory recognizer.Factory
	auth    Authorizer
	cfg     recognizer.Config

	events chan Event

	mu       sync.Mutex
	state    AuthState
	gen      uint64
	sess     *liveSession
	startErr error
}

func New(engine *audio.Engine, factory recognizer.Factory, auth Authorizer, cfg recognizer.Config) *Bridge {
	return &Bridge{
		engine:  engine,
		factory: factory,
		auth:    auth,
		cfg:     cfg,
		events:  make(chan Event, 64),
	}
}

// Events is the host event channel carrying transcription updates.
func (b *Bridge) Events() <-chan Event { return b.events }

// Available reports whether the recognizer can be used at all on this host.
func (b *Bridge) Available() bool { return b.factory.Available() }

// AuthorizationState returns the cached permission state.
func (b *Bridge) AuthorizationState() AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RequestAuthorization resolves the permission state asynchronously and
// invokes fn exactly once with the final decision. A grant is cached for
// the process lifetime; a previous denial is re-checked.
func (b *Bridge) RequestAuthorization(fn func(bool)) {
	b.mu.Lock()
	if b.state == AuthAuthorized {
		b.mu.Unlock()
		go fn(true)
		return
	}
	b.mu.Unlock()

	go func() {
		ok := b.auth.RequestMicrophonePermission()
		b.mu.Lock()
		if ok {
			b.state = AuthAuthorized
		} else {
			b.state = AuthDenied
		}
		b.mu.Unlock()
		fn(ok)
	}()
}

// Recording reports whether a session is live.
func (b *Bridge) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess != nil
}

// StartRecording opens a recording session. It returns false with no side
// effects when authorization is missing or the recognizer is unavailable.
// The tap is installed and the engine started before the recognition task,
// so no audio frames are lost; on any step failing, the prior steps are
// unwound before returning false.
func (b *Bridge) StartRecording() bool {
	b.mu.Lock()
	if b.state != AuthAuthorized || !b.factory.Available() {
		b.mu.Unlock()
		return false
	}
	stale := b.sess
	b.mu.Unlock()

	if stale != nil {
		b.cleanup(stale)
	}

	b.mu.Lock()
	b.gen++
	sess := newLiveSession(b.gen)
	b.mu.Unlock()

	if err := b.engine.InstallTap(sess.feed); err != nil {
		log.Errorf("dictation: tap install: %v", err)
		b.setStartErr(err)
		return false
	}
	if err := b.engine.Start(); err != nil {
		b.engine.RemoveTap()
		log.Errorf("dictation: engine start: %v", err)
		b.setStartErr(err)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	task, err := b.factory.NewTask(ctx, b.cfg)
	if err != nil {
		cancel()
		b.engine.Stop()
		b.engine.RemoveTap()
		log.Errorf("dictation: recognition task: %v", err)
		b.setStartErr(err)
		return false
	}
	sess.cancel = cancel
	sess.attach(task)

	b.mu.Lock()
	b.sess = sess
	b.startErr = nil
	b.mu.Unlock()

	go b.pump(sess)
	log.Info("dictation: recording started")
	return true
}

func (b *Bridge) setStartErr(err error) {
	b.mu.Lock()
	b.startErr = err
	b.mu.Unlock()
}

// StartError returns what made the last StartRecording call fail, for
// callers that need to classify the generic false return.
func (b *Bridge) StartError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startErr
}

// StopRecording tears the session down. If interim text is outstanding it
// synthesizes one final event carrying that text first, so words dictated
// mid-utterance are never lost. A second stop is a no-op.
func (b *Bridge) StopRecording() {
	b.mu.Lock()
	sess := b.sess
	b.sess = nil
	b.mu.Unlock()
	if sess == nil {
		return
	}

	if interim := sess.takeInterim(); interim != "" {
		b.emit(Event{Gen: sess.gen, Text: interim, IsFinal: true})
	}
	b.cleanup(sess)
	log.Info("dictation: recording stopped")
}

// pump forwards recognition results onto the event channel, tracking the
// most recent interim text for stop-time synthesis.
func (b *Bridge) pump(sess *liveSession) {
	defer close(sess.pumpDone)
	for res := range sess.task.Results() {
		if res.Err != nil {
			b.emit(Event{Gen: sess.gen, Err: res.Err})
			// Backend errors clean up without waiting for StopRecording.
			go b.cleanup(sess)
			return
		}
		sess.observe(res)
		b.emit(Event{Gen: sess.gen, Text: res.Text, IsFinal: res.Final})
	}
	if !sess.stopping() {
		b.emit(Event{Gen: sess.gen, Ended: true})
		go b.cleanup(sess)
	}
}

// cleanup is the single teardown routine shared by the manual-stop path,
// the error path and stale-session replacement: end the recognizer's audio
// input, stop the engine, remove the tap, clear session state. Idempotent
// per session.
func (b *Bridge) cleanup(sess *liveSession) {
	sess.cleanupOnce.Do(func() {
		sess.markStopping()
		if task := sess.currentTask(); task != nil {
			if err := task.Close(); err != nil {
				log.Warnf("dictation: task close: %v", err)
			}
		}
		if sess.cancel != nil {
			sess.cancel()
		}
		b.engine.Stop()
		b.engine.RemoveTap()
		if sess.started() {
			<-sess.pumpDone
		}

		b.mu.Lock()
		if b.sess == sess {
			b.sess = nil
		}
		b.mu.Unlock()
	})
}

// emit drops events from superseded sessions so a stale callback can never
// be misapplied to a newer session.
func (b *Bridge) emit(ev Event) {
	b.mu.Lock()
	current := b.gen
	b.mu.Unlock()
	if ev.Gen != current {
		return
	}
	b.events <- ev
}
