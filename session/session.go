package session

import (
	"sync"
	"time"

	"dictate/log"
)

// State models the recording lifecycle of the one active session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
	StateStopping
)

// Config carries the manager's policy knobs. The restart delays mirror
// observed recognizer behavior and are deliberately tunable.
type Config struct {
	Continuous bool

	// NetworkRetries is the start retry budget for network failures.
	// Zero selects the default of 2; negative disables retries.
	NetworkRetries int

	NetworkRetryDelay time.Duration
	RestartDelay      time.Duration
	RestartRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.NetworkRetries == 0 {
		c.NetworkRetries = 2
	} else if c.NetworkRetries < 0 {
		c.NetworkRetries = 0
	}
	if c.NetworkRetryDelay == 0 {
		c.NetworkRetryDelay = 300 * time.Millisecond
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = 50 * time.Millisecond
	}
	if c.RestartRetryDelay == 0 {
		c.RestartRetryDelay = 200 * time.Millisecond
	}
	return c
}

// Listener receives session output. All methods are invoked from one
// goroutine, in order, so a document-mutating listener never observes
// concurrent edits.
type Listener interface {
	// SessionStarted fires once the backend is live, never on a start
	// that failed permission or network checks. Continuous-mode restarts
	// do not re-fire it.
	SessionStarted()
	Transcript(ev Event)
	SessionEnded()
	SessionFailed(err *Error)
}

// Manager is the single entry point for starting and stopping dictation,
// regardless of backend.
type Manager struct {
	backend   Backend
	listener  Listener
	cfg       Config
	supported bool

	queue chan func()

	mu            sync.Mutex
	state         State
	wantRecording bool
	gen           uint64
	retryCount    int
	lastErr       *Error
	teardown      chan struct{}
	beginDone     chan struct{}
	interimCount  int
	finalCount    int
}

// NewManager wires a backend to a listener. Backend support is evaluated
// here, once, and never re-checked per call.
func NewManager(backend Backend, listener Listener, cfg Config) *Manager {
	m := &Manager{
		backend:   backend,
		listener:  listener,
		cfg:       cfg.withDefaults(),
		supported: backend.Supported(),
		queue:     make(chan func(), 128),
	}
	go m.runQueue()
	go m.pumpBackend()
	return m
}

func (m *Manager) runQueue() {
	for fn := range m.queue {
		fn()
	}
}

func (m *Manager) post(fn func()) {
	m.queue <- fn
}

// IsSupported reports whether dictation works in this environment.
func (m *Manager) IsSupported() bool { return m.supported }

// IsRecording reports whether a session is live.
func (m *Manager) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateRecording
}

// CurrentState returns the session state.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent normalized error, cleared on the next
// successful start.
func (m *Manager) LastError() *Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// RetryCount exposes the network retry counter of the current attempt.
func (m *Manager) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCount
}

// Toggle starts dictation if stopped and stops it if started or starting.
func (m *Manager) Toggle() {
	m.mu.Lock()
	active := m.wantRecording
	m.mu.Unlock()
	if active {
		m.Stop()
	} else {
		m.Start()
	}
}

// Start begins a session asynchronously. A second Start while one is
// pending or live is a no-op, so racing callers cannot open two
// concurrent sessions.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.wantRecording || (m.state != StateIdle && m.state != StateStopping) {
		m.mu.Unlock()
		return
	}
	m.state = StateRequesting
	m.wantRecording = true
	m.gen++
	gen := m.gen
	teardown := m.teardown
	prev := m.beginDone
	done := make(chan struct{})
	m.beginDone = done
	m.interimCount = 0
	m.finalCount = 0
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.begin(gen, teardown, prev)
	}()
}

// Stop ends the session. The observable state flips immediately; backend
// teardown completes asynchronously and the next Start waits for it.
func (m *Manager) Stop() {
	m.mu.Lock()
	switch m.state {
	case StateIdle:
		m.wantRecording = false
		m.mu.Unlock()
		return
	case StateRequesting:
		// The pending begin sees wantRecording=false and aborts, unwinding
		// the backend if its start already went through. The next Start
		// joins that begin via beginDone, so the unwind cannot overlap a
		// new session.
		m.wantRecording = false
		m.state = StateIdle
		m.mu.Unlock()
		return
	case StateStopping:
		m.mu.Unlock()
		return
	}

	m.wantRecording = false
	m.state = StateStopping
	gen := m.gen
	interim, final := m.interimCount, m.finalCount
	td := make(chan struct{})
	m.teardown = td
	m.mu.Unlock()

	go func() {
		m.backend.Stop()
		m.post(func() { m.listener.SessionEnded() })
		log.SessionEnd(gen, interim, final)

		m.mu.Lock()
		if m.state == StateStopping {
			m.state = StateIdle
		}
		if m.teardown == td {
			m.teardown = nil
		}
		m.mu.Unlock()
		close(td)
	}()
}

// begin runs the asynchronous half of Start: join the previous teardown
// and the previous begin (which may still be unwinding a start that was
// cancelled mid-flight), resolve permission, then start the backend within
// the network retry budget.
func (m *Manager) begin(gen uint64, teardown, prev chan struct{}) {
	if teardown != nil {
		<-teardown
	}
	if prev != nil {
		<-prev
	}

	if !m.supported {
		m.failStart(gen, &Error{Kind: KindUnsupported})
		return
	}

	granted := make(chan error, 1)
	m.backend.RequestPermission(func(ok bool, err error) {
		if ok {
			granted <- nil
		} else if err != nil {
			granted <- err
		} else {
			granted <- ErrPermission
		}
	})
	if err := <-granted; err != nil {
		m.failStart(gen, normalize(err))
		return
	}

	if !m.stillWanted(gen) {
		return
	}

	attempts := 0
	for {
		err := m.backend.Start(gen)
		if err == nil {
			break
		}
		e := normalize(err)
		if e.Kind == KindNetworkFailure && attempts < m.cfg.NetworkRetries {
			attempts++
			m.mu.Lock()
			m.retryCount = attempts
			m.mu.Unlock()
			log.Warnf("dictation: network failure, retrying start (%d/%d)", attempts, m.cfg.NetworkRetries)
			time.Sleep(m.cfg.NetworkRetryDelay)
			if !m.stillWanted(gen) {
				return
			}
			continue
		}
		m.failStart(gen, e)
		return
	}

	m.mu.Lock()
	if m.gen != gen || !m.wantRecording {
		// Stopped between backend start and here; unwind.
		m.mu.Unlock()
		m.backend.Stop()
		return
	}
	m.state = StateRecording
	m.retryCount = 0
	m.lastErr = nil
	m.mu.Unlock()
	log.SessionStart(m.backend.Name(), gen)
	m.post(func() { m.listener.SessionStarted() })
}

func (m *Manager) stillWanted(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wantRecording && m.gen == gen
}

// failStart puts the manager back to Idle with a normalized error.
func (m *Manager) failStart(gen uint64, e *Error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.wantRecording = false
	m.lastErr = e
	m.mu.Unlock()

	log.SessionError(e.Kind.String(), e.Err)
	m.post(func() { m.listener.SessionFailed(e) })
}

func (m *Manager) pumpBackend() {
	for ev := range m.backend.Events() {
		m.handleBackendEvent(ev)
	}
}

func (m *Manager) handleBackendEvent(ev BackendEvent) {
	m.mu.Lock()
	if ev.Gen != m.gen {
		m.mu.Unlock()
		return
	}
	recording := m.state == StateRecording
	wanted := m.wantRecording
	m.mu.Unlock()

	switch {
	case ev.Err != nil:
		if !recording {
			return
		}
		m.failSession(ev.Gen, normalize(ev.Err))

	case ev.Ended:
		if !recording {
			return
		}
		if wanted && m.cfg.Continuous && m.backend.AutoTerminates() {
			go m.restart(ev.Gen)
			return
		}
		m.endSession(ev.Gen)

	case ev.Transcript != nil:
		if !recording {
			return
		}
		m.mu.Lock()
		if ev.Transcript.IsFinal {
			m.finalCount++
		} else {
			m.interimCount++
		}
		m.mu.Unlock()
		tr := *ev.Transcript
		m.post(func() { m.listener.Transcript(tr) })
	}
}

// restart implements the continuous-mode policy: restart quickly after a
// benign end, retry once more after a longer delay, then give up.
func (m *Manager) restart(gen uint64) {
	time.Sleep(m.cfg.RestartDelay)
	if !m.stillWanted(gen) {
		return
	}

	m.mu.Lock()
	m.gen++
	newGen := m.gen
	m.mu.Unlock()

	log.Restart(newGen, 1)
	err := m.backend.Start(newGen)
	if err != nil {
		time.Sleep(m.cfg.RestartRetryDelay)
		if !m.stillWanted(newGen) {
			return
		}
		log.Restart(newGen, 2)
		err = m.backend.Start(newGen)
	}
	if err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.wantRecording = false
		e := normalize(err)
		m.lastErr = e
		m.mu.Unlock()
		log.SessionError(e.Kind.String(), e.Err)
		m.post(func() {
			m.listener.SessionEnded()
			m.listener.SessionFailed(e)
		})
	}
}

// failSession ends a live session on a backend error: the provisional
// text is committed first, then the error surfaces.
func (m *Manager) failSession(gen uint64, e *Error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.wantRecording = false
	m.lastErr = e
	m.mu.Unlock()

	log.SessionError(e.Kind.String(), e.Err)
	m.post(func() {
		m.listener.SessionEnded()
		m.listener.SessionFailed(e)
	})
}

// endSession handles a benign recognizer completion that the restart
// policy does not cover.
func (m *Manager) endSession(gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.wantRecording = false
	interim, final := m.interimCount, m.finalCount
	m.mu.Unlock()

	log.SessionEnd(gen, interim, final)
	m.post(func() { m.listener.SessionEnded() })
}
