package bridge

import (
	"sync"

	"dictate/recognizer"
)

// liveSession is the single owned value for one recording attempt. Audio
// frames arriving before the recognition task exists are buffered and
// flushed once it attaches, preserving the tap-before-recognizer ordering
// without dropping the first frames.
type liveSession struct {
	gen    uint64
	cancel func()

	cleanupOnce sync.Once
	pumpDone    chan struct{}

	mu       sync.Mutex
	task     recognizer.Task
	pending  []byte
	interim  string
	stopped  bool
	attached bool
}

func newLiveSession(gen uint64) *liveSession {
	return &liveSession{gen: gen, pumpDone: make(chan struct{})}
}

// feed is the audio tap callback. It runs on the platform audio thread and
// must never block.
func (s *liveSession) feed(data []byte, _ uint32) {
	s.mu.Lock()
	task := s.task
	if task == nil {
		s.pending = append(s.pending, data...)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	task.Feed(data)
}

func (s *liveSession) attach(task recognizer.Task) {
	s.mu.Lock()
	s.task = task
	s.attached = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) > 0 {
		task.Feed(pending)
	}
}

func (s *liveSession) currentTask() recognizer.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

func (s *liveSession) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// observe tracks the most recent interim text; a real final clears it,
// since those words were already committed.
func (s *liveSession) observe(res recognizer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Final {
		s.interim = ""
	} else {
		s.interim = res.Text
	}
}

// takeInterim returns the outstanding interim text and clears it, so only
// one synthesized final can ever be produced.
func (s *liveSession) takeInterim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	interim := s.interim
	s.interim = ""
	return interim
}

func (s *liveSession) markStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *liveSession) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
