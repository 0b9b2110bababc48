package recognizer

import (
	"context"
	"sync"
)

// FakeFactory scripts recognition tasks for tests. Start errors are
// consumed in order before tasks succeed, which lets tests exercise retry
// budgets.
type FakeFactory struct {
	mu        sync.Mutex
	available bool
	startErrs []error

	Starts int
	Tasks  []*FakeTask
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{available: true}
}

func (f *FakeFactory) Name() string { return "fake" }

func (f *FakeFactory) SetAvailable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = v
}

func (f *FakeFactory) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

// EnqueueStartErr makes the next NewTask call fail with err.
func (f *FakeFactory) EnqueueStartErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs = append(f.startErrs, err)
}

func (f *FakeFactory) NewTask(_ context.Context, _ Config) (Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Starts++
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		return nil, err
	}
	task := NewFakeTask()
	f.Tasks = append(f.Tasks, task)
	return task, nil
}

// Last returns the most recently created task.
func (f *FakeFactory) Last() *FakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Tasks) == 0 {
		return nil
	}
	return f.Tasks[len(f.Tasks)-1]
}

// FakeTask is driven by the test: Emit pushes results, End closes the
// stream benignly, Fail closes it with an error.
type FakeTask struct {
	results chan Result

	mu     sync.Mutex
	fed    [][]byte
	ended  bool
	closed bool
}

func NewFakeTask() *FakeTask {
	return &FakeTask{results: make(chan Result, 32)}
}

func (t *FakeTask) Feed(pcm []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	t.fed = append(t.fed, buf)
}

func (t *FakeTask) Results() <-chan Result { return t.results }

func (t *FakeTask) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if !t.ended {
		t.ended = true
		close(t.results)
	}
	return nil
}

func (t *FakeTask) Emit(text string, final bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.results <- Result{Text: text, Final: final}
}

// End closes the result stream without an error, as a recognizer does when
// it decides the utterance is over.
func (t *FakeTask) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.ended = true
	close(t.results)
}

// Fail delivers err as the last result and closes the stream.
func (t *FakeTask) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return
	}
	t.results <- Result{Err: err}
	t.ended = true
	close(t.results)
}

// FedBytes returns the total number of PCM bytes fed so far.
func (t *FakeTask) FedBytes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, b := range t.fed {
		n += len(b)
	}
	return n
}

// Closed reports whether Close was called.
func (t *FakeTask) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
