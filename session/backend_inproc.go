package session

import (
	"context"
	"sync"

	"dictate/audio"
	"dictate/recognizer"
)

// InprocBackend runs the recognizer in-process, one short-lived task per
// utterance. The recognizer decides when an utterance is over and ends the
// task, so the manager's continuous-mode restart policy applies. The
// microphone permission pre-flight is the capture probe, run at most once
// per process.
type InprocBackend struct {
	engine  *audio.Engine
	factory recognizer.Factory
	probe   *audio.Probe
	cfg     recognizer.Config
	events  chan BackendEvent

	mu   sync.Mutex
	run  *inprocRun
	last chan struct{} // previous run's teardown completion
}

type inprocRun struct {
	gen      uint64
	task     recognizer.Task
	cancel   context.CancelFunc
	pumpDone chan struct{}
	done     chan struct{}

	mu       sync.Mutex
	stopping bool
}

func (r *inprocRun) markStopping() {
	r.mu.Lock()
	r.stopping = true
	r.mu.Unlock()
}

func (r *inprocRun) isStopping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopping
}

func NewInprocBackend(engine *audio.Engine, factory recognizer.Factory, probe *audio.Probe, cfg recognizer.Config) *InprocBackend {
	return &InprocBackend{
		engine:  engine,
		factory: factory,
		probe:   probe,
		cfg:     cfg,
		events:  make(chan BackendEvent, 64),
	}
}

func (ib *InprocBackend) Name() string { return "inproc" }

func (ib *InprocBackend) Supported() bool { return ib.factory.Available() }

func (ib *InprocBackend) AutoTerminates() bool { return true }

func (ib *InprocBackend) RequestPermission(fn func(granted bool, err error)) {
	go func() {
		err := ib.probe.Ask()
		fn(err == nil, err)
	}()
}

// Start creates the recognition task before touching the microphone: the
// task is live and listening by the time the engine delivers the first
// frame, so nothing is lost. A previous run still tearing down (a benign
// end triggers teardown on its own goroutine) is joined first, so the new
// tap cannot be removed by the old run.
func (ib *InprocBackend) Start(gen uint64) error {
	ib.mu.Lock()
	prev := ib.last
	ib.mu.Unlock()
	if prev != nil {
		<-prev
	}

	ctx, cancel := context.WithCancel(context.Background())
	task, err := ib.factory.NewTask(ctx, ib.cfg)
	if err != nil {
		cancel()
		return err
	}

	if err := ib.engine.InstallTap(func(data []byte, _ uint32) { task.Feed(data) }); err != nil {
		cancel()
		task.Close()
		return err
	}
	if err := ib.engine.Start(); err != nil {
		ib.engine.RemoveTap()
		cancel()
		task.Close()
		return err
	}

	run := &inprocRun{
		gen:      gen,
		task:     task,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	ib.mu.Lock()
	ib.run = run
	ib.last = run.done
	ib.mu.Unlock()

	go ib.pump(run)
	return nil
}

func (ib *InprocBackend) Stop() {
	ib.mu.Lock()
	run := ib.run
	ib.run = nil
	ib.mu.Unlock()
	if run == nil {
		return
	}
	ib.teardown(run)
}

func (ib *InprocBackend) Events() <-chan BackendEvent { return ib.events }

func (ib *InprocBackend) pump(run *inprocRun) {
	defer close(run.pumpDone)
	for res := range run.task.Results() {
		if res.Err != nil {
			ib.events <- BackendEvent{Gen: run.gen, Err: res.Err}
			go ib.clear(run)
			return
		}
		ib.events <- BackendEvent{Gen: run.gen, Transcript: &Event{Text: res.Text, IsFinal: res.Final}}
	}
	if !run.isStopping() {
		ib.events <- BackendEvent{Gen: run.gen, Ended: true}
		go ib.clear(run)
	}
}

// clear tears down a run that ended on its own (error or benign
// completion) rather than by Stop.
func (ib *InprocBackend) clear(run *inprocRun) {
	ib.mu.Lock()
	if ib.run == run {
		ib.run = nil
	}
	ib.mu.Unlock()
	ib.teardown(run)
}

func (ib *InprocBackend) teardown(run *inprocRun) {
	defer close(run.done)
	run.markStopping()
	ib.engine.Stop()
	ib.engine.RemoveTap()
	run.task.Close()
	run.cancel()
	<-run.pumpDone
}
