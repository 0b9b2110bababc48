package audio

import "sync"

// FakeContext is a scripted capture backend for tests. It records how
// devices are opened and lets tests inject start failures or an empty
// device list.
type FakeContext struct {
	mu       sync.Mutex
	devices  []DeviceInfo
	startErr error
	openErr  error

	Opened   int
	Captures []*FakeCapture
}

func NewFakeContext() *FakeContext {
	return &FakeContext{
		devices: []DeviceInfo{{ID: "fake0", Name: "fake microphone"}},
	}
}

// SetDevices overrides the device list; nil simulates a machine with no
// microphone.
func (f *FakeContext) SetDevices(devices []DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
}

// FailStart makes every capture device created afterwards fail Start.
func (f *FakeContext) FailStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

// FailOpen makes NewCapture itself fail.
func (f *FakeContext) FailOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	capture := &FakeCapture{startErr: f.startErr}
	f.Opened++
	f.Captures = append(f.Captures, capture)
	return capture, nil
}

func (f *FakeContext) Close() {}

// FakeCapture implements CaptureDevice. Tests drive it by calling Emit to
// simulate the platform audio thread delivering a buffer.
type FakeCapture struct {
	mu       sync.Mutex
	cb       DataCallback
	startErr error

	Started int
	Stopped int
	Closed  bool
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.Started++
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Stopped++
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = nil
}

// HasCallback reports whether a tap callback is registered.
func (c *FakeCapture) HasCallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb != nil
}

// Emit delivers one buffer to the registered callback, as the audio thread
// would.
func (c *FakeCapture) Emit(data []byte, frames uint32) {
	c.mu.Lock()
	cb := c.cb
	c.mu.Unlock()
	if cb != nil {
		cb(data, frames)
	}
}
