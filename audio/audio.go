package audio

import "errors"

// DataCallback receives raw PCM16LE buffers from the capture device as
// they arrive on the platform audio thread.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

var (
	// ErrEngineStart means the OS declined to deliver audio (device busy,
	// permission revoked mid-flight).
	ErrEngineStart = errors.New("audio engine start failed")

	// ErrTapInstall means the input node is unavailable for tapping.
	ErrTapInstall = errors.New("audio tap install failed")

	// ErrNoDevice means no capture device exists on this machine.
	ErrNoDevice = errors.New("no capture device available")
)
