package bridge

import "dictate/audio"

// ProbeAuthorizer resolves microphone permission by opening an input via
// the capture probe, which surfaces the OS prompt on platforms that have
// one.
type ProbeAuthorizer struct {
	probe *audio.Probe
}

func NewProbeAuthorizer(probe *audio.Probe) *ProbeAuthorizer {
	return &ProbeAuthorizer{probe: probe}
}

func (a *ProbeAuthorizer) RequestMicrophonePermission() bool {
	return a.probe.Ask() == nil
}

// StaticAuthorizer always answers the same way. Used in tests and on
// platforms without a permission prompt.
type StaticAuthorizer bool

func (a StaticAuthorizer) RequestMicrophonePermission() bool { return bool(a) }
