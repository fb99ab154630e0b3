// Capture source adapted from the teacher's audio.Capture: a single
// mono microphone device pushed straight into the Ring Buffer. Unlike
// the teacher, hoover has no stereo/system-audio capture surface (not
// named in spec.md), so this keeps only the microphone path and relies
// on miniaudio's built-in sample-rate conversion (via malgo's
// DeviceConfig.SampleRate) to resample any device's native rate down
// to the pipeline's fixed 16kHz, per spec.md §3's "all non-16kHz
// inputs are resampled" rule.
package pipeline

import (
	"fmt"
	"math"

	"github.com/gen2brain/malgo"

	"hoover/internal/herr"
	"hoover/internal/ringbuffer"
)

// CaptureSource owns the microphone device and pushes decoded f32
// samples into a RingBuffer. It never blocks in the hot callback path
// (spec.md §4.1, §5).
type CaptureSource struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	rb     *ringbuffer.RingBuffer

	deviceName string
	sampleRate int

	onDeviceLost func(error)
}

// NewCaptureSource opens the named device (empty string = system
// default) at sampleRate mono f32 and wires its callback to push into
// rb.
func NewCaptureSource(deviceName string, sampleRate int, rb *ringbuffer.RingBuffer, onDeviceLost func(error)) (*CaptureSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init audio context: %v", herr.ErrAudioDeviceLost, err)
	}

	cs := &CaptureSource{
		ctx:          ctx,
		rb:           rb,
		deviceName:   deviceName,
		sampleRate:   sampleRate,
		onDeviceLost: onDeviceLost,
	}

	if err := cs.open(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	return cs, nil
}

// open (re)initialises the malgo device against the context, without
// touching the context itself. Shared by NewCaptureSource and Reopen.
func (cs *CaptureSource) open() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cs.sampleRate)

	if cs.deviceName != "" {
		id, err := findDeviceByName(cs.ctx, cs.deviceName)
		if err != nil {
			return fmt.Errorf("%w: %v", herr.ErrAudioDeviceLost, err)
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	rb := cs.rb
	onRecvFrames := func(_, input []byte, frameCount uint32) {
		n := int(frameCount)
		if len(input) != n*4 {
			return
		}
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := uint32(input[i*4]) | uint32(input[i*4+1])<<8 | uint32(input[i*4+2])<<16 | uint32(input[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}
		rb.Push(samples)
	}

	onStop := func() {
		if cs.onDeviceLost != nil {
			cs.onDeviceLost(fmt.Errorf("%w: device stopped unexpectedly", herr.ErrAudioDeviceLost))
		}
	}

	device, err := malgo.InitDevice(cs.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
		Stop: onStop,
	})
	if err != nil {
		return fmt.Errorf("%w: init device: %v", herr.ErrAudioDeviceLost, err)
	}
	cs.device = device
	return nil
}

func (cs *CaptureSource) Start() error {
	if err := cs.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", herr.ErrAudioDeviceLost, err)
	}
	return nil
}

// Reopen tears down the current device, if any, and attempts to open
// and start it again exactly once, per spec.md §7's AudioDeviceLost
// policy: "log, attempt one reopen, else abort recording with exit 3."
// The caller is responsible for escalating if this returns an error.
func (cs *CaptureSource) Reopen() error {
	if cs.device != nil {
		cs.device.Uninit()
		cs.device = nil
	}
	if err := cs.open(); err != nil {
		return err
	}
	return cs.Start()
}

func (cs *CaptureSource) Stop() {
	if cs.device != nil {
		cs.device.Uninit()
		cs.device = nil
	}
}

func (cs *CaptureSource) Close() {
	cs.Stop()
	if cs.ctx != nil {
		cs.ctx.Uninit()
		cs.ctx.Free()
	}
}

func findDeviceByName(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceID, error) {
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name() == name {
			id := d.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", name)
}
