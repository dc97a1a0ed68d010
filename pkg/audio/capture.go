package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Capture pulls fixed-size 30ms PCM frames from an input device (spec.md
// §4.1, C1). It is non-blocking for its caller: frames arrive on a channel
// fed from the audio driver's own callback thread, never from a goroutine
// the caller has to pump.
//
// Grounded on the teacher's cmd/agent/main.go malgo wiring and
// original_source/translation_engine.py's sd.InputStream(blocksize=480)
// callback.
type Capture struct {
	device *malgo.Device

	mu       sync.Mutex
	pending  []byte // sub-frame-size leftover from the last callback
	closed   bool
	volumeCb func(float64)

	frames chan Frame
	lost   chan struct{}
	losing sync.Once
}

// OpenCapture opens an exclusive capture stream on deviceID at the fixed
// 16kHz/mono/16-bit format (spec.md §4.1). volumeCb, if non-nil, is invoked
// once per captured frame from the driver thread with a normalized [0,1] RMS
// level (spec.md §4.7 VolumeCallback); it must not block.
func OpenCapture(mctx *malgo.AllocatedContext, deviceID malgo.DeviceID, volumeCb func(float64)) (*Capture, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.Capture.DeviceID = deviceID
	cfg.SampleRate = SampleRateHz
	cfg.Alsa.NoMMap = 1

	c := &Capture{
		volumeCb: volumeCb,
		// buffered generously: about two seconds of 30ms frames, so a momentarily
		// slow consumer doesn't cause the driver callback to block.
		frames: make(chan Frame, 64),
		lost:   make(chan struct{}),
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: c.onSamples,
		Stop: c.onStopped,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	c.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	return c, nil
}

func (c *Capture) onSamples(_ []byte, pInput []byte, _ uint32) {
	if len(pInput) == 0 {
		return
	}

	if c.volumeCb != nil {
		c.volumeCb(NormalizedVolume(RMS(pInput)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	buf := append(c.pending, pInput...)
	ts := time.Now().UnixNano()

	i := 0
	for ; i+FrameSizeBytes <= len(buf); i += FrameSizeBytes {
		pcm := make([]byte, FrameSizeBytes)
		copy(pcm, buf[i:i+FrameSizeBytes])

		select {
		case c.frames <- Frame{PCM: pcm, Timestamp: ts}:
		default:
			// downstream consumer fell behind; drop this new frame
			// rather than block the audio driver thread.
		}
	}
	c.pending = append(c.pending[:0], buf[i:]...)
}

// Frames returns the channel of captured frames. It is closed by Close.
func (c *Capture) Frames() <-chan Frame {
	return c.frames
}

// Lost is closed when the driver stops this device on its own — typically
// because the underlying hardware disappeared mid-run (spec.md §4.1, §7
// scenario S5) — rather than in response to Close. A caller that only reads
// Frames() would otherwise never learn the difference between "no speech
// right now" and "the microphone is gone."
func (c *Capture) Lost() <-chan struct{} {
	return c.lost
}

// onStopped is the malgo/miniaudio stop callback, invoked on the driver's
// own thread whenever the device stops for any reason. Close already
// anticipates an intentional stop by setting closed first, so onStopped only
// ever signals the unintentional case.
func (c *Capture) onStopped() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.losing.Do(func() { close(c.lost) })
}

// Close idempotently stops capture and releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
	}
	close(c.frames)
	return nil
}
