package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// highWaterBytes bounds how far Write may run ahead of the device callback
// before blocking, giving WriteContext its "blocks as needed for natural
// pacing" behavior (spec.md §4.5) without unbounded memory growth.
const highWaterBytes = PlaybackBlockSize * 2 * 8 // ~8 callback periods

// Playback is a persistent output stream opened once for an engine's
// lifetime (spec.md §4.5, C5): closing it between utterances is forbidden,
// so Playback is opened at engine start and only closed at engine Stop.
//
// Grounded on the teacher's cmd/agent/main.go malgo playback callback
// (copy-from-ring-buffer-on-pull) and
// original_source/translation_engine.py's sd.RawOutputStream(blocksize=1024).
type Playback struct {
	device *malgo.Device

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// OpenPlayback opens a persistent 16kHz/mono/16-bit output stream on
// deviceID.
func OpenPlayback(mctx *malgo.AllocatedContext, deviceID malgo.DeviceID) (*Playback, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.Playback.DeviceID = deviceID
	cfg.SampleRate = SampleRateHz
	cfg.PeriodSizeInFrames = PlaybackBlockSize
	cfg.Alsa.NoMMap = 1

	p := &Playback{}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: p.onSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	p.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	return p, nil
}

func (p *Playback) onSamples(pOutput []byte, _ []byte, _ uint32) {
	p.mu.Lock()
	n := copy(pOutput, p.buf)
	p.buf = p.buf[n:]
	p.mu.Unlock()

	for i := n; i < len(pOutput); i++ {
		pOutput[i] = 0
	}
}

// pacingPoll is how often WriteContext rechecks the buffer level while
// waiting for the device to drain.
const pacingPoll = 10 * time.Millisecond

// WriteContext appends a PCM chunk to the output stream, blocking until
// enough of the buffer has drained to accept it (natural device pacing) or
// ctx is cancelled (spec.md §5 "Cancellation during playback: drop remaining
// PCM ... exit"). A cancelled write may leave a partial chunk queued; callers
// abandoning playback should follow up with Reset or Close.
func (p *Playback) WriteContext(ctx context.Context, pcm []byte) error {
	for {
		p.mu.Lock()
		full := len(p.buf) > highWaterBytes
		closed := p.closed
		p.mu.Unlock()

		if closed {
			return ErrClosed
		}
		if !full {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pacingPoll):
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.buf = append(p.buf, pcm...)
	return nil
}

// Drain reports whether the internal buffer has been fully written to the
// device (used by the playback loop to decide when a burst has finished).
func (p *Playback) Drain() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf) == 0
}

// Reset discards any queued-but-unplayed audio, used when abandoning an
// utterance mid-stream (spec.md §5).
func (p *Playback) Reset() {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.mu.Unlock()
}

// Close idempotently stops playback and releases the device.
func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.device != nil {
		p.device.Uninit()
	}
	return nil
}
