package audio

import "errors"

// ErrDeviceUnavailable is returned by OpenCapture/OpenPlayback when the
// requested device cannot be opened (spec.md §4.1, §7 DeviceUnavailable).
var ErrDeviceUnavailable = errors.New("audio: device unavailable")

// ErrClosed is returned by operations attempted on an already-closed
// Capture or Playback.
var ErrClosed = errors.New("audio: device closed")
