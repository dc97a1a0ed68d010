package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo names one capture or playback device the way the config file and
// CLI present it: a numeric index plus the driver's human-readable name,
// e.g. "12: Microphone (Realtek)". Grounded on
// original_source/main.py's _get_audio_devices.
type DeviceInfo struct {
	Index int
	Name  string
	ID    malgo.DeviceID
}

// String renders the "<index>: <name>" spec used by config.json device
// fields (spec.md §6).
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%d: %s", d.Index, d.Name)
}

// ListDevices enumerates the host's capture and playback devices.
func ListDevices(ctx *malgo.AllocatedContext) (inputs, outputs []DeviceInfo, err error) {
	captureInfos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, nil, fmt.Errorf("audio: enumerate capture devices: %w", err)
	}
	for i, info := range captureInfos {
		inputs = append(inputs, DeviceInfo{Index: i, Name: info.Name(), ID: info.ID})
	}

	playbackInfos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, nil, fmt.Errorf("audio: enumerate playback devices: %w", err)
	}
	for i, info := range playbackInfos {
		outputs = append(outputs, DeviceInfo{Index: i, Name: info.Name(), ID: info.ID})
	}

	return inputs, outputs, nil
}

// ResolveDeviceSpec parses a config.json device field of the form
// "<index>: <name>" and looks it up in the candidates list by index,
// falling back to a name match if the index has shifted since the config was
// written. It reports ok=false (never an error) when the device no longer
// exists, matching spec.md §6's "silently ignores any that no longer exist".
func ResolveDeviceSpec(spec string, candidates []DeviceInfo) (DeviceInfo, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DeviceInfo{}, false
	}

	idxPart, namePart, hasColon := strings.Cut(spec, ":")
	namePart = strings.TrimSpace(namePart)

	if hasColon {
		if idx, err := strconv.Atoi(strings.TrimSpace(idxPart)); err == nil {
			for _, c := range candidates {
				if c.Index == idx && (namePart == "" || c.Name == namePart) {
					return c, true
				}
			}
		}
	}

	// index may have shifted; fall back to an exact name match
	for _, c := range candidates {
		if c.Name == namePart || c.Name == spec {
			return c, true
		}
	}

	return DeviceInfo{}, false
}
