// Package audio holds the PCM wire formats and device glue shared by both
// translation engines: fixed-size capture frames, the WAV container used for
// STT uploads, and the malgo-backed capture/playback device wrappers.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrNotWav is returned by DecodeWav when the buffer lacks a RIFF/WAVE header.
var ErrNotWav = errors.New("audio: not a RIFF/WAVE buffer")

// EncodeWav wraps mono 16-bit PCM in a minimal RIFF/WAVE container.
func EncodeWav(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format tag
	binary.Write(buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// NewWavBuffer is kept for callers ported from the pack's HTTP-based STT
// adapters, which all name this function NewWavBuffer.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	return EncodeWav(pcm, sampleRate)
}

// DecodeWav extracts the mono 16-bit PCM payload and sample rate from a
// RIFF/WAVE buffer produced by EncodeWav (or any conformant encoder). It
// exists for the lossless encode/decode round trip invariant: reading back a
// WAV buffer must reproduce the exact samples passed to EncodeWav.
func DecodeWav(wav []byte) (pcm []byte, sampleRate int, err error) {
	r := bytes.NewReader(wav)

	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, 0, ErrNotWav
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, 0, ErrNotWav
	}

	for {
		var chunkID [4]byte
		var chunkSize uint32
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			return nil, 0, errors.New("audio: truncated wav, no data chunk")
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, 0, errors.New("audio: truncated wav chunk header")
		}

		switch string(chunkID[:]) {
		case "fmt ":
			fmtBody := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtBody); err != nil {
				return nil, 0, errors.New("audio: truncated fmt chunk")
			}
			if len(fmtBody) < 16 {
				return nil, 0, errors.New("audio: fmt chunk too short")
			}
			sampleRate = int(binary.LittleEndian.Uint32(fmtBody[4:8]))
		case "data":
			pcm = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, 0, errors.New("audio: truncated data chunk")
			}
			return pcm, sampleRate, nil
		default:
			// skip unknown chunk, honoring the (possibly odd) padded size
			skip := int64(chunkSize)
			if skip%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, 0, errors.New("audio: truncated wav, unknown chunk")
			}
		}
	}
}
