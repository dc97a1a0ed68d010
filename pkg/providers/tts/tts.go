// Package tts implements engine.SpeechSynthesizer over a websocket streaming
// protocol, grounded on the teacher's pkg/providers/tts/lokutor.go transport
// shape but generalized to a configurable vendor endpoint since spec.md
// treats TTS as vendor-agnostic (spec.md §4.3).
package tts

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/team-hashing/duet-interpreter/pkg/engine"
)

// WebsocketTTS streams synthesized PCM over a persistent websocket
// connection, reconnecting on failure. The wire shape — JSON request frame,
// binary frames carrying PCM, "EOS"/"ERR:" text control frames — is
// grounded on the teacher's LokutorTTS.
type WebsocketTTS struct {
	apiKey string
	host   string
	path   string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocketTTS constructs a WebsocketTTS against host (e.g.
// "api.elevenlabs.io") at the given path (e.g. "/v1/text-to-speech/stream").
func NewWebsocketTTS(apiKey, host, path string) *WebsocketTTS {
	if path == "" {
		path = "/ws"
	}
	return &WebsocketTTS{apiKey: apiKey, host: host, path: path}
}

func (t *WebsocketTTS) Name() string { return "websocket-tts" }

// SetAPIKey updates the credential used by the next dial, letting
// pkg/config's hot-reload watcher apply an edited config.json without
// restarting the engine. Any open connection is dropped so it is re-dialed
// with the new key.
func (t *WebsocketTTS) SetAPIKey(apiKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiKey = apiKey
	if t.conn != nil {
		t.conn.Close(websocket.StatusNormalClosure, "credential rotated")
		t.conn = nil
	}
}

func (t *WebsocketTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: t.host, Path: t.path, RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", engine.ErrSynthesizerFailed, t.host, err)
	}

	t.conn = conn
	return conn, nil
}

// SynthesizeStream delivers PCMChunks to onChunk as they arrive off the
// wire; it never buffers the full response before the first onChunk call
// (spec.md §4.3, §9's TTS streaming decision).
func (t *WebsocketTTS) SynthesizeStream(ctx context.Context, text, voiceID, modelID string, onChunk func(engine.PCMChunk) error) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	req := map[string]interface{}{
		"text":          text,
		"voice_id":      voiceID,
		"model_id":      modelID,
		"output_format": "pcm_16000",
	}

	if err := wsjson.Write(ctx, conn, req); err != nil {
		t.dropConn(conn)
		return fmt.Errorf("%w: send request: %v", engine.ErrSynthesizerFailed, err)
	}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.dropConn(conn)
			return fmt.Errorf("%w: read: %v", engine.ErrSynthesizerFailed, err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(engine.PCMChunk(payload)); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if strings.HasPrefix(msg, "ERR:") {
				return fmt.Errorf("%w: %s", engine.ErrSynthesizerFailed, msg)
			}
		}
	}
}

func (t *WebsocketTTS) dropConn(conn *websocket.Conn) {
	conn.Close(websocket.StatusAbnormalClosure, "synthesize failed")
	if t.conn == conn {
		t.conn = nil
	}
}

// Close releases the underlying websocket connection, if any.
func (t *WebsocketTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
