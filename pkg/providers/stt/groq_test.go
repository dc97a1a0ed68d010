package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/team-hashing/duet-interpreter/pkg/engine"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

func TestGroqSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		resp := struct {
			Text string `json:"text"`
		}{
			Text: "groq transcription",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &GroqSTT{
		apiKey: "test-key",
		url:    server.URL,
		model:  "whisper-large-v3-turbo",
	}

	en, _ := lang.ByCode("en")
	result, err := s.Recognize(context.Background(), []byte{0}, en, engine.RecognizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "groq transcription" {
		t.Errorf("expected 'groq transcription', got '%s'", result.Text)
	}

	s.SetAPIKey("rotated-key")
	if s.key() != "rotated-key" {
		t.Errorf("expected rotated-key, got '%s'", s.key())
	}

	if s.Name() != "groq-stt" {
		t.Errorf("expected groq-stt, got %s", s.Name())
	}
}

func TestGroqSTT_NonOKStatusIsSentinelWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	s := &GroqSTT{apiKey: "test-key", url: server.URL, model: "whisper-large-v3-turbo"}

	_, err := s.Recognize(context.Background(), []byte{0}, lang.Tag{}, engine.RecognizeOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, engine.ErrRecognizerFailed) {
		t.Errorf("expected error wrapping engine.ErrRecognizerFailed, got %v", err)
	}
}
