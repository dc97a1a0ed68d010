// Package config loads the flat JSON configuration document spec.md §6
// describes, resolves device-name fields against the live device list, and
// applies the credential fallback chain config value -> OS keyring -> env
// var.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

// ErrInvalidJSON is returned when config.json exists but fails to parse.
var ErrInvalidJSON = errors.New("config: invalid json")

const (
	keyringService = "duet-interpreter"
	groqAccount    = "api_key_groq"
	elevenAccount  = "api_key_elevenlabs"
)

// raw mirrors spec.md §6's document verbatim.
type raw struct {
	APIKeyGroq       string `json:"api_key_groq"`
	APIKeyElevenLabs string `json:"api_key_elevenlabs"`
	SenderInput      string `json:"sender_input"`
	SenderOutput     string `json:"sender_output"`
	ReceiverInput    string `json:"receiver_input"`
	ReceiverOutput   string `json:"receiver_output"`
	SourceLang       string `json:"source_lang"`
	TargetLang       string `json:"target_lang"`
}

// Config is the resolved, ready-to-use form of config.json: credentials
// through the full fallback chain, device specs resolved to a DeviceInfo
// when still present (and silently dropped otherwise, per spec.md §6), and
// language strings resolved to lang.Tag.
type Config struct {
	APIKeyGroq       string
	APIKeyElevenLabs string

	SenderInput    *audio.DeviceInfo
	SenderOutput   *audio.DeviceInfo
	ReceiverInput  *audio.DeviceInfo
	ReceiverOutput *audio.DeviceInfo

	SourceLang lang.Tag
	TargetLang lang.Tag
}

// Load reads and parses path (config.json), then resolves it against
// inputs/outputs and the credential fallback chain. A missing file is not
// an error — Load proceeds with an all-empty raw document, matching "all
// optional" in spec.md §6.
func Load(path string, inputs, outputs []audio.DeviceInfo) (Config, error) {
	var r raw

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &r); jsonErr != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidJSON, path, jsonErr)
		}
	case os.IsNotExist(err):
		// Proceed with defaults; every field is optional.
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Config{
		APIKeyGroq:       resolveCredential(r.APIKeyGroq, groqAccount, "GROQ_API_KEY"),
		APIKeyElevenLabs: resolveCredential(r.APIKeyElevenLabs, elevenAccount, "ELEVENLABS_API_KEY"),
	}

	if d, ok := audio.ResolveDeviceSpec(r.SenderInput, inputs); ok {
		cfg.SenderInput = &d
	}
	if d, ok := audio.ResolveDeviceSpec(r.SenderOutput, outputs); ok {
		cfg.SenderOutput = &d
	}
	if d, ok := audio.ResolveDeviceSpec(r.ReceiverInput, inputs); ok {
		cfg.ReceiverInput = &d
	}
	if d, ok := audio.ResolveDeviceSpec(r.ReceiverOutput, outputs); ok {
		cfg.ReceiverOutput = &d
	}

	if r.SourceLang != "" {
		if tag, err := lang.Resolve(r.SourceLang); err == nil {
			cfg.SourceLang = tag
		}
	}
	if r.TargetLang != "" {
		if tag, err := lang.Resolve(r.TargetLang); err == nil {
			cfg.TargetLang = tag
		}
	}

	return cfg, nil
}

// resolveCredential applies the precedence config value -> OS keyring ->
// environment variable, grounded on NeboLoop-nebo's internal/keyring
// wrapper around zalando/go-keyring.
func resolveCredential(configValue, keyringAccount, envVar string) string {
	if configValue != "" {
		return configValue
	}
	if v, err := zkr.Get(keyringService, keyringAccount); err == nil && v != "" {
		return v
	}
	return os.Getenv(envVar)
}
