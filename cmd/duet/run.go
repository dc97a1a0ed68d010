package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/config"
	"github.com/team-hashing/duet-interpreter/pkg/engine"
	"github.com/team-hashing/duet-interpreter/pkg/interlock"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
	"github.com/team-hashing/duet-interpreter/pkg/providers/mt"
	"github.com/team-hashing/duet-interpreter/pkg/providers/stt"
	"github.com/team-hashing/duet-interpreter/pkg/providers/tts"
)

type stdLogger struct{}

func (stdLogger) Debug(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"DEBUG", msg}, args...)...)
}
func (stdLogger) Info(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"INFO", msg}, args...)...)
}
func (stdLogger) Warn(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"WARN", msg}, args...)...)
}
func (stdLogger) Error(msg string, args ...interface{}) {
	log.Println(append([]interface{}{"ERROR", msg}, args...)...)
}

func runCmd() *cobra.Command {
	var configPath string
	var ttsHost, ttsPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start both translation engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngines(configPath, ttsHost, ttsPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.json", "path to the configuration document")
	cmd.Flags().StringVar(&ttsHost, "tts-host", "api.elevenlabs.io", "TTS websocket host")
	cmd.Flags().StringVar(&ttsPath, "tts-path", "/v1/text-to-speech/stream-input", "TTS websocket path")

	return cmd
}

func runEngines(configPath, ttsHost, ttsPath string) error {
	logger := stdLogger{}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("duet: init audio context: %w", err)
	}
	defer mctx.Uninit()

	inputs, outputs, err := audio.ListDevices(mctx)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath, inputs, outputs)
	if err != nil {
		return err
	}

	if cfg.SourceLang.Name == "" {
		cfg.SourceLang, _ = lang.ByCode("en")
	}
	if cfg.TargetLang.Name == "" {
		cfg.TargetLang, _ = lang.ByCode("es")
	}

	telemetry, shutdownTelemetry, err := engine.InitTelemetry("duet-interpreter")
	if err != nil {
		return fmt.Errorf("duet: init telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	il := interlock.New()
	status := make(chan engine.StatusEvent, 32)

	sttProvider := stt.NewGroqSTT(cfg.APIKeyGroq, "")
	mtProvider := mt.NewGroqTranslator(cfg.APIKeyGroq, "")
	ttsProvider := tts.NewWebsocketTTS(cfg.APIKeyElevenLabs, ttsHost, ttsPath)

	// Each direction's device pair is opened independently: one side being
	// unplugged or misconfigured must not prevent the other from running
	// (spec.md §7 scenario S5 generalized to startup, not just mid-run loss).
	var senderSup, receiverSup *engine.EngineSupervisor

	if senderCapture, senderPlayback, err := openDevicePair(mctx, cfg.SenderInput, cfg.SenderOutput); err != nil {
		logger.Error("sender devices unavailable, sender engine disabled", "error", err)
	} else {
		senderSup = engine.NewEngineSupervisor(engine.EngineConfig{
			EngineName: "SENDER",
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
			STT:        sttProvider,
			MT:         mtProvider,
			TTS:        ttsProvider,
			Logger:     logger,
		}, senderCapture, senderPlayback, il, telemetry, status)
	}

	if receiverCapture, receiverPlayback, err := openDevicePair(mctx, cfg.ReceiverInput, cfg.ReceiverOutput); err != nil {
		logger.Error("receiver devices unavailable, receiver engine disabled", "error", err)
	} else {
		receiverSup = engine.NewEngineSupervisor(engine.EngineConfig{
			EngineName: "RECEIVER",
			SourceLang: cfg.TargetLang,
			TargetLang: cfg.SourceLang,
			STT:        sttProvider,
			MT:         mtProvider,
			TTS:        ttsProvider,
			Logger:     logger,
		}, receiverCapture, receiverPlayback, il, telemetry, status)
	}

	if senderSup == nil && receiverSup == nil {
		return fmt.Errorf("duet: no engines could start, both device pairs unavailable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if senderSup != nil {
		if err := senderSup.Start(ctx); err != nil {
			return err
		}
	}
	if receiverSup != nil {
		if err := receiverSup.Start(ctx); err != nil {
			return err
		}
	}

	go watchConfig(ctx, configPath, inputs, outputs, sttProvider, mtProvider, ttsProvider)

	go func() {
		for evt := range status {
			fmt.Println(evt.Message)
		}
	}()

	<-ctx.Done()
	log.Println("duet: shutting down")

	if senderSup != nil {
		if err := senderSup.Stop(); err != nil {
			logger.Warn("sender stop", "error", err)
		}
	}
	if receiverSup != nil {
		if err := receiverSup.Stop(); err != nil {
			logger.Warn("receiver stop", "error", err)
		}
	}
	close(status)

	return nil
}

// credentialSetter is satisfied by every provider this command wires
// directly; it lets watchConfig apply a hot-reloaded config.json without
// restarting either engine.
type credentialSetter interface {
	SetAPIKey(string)
}

// watchConfig re-resolves configPath on every edit and pushes the new
// credentials into the already-constructed providers (pkg/config's
// fsnotify-backed hot reload, spec.md §6). groq and elevenLabs receive their
// respective keys; the Groq key feeds both the STT and MT adapters since
// both sit on Groq's API.
func watchConfig(ctx context.Context, configPath string, inputs, outputs []audio.DeviceInfo, groq1, groq2, elevenLabs credentialSetter) {
	reload := func() (config.Config, error) {
		return config.Load(configPath, inputs, outputs)
	}
	onChange := func(cfg config.Config) {
		log.Println("duet: config.json changed, applying new credentials")
		if cfg.APIKeyGroq != "" {
			groq1.SetAPIKey(cfg.APIKeyGroq)
			groq2.SetAPIKey(cfg.APIKeyGroq)
		}
		if cfg.APIKeyElevenLabs != "" {
			elevenLabs.SetAPIKey(cfg.APIKeyElevenLabs)
		}
	}
	if err := config.Watch(ctx, configPath, reload, onChange); err != nil {
		log.Println("duet: config watch stopped:", err)
	}
}

func openDevicePair(mctx *malgo.AllocatedContext, in, out *audio.DeviceInfo) (*audio.Capture, *audio.Playback, error) {
	var inID, outID malgo.DeviceID
	if in != nil {
		inID = in.ID
	}
	if out != nil {
		outID = out.ID
	}

	capture, err := audio.OpenCapture(mctx, inID, nil)
	if err != nil {
		return nil, nil, err
	}
	playback, err := audio.OpenPlayback(mctx, outID)
	if err != nil {
		capture.Close()
		return nil, nil, err
	}
	return capture, playback, nil
}
