// Command livetranslate runs one translation control in the terminal. Audio
// is read as raw frames from a file, FIFO or stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexiqai/live-translator/internal/audio"
	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/manifest"
	"github.com/lexiqai/live-translator/internal/observability"
	"github.com/lexiqai/live-translator/internal/provider"
	"github.com/lexiqai/live-translator/internal/resilience"
	"github.com/lexiqai/live-translator/internal/session"
	"github.com/lexiqai/live-translator/internal/stt"
	"github.com/lexiqai/live-translator/internal/translate"
)

func main() {
	inputFlag := flag.String("input", "-", "Raw audio file or FIFO (- for stdin)")
	encodingFlag := flag.String("encoding", "linear16", "Input encoding: linear16 or mulaw")
	rateFlag := flag.Int("rate", 16000, "Input sample rate in Hz")
	realtimeFlag := flag.Bool("realtime", true, "Pace file input at capture speed")
	keyFlag := flag.String("key", "", "Translator subscription key (default: TRANSLATOR_KEY)")
	regionFlag := flag.String("region", "", "Translator region (default: TRANSLATOR_REGION)")
	fromFlag := flag.String("from", "", "Spoken language, e.g. en-US")
	toFlag := flag.String("to", "", "Target language, e.g. fr-FR")
	logFlag := flag.String("log", "livetranslate.log", "Log file path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	format, err := audio.ParseFormat(*encodingFlag, *rateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid audio format: %v\n", err)
		os.Exit(2)
	}

	// The terminal belongs to the TUI
	logFile, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	observability.InitLoggerTo(logFile, cfg.LogLevel, false)
	logger := observability.WithControlID(observability.NewControlID())

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load manifest: %v\n", err)
		os.Exit(1)
	}
	binding := m.Bind(map[string]any{
		manifest.PropSubscriptionKey: *keyFlag,
		manifest.PropRegion:          *regionFlag,
		manifest.PropSourceLanguage:  *fromFlag,
		manifest.PropTargetLanguage:  *toFlag,
	}, cfg.DefaultSettings())
	if len(binding.Missing) > 0 {
		logger.Warn().Strs("properties", binding.Missing).Msg("Required properties not set")
	}

	var input io.Reader = os.Stdin
	if *inputFlag != "-" {
		f, err := os.Open(*inputFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	resetTimeout := time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second
	sttBreaker := resilience.NewCircuitBreaker("deepgram", cfg.CircuitBreakerMaxFailures, resetTimeout)
	translatorBreaker := resilience.NewCircuitBreaker("translator", cfg.CircuitBreakerMaxFailures, resetTimeout)

	feedCfg := audio.FeedConfigFromConfig(cfg)
	feed := audio.NewFeed(feedCfg, logger)
	feed.SetFormat(format)
	defer feed.Close()

	pipeline := provider.NewPipeline(feed,
		stt.NewFactory(cfg, sttBreaker, logger),
		translate.NewAzureClient(cfg, translatorBreaker, logger),
		logger)

	wake := make(chan struct{}, 1)
	ctrl := session.NewController(pipeline,
		session.WithLogger(logger),
		session.WithQueueSize(cfg.EventQueueSize),
		session.WithSettings(binding.Settings),
		session.WithNotifier(session.NotifierFunc(func(session.Snapshot) {
			select {
			case wake <- struct{}{}:
			default:
			}
		})),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	toggle := func() tea.Msg {
		tctx, tcancel := context.WithTimeout(ctx, 5*time.Second)
		defer tcancel()
		return commandErrMsg{err: ctrl.Toggle(tctx)}
	}

	model := newTUIModel(binding.Settings.SourceLanguage, binding.Settings.TargetLanguage, toggle, clipboard.WriteAll)
	model.snap = ctrl.Snapshot()

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if *inputFlag == "-" {
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(model, opts...)

	// Only the newest snapshot is delivered
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				program.Send(snapshotMsg(ctrl.Snapshot()))
			}
		}
	}()

	go func() {
		err := streamAudio(ctx, input, feed, format, feedCfg.ChunkMs, *realtimeFlag && *inputFlag != "-")
		if err != nil {
			logger.Error().Err(err).Msg("Audio input failed")
		}
		program.Send(audioDoneMsg{err: err})
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI failed: %v\n", err)
	}

	cancel()
	<-ctrl.Done()
}
