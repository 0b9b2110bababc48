package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"dictate/audio"
	"dictate/bridge"
	"dictate/config"
	"dictate/log"
	"dictate/recognizer"
	"dictate/session"
)

var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "print version and exit")
	backendFlag := flag.String("backend", "", "recognition backend: native or stream (default: auto)")
	continuousFlag := flag.Bool("continuous", true, "restart recognition after each utterance")
	onceFlag := flag.Bool("once", false, "record a single utterance and exit")
	logFlag := flag.String("log", "", "log directory (default: ~/.dictate/logs)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dictate %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *backendFlag != "" {
		cfg.Session.Backend = *backendFlag
	}
	if !*continuousFlag {
		cfg.Session.Continuous = false
	}

	logDir, err := log.ResolveDir(firstNonEmpty(*logFlag, cfg.Log.Dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	captureConfig := audio.CaptureConfig{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   uint32(cfg.Audio.Channels),
	}
	engine := audio.NewEngine(ctx, captureConfig)
	defer engine.Close()
	probe := audio.NewProbe(ctx, captureConfig)

	factory := recognizer.NewStreamFactory(cfg.Provider.APIKey)
	if cfg.Provider.Endpoint != "" {
		factory.SetEndpoint(cfg.Provider.Endpoint)
	}
	if !factory.Available() {
		fmt.Fprintln(os.Stderr, "Error: no API key (set DICTATE_API_KEY or DEEPGRAM_API_KEY)")
		os.Exit(1)
	}

	recognizerConfig := recognizer.Config{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Language:   cfg.Provider.Language,
		Model:      cfg.Provider.Model,
	}

	backend := buildBackend(cfg.Session.Backend, engine, factory, probe, recognizerConfig)
	log.Infof("dictate %s starting with %s backend", version, backend.Name())

	// In the config file zero retries means zero; the manager reserves
	// zero for "use the default" and takes negative as disabled.
	retries := cfg.Session.NetworkRetries
	if retries == 0 {
		retries = -1
	}

	sink := consoleSink{}
	manager := session.NewManager(backend, newFrontend(sink), session.Config{
		Continuous:        cfg.Session.Continuous,
		NetworkRetries:    retries,
		NetworkRetryDelay: cfg.Session.NetworkRetryDelay(),
		RestartDelay:      cfg.Session.RestartDelay(),
		RestartRetryDelay: cfg.Session.RestartRetryDelay(),
	})

	if !manager.IsSupported() {
		fmt.Fprintln(os.Stderr, "Error: dictation is not supported in this environment")
		os.Exit(1)
	}

	if *onceFlag {
		runOnce(manager)
		return
	}
	runToggleLoop(manager)
}

// buildBackend picks the recognition backend. "native" routes audio
// through the bridge; "stream" drives the recognizer directly with
// per-utterance tasks. Auto mode prefers native.
func buildBackend(name string, engine *audio.Engine, factory recognizer.Factory, probe *audio.Probe, rcfg recognizer.Config) session.Backend {
	switch name {
	case "stream":
		return session.NewInprocBackend(engine, factory, probe, rcfg)
	default:
		b := bridge.New(engine, factory, bridge.NewProbeAuthorizer(probe), rcfg)
		return session.NewNativeBackend(b)
	}
}

// runToggleLoop reads stdin: enter toggles recording, q quits. The
// recording banner comes from the session listener, not the keypress,
// since a start may still fail its permission or network checks.
func runToggleLoop(manager *session.Manager) {
	fmt.Println("dictate ready (enter to toggle, q to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "q", "quit", "exit":
			manager.Stop()
			return
		default:
			manager.Toggle()
		}
	}
	manager.Stop()
}

// runOnce records until the first enter keypress, then exits.
func runOnce(manager *session.Manager) {
	manager.Start()
	bufio.NewScanner(os.Stdin).Scan()
	manager.Stop()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
