// Command probyserver is a reference host process for ProbySDK. It wires
// the SDK exactly as an embedding mobile/desktop app would — through the
// public probysdk package, never internal/engine directly — loading a
// config file, registering every in-process collector, starting the
// WebSocket/Bonjour transport and the diagnostics side-channel, and
// blocking until asked to shut down.
//
// Grounded on the teacher's cmd/main.go flag-parsing and env-fallback
// idiom for -config, and on internal/app/app.go's Run() signal-handling
// shape (signal.Notify on SIGINT/SIGTERM, block, then reverse-order
// Stop).
package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/config"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/collectors/crash"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/collectors/network"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/collectors/performance"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/diagnostics"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/redact"
)

func main() {
	var configFile string
	var debugBuild bool
	flag.StringVar(&configFile, "config", os.Getenv("PROBYSDK_CONFIG_FILE"), "path to a ProbySDK YAML config file")
	flag.BoolVar(&debugBuild, "debug-build", os.Getenv("PROBYSDK_DEBUG_BUILD") == "true", "mark this process as a debug build (enables config hot-reload)")
	flag.Parse()

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.WithError(err).Fatal("probyserver: failed to load config")
	}
	for _, w := range config.Validate(cfg) {
		logger.WithField("key", w.Key).Warn("probyserver: " + w.Message)
	}
	cfg.EnabledCollectors = model.CollectorNetwork | model.CollectorPerformance | model.CollectorCrash
	cfg.IsDebugBuild = debugBuild

	sdk := probysdk.New(logger)

	sdk.RegisterFactory(model.CollectorNetwork, func(sink func(model.LogEntry)) probysdk.Collector {
		return network.New(network.Config{
			Redactor: redact.New(
				cfg.Privacy.RedactedHeaderNames,
				cfg.Privacy.RedactedMetadataKeys,
				cfg.Privacy.RedactedQueryParams,
				cfg.Privacy.Placeholder,
			),
			MaxBodyBytes: cfg.Privacy.MaxBodyCaptureBytes,
		}, sink)
	})
	sdk.RegisterFactory(model.CollectorPerformance, func(sink func(model.LogEntry)) probysdk.Collector {
		return performance.New(performance.Config{Logger: logger}, sink)
	})
	sdk.RegisterFactory(model.CollectorCrash, func(sink func(model.LogEntry)) probysdk.Collector {
		return crash.New(crash.Config{Flusher: sdk, Logger: logger}, sink)
	})

	handshake := func() probysdk.Handshake {
		return probysdk.Handshake{
			ProtocolVersion: model.ProtocolVersion,
			SDKVersion:      cfg.SDKVersion,
			Device:          model.DeviceInfo{Name: "probyserver-host", OSName: "linux"},
			App:             model.AppInfo{Name: "probyserver"},
			PairingRequired: cfg.Transport.RequiresPairing,
			Capabilities:    []string{"logBatch", "logReplay", "command"},
		}
	}

	if err := sdk.Start(*cfg, handshake, nil); err != nil {
		logger.WithError(err).Fatal("probyserver: engine failed to start")
	}

	var watcher *config.Watcher
	if cfg.IsDebugBuild && configFile != "" {
		w, err := config.NewWatcher(configFile, logger, sdk.ApplyFilterUpdate)
		if err != nil {
			logger.WithError(err).Warn("probyserver: config hot-reload watcher failed to start")
		} else {
			watcher = w
			watcher.Start()
		}
	}

	diagAddr := ""
	if cfg.Transport.Port != 0 {
		diagAddr = ":" + strconv.Itoa(cfg.Transport.Port+1)
	}
	diag := diagnostics.New(diagAddr, func() diagnostics.Snapshot { return sdk.Snapshot() }, logger)
	diag.Start()

	logger.Info("probyserver: running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("probyserver: shutting down")
	if watcher != nil {
		watcher.Stop()
	}
	if err := diag.Stop(); err != nil {
		logger.WithError(err).Warn("probyserver: diagnostics stop failed")
	}
	if err := sdk.Stop(); err != nil {
		logger.WithError(err).Warn("probyserver: engine stop failed")
	}
}
