// Licensed under the MIT license which can be found in the LICENSE file.

// knx-mqtt-bridge mirrors KNX group traffic onto MQTT topics and writes
// MQTT commands back to the bus.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "knx-mqtt-bridge.yaml", "path to the configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose output")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bridge := NewBridge(config, logger)

	if err := bridge.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		logger.Info("shutting down")

	case <-bridge.Done():
		logger.Error("tunnel stopped")
	}

	bridge.Stop()
}
