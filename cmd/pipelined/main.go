// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// pipelined is a long-running daemon exposing remote control over a tree
// of live multimedia-pipeline objects through a line-oriented TCP command
// protocol and an HTTP/JSON REST protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/pipelined/internal/config"
	"github.com/ManuGH/pipelined/internal/daemon"
	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")

	enableHTTP := flag.Bool("enable-http-protocol", false, "start the HTTP protocol server")
	httpAddress := flag.String("http-address", "127.0.0.1", "HTTP bind address")
	httpPort := flag.Int("http-port", 5001, "HTTP bind port")
	httpMaxThreads := flag.Int("http-max-threads", 16, "HTTP worker pool capacity (-1 clamps to a bounded default)")

	enableTCP := flag.Bool("enable-tcp-protocol", false, "start the TCP protocol server")
	tcpAddress := flag.String("tcp-address", "127.0.0.1", "TCP bind address")
	tcpPort := flag.Int("tcp-port", 5000, "TCP bind port")
	tcpMaxThreads := flag.Int("tcp-max-threads", 16, "TCP connection cap (-1 clamps to a bounded default)")

	flag.Parse()

	if *showVersion {
		fmt.Println("pipelined", daemon.Version)
		return 0
	}

	cfg, err := config.Load(config.Options{FilePath: *configPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Explicit flags override file/env values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "enable-http-protocol":
			cfg.EnableHTTP = *enableHTTP
		case "http-address":
			cfg.HTTPAddress = *httpAddress
		case "http-port":
			cfg.HTTPPort = *httpPort
		case "http-max-threads":
			cfg.HTTPMaxThreads = *httpMaxThreads
		case "enable-tcp-protocol":
			cfg.EnableTCP = *enableTCP
		case "tcp-address":
			cfg.TCPAddress = *tcpAddress
		case "tcp-port":
			cfg.TCPPort = *tcpPort
		case "tcp-max-threads":
			cfg.TCPMaxThreads = *tcpMaxThreads
		}
	})
	cfg.Clamp()

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "pipelined", Version: daemon.Version})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg, engine.NewFake())
	if err != nil {
		logger.Error().Err(err).Msg("daemon init failed")
		return 1
	}

	if err := d.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		return 1
	}
	logger.Info().Msg("shutdown complete")
	return 0
}
