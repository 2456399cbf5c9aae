// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the request-handling core together: the Session
// tree, the shared parser dispatcher, the TCP and HTTP protocol servers,
// and the supporting stores, started and stopped as a group.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ManuGH/pipelined/internal/audit"
	"github.com/ManuGH/pipelined/internal/cache"
	"github.com/ManuGH/pipelined/internal/config"
	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/history"
	"github.com/ManuGH/pipelined/internal/httpserver"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/parser"
	"github.com/ManuGH/pipelined/internal/tcpserver"
	"github.com/ManuGH/pipelined/internal/telemetry"
	"github.com/ManuGH/pipelined/internal/tree"
	"github.com/ManuGH/pipelined/internal/workerpool"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Version is stamped at build time.
var Version = "dev"

// Daemon owns every long-lived component of one process.
type Daemon struct {
	cfg        config.Config
	session    *tree.Session
	dispatcher *parser.Dispatcher
	tcp        *tcpserver.Server
	http       *httpserver.Server
	pool       *workerpool.Pool
	ledger     *audit.Ledger
	history    *history.Store
	telemetry  *telemetry.Provider
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
}

// New assembles a Daemon from cfg and eng. Nothing is bound until Run.
func New(ctx context.Context, cfg config.Config, eng engine.Engine) (*Daemon, error) {
	d := &Daemon{cfg: cfg, logger: log.WithComponent("daemon")}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Endpoint:       cfg.OTELEndpoint,
		ServiceName:    "pipelined",
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, err
	}
	d.telemetry = tp

	d.session = tree.Acquire(eng)

	ledger, err := audit.Open()
	if err != nil {
		d.logger.Warn().Err(err).Msg("audit ledger unavailable, continuing without")
	} else {
		d.ledger = ledger
		d.session.Pipelines().SetLedger(ledger)
	}

	hist, err := history.Open()
	if err != nil {
		d.logger.Warn().Err(err).Msg("command history unavailable, continuing without")
	} else {
		d.history = hist
	}

	d.dispatcher = parser.NewDispatcher(d.session, d.history)

	statusCache := cache.Noop()
	if cfg.RedisAddr != "" {
		statusCache = cache.NewRedis(cfg.RedisAddr)
	}

	d.pool = workerpool.New(cfg.HTTPMaxThreads, cfg.HTTPMaxThreads)
	httpSrv, err := httpserver.New(d.session, d.dispatcher, httpserver.Options{
		StatusCache: statusCache,
		History:     d.history,
		RateLimit:   0,
	}, d.pool)
	if err != nil {
		d.teardown(ctx)
		return nil, err
	}
	d.http = httpSrv
	d.tcp = tcpserver.New(d.dispatcher, cfg.TCPMaxThreads)

	if cfg.DebugOverridesFile != "" {
		if err := d.watchDebugOverrides(ctx, cfg.DebugOverridesFile); err != nil {
			d.logger.Warn().Err(err).Str("path", cfg.DebugOverridesFile).Msg("debug overrides watch unavailable")
		}
	}
	return d, nil
}

// Run binds the enabled protocol servers and blocks until ctx is done or
// a bind fails. A bind failure on one IPC aborts only that IPC's start;
// with neither IPC enabled Run fails immediately.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.cfg.EnableHTTP && !d.cfg.EnableTCP {
		return errors.New("daemon: no protocol server enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	started := 0

	if d.cfg.EnableHTTP {
		addr := fmt.Sprintf("%s:%d", d.cfg.HTTPAddress, d.cfg.HTTPPort)
		if err := d.http.Start(addr); err != nil {
			d.logger.Error().Err(err).Str("address", addr).Msg("http start failed")
		} else {
			started++
		}
	}
	if d.cfg.EnableTCP {
		addr := fmt.Sprintf("%s:%d", d.cfg.TCPAddress, d.cfg.TCPPort)
		if err := d.tcp.Start(gctx, addr); err != nil {
			d.logger.Error().Err(err).Str("address", addr).Msg("tcp start failed")
		} else {
			started++
		}
	}
	if started == 0 {
		d.teardown(ctx)
		return errors.New("daemon: every enabled protocol failed to bind")
	}

	g.Go(func() error {
		<-gctx.Done()
		d.teardown(context.Background())
		return nil
	})
	return g.Wait()
}

// teardown stops everything Run started, in dependency order.
func (d *Daemon) teardown(ctx context.Context) {
	if d.watcher != nil {
		_ = d.watcher.Close()
		d.watcher = nil
	}
	if d.tcp != nil {
		d.tcp.Stop()
	}
	if d.http != nil {
		d.http.Stop(ctx)
	} else if d.pool != nil {
		d.pool.Stop()
	}
	if d.history != nil {
		_ = d.history.Close()
		d.history = nil
	}
	if d.ledger != nil {
		_ = d.ledger.Close()
		d.ledger = nil
	}
	if d.session != nil {
		tree.ReleaseSession(d.session)
		d.session = nil
	}
	if d.telemetry != nil {
		_ = d.telemetry.Shutdown(ctx)
		d.telemetry = nil
	}
}

// watchDebugOverrides applies the overrides file once, then re-applies it
// on every write, routing each value through the same leaf update path the
// debug_* shorthands use so validation stays uniform.
func (d *Daemon) watchDebugOverrides(ctx context.Context, path string) error {
	d.applyDebugOverrides(ctx, path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	d.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					d.applyDebugOverrides(ctx, path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				d.logger.Warn().Err(err).Msg("debug overrides watch error")
			}
		}
	}()
	return nil
}

func (d *Daemon) applyDebugOverrides(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("debug overrides unreadable")
		return
	}
	var s tree.Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("debug overrides malformed")
		return
	}

	for setting, value := range map[string]string{
		"enable":    fmt.Sprintf("%t", s.Enable),
		"color":     fmt.Sprintf("%t", s.Color),
		"threshold": s.Threshold,
	} {
		if value == "" {
			continue
		}
		code, _ := d.dispatcher.Dispatch(ctx, parser.Command{
			Verb: parser.VerbUpdate,
			Path: "/debug/" + setting,
			Name: value,
		})
		d.logger.Debug().Str("setting", setting).Str("value", value).Str("code", code.String()).Msg("debug override applied")
	}
}
