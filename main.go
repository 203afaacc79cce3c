// Package main wires the honeypot's components into a runnable process:
// logger and event sink, sandboxed upstream container, supervisor, and the
// proxy's accept loop, in the startup order the spec documents.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aquilairreale/mongohoneypot/cli"
	"github.com/aquilairreale/mongohoneypot/config"
	"github.com/aquilairreale/mongohoneypot/pkg/analyzer"
	"github.com/aquilairreale/mongohoneypot/pkg/container"
	"github.com/aquilairreale/mongohoneypot/pkg/eventlog"
	"github.com/aquilairreale/mongohoneypot/pkg/proxy"
	"github.com/aquilairreale/mongohoneypot/pkg/supervisor"
	"github.com/aquilairreale/mongohoneypot/utils"
)

const startupProbeAttempts = 3
const startupProbeDelay = 500 * time.Millisecond

func main() {
	oldMask := SetUmask()
	defer RestoreUmask(oldMask)

	logger := newLogger(false)
	defer logger.Sync()

	ctx := utils.NewCtx()

	root := cli.RootCommand(logger, func(cfg *config.Config) error {
		return run(ctx, logger, cfg)
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mongohoneypot:", err)
		if utils.ErrCode == 0 {
			utils.ErrCode = 1
		}
	}
	os.Exit(utils.ErrCode)
}

// newLogger builds the ambient zap diagnostic logger: console encoding by
// default, JSON under --debug, both writing to stderr so the event log
// remains the only thing on stdout-adjacent disk output.
func newLogger(debug bool) *zap.Logger {
	level := zap.InfoLevel
	encoding := "console"
	if debug {
		level = zap.DebugLevel
		encoding = "json"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         encoding,
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if !debug {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// run executes the full startup sequence against a resolved config: open
// the event sink, start and probe the sandboxed upstream, launch the
// supervisor in its own goroutine, then enter the accept loop. run does not
// wait for the supervisor goroutine to return. It
// returns once the accept loop exits (normal shutdown or a fatal error),
// having set utils.ErrCode per the component that ended the run.
func run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	if cfg.Debug {
		logger = newLogger(true)
	}

	log, err := eventlog.Open(cfg.LogFile, eventlog.DefaultRotationThreshold)
	if err != nil {
		utils.ErrCode = 1
		return fmt.Errorf("open event log: %w", err)
	}
	defer log.Close()

	handle, err := container.NewDockerHandle(logger)
	if err != nil {
		utils.ErrCode = 2
		return fmt.Errorf("container subsystem: %w", err)
	}

	port, err := handle.Start(ctx)
	if err != nil {
		utils.ErrCode = 2
		return fmt.Errorf("container subsystem: start upstream: %w", err)
	}
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := handle.Teardown(teardownCtx); err != nil {
			logger.Warn("failed to tear down upstream container", zap.Error(err))
		}
	}()

	upstreamAddr := fmt.Sprintf("%s:%d", cfg.MongoHost.Address, port)
	if err := probeStartup(ctx, upstreamAddr); err != nil {
		utils.ErrCode = 3
		return fmt.Errorf("upstream did not come up: %w", err)
	}

	log.Log("system", "startup", map[string]interface{}{
		"listen":   cfg.Host.Addr(),
		"upstream": upstreamAddr,
	})
	defer log.Log("system", "shutdown", map[string]interface{}{})

	sup := &supervisor.Supervisor{
		UpstreamAddr: upstreamAddr,
		Interval:     cfg.CheckInterval,
		Handle:       handle,
		Log:          log,
		Logger:       logger,
	}
	go sup.Run(ctx)

	server := &proxy.Server{
		ListenAddr:   cfg.Host.Addr(),
		UpstreamAddr: upstreamAddr,
		MaxMessage:   cfg.MaxMessageBytes,
		Log:          log,
		Analyzer:     analyzer.New(log),
		Logger:       logger,
		Verbose:      cfg.Verbose,
	}

	if err := server.Run(ctx); err != nil {
		utils.ErrCode = 1
		return fmt.Errorf("proxy: %w", err)
	}
	return nil
}

// probeStartup mirrors the startup sequence's 3x/500ms liveness retries
// before the accept loop is allowed to open for business.
func probeStartup(ctx context.Context, upstreamAddr string) error {
	probe := &supervisor.Supervisor{UpstreamAddr: upstreamAddr}
	var lastErr error
	for i := 0; i < startupProbeAttempts; i++ {
		if lastErr = probe.Probe(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startupProbeDelay):
		}
	}
	return lastErr
}
