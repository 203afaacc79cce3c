// Package utils holds small process-wide helpers shared by main and the
// proxy: panic recovery, error logging, and the shutdown context.
package utils

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// ErrCode is the process exit code main reads after the root command
// returns. main's run sets it according to the startup step or the accept
// loop that ended the run (event log, container subsystem, upstream probe,
// proxy).
var ErrCode = 0

// NewCtx returns a context cancelled on SIGINT/SIGTERM, the process-wide
// shutdown broadcast every worker goroutine selects on.
func NewCtx() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// LogError logs err at error level with msg, tolerating a nil err so
// callers can use it uniformly in defers and validation paths.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
}

// Recover closes client and dest (ignoring "already closed" errors) and
// logs the panic, letting the caller's errgroup worker exit cleanly
// instead of taking the process down.
func Recover(logger *zap.Logger, client, dest net.Conn) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error("recovered from panic, closing connection", zap.Any("panic", r))
		}
		if client != nil {
			if err := client.Close(); err != nil && !IsShutdownError(err) {
				LogError(logger, err, "failed to close client connection during recovery")
			}
		}
		if dest != nil {
			if err := dest.Close(); err != nil && !IsShutdownError(err) {
				LogError(logger, err, "failed to close upstream connection during recovery")
			}
		}
	}
}

// IsShutdownError reports whether err is one of the ordinary ways a
// socket dies during shutdown or peer disconnect, as opposed to a bug
// worth surfacing.
func IsShutdownError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, substr := range []string{
		"use of closed network connection",
		"connection reset",
		"broken pipe",
		"connection refused",
		"EOF",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
