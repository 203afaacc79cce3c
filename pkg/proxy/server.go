// Package proxy implements the accept loop and per-connection duplex
// forwarder that sit at the center of the honeypot: every accepted client
// gets an outbound dial to the upstream and a worker that shuttles framed
// wire messages between the two sockets, decoding and analyzing each one
// before forwarding its original bytes.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquilairreale/mongohoneypot/pkg/analyzer"
	"github.com/aquilairreale/mongohoneypot/pkg/eventlog"
	"github.com/aquilairreale/mongohoneypot/pkg/wire"
	"github.com/aquilairreale/mongohoneypot/utils"
)

// selectorWake bounds how long a worker can go without checking for
// shutdown; it is also the unit the liveness invariant (shutdown observed
// within 1.5s) is built against.
const selectorWake = 1 * time.Second

// Server owns the listener, dials the upstream for every accepted client,
// and tracks every per-connection worker in an errgroup so shutdown can
// wait for them to drain.
type Server struct {
	ListenAddr   string
	UpstreamAddr string
	MaxMessage   int32

	Log      *eventlog.Logger
	Analyzer *analyzer.Analyzer
	Logger   *zap.Logger

	// Verbose, when set, prints a colored one-line opcode dump per frame
	// to stderr, matching the teacher's fatih/color CLI output.
	Verbose bool
}

var verboseOpCode = color.New(color.FgCyan).SprintFunc()
var verboseDirection = color.New(color.FgYellow).SprintFunc()

// Run accepts connections until ctx is canceled, spawning one worker per
// client. It returns nil on a clean shutdown and an error if the listener
// itself fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return fmt.Errorf("proxy: listen on %s: %w", s.ListenAddr, err)
	}
	s.Logger.Info("proxy listening", zap.String("addr", listener.Addr().String()))

	defer func() {
		if err := listener.Close(); err != nil {
			s.Logger.Warn("failed to close listener", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	workers, workerCtx := errgroup.WithContext(ctx)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var netErr *net.OpError
			if errors.As(err, &netErr) {
				break
			}
			s.Logger.Warn("accept failed", zap.Error(err))
			continue
		}

		workers.Go(func() error {
			s.handleConnection(workerCtx, conn)
			return nil
		})
	}

	_ = workers.Wait()
	return nil
}

// handleConnection dials the upstream on behalf of conn and runs the
// duplex forwarder until either side closes or ctx is canceled.
func (s *Server) handleConnection(ctx context.Context, client net.Conn) {
	peer := client.RemoteAddr().String()
	s.Log.Log("connection", "established", map[string]interface{}{"peer": peer})
	defer client.Close()

	upstream, err := net.Dial("tcp", s.UpstreamAddr)
	if err != nil {
		s.Log.Log("connection", "upstream_refused", map[string]interface{}{"peer": peer, "error": err.Error()})
		s.Logger.Warn("upstream connection refused: is Mongo up?", zap.String("peer", peer), zap.Error(err))
		return
	}
	defer utils.Recover(s.Logger, client, upstream)
	defer upstream.Close()

	if err := s.forward(ctx, client, upstream, peer); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Debug("connection ended", zap.String("peer", peer), zap.Error(err))
	}
}

// forward is the per-connection duplex loop (C5): reader goroutines feed
// buffered channels for each direction; the select below drains whichever
// side is ready, decodes and analyzes the frame, and forwards the original
// bytes unmodified to the other side. A 1-second ticker gives the loop a
// chance to observe ctx cancellation even when both sides are idle.
func (s *Server) forward(ctx context.Context, client, upstream net.Conn, peer string) error {
	clientFrames := make(chan []byte, 1)
	upstreamFrames := make(chan []byte, 1)
	clientErrs := make(chan error, 1)
	upstreamErrs := make(chan error, 1)

	go s.pump(ctx, client, clientFrames, clientErrs)
	go s.pump(ctx, upstream, upstreamFrames, upstreamErrs)

	ticker := time.NewTicker(selectorWake)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			continue

		case frame := <-clientFrames:
			s.inspect(frame, analyzer.DirectionRequest, peer)
			if _, err := writeFull(upstream, frame); err != nil {
				s.Log.Log("connection", "write_failed_upstream", map[string]interface{}{"peer": peer, "error": err.Error()})
				return err
			}

		case frame := <-upstreamFrames:
			s.inspect(frame, analyzer.DirectionResponse, peer)
			if _, err := writeFull(client, frame); err != nil {
				s.Log.Log("connection", "write_failed_client", map[string]interface{}{"peer": peer, "error": err.Error()})
				return err
			}

		case err := <-clientErrs:
			s.logTermination("client", peer, err)
			return err

		case err := <-upstreamErrs:
			s.logTermination("upstream", peer, err)
			return err
		}
	}
}

// pump reads framed wire messages from conn in a loop, pushing each
// complete frame to frames and any terminal error to errs. It runs until
// ReadMessage returns an error or ctx is canceled.
func (s *Server) pump(ctx context.Context, conn net.Conn, frames chan<- []byte, errs chan<- error) {
	for {
		buf, err := wire.ReadMessage(ctx, conn, s.MaxMessage)
		if err != nil {
			errs <- err
			return
		}
		select {
		case frames <- buf:
		case <-ctx.Done():
			return
		}
	}
}

// inspect decodes a raw frame and hands it to the analyzer. Decode errors
// never drop the connection — the frame is still forwarded by the caller —
// they only suppress analysis for that one message.
func (s *Server) inspect(buf []byte, dir analyzer.Direction, peer string) {
	msg, err := wire.Decode(buf)
	if err != nil {
		s.Logger.Debug("decode failed, forwarding raw bytes", zap.Error(err))
		return
	}
	if s.Verbose {
		dirLabel := "client->upstream"
		if dir == analyzer.DirectionResponse {
			dirLabel = "upstream->client"
		}
		fmt.Fprintf(color.Error, "[%s] %s %s\n", verboseDirection(dirLabel), peer, verboseOpCode(msg.OpCode().String()))
	}
	s.Analyzer.Inspect(msg, dir, peer)
}

// logTermination classifies err per the EOF/Reset x client/upstream
// taxonomy and writes the corresponding connection event.
func (s *Server) logTermination(source, peer string, err error) {
	reset := errors.Is(err, wire.ErrReset)
	var event string
	switch {
	case source == "client" && !reset:
		event = "closed_by_peer"
	case source == "client" && reset:
		event = "reset_by_peer"
	case source == "upstream" && !reset:
		event = "closed_by_upstream_server"
	case source == "upstream" && reset:
		event = "reset_by_upstream_server"
	}
	s.Log.Log("connection", event, map[string]interface{}{"peer": peer, "source": source})
}

// writeFull writes buf to w in full, retrying on short writes until all
// bytes are sent or the connection errors (treated as a reset for
// symmetry with the read side).
func writeFull(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: %v", wire.ErrReset, err)
		}
	}
	return total, nil
}
