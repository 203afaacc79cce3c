// Package supervisor runs a periodic liveness probe against the upstream
// MongoDB instance and triggers a restart through a container.Handle when
// the probe fails, independent of the connection proxying path.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.uber.org/zap"

	"github.com/aquilairreale/mongohoneypot/pkg/container"
	"github.com/aquilairreale/mongohoneypot/pkg/eventlog"
	"github.com/aquilairreale/mongohoneypot/pkg/wire"
)

// probeTimeout bounds a single liveness round trip.
const probeTimeout = 3 * time.Second

// Supervisor periodically probes the upstream and restarts it through the
// container handle on any probed failure. It never forcibly terminates
// active client connections — they fail naturally on their next socket
// operation once the upstream goes away.
type Supervisor struct {
	UpstreamAddr string
	Interval     time.Duration
	Handle       container.Handle
	Log          *eventlog.Logger
	Logger       *zap.Logger
}

// Run loops until ctx is canceled, waiting max(interval-elapsed, 0) between
// probes so a slow probe doesn't compound with the configured interval.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		start := time.Now()
		s.probeAndRestartIfDown(ctx)

		wait := s.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Supervisor) probeAndRestartIfDown(ctx context.Context) {
	if err := s.Probe(ctx); err == nil {
		return
	}

	s.Log.Log("mongo", "down", map[string]interface{}{"upstream": s.UpstreamAddr})
	s.Logger.Warn("upstream unresponsive, restarting", zap.String("upstream", s.UpstreamAddr))

	if err := s.Handle.Restart(ctx); err != nil {
		s.Logger.Error("upstream restart failed", zap.Error(err))
		return
	}
	s.Log.Log("mongo", "restarted", map[string]interface{}{"upstream": s.UpstreamAddr})
}

// Probe performs a minimal OP_MSG {hello: 1} round trip with a 3-second
// deadline. Any failure of the dial, write, read, or deadline counts as
// down. Exported so the startup sequence can reuse it for its own
// 3x/500ms readiness retries before the accept loop opens.
func (s *Supervisor) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.UpstreamAddr)
	if err != nil {
		return fmt.Errorf("supervisor: dial upstream: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	body := buildHelloCommand()

	req := &wire.OpMsg{
		Hdr:      wire.Header{RequestID: 1},
		Sections: []wire.Section{wire.SectionBody{Body: body}},
	}
	if _, err := conn.Write(req.Encode()); err != nil {
		return fmt.Errorf("supervisor: write hello command: %w", err)
	}

	if _, err := wire.ReadMessage(ctx, conn, wire.DefaultMaxMessageBytes); err != nil {
		return fmt.Errorf("supervisor: read hello reply: %w", err)
	}
	return nil
}

// buildHelloCommand renders {"hello": 1, "$db": "admin"} as a BSON document.
func buildHelloCommand() bsoncore.Document {
	return bsoncore.NewDocumentBuilder().
		AppendInt32("hello", 1).
		AppendString("$db", "admin").
		Build()
}
