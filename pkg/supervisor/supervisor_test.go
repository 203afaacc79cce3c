package supervisor

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquilairreale/mongohoneypot/pkg/eventlog"
	"github.com/aquilairreale/mongohoneypot/pkg/wire"
)

type fakeHandle struct {
	restarts atomic.Int32
	err      error
}

func (f *fakeHandle) Start(context.Context) (int, error) { return 0, nil }
func (f *fakeHandle) Restart(context.Context) error {
	f.restarts.Add(1)
	return f.err
}
func (f *fakeHandle) Teardown(context.Context) error { return nil }

func newTestLog(t *testing.T) *eventlog.Logger {
	t.Helper()
	path := t.TempDir() + "/events.log"
	l, err := eventlog.Open(path, eventlog.DefaultRotationThreshold)
	require.NoError(t, err, "Open failed")
	t.Cleanup(func() { l.Close() })
	return l
}

// respondingServer starts a listener that replies to any wire message with
// a minimal OP_REPLY, simulating a healthy mongod.
func respondingServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to listen")
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf, err := wire.ReadMessage(context.Background(), conn, wire.DefaultMaxMessageBytes)
				if err != nil {
					return
				}
				msg, err := wire.Decode(buf)
				if err != nil {
					return
				}
				reply := &wire.OpReply{Hdr: wire.Header{RequestID: 2, ResponseTo: msg.Header().RequestID}}
				_, _ = conn.Write(reply.Encode())
			}()
		}
	}()
	return ln.Addr().String()
}

func TestProbeSucceedsAgainstRespondingServer(t *testing.T) {
	addr := respondingServer(t)
	s := &Supervisor{UpstreamAddr: addr, Logger: zap.NewNop()}

	assert.NoError(t, s.Probe(context.Background()))
}

func TestProbeFailsWhenNothingListening(t *testing.T) {
	// Reserve a port, then close the listener so nothing is there to answer.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to reserve a port")
	addr := ln.Addr().String()
	ln.Close()

	s := &Supervisor{UpstreamAddr: addr, Logger: zap.NewNop()}

	assert.Error(t, s.Probe(context.Background()), "expected probe to fail against a closed port")
}

func TestRunRestartsOnProbeFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to reserve a port")
	addr := ln.Addr().String()
	ln.Close()

	handle := &fakeHandle{}
	s := &Supervisor{
		UpstreamAddr: addr,
		Interval:     10 * time.Millisecond,
		Handle:       handle,
		Log:          newTestLog(t),
		Logger:       zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Greater(t, handle.restarts.Load(), int32(0), "expected at least one restart to have been triggered")
}
