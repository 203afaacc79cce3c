package wire

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessageExactFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	frame := buildHeader(20, 1, 0, 1)
	frame = append(frame, 1, 2, 3, 4)

	go func() {
		_, _ = client.Write(frame[:10])
		time.Sleep(5 * time.Millisecond)
		_, _ = client.Write(frame[10:])
	}()

	got, err := ReadMessage(context.Background(), server, DefaultMaxMessageBytes)
	require.NoError(t, err)
	assert.Len(t, got, len(frame))
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func TestReadMessageEOFBeforeFrame(t *testing.T) {
	_, err := ReadMessage(context.Background(), eofReader{}, DefaultMaxMessageBytes)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageRejectsOversizedLength(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = client.Write(buildHeader(1<<30, 1, 0, 1))
	}()

	_, err := ReadMessage(context.Background(), server, DefaultMaxMessageBytes)
	assert.ErrorIs(t, err, ErrTruncated)
}
