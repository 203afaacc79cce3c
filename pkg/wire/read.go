package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"
)

// ErrReset is returned by ReadMessage when the peer terminates the
// connection abnormally (a TCP reset, or the connection being closed out
// from under the read), as opposed to a clean io.EOF.
var ErrReset = errors.New("wire: connection reset by peer")

// ReadMessage reads exactly one framed wire message from r: the 16-byte
// header, then message_length-16 further bytes, coalescing partial reads.
// It returns io.EOF if the peer closed the connection before any bytes of a
// new frame arrived, ErrReset if the peer reset the connection, and
// ErrTruncated if message_length falls outside [16, maxMessageBytes].
func ReadMessage(ctx context.Context, r io.Reader, maxMessageBytes int32) ([]byte, error) {
	header, err := readExactly(ctx, r, HeaderLength)
	if err != nil {
		return nil, err
	}

	length, _, ok := readi32(header)
	if !ok {
		return nil, fmt.Errorf("%w: short header", ErrTruncated)
	}
	if length < HeaderLength || length > maxMessageBytes {
		return nil, fmt.Errorf("%w: message_length %d outside [%d, %d]", ErrTruncated, length, HeaderLength, maxMessageBytes)
	}

	rest, err := readExactly(ctx, r, int(length)-HeaderLength)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, length)
	buf = append(buf, header...)
	buf = append(buf, rest...)
	return buf, nil
}

// readExactly reads n bytes from r, retrying on short reads, classifying a
// zero-byte read before any data arrived as io.EOF and a reset-shaped error
// as ErrReset. A goroutine performs the blocking read so the caller's
// context can interrupt it at the 1-second selector wake.
func readExactly(ctx context.Context, r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	type result struct {
		buf []byte
		err error
	}
	resultCh := make(chan result, 1)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		buf := make([]byte, n)
		read := 0
		for read < n {
			m, err := r.Read(buf[read:])
			read += m
			if err != nil {
				if read == 0 && errors.Is(err, io.EOF) {
					resultCh <- result{nil, io.EOF}
					return nil
				}
				if isReset(err) {
					resultCh <- result{nil, ErrReset}
					return nil
				}
				resultCh <- result{nil, err}
				return nil
			}
		}
		resultCh <- result{buf, nil}
		return nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		_ = g.Wait()
		return res.buf, res.err
	}
}

// isReset reports whether err represents an abnormal peer termination
// rather than a clean close.
func isReset(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
