package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// tcpMaxBuffered bounds unread bytes. The oldest are dropped past it.
const tcpMaxBuffered = 64 * 1024

// TCP reads a receiver behind a network multiplexer. A background goroutine
// keeps the connection up, redialing after ReconnectDelay.
type TCP struct {
	addr        string
	dialTimeout time.Duration
	reconnect   time.Duration

	mu      sync.Mutex
	conn    net.Conn
	state   string
	buf     []byte
	r       int
	err     error
	dropped uint64
	closed  bool

	cancel context.CancelFunc
	done   chan struct{}
}

func OpenTCP(addr string) (*TCP, error) {
	return newTCP(addr, 2*time.Second, time.Second)
}

func newTCP(addr string, dialTimeout, reconnect time.Duration) (*TCP, error) {
	if addr == "" {
		return nil, fmt.Errorf("transport: tcp addr is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &TCP{
		addr:        addr,
		dialTimeout: dialTimeout,
		reconnect:   reconnect,
		state:       "connecting",
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		t.run(ctx)
	}()
	return t, nil
}

func (t *TCP) Addr() string { return t.addr }

// State is one of connecting, connected, disconnected, error or stopped.
func (t *TCP) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dropped counts bytes discarded because the reader fell behind.
func (t *TCP) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *TCP) run(ctx context.Context) {
	dialer := &net.Dialer{Timeout: t.dialTimeout}
	chunk := make([]byte, 512)
	for {
		conn, err := dialer.DialContext(ctx, "tcp", t.addr)
		if err != nil {
			if ctx.Err() != nil {
				t.setState("stopped", nil)
				return
			}
			t.setState("error", err)
		} else {
			t.mu.Lock()
			if t.closed {
				t.mu.Unlock()
				_ = conn.Close()
				t.setState("stopped", nil)
				return
			}
			t.conn = conn
			t.mu.Unlock()
			t.setState("connected", nil)

			for {
				n, err := conn.Read(chunk)
				if n > 0 {
					t.push(chunk[:n])
				}
				if err != nil {
					t.mu.Lock()
					t.conn = nil
					t.mu.Unlock()
					_ = conn.Close()
					if ctx.Err() != nil {
						t.setState("stopped", nil)
						return
					}
					if errors.Is(err, io.EOF) {
						err = fmt.Errorf("transport: %s closed the connection", t.addr)
					}
					t.setState("disconnected", err)
					break
				}
			}
		}

		select {
		case <-ctx.Done():
			t.setState("stopped", nil)
			return
		case <-time.After(t.reconnect):
		}
	}
}

func (t *TCP) push(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.r > 0 && t.r == len(t.buf) {
		t.buf, t.r = t.buf[:0], 0
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.r - tcpMaxBuffered; over > 0 {
		t.r += over
		t.dropped += uint64(over)
	}
}

// setState records the connection state. A healthy state clears the error.
func (t *TCP) setState(state string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if err != nil {
		t.err = err
	} else if state == "connected" {
		t.err = nil
	}
}

func (t *TCP) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0
	}
	return len(t.buf) - t.r
}

func (t *TCP) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	if t.r >= len(t.buf) {
		return 0, io.EOF
	}
	b := t.buf[t.r]
	t.r++
	return b, nil
}

func (t *TCP) Write(p []byte) (int, error) {
	t.mu.Lock()
	conn, closed := t.conn, t.closed
	t.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	if conn == nil {
		return 0, fmt.Errorf("transport: %s not connected", t.addr)
	}
	n, err := conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: tcp write: %w", err)
	}
	return n, nil
}

// Err is the last dial or read error, cleared on reconnect.
func (t *TCP) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *TCP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-t.done
	return nil
}
