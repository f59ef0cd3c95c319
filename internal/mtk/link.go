package mtk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrTimeout is returned by Await when no matching packet arrived in time.
var ErrTimeout = errors.New("mtk: timed out waiting for packet")

// Port is the byte transport a Link drives.
type Port interface {
	Available() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// Link sends packets and waits for replies over a Port. Waits poll the port
// and sleep between polls; they block the caller for at most the timeout.
type Link struct {
	port Port
	clk  clock.Clock
	poll time.Duration
	rx   Receiver
}

// LinkOption configures a Link.
type LinkOption func(*Link)

// WithLinkClock overrides the clock used for timeouts and poll sleeps.
func WithLinkClock(c clock.Clock) LinkOption {
	return func(l *Link) {
		if c != nil {
			l.clk = c
		}
	}
}

// WithPollInterval sets the sleep between empty polls.
func WithPollInterval(d time.Duration) LinkOption {
	return func(l *Link) {
		if d > 0 {
			l.poll = d
		}
	}
}

func NewLink(port Port, opts ...LinkOption) *Link {
	l := &Link{port: port, clk: clock.New(), poll: 5 * time.Millisecond}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Write sends an already framed packet.
func (l *Link) Write(pkt []byte) error {
	n, err := l.port.Write(pkt)
	if err != nil {
		return fmt.Errorf("mtk: write: %w", err)
	}
	if n != len(pkt) {
		return fmt.Errorf("mtk: short write %d/%d", n, len(pkt))
	}
	return nil
}

// Send frames and writes one packet.
func (l *Link) Send(cmd uint16, payload []byte) error {
	return l.Write(Build(cmd, payload))
}

// SendText writes a PMTK text command, adding the checksum and CRLF.
func (l *Link) SendText(body string) error {
	return l.Write([]byte(Command(body) + "\r\n"))
}

// Await reads packets until one equals expected byte for byte or the timeout
// expires. Bytes after the match are left unread.
func (l *Link) Await(expected []byte, timeout time.Duration) error {
	deadline := l.clk.Now().Add(timeout)
	l.rx.Reset()
	for {
		for l.port.Available() > 0 {
			b, err := l.port.ReadByte()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("mtk: read: %w", err)
			}
			if l.rx.Feed(b) && bytes.Equal(l.rx.Packet(), expected) {
				return nil
			}
			if !l.clk.Now().Before(deadline) {
				return ErrTimeout
			}
		}
		if !l.clk.Now().Before(deadline) {
			return ErrTimeout
		}
		l.clk.Sleep(l.poll)
	}
}

// Receive waits for the next valid packet of any kind.
func (l *Link) Receive(timeout time.Duration) (Packet, error) {
	deadline := l.clk.Now().Add(timeout)
	l.rx.Reset()
	for {
		for l.port.Available() > 0 {
			b, err := l.port.ReadByte()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return Packet{}, fmt.Errorf("mtk: read: %w", err)
			}
			if l.rx.Feed(b) {
				return Parse(l.rx.Packet())
			}
		}
		if !l.clk.Now().Before(deadline) {
			return Packet{}, ErrTimeout
		}
		l.clk.Sleep(l.poll)
	}
}
