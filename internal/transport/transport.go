// Package transport moves raw bytes between the host and a GPS receiver over
// a serial port, an I2C bus, an SPI bus, a TCP multiplexer, or a recorded
// capture.
//
// Every transport is poll driven: Available reports how many bytes can be
// read without blocking, refilling an internal buffer from the device when it
// runs dry.
package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Transport is a byte pipe to the receiver.
type Transport interface {
	Available() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	Close() error
}

// Kind selects a transport implementation.
type Kind int

const (
	KindSerial Kind = iota
	KindI2C
	KindSPI
	KindReplay
	KindTCP
)

var kindNames = map[Kind]string{
	KindSerial: "serial",
	KindI2C:    "i2c",
	KindSPI:    "spi",
	KindReplay: "replay",
	KindTCP:    "tcp",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String, case-insensitively.
// The empty string means serial.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindSerial, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("transport: unknown kind %q", s)
}

// Config describes how to reach the receiver.
type Config struct {
	Kind Kind

	// Serial. An empty Device or "auto" picks the first likely port.
	Device string
	Baud   int

	// I2C.
	I2CBus  int
	I2CAddr uint16

	// SPI. SPIPort is a periph port name such as "SPI0.0"; empty picks the
	// first registered port.
	SPIPort string
	SPIHz   int64

	// TCP, host:port of a multiplexer.
	Addr string

	// Replay.
	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool
}

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Open dispatches on cfg.Kind.
func Open(cfg Config, logger *log.Logger) (Transport, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("transport")

	var (
		t   Transport
		err error
	)
	switch cfg.Kind {
	case KindSerial:
		t, err = OpenSerial(cfg.Device, cfg.Baud)
	case KindI2C:
		t, err = OpenI2C(cfg.I2CBus, cfg.I2CAddr)
	case KindSPI:
		t, err = OpenSPI(cfg.SPIPort, cfg.SPIHz)
	case KindReplay:
		t, err = OpenReplay(cfg.ReplayPath, cfg.ReplaySpeed, cfg.ReplayLoop, nil)
	case KindTCP:
		t, err = OpenTCP(cfg.Addr)
	default:
		err = fmt.Errorf("transport: unknown kind %d", int(cfg.Kind))
	}
	if err != nil {
		logger.Error("open failed", "kind", cfg.Kind, "err", err)
		return nil, err
	}
	logger.Info("opened", "kind", cfg.Kind, "target", describe(cfg))
	return t, nil
}

func describe(cfg Config) string {
	switch cfg.Kind {
	case KindSerial:
		return fmt.Sprintf("%s@%d", cfg.Device, cfg.Baud)
	case KindI2C:
		return fmt.Sprintf("i2c-%d/0x%02X", cfg.I2CBus, cfg.I2CAddr)
	case KindSPI:
		return fmt.Sprintf("%s@%dHz", cfg.SPIPort, cfg.SPIHz)
	case KindReplay:
		return cfg.ReplayPath
	case KindTCP:
		return cfg.Addr
	}
	return ""
}

// Errer is implemented by transports that remember the last device error.
// Available has no error return, so a failed refill is only visible here.
type Errer interface {
	Err() error
}

// Err returns t's sticky error, if it keeps one.
func Err(t Transport) error {
	if e, ok := t.(Errer); ok {
		return e.Err()
	}
	return nil
}

// pollBuffer turns a chunked device read into Available/ReadByte.
type pollBuffer struct {
	fill    func(p []byte) (int, error)
	scratch []byte
	buf     []byte
	r       int
	err     error
	closed  bool
}

func newPollBuffer(chunk int, fill func(p []byte) (int, error)) *pollBuffer {
	return &pollBuffer{fill: fill, scratch: make([]byte, chunk)}
}

func (p *pollBuffer) Available() int {
	if p.closed {
		return 0
	}
	if p.r >= len(p.buf) {
		p.buf, p.r = p.buf[:0], 0
		n, err := p.fill(p.scratch)
		if err != nil && !errors.Is(err, io.EOF) {
			p.err = err
		}
		p.buf = append(p.buf, p.scratch[:n]...)
	}
	return len(p.buf) - p.r
}

func (p *pollBuffer) ReadByte() (byte, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if p.r >= len(p.buf) && p.Available() == 0 {
		if p.err != nil {
			return 0, p.err
		}
		return 0, io.EOF
	}
	b := p.buf[p.r]
	p.r++
	return b, nil
}

// inject queues bytes that arrived outside a fill, such as the reply clocked
// in during a full duplex write.
func (p *pollBuffer) inject(b []byte) {
	if p.r >= len(p.buf) {
		p.buf, p.r = p.buf[:0], 0
	}
	p.buf = append(p.buf, b...)
}

func (p *pollBuffer) Err() error { return p.err }

// readTimeout bounds one device read inside Available.
const readTimeout = 10 * time.Millisecond
