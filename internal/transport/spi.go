package transport

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	host "periph.io/x/host/v3"
)

const (
	// SPIChunk is how many bytes one SPI poll clocks in.
	SPIChunk = 32
	// DefaultSPIHz suits the receivers' SPI slave interface.
	DefaultSPIHz = 1_000_000

	spiIdle = 0xFF
)

type spiConn interface {
	Tx(w, r []byte) error
}

// SPI clocks the receiver's output in by sending idle bytes. The receiver
// answers with 0xFF filler and repeated line feeds between sentences; only
// printable text and single line endings are kept.
type SPI struct {
	*pollBuffer
	conn   spiConn
	closer func() error
	idle   [SPIChunk]byte
	raw    [SPIChunk]byte
	last   byte
}

// OpenSPI initializes periph's host drivers and connects to port in mode 0.
func OpenSPI(port string, hz int64) (*SPI, error) {
	if hz <= 0 {
		hz = DefaultSPIHz
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("transport: periph init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("transport: spi open %q: %w", port, err)
	}
	c, err := p.Connect(physic.Hertz*physic.Frequency(hz), spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("transport: spi connect %q: %w", port, err)
	}
	return newSPI(c, p.Close), nil
}

func newSPI(conn spiConn, closer func() error) *SPI {
	t := &SPI{conn: conn, closer: closer}
	for i := range t.idle {
		t.idle[i] = spiIdle
	}
	t.pollBuffer = newPollBuffer(SPIChunk, t.fill)
	return t
}

func (t *SPI) fill(p []byte) (int, error) {
	if err := t.conn.Tx(t.idle[:], t.raw[:]); err != nil {
		return 0, fmt.Errorf("transport: spi transfer: %w", err)
	}
	return t.filter(t.raw[:], p), nil
}

// filter copies the meaningful bytes of in to out and returns the count.
func (t *SPI) filter(in, out []byte) int {
	n := 0
	for _, b := range in {
		printable := b >= 0x20 && b < 0x7F
		if !printable && b != '\r' && b != '\n' {
			continue
		}
		if b == '\n' && t.last == '\n' {
			continue
		}
		out[n] = b
		n++
		t.last = b
	}
	return n
}

// Write shifts p out. SPI is full duplex, so whatever the receiver sent
// meanwhile is kept for the next read.
func (t *SPI) Write(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	r := make([]byte, len(p))
	if err := t.conn.Tx(p, r); err != nil {
		return 0, fmt.Errorf("transport: spi write: %w", err)
	}
	kept := make([]byte, len(r))
	t.inject(kept[:t.filter(r, kept)])
	return len(p), nil
}

func (t *SPI) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
