package transport

import (
	"fmt"

	"gpslink/internal/i2c"
)

// I2CChunk is how many bytes one I2C poll reads.
const I2CChunk = 32

type i2cDev interface {
	Read(p []byte) error
	Write(p []byte) error
}

// I2C reads the receiver's sentence stream over an I2C bus. When the module
// has nothing to send it pads reads with bare line feeds; those are dropped.
type I2C struct {
	*pollBuffer
	dev    i2cDev
	closer func() error
	raw    [I2CChunk]byte
	last   byte
}

// OpenI2C opens /dev/i2c-<bus> and talks to addr (default 0x10).
func OpenI2C(bus int, addr uint16) (*I2C, error) {
	if addr == 0 {
		addr = i2c.DefaultAddr
	}
	if err := i2c.ValidAddr(addr); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	b, err := i2c.Open(i2c.BusPath(bus))
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return newI2C(b.Dev(addr), b.Close), nil
}

func newI2C(dev i2cDev, closer func() error) *I2C {
	t := &I2C{dev: dev, closer: closer}
	t.pollBuffer = newPollBuffer(I2CChunk, t.fill)
	return t
}

func (t *I2C) fill(p []byte) (int, error) {
	if err := t.dev.Read(t.raw[:]); err != nil {
		return 0, fmt.Errorf("transport: i2c read: %w", err)
	}
	n := 0
	for _, b := range t.raw {
		if b == '\n' && t.last != '\r' {
			continue
		}
		p[n] = b
		n++
		t.last = b
	}
	return n, nil
}

// Write sends p in bus-sized pieces.
func (t *I2C) Write(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	n := 0
	for n < len(p) {
		end := min(n+I2CChunk, len(p))
		if err := t.dev.Write(p[n:end]); err != nil {
			return n, fmt.Errorf("transport: i2c write: %w", err)
		}
		n = end
	}
	return n, nil
}

func (t *I2C) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
