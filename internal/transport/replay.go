package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"gpslink/internal/replay"
)

// Replay feeds a recorded capture back with its original spacing. Writes are
// accepted and discarded.
type Replay struct {
	recs  []replay.Record
	idx   int
	clk   clock.Clock
	speed float64
	loop  bool

	origin time.Duration
	lastAt time.Duration
	base   time.Time

	buf     []byte
	r       int
	written int
	closed  bool
}

// OpenReplay loads a capture file. speed 2 plays twice as fast; a nil clock
// uses the wall clock.
func OpenReplay(path string, speed float64, loop bool, clk clock.Clock) (*Replay, error) {
	recs, err := replay.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return NewReplay(recs, speed, loop, clk)
}

// NewReplay plays recs.
func NewReplay(recs []replay.Record, speed float64, loop bool, clk clock.Clock) (*Replay, error) {
	data := 0
	for _, r := range recs {
		if !r.IsStart() {
			data++
		}
	}
	if data == 0 {
		return nil, fmt.Errorf("transport: replay has no data records")
	}
	if speed <= 0 {
		speed = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Replay{recs: recs, clk: clk, speed: speed, loop: loop, base: clk.Now()}, nil
}

// loopGap separates the last record of a pass from the first of the next.
const loopGap = time.Second

// advance queues every record whose time has come.
func (t *Replay) advance() {
	elapsed := time.Duration(float64(t.clk.Since(t.base)) * t.speed)
	for {
		if t.idx >= len(t.recs) {
			if !t.loop || elapsed < t.lastAt+loopGap {
				return
			}
			t.idx, t.origin, t.lastAt, t.base = 0, 0, 0, t.clk.Now()
			elapsed = 0
		}
		r := t.recs[t.idx]
		if r.IsStart() {
			t.origin, t.lastAt, t.base = r.At, 0, t.clk.Now()
			elapsed = 0
			t.idx++
			continue
		}
		at := r.At - t.origin
		if at > elapsed {
			return
		}
		t.buf = append(t.buf, r.Data...)
		t.lastAt = at
		t.idx++
	}
}

func (t *Replay) Available() int {
	if t.closed {
		return 0
	}
	if t.r >= len(t.buf) {
		t.buf, t.r = t.buf[:0], 0
		t.advance()
	}
	return len(t.buf) - t.r
}

func (t *Replay) ReadByte() (byte, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if t.Available() == 0 {
		return 0, io.EOF
	}
	b := t.buf[t.r]
	t.r++
	return b, nil
}

func (t *Replay) Write(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	t.written += len(p)
	return len(p), nil
}

// Written is the number of bytes the caller has sent.
func (t *Replay) Written() int { return t.written }

// Done reports whether a non-looping replay has delivered everything.
func (t *Replay) Done() bool {
	return !t.loop && t.idx >= len(t.recs) && t.r >= len(t.buf)
}

func (t *Replay) Close() error {
	t.closed = true
	return nil
}
