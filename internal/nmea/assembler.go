package nmea

import (
	"time"

	"github.com/benbjohnson/clock"
)

// MaxLineLength is the size of each line buffer. Lines longer than this are
// silently truncated: the final slot is overwritten by every excess byte.
const MaxLineLength = 120

// StartPolicy decides what a '$' arriving in the middle of a line does.
type StartPolicy int

const (
	// KeepStart stores a mid-line '$' like any other byte.
	KeepStart StartPolicy = iota
	// RestartOnStart drops the partial line and starts over at the '$'.
	RestartOnStart
)

func (p StartPolicy) String() string {
	switch p {
	case KeepStart:
		return "keep"
	case RestartOnStart:
		return "restart"
	default:
		return "unknown"
	}
}

// Assembler builds lines one byte at a time into two alternating buffers.
//
// The active buffer fills while the stable buffer holds the last completed
// line. A '\n' swaps them. An Assembler is not safe for concurrent use; a
// consumer on another goroutine must copy TakeSentence's result before the
// producer feeds another terminator.
type Assembler struct {
	bufs   [2][MaxLineLength]byte
	lens   [2]int
	active int
	cursor int
	fresh  bool
	policy StartPolicy

	clk        clock.Clock
	lineStart  time.Time
	stableSent time.Time
	stableRecv time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithStartPolicy selects the mid-line '$' behavior.
func WithStartPolicy(p StartPolicy) AssemblerOption {
	return func(a *Assembler) { a.policy = p }
}

// WithAssemblerClock overrides the clock used for line timestamps.
func WithAssemblerClock(c clock.Clock) AssemblerOption {
	return func(a *Assembler) {
		if c != nil {
			a.clk = c
		}
	}
}

func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{clk: clock.New()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Policy reports the configured start policy.
func (a *Assembler) Policy() StartPolicy { return a.policy }

// FeedByte appends b to the active line. It returns true when b completed a
// line and the buffers were swapped.
func (a *Assembler) FeedByte(b byte) bool {
	if b == '$' {
		if a.policy == RestartOnStart && a.cursor > 0 {
			a.cursor = 0
		}
		if a.cursor == 0 {
			a.lineStart = a.clk.Now()
		}
	}

	buf := &a.bufs[a.active]
	buf[a.cursor] = b
	a.cursor++
	if a.cursor >= MaxLineLength {
		a.cursor = MaxLineLength - 1
	}

	if b != '\n' {
		return false
	}

	buf[a.cursor] = 0
	a.lens[a.active] = a.cursor
	a.stableSent = a.lineStart
	a.stableRecv = a.clk.Now()
	a.active ^= 1
	a.cursor = 0
	a.fresh = true
	return true
}

// Feed runs FeedByte over p and reports how many lines completed.
func (a *Assembler) Feed(p []byte) int {
	n := 0
	for _, b := range p {
		if a.FeedByte(b) {
			n++
		}
	}
	return n
}

// HasSentence reports whether a completed line is waiting to be taken.
func (a *Assembler) HasSentence() bool { return a.fresh }

// TakeSentence claims the last completed line. The returned slice aliases the
// stable buffer and is only valid until the next terminator is fed.
func (a *Assembler) TakeSentence() []byte {
	a.fresh = false
	return a.Stable()
}

// Stable returns the last completed line without claiming it.
func (a *Assembler) Stable() []byte {
	s := a.active ^ 1
	return a.bufs[s][:a.lens[s]]
}

// Partial returns the bytes accumulated so far in the active buffer.
func (a *Assembler) Partial() []byte {
	return a.bufs[a.active][:a.cursor]
}

// SentAt is when the '$' of the last completed line arrived.
func (a *Assembler) SentAt() time.Time { return a.stableSent }

// ReceivedAt is when the terminator of the last completed line arrived.
func (a *Assembler) ReceivedAt() time.Time { return a.stableRecv }

// Reset discards both buffers and any pending line.
func (a *Assembler) Reset() {
	a.lens = [2]int{}
	a.cursor = 0
	a.fresh = false
}
