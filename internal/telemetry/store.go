package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Kind classifies how a channel is smoothed.
type Kind int

const (
	// Simple channels are exponentially smoothed.
	Simple Kind = iota
	// CompassAngle is a 0..360 angle stored without smoothing.
	CompassAngle
	// BoatAngle is a -180..180 angle stored without smoothing.
	BoatAngle
	// CompassAngleSin is a 0..360 angle smoothed through a sin/cos pair held
	// in the next two channels.
	CompassAngleSin
	// BoatAngleSin is a -180..180 angle smoothed through a sin/cos pair held
	// in the next two channels.
	BoatAngleSin
	// DDMM is a raw degrees-minutes value.
	DDMM
	// HHMMSS is a raw time of day.
	HHMMSS
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case CompassAngle:
		return "compass"
	case BoatAngle:
		return "boat"
	case CompassAngleSin:
		return "compass_sin"
	case BoatAngleSin:
		return "boat_sin"
	case DDMM:
		return "ddmm"
	case HHMMSS:
		return "hhmmss"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Compound reports whether the kind owns a sin/cos companion pair.
func (k Kind) Compound() bool { return k == CompassAngleSin || k == BoatAngleSin }

// DefaultResponse is the smoothing time constant for new channels.
const DefaultResponse = time.Second

// Channel is one entry of the store.
type Channel struct {
	Label    string
	Format   string
	Unit     string
	Kind     Kind
	Response time.Duration

	Latest     float64
	Smoothed   float64
	LastUpdate time.Time

	history *History
}

// History returns the attached history, or nil.
func (c *Channel) History() *History { return c.history }

// Store is a fixed table of channels indexed by ID.
//
// A Store is not safe for concurrent use.
type Store struct {
	clk clock.Clock
	ch  []Channel
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for smoothing weights and history spacing.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clk = c
		}
	}
}

// NewStore creates a store with n undeclared Simple channels.
func NewStore(n int, opts ...Option) *Store {
	s := &Store{clk: clock.New(), ch: make([]Channel, n)}
	for i := range s.ch {
		s.ch[i].Response = DefaultResponse
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Len is the number of channels.
func (s *Store) Len() int { return len(s.ch) }

func (s *Store) check(id ID) error {
	if int(id) < 0 || int(id) >= len(s.ch) {
		return fmt.Errorf("telemetry: channel %d out of range", int(id))
	}
	return nil
}

// Declare sets a channel's metadata. Compound kinds also reset their two
// companion channels. A zero response keeps the current one.
func (s *Store) Declare(id ID, label, format, unit string, kind Kind, response time.Duration) error {
	if err := s.check(id); err != nil {
		return err
	}
	if kind.Compound() {
		if err := s.check(id + 2); err != nil {
			return fmt.Errorf("telemetry: %s needs two companion channels: %w", label, err)
		}
	}
	c := &s.ch[id]
	c.Label, c.Format, c.Unit, c.Kind = label, format, unit, kind
	if response > 0 {
		c.Response = response
	}
	if kind.Compound() {
		for _, sub := range []ID{id + 1, id + 2} {
			s.ch[sub] = Channel{Response: c.Response}
		}
	}
	return nil
}

// Channel returns a copy of the channel state.
func (s *Store) Channel(id ID) (Channel, bool) {
	if s.check(id) != nil {
		return Channel{}, false
	}
	return s.ch[id], true
}

// Get returns the latest value.
func (s *Store) Get(id ID) float64 {
	if s.check(id) != nil {
		return 0
	}
	return s.ch[id].Latest
}

// Smoothed returns the smoothed value.
func (s *Store) Smoothed(id ID) float64 {
	if s.check(id) != nil {
		return 0
	}
	return s.ch[id].Smoothed
}

// Set records a new value for a channel.
func (s *Store) Set(id ID, v float64) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.set(id, v, s.clk.Now())
	return nil
}

func (s *Store) set(id ID, v float64, now time.Time) {
	c := &s.ch[id]
	c.Latest = v

	if c.Kind.Compound() {
		sin, cos := sinCosDeg(v)
		s.set(id+1, sin, now)
		s.set(id+2, cos, now)
	}

	w := 1.0
	if !c.LastUpdate.IsZero() && c.Response > 0 {
		w = math.Min(1, float64(now.Sub(c.LastUpdate))/float64(c.Response))
	}
	c.Smoothed = (1-w)*c.Smoothed + w*v

	switch c.Kind {
	case CompassAngleSin:
		c.Smoothed = CompassAngleOf(s.ch[id+1].Smoothed, s.ch[id+2].Smoothed)
	case BoatAngleSin:
		c.Smoothed = BoatAngleOf(s.ch[id+1].Smoothed, s.ch[id+2].Smoothed)
	case BoatAngle, CompassAngle, DDMM, HHMMSS:
		c.Smoothed = c.Latest
	}
	c.LastUpdate = now

	if h := c.history; h != nil && h.due(now) {
		h.push(now, c.Smoothed)
	}
}

// AttachHistory gives a channel a history of n samples spaced at least
// interval apart. An existing history is replaced.
func (s *Store) AttachHistory(id ID, n int, scale, offset float64, interval time.Duration) (*History, error) {
	if err := s.check(id); err != nil {
		return nil, err
	}
	h := newHistory(n, scale, offset, interval)
	s.ch[id].history = h
	return h, nil
}

// DetachHistory drops a channel's history.
func (s *Store) DetachHistory(id ID) {
	if s.check(id) == nil {
		s.ch[id].history = nil
	}
}

// History returns the channel's history, or nil.
func (s *Store) History(id ID) *History {
	if s.check(id) != nil {
		return nil
	}
	return s.ch[id].history
}

// Lookup finds a declared channel by label. Companion channels have no label
// and are never returned.
func (s *Store) Lookup(label string) (ID, bool) {
	for i := range s.ch {
		if s.ch[i].Label != "" && s.ch[i].Label == label {
			return ID(i), true
		}
	}
	return 0, false
}

// Format renders the latest value with the channel's format and unit.
func (s *Store) Format(id ID) string {
	c, ok := s.Channel(id)
	if !ok {
		return ""
	}
	f := c.Format
	if f == "" {
		f = "%g"
	}
	out := fmt.Sprintf(f, c.Latest)
	if c.Unit != "" {
		out += " " + c.Unit
	}
	return out
}
