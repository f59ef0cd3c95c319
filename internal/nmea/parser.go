package nmea

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"gpslink/internal/telemetry"
)

// Parser decodes validated sentences into a Record and a telemetry Store.
//
// A sentence either commits completely or not at all: decoders work on a
// copy of the record and queue telemetry updates, and both are applied only
// once the whole sentence decoded.
type Parser struct {
	rec   Record
	store *telemetry.Store
	clk   clock.Clock

	depthToTransducer float64

	lastSource   string
	lastSentence string
	lastUpdate   time.Time
	lastFix      time.Time
	lastTime     time.Time
	lastDate     time.Time
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithParserClock overrides the clock used for bookkeeping timestamps.
func WithParserClock(c clock.Clock) ParserOption {
	return func(p *Parser) {
		if c != nil {
			p.clk = c
		}
	}
}

// WithDepthToTransducer adds an offset in metres to every decoded depth.
func WithDepthToTransducer(m float64) ParserOption {
	return func(p *Parser) { p.depthToTransducer = m }
}

// NewParser returns a parser feeding store. A nil store gets the default
// channel table.
func NewParser(store *telemetry.Store, opts ...ParserOption) *Parser {
	p := &Parser{store: store, clk: clock.New()}
	for _, o := range opts {
		o(p)
	}
	if p.store == nil {
		p.store = telemetry.NewDefaultStore(telemetry.DefaultResponse, telemetry.WithClock(p.clk))
	}
	return p
}

// Record returns a copy of the decoded state.
func (p *Parser) Record() Record { return p.rec }

// Store returns the telemetry store the parser feeds.
func (p *Parser) Store() *telemetry.Store { return p.store }

// LastSource is the talker source of the last decoded sentence.
func (p *Parser) LastSource() string { return p.lastSource }

// LastSentence is the type of the last decoded sentence.
func (p *Parser) LastSentence() string { return p.lastSentence }

// LastUpdate is when the last sentence decoded.
func (p *Parser) LastUpdate() time.Time { return p.lastUpdate }

// SecondsSinceFix is the time since a sentence last reported a valid fix.
func (p *Parser) SecondsSinceFix() float64 { return p.since(p.lastFix) }

// SecondsSinceTime is the time since a sentence last carried a UTC time.
func (p *Parser) SecondsSinceTime() float64 { return p.since(p.lastTime) }

// SecondsSinceDate is the time since a sentence last carried a date.
func (p *Parser) SecondsSinceDate() float64 { return p.since(p.lastDate) }

func (p *Parser) since(t time.Time) float64 {
	if t.IsZero() {
		return -1
	}
	return p.clk.Since(t).Seconds()
}

// Parse validates and decodes one line.
func (p *Parser) Parse(line []byte) (Header, error) {
	return p.ParseAt(line, time.Time{})
}

// ParseAt is Parse with the time the sentence started arriving, used to
// stamp fix, time and date freshness. A zero sentAt means now.
func (p *Parser) ParseAt(line []byte, sentAt time.Time) (Header, error) {
	h, err := Validate(line)
	if err != nil {
		return h, err
	}
	dec, ok := decoders[h.Type]
	if !ok {
		return h, &BadSentenceError{Err: ErrUnparsedType, Flags: h.Flags &^ HasParsedType, Source: h.Source, Type: h.Type}
	}
	if sentAt.IsZero() {
		sentAt = p.clk.Now()
	}

	st := &decodeState{
		typ:   h.Type,
		rec:   p.rec,
		c:     newFieldCursor(h.Fields),
		depth: p.depthToTransducer,
	}
	if err := dec(st); err != nil {
		return h, err
	}

	p.rec = st.rec
	for _, u := range st.updates {
		_ = p.store.Set(u.id, u.v)
	}
	if st.sawFix {
		p.lastFix = sentAt
	}
	if st.sawTime {
		p.lastTime = sentAt
	}
	if st.sawDate {
		p.lastDate = sentAt
	}
	p.lastSource = h.Source
	p.lastSentence = h.Type
	p.lastUpdate = p.clk.Now()
	return h, nil
}

// IsRecognized reports whether err is a rejection of a well formed sentence
// whose type is known but not decoded.
func IsRecognized(err error) bool {
	var bad *BadSentenceError
	return errors.As(err, &bad) && bad.Recognized()
}

type update struct {
	id telemetry.ID
	v  float64
}

type decodeState struct {
	typ     string
	rec     Record
	c       *fieldCursor
	depth   float64
	updates []update

	sawFix  bool
	sawTime bool
	sawDate bool
}

func (s *decodeState) push(id telemetry.ID, v float64) {
	s.updates = append(s.updates, update{id: id, v: v})
}

func (s *decodeState) fail(field string, err error) error {
	return &DecodeError{Type: s.typ, Field: field, Err: err}
}

// time decodes the current field as hhmmss.sss.
func (s *decodeState) time() {
	if s.c.empty() {
		s.c.skip()
		return
	}
	if t, ok := DecodeTime(s.c.next()); ok {
		s.rec.Time = t
		s.sawTime = true
	}
}

// latLon decodes two coordinate pairs into the record position.
func (s *decodeState) latLon() error {
	lat, ok, err := s.axisCoord("latitude", 'N', 'S')
	if err != nil {
		return err
	}
	if ok {
		s.rec.Latitude = lat
		s.push(telemetry.Lat, lat.Degrees)
	}
	lon, ok, err := s.axisCoord("longitude", 'E', 'W')
	if err != nil {
		return err
	}
	if ok {
		s.rec.Longitude = lon
		s.push(telemetry.Lon, lon.Degrees)
	}
	return nil
}

// axisCoord decodes the next coordinate pair and requires its hemisphere
// letter to be one of pos or neg.
func (s *decodeState) axisCoord(what string, pos, neg byte) (Coord, bool, error) {
	c, ok, err := s.c.coord()
	if err != nil {
		return Coord{}, false, s.fail(what, err)
	}
	if ok && c.Hemisphere != pos && c.Hemisphere != neg {
		return Coord{}, false, s.fail(what, ErrBadHemisphere)
	}
	return c, ok, nil
}

// fixStatus decodes an A/V status letter. Empty leaves the fix untouched.
func (s *decodeState) fixStatus() error {
	if s.c.empty() {
		s.c.skip()
		return nil
	}
	switch s.c.next()[0] {
	case 'A':
		s.rec.Fix = true
		s.sawFix = true
	case 'V':
		s.rec.Fix = false
	default:
		return s.fail("status", ErrBadFix)
	}
	return nil
}
