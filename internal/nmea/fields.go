package nmea

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// DecodeError reports a field that is mandatory for the sentence to be
// trusted and failed to decode.
type DecodeError struct {
	Type  string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nmea: %s %s: %v", e.Type, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	ErrBadHemisphere = errors.New("bad hemisphere")
	ErrNoHemisphere  = errors.New("missing hemisphere")
	ErrNoDecimal     = errors.New("no decimal point in range")
	ErrOutOfRange    = errors.New("angle out of range")
	ErrBadFix        = errors.New("bad fix status")
)

// fieldCursor walks comma separated fields of a validated sentence. The
// underlying slice ends with '*'; reading past it yields empty fields.
type fieldCursor struct {
	b   []byte
	pos int
}

func newFieldCursor(b []byte) *fieldCursor { return &fieldCursor{b: b} }

// empty reports whether the current field has no content.
func (c *fieldCursor) empty() bool {
	if c.pos >= len(c.b) {
		return true
	}
	ch := c.b[c.pos]
	return ch == ',' || ch == '*'
}

// peek returns the current field without advancing.
func (c *fieldCursor) peek() []byte {
	if c.pos >= len(c.b) {
		return nil
	}
	end := c.pos
	for end < len(c.b) && c.b[end] != ',' && c.b[end] != '*' {
		end++
	}
	return c.b[c.pos:end]
}

// next returns the current field and moves to the one after it.
func (c *fieldCursor) next() []byte {
	f := c.peek()
	c.skip()
	return f
}

func (c *fieldCursor) skip() {
	for c.pos < len(c.b) {
		ch := c.b[c.pos]
		c.pos++
		if ch == ',' {
			return
		}
		if ch == '*' {
			c.pos = len(c.b)
			return
		}
	}
}

func (c *fieldCursor) skipN(n int) {
	for i := 0; i < n; i++ {
		c.skip()
	}
}

// char returns the first byte of the current field, or def if empty.
func (c *fieldCursor) char(def byte) byte {
	if c.empty() {
		c.skip()
		return def
	}
	return c.next()[0]
}

// float parses the current field and advances. ok is false for empty or
// unparseable content.
func (c *fieldCursor) float() (float64, bool) {
	if c.empty() {
		c.skip()
		return 0, false
	}
	v, err := strconv.ParseFloat(string(c.next()), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *fieldCursor) int() (int, bool) {
	if c.empty() {
		c.skip()
		return 0, false
	}
	return atoi(c.next())
}

// str copies at most max bytes of the current field and advances.
func (c *fieldCursor) str(max int) (string, bool) {
	if c.empty() {
		c.skip()
		return "", false
	}
	f := c.next()
	if len(f) > max {
		f = f[:max]
	}
	return string(f), true
}

// atoi parses the leading decimal digits of b, like C atol.
func atoi(b []byte) (int, bool) {
	n, i := 0, 0
	neg := false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	start := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		n = n*10 + int(b[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// fraction parses ".ddd" into [0,1). A bare "." is zero.
func fraction(b []byte) (float64, bool) {
	if len(b) <= 1 {
		return 0, true
	}
	v, err := strconv.ParseFloat("0"+string(b), 64)
	if err != nil || v < 0 || v >= 1 {
		return 0, false
	}
	return v, true
}

// TimeOfDay is a decoded UTC time.
type TimeOfDay struct {
	Hour, Minute, Second int
	Millisecond          int
}

// DecodeTime decodes hhmmss[.sss].
func DecodeTime(f []byte) (TimeOfDay, bool) {
	v, ok := atoi(f)
	if !ok || v < 0 {
		return TimeOfDay{}, false
	}
	t := TimeOfDay{Hour: v / 10000, Minute: (v % 10000) / 100, Second: v % 100}
	for i, ch := range f {
		if ch == '.' {
			if frac, ok := fraction(f[i:]); ok {
				t.Millisecond = int(math.Round(frac * 1000))
			}
			break
		}
	}
	return t, true
}

// Date is a decoded ddmmyy date with a two digit year.
type Date struct {
	Day, Month, Year int
}

// DecodeDate decodes ddmmyy.
func DecodeDate(f []byte) (Date, bool) {
	v, ok := atoi(f)
	if !ok || v < 0 {
		return Date{}, false
	}
	return Date{Day: v / 10000, Month: (v % 10000) / 100, Year: v % 100}, true
}

// Coord is one decoded latitude or longitude.
type Coord struct {
	// Raw is the unsigned DDDMM.MMMM value as transmitted.
	Raw float64
	// Degrees is signed decimal degrees, S and W negative.
	Degrees float64
	// Fixed is signed degrees scaled by 1e7.
	Fixed int32
	// Hemisphere is one of N, S, E, W.
	Hemisphere byte
}

// DecodeCoord decodes a DDDMM.MMMM value and its hemisphere letter.
func DecodeCoord(num, hemi []byte) (Coord, error) {
	dot := -1
	for i, ch := range num {
		if ch == '.' {
			dot = i
			break
		}
	}
	if dot < 0 || dot > 6 {
		return Coord{}, ErrNoDecimal
	}
	if len(hemi) == 0 {
		return Coord{}, ErrNoHemisphere
	}
	h := hemi[0]
	if h != 'N' && h != 'S' && h != 'E' && h != 'W' {
		return Coord{}, ErrBadHemisphere
	}

	dddmm, ok := atoi(num[:dot])
	if !ok && dot > 0 {
		return Coord{}, ErrNoDecimal
	}
	if dddmm < 0 {
		return Coord{}, ErrOutOfRange
	}
	frac, ok := fraction(num[dot:])
	if !ok {
		return Coord{}, ErrNoDecimal
	}
	deg := dddmm / 100
	minutes := float64(dddmm%100) + frac

	fixed := int64(deg)*10_000_000 + int64(math.Round(minutes/60*10_000_000))
	limit := int64(180)
	if h == 'N' || h == 'S' {
		limit = 90
	}
	if fixed > limit*10_000_000 {
		return Coord{}, ErrOutOfRange
	}
	if h == 'S' || h == 'W' {
		fixed = -fixed
	}
	return Coord{
		Raw:        float64(dddmm) + frac,
		Degrees:    float64(fixed) / 10_000_000,
		Fixed:      int32(fixed),
		Hemisphere: h,
	}, nil
}

// coord decodes a number/hemisphere field pair and advances past both.
// present is false when the numeric field is empty.
func (c *fieldCursor) coord() (Coord, bool, error) {
	if c.empty() {
		c.skipN(2)
		return Coord{}, false, nil
	}
	num := c.next()
	hemi := c.peek()
	c.skip()
	v, err := DecodeCoord(num, hemi)
	return v, true, err
}
