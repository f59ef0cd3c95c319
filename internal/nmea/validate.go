package nmea

import (
	"errors"
	"fmt"
)

// Talker sources accepted by Validate. Matching is longest-prefix and
// case-sensitive, so "PG" wins over "P" for $PGTOP.
var sources = []string{"II", "WI", "GP", "PG", "GN", "P"}

// Sentence types that have a decoder.
var parsedTypes = []string{
	"GGA", "GLL", "GSA", "RMC", "TOP",
	"DBT", "HDM", "HDT", "MDA", "MTW", "MWV", "RMB", "CD", "TXT",
	"VHW", "VLW", "VPW", "VWR", "WCV", "XTE",
}

// Sentence types that are well formed and recognized but not decoded.
var knownTypes = []string{
	"APB", "DPT", "GSV", "HDG", "MWD", "ROT", "RPM", "RSA", "VDR", "VTG", "ZDA",
}

// CheckFlags records how far validation got.
type CheckFlags uint8

const (
	HasSentinel CheckFlags = 1 << iota
	HasChecksum
	HasSource
	HasType
	HasParsedType
)

func (f CheckFlags) Has(x CheckFlags) bool { return f&x == x }

var (
	ErrNoSentinel       = errors.New("nmea: missing '$' or '!'")
	ErrNoChecksum       = errors.New("nmea: missing checksum")
	ErrChecksumMismatch = errors.New("nmea: checksum mismatch")
	ErrUnknownSource    = errors.New("nmea: unknown talker source")
	ErrUnknownType      = errors.New("nmea: unknown sentence type")
	ErrUnparsedType     = errors.New("nmea: sentence type not decoded")
)

// BadSentenceError is returned by Validate for any rejected line.
type BadSentenceError struct {
	Err    error
	Flags  CheckFlags
	Source string
	Type   string
}

func (e *BadSentenceError) Error() string {
	switch {
	case e.Type != "":
		return fmt.Sprintf("%v: %s%s", e.Err, e.Source, e.Type)
	case e.Source != "":
		return fmt.Sprintf("%v: source %s", e.Err, e.Source)
	default:
		return e.Err.Error()
	}
}

func (e *BadSentenceError) Unwrap() error { return e.Err }

// Recognized reports whether the sentence was well formed and of a known type
// that is simply not decoded.
func (e *BadSentenceError) Recognized() bool {
	return e.Flags.Has(HasSentinel | HasChecksum | HasSource | HasType)
}

// Header is the classification of a validated sentence.
type Header struct {
	Sentinel byte
	Source   string
	Type     string
	Flags    CheckFlags

	// Fields is the text after the type token and its comma, up to and
	// including the '*'.
	Fields []byte
}

// Talker returns source and type joined, e.g. "GPGGA".
func (h Header) Talker() string { return h.Source + h.Type }

// Validate checks framing and checksum and classifies a line. Trailing CR/LF
// and anything after the two checksum digits is ignored.
func Validate(line []byte) (Header, error) {
	var h Header
	if len(line) == 0 || (line[0] != '$' && line[0] != '!') {
		return h, &BadSentenceError{Err: ErrNoSentinel}
	}
	h.Sentinel = line[0]
	h.Flags |= HasSentinel

	ast := -1
	for i := len(line) - 1; i > 0; i-- {
		if line[i] == '*' {
			ast = i
			break
		}
	}
	if ast < 0 || ast+2 >= len(line) {
		return h, &BadSentenceError{Err: ErrNoChecksum, Flags: h.Flags}
	}
	hi, ok1 := parseHexDigit(line[ast+1])
	lo, ok2 := parseHexDigit(line[ast+2])
	if !ok1 || !ok2 {
		return h, &BadSentenceError{Err: ErrNoChecksum, Flags: h.Flags}
	}
	if Checksum(line[1:ast]) != hi<<4|lo {
		return h, &BadSentenceError{Err: ErrChecksumMismatch, Flags: h.Flags}
	}
	h.Flags |= HasChecksum

	body := line[1:ast]
	src := longestMatch(body, sources)
	if src == "" {
		return h, &BadSentenceError{Err: ErrUnknownSource, Flags: h.Flags}
	}
	h.Source = src
	h.Flags |= HasSource
	rest := body[len(src):]

	if typ := longestMatch(rest, parsedTypes); typ != "" {
		h.Type = typ
		h.Flags |= HasType | HasParsedType
		h.Fields = fieldsAfter(line[1+len(src)+len(typ) : ast+1])
		return h, nil
	}
	if typ := longestMatch(rest, knownTypes); typ != "" {
		h.Type = typ
		h.Flags |= HasType
		return h, &BadSentenceError{Err: ErrUnparsedType, Flags: h.Flags, Source: src, Type: typ}
	}
	return h, &BadSentenceError{Err: ErrUnknownType, Flags: h.Flags, Source: src, Type: token(rest)}
}

// OnList reports whether typ is a parsed or known sentence type.
func OnList(typ string) bool {
	for _, s := range parsedTypes {
		if s == typ {
			return true
		}
	}
	for _, s := range knownTypes {
		if s == typ {
			return true
		}
	}
	return false
}

// IsParsed reports whether typ has a decoder.
func IsParsed(typ string) bool {
	for _, s := range parsedTypes {
		if s == typ {
			return true
		}
	}
	return false
}

func longestMatch(b []byte, list []string) string {
	best := ""
	for _, s := range list {
		if len(s) > len(best) && len(b) >= len(s) && string(b[:len(s)]) == s {
			best = s
		}
	}
	return best
}

// fieldsAfter skips whatever remains of the type token up to the first comma.
func fieldsAfter(b []byte) []byte {
	for i, c := range b {
		if c == ',' {
			return b[i+1:]
		}
		if c == '*' {
			return b[i:]
		}
	}
	return b
}

func token(b []byte) string {
	n := 0
	for n < len(b) && n < 8 && b[n] != ',' {
		n++
	}
	return string(b[:n])
}
