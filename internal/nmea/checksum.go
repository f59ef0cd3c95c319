package nmea

import "strings"

const hexDigits = "0123456789ABCDEF"

// Checksum returns the XOR of every byte in b.
func Checksum(b []byte) byte {
	var cs byte
	for _, c := range b {
		cs ^= c
	}
	return cs
}

// HexChecksum renders cs as two uppercase hex digits.
func HexChecksum(cs byte) string {
	return string([]byte{hexDigits[cs>>4], hexDigits[cs&0x0F]})
}

// AddChecksum appends "*HH" to a sentence that starts with its sentinel.
// The checksum covers everything after the first character.
func AddChecksum(s string) string {
	if s == "" {
		return s
	}
	var cs byte
	for i := 1; i < len(s); i++ {
		cs ^= s[i]
	}
	var b strings.Builder
	b.Grow(len(s) + 3)
	b.WriteString(s)
	b.WriteByte('*')
	b.WriteString(HexChecksum(cs))
	return b.String()
}

// parseHexDigit returns the value of one hex digit; ok is false for anything
// outside [0-9A-Fa-f].
func parseHexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
