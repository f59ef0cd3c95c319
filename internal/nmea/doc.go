// Package nmea assembles, validates and decodes NMEA 0183 sentences from a
// GPS receiver byte stream.
//
// The pieces are used in order:
//   - Assembler turns bytes into complete lines using two fixed buffers.
//   - Validate checks framing and checksum, then classifies talker and type.
//   - Parser decodes the sentence into a Record and feeds telemetry channels.
//
// Nothing in this package starts goroutines; callers poll.
package nmea
