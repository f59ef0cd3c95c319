// Package mtk speaks the MediaTek receiver's binary packet protocol and its
// PMTK text commands, and uploads EPO orbit prediction data.
//
// Binary packets are framed as
//
//	0x04 0x24 | length LE16 | command LE16 | payload | xor | 0x0D 0x0A
//
// where length counts the whole packet (payload + 9) and the XOR covers the
// length, command and payload bytes.
package mtk
