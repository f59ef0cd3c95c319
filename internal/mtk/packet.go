package mtk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	preamble0 = 0x04
	preamble1 = 0x24
	end0      = 0x0D
	end1      = 0x0A

	// Overhead is the number of framing bytes around a payload.
	Overhead = 9
	// MaxPacket bounds what the receiver will assemble.
	MaxPacket = 512
)

// Binary command codes.
const (
	CmdAck             uint16 = 0x0001
	CmdEPOAck          uint16 = 0x0002
	CmdSetOutputFormat uint16 = 0x00FD // 253
	CmdEPOData         uint16 = 0x02D2 // 722
)

var (
	ErrShortPacket = errors.New("mtk: short packet")
	ErrBadFraming  = errors.New("mtk: bad framing")
	ErrBadChecksum = errors.New("mtk: bad checksum")
	ErrTooLarge    = errors.New("mtk: payload too large")
)

// Packet is a decoded binary packet.
type Packet struct {
	Command uint16
	Payload []byte
}

// Build frames cmd and payload into a binary packet.
func Build(cmd uint16, payload []byte) []byte {
	n := len(payload) + Overhead
	pkt := make([]byte, n)
	pkt[0], pkt[1] = preamble0, preamble1
	binary.LittleEndian.PutUint16(pkt[2:4], uint16(n))
	binary.LittleEndian.PutUint16(pkt[4:6], cmd)
	copy(pkt[6:], payload)
	pkt[n-3] = Checksum(pkt)
	pkt[n-2], pkt[n-1] = end0, end1
	return pkt
}

// Checksum computes the XOR over the length, command and payload of a framed
// packet. The checksum slot and end marker are ignored.
func Checksum(pkt []byte) byte {
	if len(pkt) < Overhead {
		return 0
	}
	var cs byte
	for _, b := range pkt[2 : len(pkt)-3] {
		cs ^= b
	}
	return cs
}

// Marshal frames the packet.
func (p Packet) Marshal() ([]byte, error) {
	if len(p.Payload)+Overhead > MaxPacket {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(p.Payload))
	}
	return Build(p.Command, p.Payload), nil
}

// Parse decodes one complete framed packet.
func Parse(pkt []byte) (Packet, error) {
	if len(pkt) < Overhead {
		return Packet{}, ErrShortPacket
	}
	if pkt[0] != preamble0 || pkt[1] != preamble1 {
		return Packet{}, fmt.Errorf("%w: preamble % x", ErrBadFraming, pkt[:2])
	}
	n := int(binary.LittleEndian.Uint16(pkt[2:4]))
	if n != len(pkt) {
		return Packet{}, fmt.Errorf("%w: length %d for %d bytes", ErrBadFraming, n, len(pkt))
	}
	if pkt[n-2] != end0 || pkt[n-1] != end1 {
		return Packet{}, fmt.Errorf("%w: end marker % x", ErrBadFraming, pkt[n-2:])
	}
	if Checksum(pkt) != pkt[n-3] {
		return Packet{}, ErrBadChecksum
	}
	return Packet{
		Command: binary.LittleEndian.Uint16(pkt[4:6]),
		Payload: append([]byte(nil), pkt[6:n-3]...),
	}, nil
}

// EPOAck is the packet the receiver returns after accepting EPO packet seq.
func EPOAck(seq uint16) []byte {
	return Build(CmdEPOAck, []byte{byte(seq), byte(seq >> 8), 0x01})
}

// NMEAModePacket switches the receiver back to NMEA output at baud.
func NMEAModePacket(baud uint32) []byte {
	p := make([]byte, 5)
	p[0] = 0x00
	binary.LittleEndian.PutUint32(p[1:], baud)
	return Build(CmdSetOutputFormat, p)
}
