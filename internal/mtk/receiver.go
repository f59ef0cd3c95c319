package mtk

import (
	"encoding/binary"
	"fmt"
)

// State is the position of the receive state machine.
type State int

const (
	Idle State = iota
	SawPreamble1
	SawPreamble2
	ReadingLength
	ReadingCommand
	ReadingPayload
	ReadingChecksum
	ReadingEnd1
	ReadingEnd2
	Complete
)

var stateNames = [...]string{
	"idle", "preamble1", "preamble2", "length", "command",
	"payload", "checksum", "end1", "end2", "complete",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Receiver assembles binary packets one byte at a time. Framing or checksum
// errors silently drop back to Idle.
type Receiver struct {
	state  State
	buf    [MaxPacket]byte
	n      int
	length int
	sum    byte
}

// State reports the current state.
func (r *Receiver) State() State { return r.state }

// Reset returns the machine to Idle.
func (r *Receiver) Reset() {
	r.state = Idle
	r.n = 0
	r.length = 0
	r.sum = 0
}

// Packet returns the last complete packet. It is only meaningful right after
// Feed returned true and is overwritten by further feeding.
func (r *Receiver) Packet() []byte {
	if r.state != Complete {
		return nil
	}
	return r.buf[:r.n]
}

func (r *Receiver) put(b byte) {
	r.buf[r.n] = b
	r.n++
}

// restart drops the partial packet. A stray preamble byte starts a new one.
func (r *Receiver) restart(b byte) {
	r.Reset()
	if b == preamble0 {
		r.put(b)
		r.state = SawPreamble1
	}
}

// resync drops the first buffered byte and replays the rest, so a real
// preamble hidden behind a false one is not lost.
func (r *Receiver) resync() {
	var pending [4]byte
	n := copy(pending[:], r.buf[1:r.n])
	r.Reset()
	for _, b := range pending[:n] {
		r.Feed(b)
	}
}

// Feed advances the machine and returns true when b completed a valid packet.
func (r *Receiver) Feed(b byte) bool {
	switch r.state {
	case Idle, Complete:
		r.restart(b)

	case SawPreamble1:
		if b != preamble1 {
			r.restart(b)
			return false
		}
		r.put(b)
		r.state = SawPreamble2

	case SawPreamble2:
		r.put(b)
		r.sum = b
		r.state = ReadingLength

	case ReadingLength:
		r.put(b)
		r.sum ^= b
		r.length = int(binary.LittleEndian.Uint16(r.buf[2:4]))
		if r.length < Overhead || r.length > MaxPacket {
			r.resync()
			return false
		}
		r.state = ReadingCommand

	case ReadingCommand:
		r.put(b)
		r.sum ^= b
		if r.n == 6 {
			r.state = ReadingPayload
			if r.length == Overhead {
				r.state = ReadingChecksum
			}
		}

	case ReadingPayload:
		r.put(b)
		r.sum ^= b
		if r.n == r.length-3 {
			r.state = ReadingChecksum
		}

	case ReadingChecksum:
		if b != r.sum {
			r.restart(b)
			return false
		}
		r.put(b)
		r.state = ReadingEnd1

	case ReadingEnd1:
		if b != end0 {
			r.restart(b)
			return false
		}
		r.put(b)
		r.state = ReadingEnd2

	case ReadingEnd2:
		if b != end1 {
			r.restart(b)
			return false
		}
		r.put(b)
		r.state = Complete
		return true
	}
	return false
}
