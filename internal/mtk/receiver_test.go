package mtk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func feedAll(r *Receiver, b []byte) int {
	done := 0
	for _, c := range b {
		if r.Feed(c) {
			done++
		}
	}
	return done
}

func TestReceiver_CompletesOnLastByte(t *testing.T) {
	pkt := Build(CmdEPOData, []byte{1, 2, 3})
	var r Receiver
	for i, b := range pkt {
		got := r.Feed(b)
		require.Equal(t, i == len(pkt)-1, got, "byte %d", i)
	}
	require.Equal(t, Complete, r.State())
	require.Equal(t, pkt, r.Packet())
}

func TestReceiver_States(t *testing.T) {
	pkt := Build(CmdEPOData, []byte{0xAA})
	want := []State{
		SawPreamble1, SawPreamble2, ReadingLength, ReadingCommand, ReadingCommand,
		ReadingPayload, ReadingChecksum, ReadingEnd1, ReadingEnd2, Complete,
	}
	var r Receiver
	for i, b := range pkt {
		r.Feed(b)
		require.Equal(t, want[i], r.State(), "after byte %d", i)
	}
}

func TestReceiver_NoPayloadSkipsToChecksum(t *testing.T) {
	pkt := Build(CmdAck, nil)
	var r Receiver
	for _, b := range pkt[:6] {
		r.Feed(b)
	}
	require.Equal(t, ReadingChecksum, r.State())
	require.Equal(t, 1, feedAll(&r, pkt[6:]))
}

func TestReceiver_BadChecksumReturnsToIdle(t *testing.T) {
	pkt := Build(CmdEPOData, []byte{1, 2, 3})
	pkt[len(pkt)-3] ^= 0x10
	var r Receiver
	require.Zero(t, feedAll(&r, pkt))
	require.Equal(t, Idle, r.State())
	require.Nil(t, r.Packet())
}

func TestReceiver_BadEndMarker(t *testing.T) {
	pkt := Build(CmdEPOData, []byte{1})
	pkt[len(pkt)-1] = 'x'
	var r Receiver
	require.Zero(t, feedAll(&r, pkt))
	require.Equal(t, Idle, r.State())
}

func TestReceiver_BadLength(t *testing.T) {
	var r Receiver
	require.Zero(t, feedAll(&r, []byte{0x04, 0x24, 0x03, 0x00}))
	require.Equal(t, Idle, r.State())
	require.Zero(t, feedAll(&r, []byte{0x04, 0x24, 0xFF, 0xFF}))
	require.Equal(t, Idle, r.State())
}

func TestReceiver_StrayPreambleRestarts(t *testing.T) {
	pkt := Build(CmdEPOAck, []byte{0, 0, 1})
	var r Receiver
	require.Equal(t, 1, feedAll(&r, append([]byte{0x04, 'G', 0x04}, pkt[1:]...)))
	require.Equal(t, pkt, r.Packet())
}

func TestReceiver_FalsePreambleBeforePacket(t *testing.T) {
	pkt := Build(CmdEPOAck, []byte{7, 0, 1})
	for _, noise := range [][]byte{{0x04}, {0x04, 0x24}, {0x04, 0x24, 0x04}} {
		var r Receiver
		require.Equal(t, 1, feedAll(&r, append(append([]byte{}, noise...), pkt...)), "noise % x", noise)
		require.Equal(t, pkt, r.Packet())
	}
}

func TestReceiver_BackToBackPackets(t *testing.T) {
	a := Build(CmdEPOAck, []byte{0, 0, 1})
	b := Build(CmdEPOAck, []byte{1, 0, 1})
	var r Receiver
	require.Equal(t, 1, feedAll(&r, a))
	require.Equal(t, 1, feedAll(&r, b))
	require.Equal(t, b, r.Packet())
}

func TestReceiver_NoiseThenPacketProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Noise without a preamble byte leaves the machine idle.
		noise := rapid.SliceOfN(rapid.ByteRange(0x05, 0xFF), 0, 64).Draw(t, "noise")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "payload")
		pkt := Build(CmdEPOData, payload)

		var r Receiver
		if n := feedAll(&r, noise); n != 0 {
			t.Fatalf("noise completed %d packets", n)
		}
		if n := feedAll(&r, pkt); n != 1 {
			t.Fatalf("completed %d packets", n)
		}
		if string(r.Packet()) != string(pkt) {
			t.Fatalf("packet mismatch")
		}
	})
}
