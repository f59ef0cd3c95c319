package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	writes   [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func fakeDialer(conns *[]*fakeConn, raddrs *[]*net.UDPAddr) dialFunc {
	return func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		c := &fakeConn{}
		*conns = append(*conns, c)
		*raddrs = append(*raddrs, raddr)
		return c, nil
	}
}

func TestNewForwarder_DialsEveryDest(t *testing.T) {
	var conns []*fakeConn
	var raddrs []*net.UDPAddr
	f, err := newForwarder([]string{"127.0.0.1:10110, 127.0.0.1:2000", ""}, net.ResolveUDPAddr, fakeDialer(&conns, &raddrs))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"127.0.0.1:10110", "127.0.0.1:2000"}, f.Dests())
	require.Len(t, raddrs, 2)
	assert.Equal(t, 10110, raddrs[0].Port)
	assert.True(t, raddrs[1].IP.Equal(net.IPv4(127, 0, 0, 1)))
}

func TestNewForwarder_ResolveFailureClosesEarlierConns(t *testing.T) {
	var conns []*fakeConn
	var raddrs []*net.UDPAddr
	resolveErr := errors.New("nope")
	calls := 0
	resolve := func(network, address string) (*net.UDPAddr, error) {
		calls++
		if calls == 2 {
			return nil, resolveErr
		}
		return net.ResolveUDPAddr(network, address)
	}
	_, err := newForwarder([]string{"127.0.0.1:1", "bad"}, resolve, fakeDialer(&conns, &raddrs))
	require.ErrorIs(t, err, resolveErr)
	require.Len(t, conns, 1)
	assert.True(t, conns[0].closed)
}

func TestNewForwarder_NoDests(t *testing.T) {
	_, err := NewForwarder("", " ")
	require.Error(t, err)
}

func TestForwarder_Send(t *testing.T) {
	a, b := &fakeConn{}, &fakeConn{writeErr: errors.New("boom")}
	f := &Forwarder{dests: []string{"a", "b"}, conns: []udpConn{a, b}}

	require.NoError(t, f.Send(nil))
	err := f.Send([]byte("$GPGGA*00\r\n"))
	require.ErrorContains(t, err, "send to b")
	assert.Equal(t, [][]byte{[]byte("$GPGGA*00\r\n")}, a.writes)

	sent, dropped := f.Stats()
	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(1), dropped)

	require.NoError(t, f.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	require.NoError(t, f.Close())
}

func TestForwarder_Loopback(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	f, err := NewForwarder(ln.LocalAddr().String())
	require.NoError(t, err)
	defer f.Close()

	line := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"
	require.NoError(t, f.Send([]byte(line)))

	buf := make([]byte, 256)
	require.NoError(t, ln.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, line, string(buf[:n]))
}
