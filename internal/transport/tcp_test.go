package transport

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tcpGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"

func readUntil(t *testing.T, tr Transport, want int) string {
	t.Helper()
	var got string
	require.Eventually(t, func() bool {
		got += drain(tr)
		return len(got) >= want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestTCP_ReadWriteAndReconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conns := make(chan net.Conn, 2)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- c
		}
	}()

	tr, err := newTCP(ln.Addr().String(), time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	defer tr.Close()

	server := <-conns
	require.Eventually(t, func() bool { return tr.State() == "connected" }, 2*time.Second, 5*time.Millisecond)

	_, err = server.Write([]byte(tcpGGA))
	require.NoError(t, err)
	assert.Equal(t, tcpGGA, readUntil(t, tr, len(tcpGGA)))

	_, err = tr.Write([]byte("$PMTK000*32\r\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(server).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "$PMTK000*32\r\n", line)

	// Dropping the connection is reported, then healed by a redial.
	require.NoError(t, server.Close())
	server = <-conns
	defer server.Close()
	require.Eventually(t, func() bool { return tr.State() == "connected" }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, tr.Err())

	_, err = server.Write([]byte("$GPTXT"))
	require.NoError(t, err)
	assert.Equal(t, "$GPTXT", readUntil(t, tr, 6))
}

func TestTCP_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tr, err := newTCP(addr, 100*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tr.Err() != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "error", tr.State())

	_, err = tr.Write([]byte("x"))
	require.ErrorContains(t, err, "not connected")

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	_, err = tr.ReadByte()
	require.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, tr.Available())
}

func TestTCP_RequiresAddr(t *testing.T) {
	_, err := OpenTCP("")
	require.Error(t, err)
}

func TestTCP_PushDropsOldest(t *testing.T) {
	tr := &TCP{}
	tr.push(make([]byte, tcpMaxBuffered))
	tr.push([]byte("tail"))
	assert.Equal(t, tcpMaxBuffered, tr.Available())
	assert.Equal(t, uint64(4), tr.Dropped())
}
