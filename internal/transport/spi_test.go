package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSPI struct {
	out  [][]byte
	sent [][]byte
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.sent = append(f.sent, append([]byte(nil), w...))
	for i := range r {
		r[i] = 0xFF
	}
	if len(f.out) > 0 {
		copy(r, f.out[0])
		f.out = f.out[1:]
	}
	return nil
}

func TestSPI_FiltersFiller(t *testing.T) {
	conn := &fakeSPI{out: [][]byte{
		append([]byte("$GPGSA*00\r\n\n\n"), 0x00, 0xFF, 'x'),
	}}
	tr := newSPI(conn, nil)

	assert.Equal(t, "$GPGSA*00\r\nx", drain(tr))
	require.NotEmpty(t, conn.sent)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, SPIChunk), conn.sent[0])
	assert.Zero(t, tr.Available())
}

func TestSPI_WriteKeepsDuplexBytes(t *testing.T) {
	conn := &fakeSPI{out: [][]byte{[]byte("$G")}}
	tr := newSPI(conn, nil)

	cmd := []byte("$PMTK000*32\r\n")
	n, err := tr.Write(cmd)
	require.NoError(t, err)
	assert.Equal(t, len(cmd), n)
	assert.Equal(t, cmd, conn.sent[0])
	assert.Equal(t, "$G", drain(tr))

	require.NoError(t, tr.Close())
	_, err = tr.Write(cmd)
	require.ErrorIs(t, err, ErrClosed)
}
