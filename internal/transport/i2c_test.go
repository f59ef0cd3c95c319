package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeI2C struct {
	reads  [][]byte
	writes [][]byte
	err    error
}

func (f *fakeI2C) Read(p []byte) error {
	if f.err != nil {
		return f.err
	}
	for i := range p {
		p[i] = '\n'
	}
	if len(f.reads) > 0 {
		copy(p, f.reads[0])
		f.reads = f.reads[1:]
	}
	return nil
}

func (f *fakeI2C) Write(p []byte) error {
	f.writes = append(f.writes, append([]byte(nil), p...))
	return nil
}

func drain(t Transport) string {
	var out []byte
	for t.Available() > 0 {
		b, err := t.ReadByte()
		if err != nil {
			break
		}
		out = append(out, b)
	}
	return string(out)
}

func TestI2C_DropsPadding(t *testing.T) {
	dev := &fakeI2C{reads: [][]byte{
		[]byte("$GPTXT,01,01,02,ANTSTATUS=OK*3B"),
		[]byte("\r\n"),
	}}
	tr := newI2C(dev, nil)

	assert.Equal(t, "$GPTXT,01,01,02,ANTSTATUS=OK*3B\r\n", drain(tr))
	// Only padding left.
	assert.Zero(t, tr.Available())
}

func TestI2C_WriteChunks(t *testing.T) {
	dev := &fakeI2C{}
	closed := false
	tr := newI2C(dev, func() error { closed = true; return nil })

	msg := []byte("$PMTK314,0,1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0*28\r\n")
	n, err := tr.Write(msg)
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	require.Len(t, dev.writes, 2)
	assert.Len(t, dev.writes[0], I2CChunk)
	assert.Equal(t, msg, append(dev.writes[0], dev.writes[1]...))

	require.NoError(t, tr.Close())
	assert.True(t, closed)
	_, err = tr.Write(msg)
	require.ErrorIs(t, err, ErrClosed)
}

func TestI2C_ReadError(t *testing.T) {
	boom := errors.New("nak")
	tr := newI2C(&fakeI2C{err: boom}, nil)
	assert.Zero(t, tr.Available())
	require.ErrorIs(t, Err(tr), boom)
}

func TestOpenI2C_BadAddr(t *testing.T) {
	_, err := OpenI2C(1, 0x90)
	require.Error(t, err)
}
