package transport

import "io"

// teeFlush bounds how many bytes a capture chunk holds.
const teeFlush = 256

// Tee wraps t so every byte read is also written to w, in chunks that end at
// a line feed or teeFlush bytes.
func Tee(t Transport, w io.Writer) *Teed {
	return &Teed{Transport: t, w: w}
}

// Teed is a Transport whose reads are captured.
type Teed struct {
	Transport
	w       io.Writer
	pending []byte
	err     error
}

func (t *Teed) ReadByte() (byte, error) {
	b, err := t.Transport.ReadByte()
	if err != nil {
		return b, err
	}
	t.pending = append(t.pending, b)
	if b == '\n' || len(t.pending) >= teeFlush {
		t.flush()
	}
	return b, nil
}

func (t *Teed) flush() {
	if len(t.pending) == 0 {
		return
	}
	if _, err := t.w.Write(t.pending); err != nil && t.err == nil {
		t.err = err
	}
	t.pending = t.pending[:0]
}

// Err reports the first capture write error, then the transport's own.
func (t *Teed) Err() error {
	if t.err != nil {
		return t.err
	}
	return Err(t.Transport)
}

// Close flushes the partial chunk and closes the transport. The writer is
// left open.
func (t *Teed) Close() error {
	t.flush()
	return t.Transport.Close()
}
