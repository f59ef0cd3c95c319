package mtk

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// RecordSize is the size of one satellite EPO record.
	RecordSize = 60
	// RecordsPerPacket is how many records one EPO data packet carries.
	RecordsPerPacket = 3
	// FinalSequence marks the end of an upload.
	FinalSequence uint16 = 0xFFFF

	epoPayloadSize = 2 + RecordsPerPacket*RecordSize

	// BinaryModeCommand switches the receiver from NMEA text to binary packets.
	BinaryModeCommand = "PMTK253,1,0"
)

var (
	// ErrNoAck is returned when the receiver did not acknowledge a packet.
	// The unit is kept and may be resent with Retry.
	ErrNoAck = errors.New("mtk: packet not acknowledged")

	ErrBadRecord   = errors.New("mtk: EPO record must be 60 bytes")
	ErrUploadEnded = errors.New("mtk: upload already finished")
)

// Uploader streams EPO records to the receiver three at a time.
//
// The sequence number starts at zero and only advances once the receiver has
// acknowledged the packet carrying it.
type Uploader struct {
	link    *Link
	timeout time.Duration
	baud    uint32
	settle  time.Duration

	seq     uint16
	pending [RecordsPerPacket][RecordSize]byte
	n       int
	// unsent is true when pending holds a full unit whose ack never came.
	unsent bool
	done   bool
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithAckTimeout bounds the wait for each acknowledgement.
func WithAckTimeout(d time.Duration) UploaderOption {
	return func(u *Uploader) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithNMEABaud sets the baud rate the receiver returns to after the upload.
func WithNMEABaud(baud uint32) UploaderOption {
	return func(u *Uploader) {
		if baud > 0 {
			u.baud = baud
		}
	}
}

// WithSettle sets the pause after switching to binary mode.
func WithSettle(d time.Duration) UploaderOption {
	return func(u *Uploader) { u.settle = d }
}

func NewUploader(link *Link, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		link:    link,
		timeout: 3 * time.Second,
		baud:    9600,
		settle:  100 * time.Millisecond,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Sequence is the number the next data packet will carry.
func (u *Uploader) Sequence() uint16 { return u.seq }

// Pending is the number of records buffered for the next packet.
func (u *Uploader) Pending() int { return u.n }

// Begin puts the receiver into binary mode.
func (u *Uploader) Begin() error {
	if err := u.link.SendText(BinaryModeCommand); err != nil {
		return err
	}
	if u.settle > 0 {
		u.link.clk.Sleep(u.settle)
	}
	return nil
}

// AddRecord buffers one 60-byte record. The third record sends the packet
// and waits for its ack. On ErrNoAck the records stay buffered for Retry.
func (u *Uploader) AddRecord(rec []byte) error {
	if u.done {
		return ErrUploadEnded
	}
	if len(rec) != RecordSize {
		return fmt.Errorf("%w: got %d", ErrBadRecord, len(rec))
	}
	if u.unsent {
		return fmt.Errorf("mtk: sequence %d still unacknowledged: %w", u.seq, ErrNoAck)
	}
	copy(u.pending[u.n][:], rec)
	u.n++
	if u.n < RecordsPerPacket {
		return nil
	}
	u.unsent = true
	return u.flush()
}

// Retry resends the unacknowledged unit with the same sequence number.
func (u *Uploader) Retry() error {
	if !u.unsent {
		return nil
	}
	return u.flush()
}

// DataPacket frames one EPO data packet.
func DataPacket(seq uint16, records [RecordsPerPacket][RecordSize]byte) []byte {
	p := make([]byte, epoPayloadSize)
	binary.LittleEndian.PutUint16(p, seq)
	for i := range records {
		copy(p[2+i*RecordSize:], records[i][:])
	}
	return Build(CmdEPOData, p)
}

// FinalPacket frames the end-of-upload packet.
func FinalPacket() []byte {
	p := make([]byte, epoPayloadSize)
	binary.LittleEndian.PutUint16(p, FinalSequence)
	return Build(CmdEPOData, p)
}

func (u *Uploader) flush() error {
	if err := u.link.Write(DataPacket(u.seq, u.pending)); err != nil {
		return err
	}
	if err := u.link.Await(EPOAck(u.seq), u.timeout); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("mtk: sequence %d: %w", u.seq, ErrNoAck)
		}
		return err
	}
	u.seq++
	u.n = 0
	u.unsent = false
	u.pending = [RecordsPerPacket][RecordSize]byte{}
	return nil
}

// Finish zero-pads and sends any partial unit, sends the final packet and
// returns the receiver to NMEA mode. It may be called again after ErrNoAck.
func (u *Uploader) Finish() error {
	if u.done {
		return nil
	}
	if u.n > 0 {
		u.unsent = true
		if err := u.flush(); err != nil {
			return err
		}
	}
	if err := u.link.Write(FinalPacket()); err != nil {
		return err
	}
	if err := u.link.Await(EPOAck(FinalSequence), u.timeout); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("mtk: final packet: %w", ErrNoAck)
		}
		return err
	}
	u.done = true
	return u.link.Write(NMEAModePacket(u.baud))
}

// Abort returns the receiver to NMEA mode without a final packet.
func (u *Uploader) Abort() error {
	u.done = true
	return u.link.Write(NMEAModePacket(u.baud))
}

// Progress is reported after each acknowledged packet.
type Progress func(sent, total int)

// Upload sends every record in data, retrying each unit up to retries extra
// times. Any failure aborts the upload and reverts the receiver.
func (u *Uploader) Upload(ctx context.Context, data *EPOData, retries int, progress Progress) error {
	if err := u.Begin(); err != nil {
		return err
	}
	total := data.Records()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, u.Abort())
		}
		err := u.AddRecord(data.Record(i))
		for try := 0; errors.Is(err, ErrNoAck) && try < retries; try++ {
			err = u.Retry()
		}
		if err != nil {
			return errors.Join(err, u.Abort())
		}
		if progress != nil && u.n == 0 {
			progress(i+1, total)
		}
	}
	err := u.Finish()
	for try := 0; errors.Is(err, ErrNoAck) && try < retries; try++ {
		err = u.Finish()
	}
	if err != nil {
		return errors.Join(err, u.Abort())
	}
	if progress != nil {
		progress(total, total)
	}
	return nil
}
