package mtk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// SatellitesPerSet is the number of records in one EPO set.
	SatellitesPerSet = 32
	// SetSize is the size of one EPO set (six hours of predictions).
	SetSize = SatellitesPerSet * RecordSize
)

var ErrBadEPOFile = errors.New("mtk: EPO data is not a whole number of sets")

// gpsEpoch is the start of GPS time.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// EPOData is a loaded EPO file: a sequence of 1920-byte sets of 32 records.
type EPOData struct {
	raw []byte
}

// LoadEPO reads EPO data from r.
func LoadEPO(r io.Reader) (*EPOData, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("mtk: read EPO: %w", err)
	}
	if buf.Len() == 0 || buf.Len()%SetSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadEPOFile, buf.Len())
	}
	return &EPOData{raw: buf.Bytes()}, nil
}

// ReadEPOFile loads an EPO file from disk.
func ReadEPOFile(path string) (*EPOData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mtk: open EPO: %w", err)
	}
	defer f.Close()
	return LoadEPO(f)
}

func (d *EPOData) Sets() int    { return len(d.raw) / SetSize }
func (d *EPOData) Records() int { return len(d.raw) / RecordSize }

// Record returns record i. The slice aliases the loaded data.
func (d *EPOData) Record(i int) []byte {
	off := i * RecordSize
	return d.raw[off : off+RecordSize]
}

// SetHour is the GPS hour stored in the first three bytes of set i.
func (d *EPOData) SetHour(i int) uint32 {
	off := i * SetSize
	return uint32(d.raw[off]) | uint32(d.raw[off+1])<<8 | uint32(d.raw[off+2])<<16
}

// StartTime is the UTC start of the prediction window of set i.
func (d *EPOData) StartTime(i int) time.Time {
	return gpsEpoch.Add(time.Duration(d.SetHour(i)) * time.Hour)
}

// Truncate keeps at most n sets. Zero or negative keeps everything.
func (d *EPOData) Truncate(n int) {
	if n > 0 && n < d.Sets() {
		d.raw = d.raw[:n*SetSize]
	}
}
