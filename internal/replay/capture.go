// Package replay records the raw bytes a GPS transport delivers and plays them
// back later, so a session can be re-run through the parser without hardware.
package replay

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Capture format, one entry per line:
//
//	# comment
//	START
//	<ns since START>,<hex bytes>
//
// START resets the time origin; a file may hold several sessions.

const startMarker = "START"

// Record is one chunk of bytes as it arrived. A nil Data marks a START.
type Record struct {
	At   time.Duration
	Data []byte
}

// IsStart reports whether r is a session marker.
func (r Record) IsStart() bool { return r.Data == nil }

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll parses every record. Line numbers in errors are 1-based.
func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var recs []Record
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == startMarker {
			recs = append(recs, Record{})
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", n, err)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return recs, nil
}

func parseLine(line string) (Record, error) {
	ts, data, ok := strings.Cut(line, ",")
	if !ok {
		return Record{}, fmt.Errorf("missing comma in %q", line)
	}
	ts, data = strings.TrimSpace(ts), strings.ReplaceAll(strings.TrimSpace(data), " ", "")
	if ts == "" || data == "" {
		return Record{}, fmt.Errorf("empty field in %q", line)
	}
	ns, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad timestamp %q: %w", ts, err)
	}
	if ns < 0 {
		return Record{}, fmt.Errorf("negative timestamp %d", ns)
	}
	b, err := hex.DecodeString(data)
	if err != nil {
		return Record{}, fmt.Errorf("bad hex: %w", err)
	}
	return Record{At: time.Duration(ns), Data: b}, nil
}

// ReadFile loads a capture file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

// Writer appends captured bytes to a file. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	clk    clock.Clock
	start  time.Time
	closed bool
}

// CreateWriter truncates path and starts a session. A nil clock uses the
// wall clock.
func CreateWriter(path string, clk clock.Clock) (*Writer, error) {
	if clk == nil {
		clk = clock.New()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString("# gpslink capture\n" + startMarker + "\n"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("replay: %w", err)
	}
	return &Writer{f: f, w: bw, clk: clk, start: clk.Now()}, nil
}

// Write records p stamped with the time since the session started. Empty
// writes are dropped.
func (ww *Writer) Write(p []byte) (int, error) {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return 0, errors.New("replay: writer is closed")
	}
	if len(p) == 0 {
		return 0, nil
	}
	d := ww.clk.Now().Sub(ww.start)
	if d < 0 {
		d = 0
	}
	if _, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(p)); err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}
	return len(p), nil
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// Sleeper is the part of a clock Play needs.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Play hands each data record to cb, sleeping between records to keep their
// relative spacing. speed 2 halves the waits. START markers reset the origin.
func Play(records []Record, speed float64, loop bool, sleeper Sleeper, cb func(data []byte) error) error {
	if speed <= 0 {
		return fmt.Errorf("replay: speed must be > 0")
	}
	if sleeper == nil {
		sleeper = clock.New()
	}
	if cb == nil {
		return errors.New("replay: callback is nil")
	}
	if len(records) == 0 {
		return errors.New("replay: no records")
	}

	for {
		var (
			origin, lastAt time.Duration
			haveLast       bool
		)
		for _, r := range records {
			if r.IsStart() {
				origin, lastAt, haveLast = r.At, 0, false
				continue
			}
			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				if wait := time.Duration(float64(at-lastAt) / speed); wait > 0 {
					sleeper.Sleep(wait)
				}
			}
			if err := cb(r.Data); err != nil {
				return err
			}
			lastAt, haveLast = at, true
		}
		if !loop {
			return nil
		}
	}
}
