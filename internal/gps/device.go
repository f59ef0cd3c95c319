package gps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"

	"gpslink/internal/mtk"
	"gpslink/internal/nmea"
	"gpslink/internal/telemetry"
	"gpslink/internal/transport"
)

// DefaultMaxSentences is how many lines WaitForSentence reads before giving up.
const DefaultMaxSentences = 10

// ErrSentenceNotSeen is returned when the awaited sentence did not arrive
// within the allowed number of lines.
var ErrSentenceNotSeen = errors.New("gps: sentence not seen")

// Device is a receiver attached to a transport. It is not safe for
// concurrent use; Service serializes access on its own goroutine.
type Device struct {
	t      transport.Transport
	asm    *nmea.Assembler
	parser *nmea.Parser
	clk    clock.Clock
	log    *log.Logger
	poll   time.Duration

	paused    bool
	inStandby bool

	lines uint64
	bad   uint64
}

type deviceOptions struct {
	clk    clock.Clock
	logger *log.Logger
	poll   time.Duration
	policy nmea.StartPolicy
	store  *telemetry.Store
	depth  float64
}

// Option configures a Device.
type Option func(*deviceOptions)

func WithClock(c clock.Clock) Option { return func(o *deviceOptions) { o.clk = c } }

func WithLogger(l *log.Logger) Option { return func(o *deviceOptions) { o.logger = l } }

// WithPollInterval is the sleep between empty polls while waiting.
func WithPollInterval(d time.Duration) Option { return func(o *deviceOptions) { o.poll = d } }

func WithStartPolicy(p nmea.StartPolicy) Option { return func(o *deviceOptions) { o.policy = p } }

// WithStore feeds decoded values into store instead of a default one.
func WithStore(s *telemetry.Store) Option { return func(o *deviceOptions) { o.store = s } }

func WithDepthToTransducer(m float64) Option { return func(o *deviceOptions) { o.depth = m } }

func NewDevice(t transport.Transport, opts ...Option) *Device {
	o := deviceOptions{clk: clock.New(), poll: 10 * time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}
	if o.clk == nil {
		o.clk = clock.New()
	}
	if o.poll <= 0 {
		o.poll = 10 * time.Millisecond
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.store == nil {
		o.store = telemetry.NewDefaultStore(telemetry.DefaultResponse, telemetry.WithClock(o.clk))
	}
	return &Device{
		t:      t,
		asm:    nmea.NewAssembler(nmea.WithStartPolicy(o.policy), nmea.WithAssemblerClock(o.clk)),
		parser: nmea.NewParser(o.store, nmea.WithParserClock(o.clk), nmea.WithDepthToTransducer(o.depth)),
		clk:    o.clk,
		log:    o.logger.WithPrefix("gps"),
		poll:   o.poll,
	}
}

func (d *Device) Transport() transport.Transport { return d.t }
func (d *Device) Parser() *nmea.Parser           { return d.parser }
func (d *Device) Record() nmea.Record            { return d.parser.Record() }
func (d *Device) Store() *telemetry.Store        { return d.parser.Store() }

// Counts returns lines assembled and lines that failed to parse.
func (d *Device) Counts() (lines, bad uint64) { return d.lines, d.bad }

// Pause stops Read from consuming bytes.
func (d *Device) Pause(p bool) { d.paused = p }
func (d *Device) Paused() bool { return d.paused }

// Read consumes one byte if one is waiting. ok is false when paused or idle.
func (d *Device) Read() (b byte, ok bool) {
	if d.paused || d.t.Available() == 0 {
		return 0, false
	}
	b, err := d.t.ReadByte()
	if err != nil {
		return 0, false
	}
	d.asm.FeedByte(b)
	return b, true
}

// NewSentence reports whether a completed line is waiting.
func (d *Device) NewSentence() bool { return d.asm.HasSentence() }

// LastSentence claims the waiting line. The slice is only valid until the
// next line completes.
func (d *Device) LastSentence() []byte { return d.asm.TakeSentence() }

// LineFunc sees every completed line with its parse result. Returning false
// stops the poll.
type LineFunc func(line []byte, h nmea.Header, err error) bool

// Poll reads every waiting byte, parses each completed line and hands it to
// fn. It returns the number of lines completed.
func (d *Device) Poll(fn LineFunc) int {
	n := 0
	for {
		if _, ok := d.Read(); !ok {
			return n
		}
		if !d.asm.HasSentence() {
			continue
		}
		n++
		d.lines++
		line := d.asm.TakeSentence()
		h, err := d.parser.ParseAt(line, d.asm.SentAt())
		if err != nil && !nmea.IsRecognized(err) {
			d.bad++
		}
		if fn != nil && !fn(line, h, err) {
			return n
		}
	}
}

// WaitForSentence polls until a line starting with prefix arrives, at most max
// lines have gone by, or ctx ends. max <= 0 means DefaultMaxSentences.
func (d *Device) WaitForSentence(ctx context.Context, prefix string, max int) (string, error) {
	if max <= 0 {
		max = DefaultMaxSentences
	}
	var (
		seen  int
		found string
		ok    bool
	)
	for {
		d.Poll(func(line []byte, _ nmea.Header, _ error) bool {
			seen++
			if strings.HasPrefix(string(line), prefix) {
				found, ok = strings.TrimRight(string(line), "\r\n"), true
				return false
			}
			return seen < max
		})
		if ok {
			return found, nil
		}
		if seen >= max {
			return "", fmt.Errorf("%w: %q in %d lines", ErrSentenceNotSeen, prefix, seen)
		}
		if err := transport.Err(d.t); err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("gps: waiting for %q: %w", prefix, err)
		}
		d.clk.Sleep(d.poll)
	}
}

// SendCommand writes a PMTK body with its checksum and line ending. An empty
// body sends a bare line ending, which wakes a sleeping receiver.
func (d *Device) SendCommand(body string) error {
	line := "\r\n"
	if body != "" {
		line = mtk.Command(body) + line
	}
	if _, err := d.t.Write([]byte(line)); err != nil {
		return fmt.Errorf("gps: send %q: %w", body, err)
	}
	d.log.Debug("sent", "cmd", strings.TrimSpace(line))
	return nil
}

func (d *Device) command(ctx context.Context, body, reply string) (string, error) {
	if err := d.SendCommand(body); err != nil {
		return "", err
	}
	return d.WaitForSentence(ctx, reply, 0)
}

// InStandby reports whether Standby succeeded and Wakeup has not run since.
func (d *Device) InStandby() bool { return d.inStandby }

// Standby puts the receiver to sleep. It returns false if it already was.
func (d *Device) Standby(ctx context.Context) (bool, error) {
	if d.inStandby {
		return false, nil
	}
	if _, err := d.command(ctx, mtk.Standby, mtk.StandbySuccess); err != nil {
		return false, err
	}
	d.inStandby = true
	d.log.Info("standby")
	return true, nil
}

// Wakeup wakes a receiver put to sleep with Standby. It returns false if the
// receiver was not asleep.
func (d *Device) Wakeup(ctx context.Context) (bool, error) {
	if !d.inStandby {
		return false, nil
	}
	d.inStandby = false
	if _, err := d.command(ctx, "", mtk.AwakeReply); err != nil {
		return false, err
	}
	d.log.Info("awake")
	return true, nil
}

// StartLogger starts LOCUS logging to the receiver's flash.
func (d *Device) StartLogger(ctx context.Context) error {
	_, err := d.command(ctx, mtk.LocusStartLog, mtk.LocusAck)
	return err
}

// StopLogger stops LOCUS logging.
func (d *Device) StopLogger(ctx context.Context) error {
	_, err := d.command(ctx, mtk.LocusStopLog, mtk.LocusAck)
	return err
}

// ReadStatus queries the LOCUS logger.
func (d *Device) ReadStatus(ctx context.Context) (LocusStatus, error) {
	line, err := d.command(ctx, mtk.LocusQuery, mtk.LocusStatusTag)
	if err != nil {
		return LocusStatus{}, err
	}
	return ParseLocusStatus(line)
}

// EPOOptions tunes UploadEPO.
type EPOOptions struct {
	Timeout time.Duration
	Retries int
	MaxSets int
	// Baud is the NMEA rate the receiver returns to.
	Baud int
	// Settle is the pause after entering binary mode.
	Settle time.Duration
}

// UploadEPO switches the receiver to binary mode, streams data and switches
// back. Sentences in flight are discarded.
func (d *Device) UploadEPO(ctx context.Context, data *mtk.EPOData, opt EPOOptions) error {
	data.Truncate(opt.MaxSets)
	logger := d.log.WithPrefix("epo")
	logger.Info("upload starting", "sets", data.Sets(), "records", data.Records(), "first", data.StartTime(0).Format(time.RFC3339))

	link := mtk.NewLink(d.t, mtk.WithLinkClock(d.clk), mtk.WithPollInterval(d.poll))
	up := mtk.NewUploader(link,
		mtk.WithAckTimeout(opt.Timeout),
		mtk.WithNMEABaud(uint32(opt.Baud)),
		mtk.WithSettle(opt.Settle))

	start := d.clk.Now()
	err := up.Upload(ctx, data, opt.Retries, func(sent, total int) {
		logger.Debug("progress", "sent", sent, "total", total, "seq", up.Sequence())
	})
	d.asm.Reset()
	if err != nil {
		logger.Error("upload failed", "seq", up.Sequence(), "err", err)
		return fmt.Errorf("gps: EPO upload: %w", err)
	}
	logger.Info("upload done", "packets", up.Sequence(), "took", d.clk.Since(start).Round(time.Millisecond))
	return nil
}
