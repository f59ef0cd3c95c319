package gps

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/log"

	"gpslink/internal/nmea"
	"gpslink/internal/replay"
	"gpslink/internal/telemetry"
	"gpslink/internal/transport"
	"gpslink/internal/udp"
)

// Config controls the background reader.
//
// Failures are reported in the snapshot and the log; they never bring down
// the process.
type Config struct {
	Enable    bool
	Transport transport.Config

	PollInterval      time.Duration
	RestartOnStart    bool
	DepthToTransducer float64

	// Response is the telemetry smoothing time constant.
	Response time.Duration
	// History lists channel labels that keep a history ring.
	History         []string
	HistorySize     int
	HistoryInterval time.Duration

	// UDPDest, when set, receives every valid sentence.
	UDPDest string
	// CapturePath, when set, records the raw byte stream.
	CapturePath string
}

// fixStaleAfter is how long a fix stays fresh without a new one.
const fixStaleAfter = 3 * time.Second

type Snapshot struct {
	Enabled  bool `json:"enabled"`
	Valid    bool `json:"valid"`
	FixStale bool `json:"fix_stale"`

	Transport string `json:"transport,omitempty"`

	LatDeg     float64 `json:"lat_deg,omitempty"`
	LonDeg     float64 `json:"lon_deg,omitempty"`
	AltitudeM  float64 `json:"altitude_m,omitempty"`
	SpeedKt    float64 `json:"speed_kt,omitempty"`
	CourseDeg  float64 `json:"course_deg,omitempty"`
	FixQuality int     `json:"fix_quality,omitempty"`
	FixMode    int     `json:"fix_mode,omitempty"`
	Satellites int     `json:"satellites,omitempty"`
	HDOP       float64 `json:"hdop,omitempty"`
	Antenna    int     `json:"antenna,omitempty"`
	UTC        string  `json:"utc,omitempty"`
	FixAgeSec  float64 `json:"fix_age_sec,omitempty"`

	// Channels holds the smoothed value of every telemetry channel that has
	// been updated, keyed by label.
	Channels map[string]float64 `json:"channels,omitempty"`
	// History holds the sampled values of channels with a history ring,
	// oldest first.
	History map[string][]float64 `json:"history,omitempty"`

	LastSentence string `json:"last_sentence,omitempty"`
	Sentences    uint64 `json:"sentences"`
	BadSentences uint64 `json:"bad_sentences"`
	Forwarded    uint64 `json:"forwarded,omitempty"`

	LastError string `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config
	log *log.Logger
	clk clock.Clock

	open func(transport.Config, *log.Logger) (transport.Transport, error)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu      sync.Mutex
	closers []io.Closer
}

func New(cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{cfg: cfg, log: logger.WithPrefix("gps"), clk: clock.New(), open: transport.Open}
	s.last.Store(Snapshot{Enabled: cfg.Enable, Transport: cfg.Transport.Kind.String()})
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	t, err := s.open(s.cfg.Transport, s.log)
	if err != nil {
		s.setErrorLocked(err.Error())
		return err
	}
	closers := []io.Closer{t}

	if s.cfg.CapturePath != "" {
		w, err := replay.CreateWriter(s.cfg.CapturePath, s.clk)
		if err != nil {
			_ = t.Close()
			s.setErrorLocked(err.Error())
			return err
		}
		t = transport.Tee(t, w)
		closers = append(closers, w)
		s.log.Info("capturing", "path", s.cfg.CapturePath)
	}

	var fwd *udp.Forwarder
	if s.cfg.UDPDest != "" {
		fwd, err = udp.NewForwarder(s.cfg.UDPDest)
		if err != nil {
			closeAll(closers)
			s.setErrorLocked(err.Error())
			return err
		}
		closers = append(closers, fwd)
		s.log.Info("forwarding", "dest", fwd.Dests())
	}

	dev, err := s.newDevice(t)
	if err != nil {
		closeAll(closers)
		s.setErrorLocked(err.Error())
		return err
	}
	s.closers = closers

	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("gps enabled", "transport", s.cfg.Transport.Kind, "policy", policyFor(s.cfg))
		s.run(childCtx, dev, fwd, poll)
	}()

	s.last.Store(Snapshot{Enabled: true, Transport: s.cfg.Transport.Kind.String()})
	return nil
}

func policyFor(cfg Config) nmea.StartPolicy {
	if cfg.RestartOnStart {
		return nmea.RestartOnStart
	}
	return nmea.KeepStart
}

func (s *Service) newDevice(t transport.Transport) (*Device, error) {
	response := s.cfg.Response
	if response <= 0 {
		response = telemetry.DefaultResponse
	}
	store := telemetry.NewDefaultStore(response, telemetry.WithClock(s.clk))
	size, interval := s.cfg.HistorySize, s.cfg.HistoryInterval
	if size == 0 {
		size = telemetry.HistoryDefaults.Size
	}
	if interval <= 0 {
		interval = telemetry.HistoryDefaults.Interval
	}
	for _, label := range s.cfg.History {
		id, ok := store.Lookup(label)
		if !ok {
			return nil, fmt.Errorf("gps: unknown telemetry channel %q", label)
		}
		if _, err := store.AttachHistory(id, size, telemetry.HistoryDefaults.Scale, telemetry.HistoryDefaults.Offset, interval); err != nil {
			return nil, err
		}
	}
	return NewDevice(t,
		WithClock(s.clk),
		WithLogger(s.log),
		WithStore(store),
		WithStartPolicy(policyFor(s.cfg)),
		WithDepthToTransducer(s.cfg.DepthToTransducer)), nil
}

func (s *Service) run(ctx context.Context, dev *Device, fwd *udp.Forwarder, poll time.Duration) {
	ticker := s.clk.Ticker(poll)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		updated := false
		dev.Poll(func(line []byte, h nmea.Header, err error) bool {
			if err == nil || nmea.IsRecognized(err) {
				if fwd != nil {
					if ferr := fwd.Send(line); ferr != nil {
						s.log.Debug("forward failed", "err", ferr)
					}
				}
			}
			if err != nil {
				if !nmea.IsRecognized(err) {
					lastErr = err.Error()
					s.log.Debug("bad sentence", "err", err)
				}
				return true
			}
			updated = true
			return true
		})

		if err := transport.Err(dev.Transport()); err != nil && err.Error() != lastErr {
			lastErr = err.Error()
			s.log.Error("transport error", "err", err)
			updated = true
		}
		if updated {
			s.last.Store(s.snapshot(dev, fwd, lastErr))
		}
	}
}

func (s *Service) snapshot(dev *Device, fwd *udp.Forwarder, lastErr string) Snapshot {
	rec := dev.Record()
	p := dev.Parser()
	lines, bad := dev.Counts()
	age := p.SecondsSinceFix()

	out := Snapshot{
		Enabled:      true,
		Valid:        rec.Fix,
		FixStale:     age < 0 || age > fixStaleAfter.Seconds(),
		Transport:    s.cfg.Transport.Kind.String(),
		LatDeg:       rec.Latitude.Degrees,
		LonDeg:       rec.Longitude.Degrees,
		AltitudeM:    rec.Altitude,
		SpeedKt:      rec.Speed,
		CourseDeg:    rec.Course,
		FixQuality:   rec.FixQuality,
		FixMode:      rec.FixQuality3D,
		Satellites:   rec.Satellites,
		HDOP:         rec.HDOP,
		Antenna:      rec.Antenna,
		LastSentence: p.LastSource() + p.LastSentence(),
		Sentences:    lines,
		BadSentences: bad,
		LastError:    lastErr,
	}
	if age >= 0 {
		out.FixAgeSec = age
	}
	if t := rec.Time; p.SecondsSinceTime() >= 0 {
		out.UTC = fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
	}
	if fwd != nil {
		out.Forwarded, _ = fwd.Stats()
	}

	store := dev.Store()
	for id := telemetry.ID(0); int(id) < store.Len(); id++ {
		c, _ := store.Channel(id)
		if c.Label == "" || c.LastUpdate.IsZero() {
			continue
		}
		if out.Channels == nil {
			out.Channels = make(map[string]float64)
		}
		out.Channels[c.Label] = c.Smoothed
		if h := c.History(); h != nil && h.Len() > 0 {
			if out.History == nil {
				out.History = make(map[string][]float64)
			}
			out.History[c.Label] = h.Values()
		}
	}
	return out
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closers := s.closers
	s.cancel = nil
	s.closers = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	closeAll(closers)
}

func closeAll(cs []io.Closer) {
	for _, c := range cs {
		_ = c.Close()
	}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) setErrorLocked(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	s.last.Store(cur)
}
