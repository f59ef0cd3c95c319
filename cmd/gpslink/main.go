package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"gpslink/internal/config"
	"gpslink/internal/gps"
	"gpslink/internal/mtk"
	"gpslink/internal/nmea"
	"gpslink/internal/transport"
	"gpslink/internal/web"
)

// epoFromConfig is the value of a bare --upload-epo.
const epoFromConfig = "-"

type options struct {
	configPath     string
	logLevel       string
	uploadEPO      string
	listPorts      bool
	locusStatus    bool
	statusInterval time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opt options
	fs := pflag.NewFlagSet("gpslink", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opt.configPath, "config", "c", "", "Path to YAML config (defaults apply when empty)")
	fs.StringVar(&opt.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	fs.StringVar(&opt.uploadEPO, "upload-epo", "", "Upload an EPO file to the receiver and exit; use --upload-epo=PATH, or the bare flag for epo.path")
	fs.Lookup("upload-epo").NoOptDefVal = epoFromConfig
	fs.BoolVar(&opt.listPorts, "list-ports", false, "List serial ports and exit")
	fs.BoolVar(&opt.locusStatus, "locus-status", false, "Query the LOCUS logger and exit")
	fs.DurationVar(&opt.statusInterval, "status-interval", 10*time.Second, "How often to log the receiver status (0 disables)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opt, nil
}

func loadConfig(opt options) (config.Config, error) {
	if opt.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(opt.configPath)
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "gpslink",
	}), nil
}

// serviceConfig maps the file configuration onto the reader service.
func serviceConfig(cfg config.Config) gps.Config {
	return gps.Config{
		Enable:            cfg.GPS.Enable,
		Transport:         cfg.GPS.TransportConfig(),
		PollInterval:      cfg.GPS.PollInterval,
		RestartOnStart:    cfg.GPS.RestartOnStart,
		DepthToTransducer: cfg.GPS.DepthToTransducer,
		Response:          cfg.Telemetry.Response,
		History:           cfg.Telemetry.History,
		HistorySize:       cfg.Telemetry.HistorySize,
		HistoryInterval:   cfg.Telemetry.HistoryInterval,
		UDPDest:           cfg.UDP.Dest,
		CapturePath:       cfg.Capture.Path,
	}
}

func deviceOptions(cfg config.Config, logger *log.Logger) []gps.Option {
	policy := gps.WithStartPolicy(nmea.KeepStart)
	if cfg.GPS.RestartOnStart {
		policy = gps.WithStartPolicy(nmea.RestartOnStart)
	}
	return []gps.Option{
		gps.WithLogger(logger),
		gps.WithPollInterval(cfg.GPS.PollInterval),
		gps.WithDepthToTransducer(cfg.GPS.DepthToTransducer),
		policy,
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opt, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if opt.listPorts {
		ports, err := transport.ListPorts()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		for _, p := range ports {
			fmt.Fprintln(stdout, p)
		}
		return 0
	}

	cfg, err := loadConfig(opt)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return 1
	}
	level := cfg.Log.Level
	if opt.logLevel != "" {
		level = opt.logLevel
	}
	logs := web.NewLogBuffer(cfg.Web.LogLines)
	logger, err := newLogger(io.MultiWriter(stderr, logs), level)
	if err != nil {
		fmt.Fprintf(stderr, "bad log level: %v\n", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case opt.uploadEPO != "":
		path := opt.uploadEPO
		if path == epoFromConfig {
			path = cfg.EPO.Path
		}
		err = uploadEPO(ctx, cfg, path, logger)
	case opt.locusStatus:
		err = locusStatus(ctx, cfg, stdout, logger)
	default:
		err = serve(ctx, cfg, opt.statusInterval, logger, logs)
	}
	if err != nil {
		logger.Error("exiting", "err", err)
		return 1
	}
	return 0
}

// openDevice opens the configured transport for a one-shot command.
func openDevice(cfg config.Config, logger *log.Logger) (*gps.Device, error) {
	t, err := transport.Open(cfg.GPS.TransportConfig(), logger)
	if err != nil {
		return nil, err
	}
	return gps.NewDevice(t, deviceOptions(cfg, logger)...), nil
}

func uploadEPO(ctx context.Context, cfg config.Config, path string, logger *log.Logger) error {
	if path == "" {
		return errors.New("no EPO file: pass --upload-epo=PATH or set epo.path")
	}
	data, err := mtk.ReadEPOFile(path)
	if err != nil {
		return err
	}
	dev, err := openDevice(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Transport().Close()

	return dev.UploadEPO(ctx, data, gps.EPOOptions{
		Timeout: cfg.EPO.Timeout,
		Retries: cfg.EPO.Retries,
		MaxSets: cfg.EPO.MaxSets,
		Baud:    cfg.EPO.Baud,
		Settle:  100 * time.Millisecond,
	})
}

func locusStatus(ctx context.Context, cfg config.Config, w io.Writer, logger *log.Logger) error {
	dev, err := openDevice(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Transport().Close()

	st, err := dev.ReadStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "serial=%d type=%d mode=0x%02X interval=%ds distance=%dm speed=%dkm/h logging=%t records=%d used=%d%%\n",
		st.Serial, st.Type, st.Mode, st.Interval, st.Distance, st.Speed, st.Logging, st.Records, st.Percent)
	return nil
}

func serve(ctx context.Context, cfg config.Config, every time.Duration, logger *log.Logger, logs *web.LogBuffer) error {
	svc := gps.New(serviceConfig(cfg), logger)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()
	logger.Info("gpslink starting", "transport", cfg.GPS.Transport, "udp", cfg.UDP.Dest)

	webErr := make(chan error, 1)
	if cfg.Web.Listen != "" {
		logger.Info("status api", "listen", cfg.Web.Listen)
		go func() {
			webErr <- web.Serve(ctx, cfg.Web.Listen, svc, logs)
		}()
	}

	var tick <-chan time.Time
	if every > 0 {
		t := time.NewTicker(every)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("gpslink stopping")
			return nil
		case err := <-webErr:
			if err != nil {
				return fmt.Errorf("status api: %w", err)
			}
		case <-tick:
			logStatus(logger, svc.Snapshot())
		}
	}
}

func logStatus(logger *log.Logger, s gps.Snapshot) {
	if !s.Enabled {
		return
	}
	kv := []any{
		"fix", s.Valid,
		"stale", s.FixStale,
		"sats", s.Satellites,
		"sentences", s.Sentences,
		"bad", s.BadSentences,
	}
	if s.Valid {
		kv = append(kv, "lat", fmt.Sprintf("%.6f", s.LatDeg), "lon", fmt.Sprintf("%.6f", s.LonDeg), "sog", s.SpeedKt)
	}
	if s.LastError != "" {
		kv = append(kv, "err", s.LastError)
	}
	logger.Info("status", kv...)
}
