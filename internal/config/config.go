// Package config loads the gpslink YAML configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"gpslink/internal/i2c"
	"gpslink/internal/telemetry"
	"gpslink/internal/transport"
)

type Config struct {
	GPS       GPSConfig       `yaml:"gps"`
	EPO       EPOConfig       `yaml:"epo"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	UDP       UDPConfig       `yaml:"udp"`
	Capture   CaptureConfig   `yaml:"capture"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable"`
	// Transport is serial, i2c, spi, tcp or replay.
	Transport string `yaml:"transport"`

	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	I2CBus  int    `yaml:"i2c_bus"`
	I2CAddr uint16 `yaml:"i2c_addr"`

	SPIPort string `yaml:"spi_port"`
	SPIHz   int64  `yaml:"spi_hz"`

	TCPAddr string `yaml:"tcp_addr"`

	ReplayPath  string  `yaml:"replay_path"`
	ReplaySpeed float64 `yaml:"replay_speed"`
	ReplayLoop  bool    `yaml:"replay_loop"`

	// RestartOnStart makes a '$' in the middle of a line start a new one.
	RestartOnStart    bool          `yaml:"restart_on_start"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	DepthToTransducer float64       `yaml:"depth_to_transducer"`
}

type EPOConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	MaxSets int           `yaml:"max_sets"`
	// Baud is the NMEA rate restored after an upload.
	Baud int `yaml:"baud"`
}

type TelemetryConfig struct {
	Response        time.Duration `yaml:"response"`
	HistoryInterval time.Duration `yaml:"history_interval"`
	HistorySize     int           `yaml:"history_size"`
	// History lists channel labels that keep a history.
	History []string `yaml:"history"`
}

type UDPConfig struct {
	// Dest is one or more comma separated host:port targets.
	Dest string `yaml:"dest"`
}

type CaptureConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	// Listen is the status API address, e.g. ":8080". Empty disables it.
	Listen string `yaml:"listen"`
	// LogLines is how many recent log lines /api/logs keeps.
	LogLines int `yaml:"log_lines"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var standardBauds = map[int]bool{
	4800: true, 9600: true, 14400: true, 19200: true, 38400: true,
	57600: true, 115200: true, 230400: true, 460800: true, 921600: true,
}

// defaultEPORetries applies only when epo.retries is absent, so an explicit
// 0 disables retries.
const defaultEPORetries = 3

func seed() Config {
	return Config{EPO: EPOConfig{Retries: defaultEPORetries}}
}

// Default is the configuration used when no file is given.
func Default() Config {
	cfg := seed()
	cfg.GPS.Enable = true
	if err := cfg.applyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (Config, error) {
	cfg := seed()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	g := &cfg.GPS
	g.Transport = strings.ToLower(strings.TrimSpace(g.Transport))
	kind, err := transport.ParseKind(g.Transport)
	if err != nil {
		return fmt.Errorf("gps.transport must be serial, i2c, spi, tcp or replay")
	}
	g.Transport = kind.String()

	switch kind {
	case transport.KindSerial:
		if g.Baud == 0 {
			g.Baud = transport.DefaultBaud
		}
		if !standardBauds[g.Baud] {
			return fmt.Errorf("gps.baud %d is not a standard rate", g.Baud)
		}
	case transport.KindI2C:
		if g.I2CBus == 0 {
			g.I2CBus = 1
		}
		if g.I2CAddr == 0 {
			g.I2CAddr = i2c.DefaultAddr
		}
		if err := i2c.ValidAddr(g.I2CAddr); err != nil {
			return fmt.Errorf("gps.i2c_addr 0x%X is not a 7-bit address", g.I2CAddr)
		}
	case transport.KindSPI:
		if g.SPIHz == 0 {
			g.SPIHz = transport.DefaultSPIHz
		}
		if g.SPIHz < 0 {
			return fmt.Errorf("gps.spi_hz must be > 0")
		}
	case transport.KindTCP:
		g.TCPAddr = strings.TrimSpace(g.TCPAddr)
		if _, _, err := net.SplitHostPort(g.TCPAddr); err != nil {
			return fmt.Errorf("gps.tcp_addr %q must be host:port", g.TCPAddr)
		}
	case transport.KindReplay:
		if g.ReplayPath == "" {
			return fmt.Errorf("gps.replay_path is required when gps.transport is replay")
		}
		if g.ReplaySpeed == 0 {
			g.ReplaySpeed = 1
		}
		if g.ReplaySpeed < 0 {
			return fmt.Errorf("gps.replay_speed must be > 0")
		}
	}
	if g.PollInterval <= 0 {
		g.PollInterval = 10 * time.Millisecond
	}
	if g.DepthToTransducer < 0 {
		return fmt.Errorf("gps.depth_to_transducer must be >= 0")
	}

	e := &cfg.EPO
	if e.Timeout <= 0 {
		e.Timeout = 3 * time.Second
	}
	if e.Retries < 0 {
		return fmt.Errorf("epo.retries must be >= 0")
	}
	if e.MaxSets < 0 {
		return fmt.Errorf("epo.max_sets must be >= 0")
	}
	if e.Baud == 0 {
		e.Baud = g.Baud
		if e.Baud == 0 {
			e.Baud = transport.DefaultBaud
		}
	}
	if !standardBauds[e.Baud] {
		return fmt.Errorf("epo.baud %d is not a standard rate", e.Baud)
	}

	t := &cfg.Telemetry
	if t.Response <= 0 {
		t.Response = telemetry.DefaultResponse
	}
	if t.HistoryInterval <= 0 {
		t.HistoryInterval = telemetry.HistoryDefaults.Interval
	}
	if t.HistorySize == 0 {
		t.HistorySize = telemetry.HistoryDefaults.Size
	}
	if t.HistorySize < telemetry.MinHistorySize {
		return fmt.Errorf("telemetry.history_size must be >= %d", telemetry.MinHistorySize)
	}
	probe := telemetry.NewDefaultStore(0)
	for _, label := range t.History {
		if _, ok := probe.Lookup(label); !ok {
			return fmt.Errorf("telemetry.history: unknown channel %q", label)
		}
	}

	cfg.UDP.Dest = strings.TrimSpace(cfg.UDP.Dest)

	cfg.Web.Listen = strings.TrimSpace(cfg.Web.Listen)
	if cfg.Web.LogLines == 0 {
		cfg.Web.LogLines = 500
	}
	if cfg.Web.LogLines < 0 {
		return fmt.Errorf("web.log_lines must be >= 0")
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level %q is not a level", cfg.Log.Level)
	}
	return nil
}

// TransportConfig maps the gps section onto transport.Config.
func (g GPSConfig) TransportConfig() transport.Config {
	kind, _ := transport.ParseKind(g.Transport)
	return transport.Config{
		Kind:        kind,
		Device:      g.Device,
		Baud:        g.Baud,
		I2CBus:      g.I2CBus,
		I2CAddr:     g.I2CAddr,
		SPIPort:     g.SPIPort,
		SPIHz:       g.SPIHz,
		Addr:        g.TCPAddr,
		ReplayPath:  g.ReplayPath,
		ReplaySpeed: g.ReplaySpeed,
		ReplayLoop:  g.ReplayLoop,
	}
}
