package transport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the NMEA rate receivers boot at.
const DefaultBaud = 9600

type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	SetMode(mode *serial.Mode) error
	ResetInputBuffer() error
	Close() error
}

var (
	openPort  = func(name string, mode *serial.Mode) (serialPort, error) { return serial.Open(name, mode) }
	listPorts = serial.GetPortsList
)

// Serial is a UART transport.
type Serial struct {
	*pollBuffer
	port serialPort
	name string
	baud int
}

// OpenSerial opens name at baud. An empty or "auto" name picks a port with
// DetectPort.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	if name == "" || name == "auto" {
		p, err := DetectPort()
		if err != nil {
			return nil, err
		}
		name = p
	}
	port, err := openPort(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("transport: open %s at %d: %w", name, baud, err)
	}
	return newSerial(port, name, baud)
}

func newSerial(port serialPort, name string, baud int) (*Serial, error) {
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("transport: %s: %w", name, err)
	}
	s := &Serial{port: port, name: name, baud: baud}
	s.pollBuffer = newPollBuffer(256, port.Read)
	return s, nil
}

func (s *Serial) Name() string { return s.name }
func (s *Serial) Baud() int    { return s.baud }

func (s *Serial) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write %s: %w", s.name, err)
	}
	return n, nil
}

// SetBaud changes the line rate and drops anything buffered at the old rate.
func (s *Serial) SetBaud(baud int) error {
	if err := s.port.SetMode(&serial.Mode{BaudRate: baud}); err != nil {
		return fmt.Errorf("transport: %s baud %d: %w", s.name, baud, err)
	}
	s.baud = baud
	s.buf, s.r = s.buf[:0], 0
	return s.port.ResetInputBuffer()
}

func (s *Serial) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// ListPorts returns the serial ports the OS reports, sorted.
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// portPreference orders likely GPS ports: USB CDC first, then USB serial
// adapters, then on-board UARTs.
var portPreference = []string{"/dev/ttyACM", "/dev/ttyUSB", "/dev/serial", "/dev/ttyAMA", "/dev/ttyS", "/dev/cu.usb", "COM"}

// DetectPort picks the most likely GPS port.
func DetectPort() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	for _, prefix := range portPreference {
		for _, p := range ports {
			if strings.HasPrefix(p, prefix) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("transport: no serial port found")
}
