// Package udp forwards validated NMEA sentences to navigation apps listening
// on UDP, one datagram per sentence.
package udp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
)

type udpConn interface {
	io.Writer
	io.Closer
}

type (
	resolveFunc func(network, address string) (*net.UDPAddr, error)
	dialFunc    func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)
)

// Forwarder fans each sentence out to every destination.
type Forwarder struct {
	dests []string
	conns []udpConn

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewForwarder dials every host:port in dests. A comma separated entry is
// split into several destinations.
func NewForwarder(dests ...string) (*Forwarder, error) {
	return newForwarder(dests, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newForwarder(dests []string, resolve resolveFunc, dial dialFunc) (*Forwarder, error) {
	f := &Forwarder{}
	for _, d := range splitDests(dests) {
		addr, err := resolve("udp", d)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("udp: resolve %s: %w", d, err)
		}
		conn, err := dial("udp", nil, addr)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("udp: dial %s: %w", d, err)
		}
		f.dests = append(f.dests, d)
		f.conns = append(f.conns, conn)
	}
	if len(f.conns) == 0 {
		return nil, errors.New("udp: no destinations")
	}
	return f, nil
}

func splitDests(in []string) []string {
	var out []string
	for _, s := range in {
		for _, d := range strings.Split(s, ",") {
			if d = strings.TrimSpace(d); d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}

// Dests lists the destinations in dial order.
func (f *Forwarder) Dests() []string { return f.dests }

// Send writes the sentence to every destination. Every destination is tried;
// the errors of those that failed are joined.
func (f *Forwarder) Send(sentence []byte) error {
	if len(sentence) == 0 {
		return nil
	}
	var errs []error
	for i, c := range f.conns {
		if _, err := c.Write(sentence); err != nil {
			f.dropped.Add(1)
			errs = append(errs, fmt.Errorf("udp: send to %s: %w", f.dests[i], err))
			continue
		}
		f.sent.Add(1)
	}
	return errors.Join(errs...)
}

// Stats returns datagrams sent and dropped so far.
func (f *Forwarder) Stats() (sent, dropped uint64) {
	return f.sent.Load(), f.dropped.Load()
}

func (f *Forwarder) Close() error {
	var errs []error
	for _, c := range f.conns {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	f.conns = nil
	return errors.Join(errs...)
}
