package daq

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/recoil.report/internal/monitoring"
)

// EventFunc receives each event decoded off the network. Implementations
// must serialise their own downstream access; the listener invokes the
// callback from a single goroutine, so handing events straight into the
// coincidence queue is safe.
type EventFunc func(*Event) error

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string        // listen address, e.g. ":2601"
	RcvBuf      int           // socket receive buffer; 0 keeps the OS default
	LogInterval time.Duration // stats logging cadence (default 1 minute)
	Handler     EventFunc
}

// UDPListener receives DAQ events as single-event datagrams from the
// frontends and hands them to a handler, one at a time.
type UDPListener struct {
	cfg  UDPListenerConfig
	conn *net.UDPConn

	datagrams uint64
	malformed uint64
}

// NewUDPListener creates a listener with the provided configuration.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	if cfg.LogInterval == 0 {
		cfg.LogInterval = time.Minute
	}
	return &UDPListener{cfg: cfg}
}

// Listen receives datagrams until the context is cancelled. Malformed
// datagrams are counted and skipped; handler errors stop the listener.
func (l *UDPListener) Listen(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", l.cfg.Address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", l.cfg.Address, err)
	}
	defer conn.Close()
	l.conn = conn

	if l.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(l.cfg.RcvBuf); err != nil {
			monitoring.Warnf("udp: could not set receive buffer to %d: %v", l.cfg.RcvBuf, err)
		}
	}
	monitoring.Logf("udp: listening on %s", conn.LocalAddr())

	buf := make([]byte, 1<<16)
	lastLog := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Short read deadline so cancellation is observed promptly.
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("udp read: %w", err)
		}
		l.datagrams++

		ev, err := DecodeDatagram(buf[:n])
		if err != nil {
			l.malformed++
			debugf("udp: dropping malformed datagram (%d bytes): %v", n, err)
			continue
		}
		if err := l.cfg.Handler(ev); err != nil {
			return err
		}

		if time.Since(lastLog) >= l.cfg.LogInterval {
			monitoring.Logf("udp: %d datagrams received, %d malformed", l.datagrams, l.malformed)
			lastLog = time.Now()
		}
	}
}
