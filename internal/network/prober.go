package network

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/i474232898/weather-client/internal/availability"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Prober stands in for a platform connectivity callback on hosts that have
// none: it dials addr periodically and pushes a status whenever it changes.
type Prober struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc
	logger   *slog.Logger
}

var _ availability.Source[Status] = (*Prober)(nil)

func NewProber(addr string, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &net.Dialer{}
	return &Prober{
		addr:     addr,
		interval: interval,
		timeout:  3 * time.Second,
		dial:     d.DialContext,
		logger:   logger.With("component", "network-prober"),
	}
}

// Subscribe starts probing. The first probe result is always pushed.
func (p *Prober) Subscribe(ctx context.Context) (<-chan Status, error) {
	out := make(chan Status)
	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last Status
		for {
			st := p.probe(ctx)
			if ctx.Err() != nil {
				return
			}
			if st != last {
				select {
				case out <- st:
					last = st
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}

func (p *Prober) probe(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		p.logger.Debug("probe failed", "addr", p.addr, "error", err)
		return StatusLost
	}
	_ = conn.Close()
	return StatusAvailable
}
