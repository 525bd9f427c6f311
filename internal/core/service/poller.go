package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/api/metrics"
)

// Poller periodically runs a task (polling substitutes for server push).
// Ticks execute on a single goroutine, so runs never overlap: a tick that
// fires while the previous run is still going is coalesced by the ticker.
// Pause suspends execution while the owning view is hidden.
type Poller struct {
	name     string
	interval time.Duration
	task     func(context.Context) error
	log      zerolog.Logger

	mu     sync.Mutex
	paused bool
	cancel context.CancelFunc
}

func NewPoller(name string, interval time.Duration, task func(context.Context) error, log zerolog.Logger) *Poller {
	return &Poller{name: name, interval: interval, task: task, log: log}
}

// Start launches the polling loop. The first run happens immediately.
// Calling Start twice restarts the loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(loopCtx)
}

// Stop ends the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Pause suspends ticks without stopping the loop.
func (p *Poller) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume re-enables ticks after Pause.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *Poller) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.isPaused() {
		metrics.PollTicksTotal.WithLabelValues(p.name, "paused").Inc()
		return
	}
	if err := p.task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.PollTicksTotal.WithLabelValues(p.name, "error").Inc()
		p.log.Warn().Err(err).Str("poller", p.name).Msg("poll tick failed")
		return
	}
	metrics.PollTicksTotal.WithLabelValues(p.name, "ok").Inc()
}
