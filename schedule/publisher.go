package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
)

// Config configures a schedule publisher.
type Config struct {
	// Count finishes the stream after this many ticks. Zero means no limit.
	Count int

	// Now returns the current time (default: time.Now in UTC).
	Now func() time.Time

	// Logger receives lifecycle logs (default: slog.Default()).
	Logger *slog.Logger
}

// Publisher emits the activation time of a cron schedule to every current
// subscriber. Like a PassthroughSubject, subscribers without demand miss
// ticks. The stream finishes after Config.Count ticks or when stopped.
type Publisher struct {
	schedule cron.Schedule
	expr     string
	count    int
	now      func() time.Time
	logger   *slog.Logger
	subject  *petalstream.PassthroughSubject[time.Time]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New parses expr and creates a stopped publisher.
func New(expr string, cfg Config) (*Publisher, error) {
	s, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	p := NewFromSchedule(s, cfg)
	p.expr = expr
	return p, nil
}

// NewFromSchedule creates a stopped publisher for an already parsed schedule.
func NewFromSchedule(s cron.Schedule, cfg Config) *Publisher {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Publisher{
		schedule: s,
		count:    cfg.Count,
		now:      cfg.Now,
		logger:   cfg.Logger,
		subject:  petalstream.NewPassthroughSubject[time.Time](),
	}
}

// Subscribe implements core.Publisher.
func (p *Publisher) Subscribe(s core.Subscriber[time.Time]) {
	p.subject.Subscribe(s)
}

// Start begins ticking in the background. Starting a running publisher is a
// no-op.
func (p *Publisher) Start(ctx context.Context) error {
	if p == nil {
		return errors.New("schedule publisher is nil")
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.logger.Info("schedule started", "expr", p.expr, "count", p.count)
	go func() {
		defer close(done)
		p.run(loopCtx)
	}()
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	ticks := 0
	for {
		now := p.now()
		next := p.schedule.Next(now)
		if next.IsZero() {
			p.logger.Warn("schedule has no further activations", "expr", p.expr)
			p.subject.SendCompletion(core.Finished)
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.subject.SendCompletion(core.Finished)
			return
		case <-timer.C:
		}

		ticks++
		p.logger.Debug("schedule tick", "expr", p.expr, "tick", ticks, "at", next)
		p.subject.Send(next)
		if p.count > 0 && ticks >= p.count {
			p.subject.SendCompletion(core.Finished)
			return
		}
	}
}

// Stop stops ticking, finishes every subscriber and waits for the
// background goroutine or ctx, whichever comes first.
func (p *Publisher) Stop(ctx context.Context) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		p.logger.Info("schedule stopped", "expr", p.expr)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed once the publisher has finished, or nil if
// it was never started.
func (p *Publisher) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
