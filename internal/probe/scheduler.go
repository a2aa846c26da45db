package probe

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// minTick keeps the scheduler from spinning on tiny interval divisors.
const minTick = time.Second

// Target is one endpoint to probe.
type Target struct {
	Name string
	Request

	// Interval overrides the scheduler's default interval when non-zero.
	Interval time.Duration

	// Extractor maps responses to a state. Nil means [HTTPStatus].
	Extractor Extractor
}

// Result is the outcome of one probe.
type Result struct {
	Target     string
	State      string
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time
	Err        error
}

// Scheduler probes targets periodically with a bounded worker pool.
//
// Every target is probed once immediately on [Scheduler.Start]. After that
// the scheduler ticks at the greatest common divisor of all target
// intervals (at least one second) and probes the targets that are due.
//
// Start and Stop are safe for concurrent use.
type Scheduler struct {
	targets        []Target
	interval       time.Duration
	maxConcurrency int
	client         *Client
	results        chan Result
	logger         *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	lastProbed map[string]time.Time
}

// NewScheduler creates a [Scheduler]. interval is the default for targets
// without their own; maxConcurrency below one is treated as one.
func NewScheduler(targets []Target, interval time.Duration, maxConcurrency int, logger *slog.Logger) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Scheduler{
		targets:        targets,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		client:         NewClient(),
		results:        make(chan Result, len(targets)),
		logger:         logger,
		lastProbed:     make(map[string]time.Time, len(targets)),
	}
}

// Results returns the channel probe results are delivered on. It is closed
// once the scheduler has stopped.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start launches the probe loop and returns immediately. Subsequent calls,
// and calls after [Scheduler.Stop], are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()

	tick := s.tickInterval()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.probeDue(ctx, true)

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.probeDue(ctx, false)
			}
		}
	}()
}

// Stop cancels the probe loop, waits for in-flight probes and closes the
// results channel. Idempotent; safe before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.client.Close()
	s.closeOnce.Do(func() { close(s.results) })
}

func (s *Scheduler) intervalOf(t Target) time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return s.interval
}

// tickInterval is the GCD of all target intervals, floored at minTick.
func (s *Scheduler) tickInterval() time.Duration {
	if len(s.targets) == 0 {
		return max(s.interval, minTick)
	}

	tick := s.intervalOf(s.targets[0])
	for _, t := range s.targets[1:] {
		tick = gcd(tick, s.intervalOf(t))
	}
	return max(tick, minTick)
}

func gcd(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// probeDue probes every target whose interval has elapsed, or all targets
// when all is set. The due time is recorded when a probe starts.
func (s *Scheduler) probeDue(ctx context.Context, all bool) {
	now := time.Now()
	due := make([]Target, 0, len(s.targets))

	s.mu.Lock()
	for _, t := range s.targets {
		last, seen := s.lastProbed[t.Name]
		if all || !seen || now.Sub(last) >= s.intervalOf(t) {
			due = append(due, t)
			s.lastProbed[t.Name] = now
		}
	}
	s.mu.Unlock()

	if len(due) > 0 {
		s.probeAll(ctx, due)
	}
}

func (s *Scheduler) probeAll(ctx context.Context, targets []Target) {
	jobs := make(chan Target)

	var wg sync.WaitGroup
	for i := 0; i < min(s.maxConcurrency, len(targets)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				result := s.probe(ctx, t)
				select {
				case s.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	defer wg.Wait()
	defer close(jobs)

	for _, t := range targets {
		select {
		case jobs <- t:
		case <-ctx.Done():
			return
		}
	}
}

// probe performs one request and derives its state.
func (s *Scheduler) probe(ctx context.Context, t Target) Result {
	resp := s.client.Do(ctx, t.Request)

	result := Result{
		Target:     t.Name,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
		Err:        resp.Err,
	}

	if resp.Err != nil {
		result.State = StateDown
		return result
	}

	extractor := t.Extractor
	if extractor == nil {
		extractor = HTTPStatus
	}
	result.State, result.Err = s.safeExtract(extractor, resp.Body, resp.StatusCode)
	return result
}

// safeExtract recovers extractor panics, logging the stack under a
// correlation id that is also returned in the error.
func (s *Scheduler) safeExtract(extract Extractor, body []byte, statusCode int) (state string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id := uuid.NewString()
			s.logger.Error("extractor panic",
				"correlation_id", id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			state = StateDown
			err = fmt.Errorf("extractor panic (correlation_id: %s)", id)
		}
	}()
	return extract(body, statusCode), nil
}
