// Package resilience provides per-route circuit breaking and retry/backoff,
// adapted from gomind's resilience package (circuit_breaker.go, retry.go).
// The teacher's breaker tracks one named dependency per process; here a
// Manager keys a breaker per (integrationId, capability, backend) triple so
// each route's failure history is independent, per connectorcore's routing
// state machine.
package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/connectorcore/connectorcore/corekit"
)

// State is the circuit breaker's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Config tunes one breaker. Zero value is replaced by DefaultConfig's
// fields where unset.
type Config struct {
	ErrorThreshold   float64       // error rate (0..1) that trips the breaker
	VolumeThreshold  int           // minimum requests in the window before evaluating
	SleepWindow      time.Duration // how long Open is held before probing
	HalfOpenRequests int           // concurrent probe requests allowed while half-open
	WindowSize       time.Duration // sliding window duration for error-rate accounting
	BucketCount      int           // number of buckets the window is divided into
}

// DefaultConfig matches the defaults named in connectorcore's resilience
// enrichment: 50% error rate over a minimum of 10 requests opens the
// breaker for 30s before a single probe request is allowed through.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold:   0.5,
		VolumeThreshold:  10,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 1,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = d.ErrorThreshold
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = d.VolumeThreshold
	}
	if c.SleepWindow <= 0 {
		c.SleepWindow = d.SleepWindow
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = d.HalfOpenRequests
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.BucketCount <= 0 {
		c.BucketCount = d.BucketCount
	}
	return c
}

// bucket holds one slice of the sliding window.
type bucket struct {
	successes uint64
	failures  uint64
	startedAt time.Time
}

// slidingWindow is a fixed-bucket-count ring that ages out old buckets as
// time advances, the same rotate-on-read idiom as gomind's SlidingWindow.
type slidingWindow struct {
	mu          sync.Mutex
	buckets     []bucket
	bucketWidth time.Duration
	cursor      int
}

func newSlidingWindow(windowSize time.Duration, bucketCount int) *slidingWindow {
	now := time.Now()
	buckets := make([]bucket, bucketCount)
	for i := range buckets {
		buckets[i].startedAt = now
	}
	return &slidingWindow{
		buckets:     buckets,
		bucketWidth: windowSize / time.Duration(bucketCount),
	}
}

func (w *slidingWindow) rotate(now time.Time) {
	current := &w.buckets[w.cursor]
	if now.Sub(current.startedAt) < w.bucketWidth {
		return
	}
	elapsed := now.Sub(current.startedAt)
	steps := int(elapsed / w.bucketWidth)
	if steps > len(w.buckets) {
		steps = len(w.buckets)
	}
	for i := 0; i < steps; i++ {
		w.cursor = (w.cursor + 1) % len(w.buckets)
		w.buckets[w.cursor] = bucket{startedAt: now}
	}
}

func (w *slidingWindow) recordSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate(time.Now())
	w.buckets[w.cursor].successes++
}

func (w *slidingWindow) recordFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate(time.Now())
	w.buckets[w.cursor].failures++
}

func (w *slidingWindow) counts() (successes, failures uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotate(time.Now())
	for _, b := range w.buckets {
		successes += b.successes
		failures += b.failures
	}
	return
}

func (w *slidingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	for i := range w.buckets {
		w.buckets[i] = bucket{startedAt: now}
	}
}

// CircuitBreaker gates execution for one route. Construct with New.
type CircuitBreaker struct {
	name   string
	config Config
	logger corekit.Logger

	window *slidingWindow

	state          atomic.Int32
	stateChangedAt atomic.Value // time.Time
	halfOpenInUse  atomic.Int32
}

// New creates a breaker named name (typically "integrationId/capability/backend"),
// starting Closed.
func New(name string, config Config, logger corekit.Logger) *CircuitBreaker {
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	cb := &CircuitBreaker{
		name:   name,
		config: config.withDefaults(),
		logger: logger,
		window: newSlidingWindow(config.withDefaults().WindowSize, config.withDefaults().BucketCount),
	}
	cb.state.Store(int32(StateClosed))
	cb.stateChangedAt.Store(time.Now())
	return cb
}

func (cb *CircuitBreaker) currentState() State { return State(cb.state.Load()) }

func (cb *CircuitBreaker) stateChangedSince() time.Duration {
	t, _ := cb.stateChangedAt.Load().(time.Time)
	return time.Since(t)
}

func (cb *CircuitBreaker) transitionTo(next State) {
	prev := cb.currentState()
	if prev == next {
		return
	}
	cb.state.Store(int32(next))
	cb.stateChangedAt.Store(time.Now())
	if next == StateClosed {
		cb.window.reset()
		cb.halfOpenInUse.Store(0)
	}
	cb.logger.Info("circuit breaker state change", map[string]interface{}{
		"breaker": cb.name,
		"from":    prev.String(),
		"to":      next.String(),
	})
}

// Allow reports whether a request may proceed. Open breakers reject until
// SleepWindow has elapsed, after which the breaker moves to HalfOpen and
// admits up to HalfOpenRequests concurrent probes.
func (cb *CircuitBreaker) Allow() bool {
	switch cb.currentState() {
	case StateClosed:
		return true
	case StateOpen:
		if cb.stateChangedSince() < cb.config.SleepWindow {
			return false
		}
		cb.transitionTo(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenInUse.Add(1) <= int32(cb.config.HalfOpenRequests) {
			return true
		}
		cb.halfOpenInUse.Add(-1)
		return false
	default:
		return true
	}
}

// RecordSuccess registers a successful attempt and, if the breaker was
// probing in HalfOpen, closes it.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.window.recordSuccess()
	if cb.currentState() == StateHalfOpen {
		cb.transitionTo(StateClosed)
		return
	}
	cb.evaluate()
}

// RecordFailure registers a failed attempt. In HalfOpen, any failure reopens
// the breaker immediately; in Closed, the sliding window is evaluated
// against ErrorThreshold/VolumeThreshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.window.recordFailure()
	if cb.currentState() == StateHalfOpen {
		cb.transitionTo(StateOpen)
		return
	}
	cb.evaluate()
}

func (cb *CircuitBreaker) evaluate() {
	if cb.currentState() != StateClosed {
		return
	}
	successes, failures := cb.window.counts()
	total := successes + failures
	if total < uint64(cb.config.VolumeThreshold) {
		return
	}
	if float64(failures)/float64(total) >= cb.config.ErrorThreshold {
		cb.transitionTo(StateOpen)
	}
}

// State returns the breaker's current lifecycle state as a lowercase string.
func (cb *CircuitBreaker) State() string { return cb.currentState().String() }

// Manager lazily creates and caches one CircuitBreaker per route key.
type Manager struct {
	mu       sync.Mutex
	config   Config
	logger   corekit.Logger
	breakers map[string]*CircuitBreaker
}

// NewManager builds a Manager sharing one Config across every breaker it
// creates.
func NewManager(config Config, logger corekit.Logger) *Manager {
	return &Manager{config: config, logger: logger, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns (creating if necessary) the breaker for name.
func (m *Manager) Get(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[name]; ok {
		return cb
	}
	cb := New(name, m.config, m.logger)
	m.breakers[name] = cb
	return cb
}

// RouteKey builds the breaker name for one (integration, capability,
// backend) triple, per the per-route circuit breaker enrichment.
func RouteKey(integrationId corekit.IntegrationId, capability corekit.Capability, backend corekit.Backend) string {
	return string(integrationId) + "/" + string(capability) + "/" + string(backend)
}
