package probe

import (
	"context"
	"fmt"
	"time"
)

// Status is the overall outcome of a queue health check.
type Status string

const (
	StatusOK      Status = "OK"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Default tuning, overridable by configuration and per request.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultCheckInterval   = 500 * time.Millisecond
	DefaultRetention       = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Options tunes one health-check run. A non-positive Timeout means a single
// immediate check.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
	// CancelOnDone stops waiting when the caller's context ends. By default
	// the wait runs to its own timeout.
	CancelOnDone bool
}

// QueueTest is the queue section of a Report.
type QueueTest struct {
	MessagePublished    bool           `json:"messagePublished"`
	MessageID           string         `json:"messageId,omitempty"`
	CorrelationID       string         `json:"correlationId,omitempty"`
	MessageReceived     bool           `json:"messageReceived"`
	ReceivedMessage     *ReceivedEntry `json:"receivedMessage,omitempty"`
	Attempts            int            `json:"attempts"`
	MaxAttempts         int            `json:"maxAttempts"`
	Timeout             bool           `json:"timeout"`
	ConfiguredTimeoutMs int64          `json:"configuredTimeoutMs"`
	CheckIntervalMs     int64          `json:"checkIntervalMs"`
	Error               string         `json:"error,omitempty"`
}

// Report is what the HTTP layer renders for a queue health check.
type Report struct {
	Status    Status    `json:"status"`
	QueueTest QueueTest `json:"queueTest"`
}

// Config wires an Engine.
type Config struct {
	Store     MessageStore
	Transport Transport
	Logger    Logger
	Metrics   Metrics
	Defaults  Options
}

// Engine composes the publisher, inbound handler and waiter around one
// store and one State.
type Engine struct {
	Publisher *Publisher
	Inbound   *InboundHandler
	Waiter    *Waiter

	store    MessageStore
	state    *State
	log      Logger
	metrics  Metrics
	defaults Options
}

func NewEngine(cfg Config) *Engine {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Defaults.Interval <= 0 {
		cfg.Defaults.Interval = DefaultCheckInterval
	}
	state := NewState()
	return &Engine{
		Publisher: NewPublisher(cfg.Transport, cfg.Store, cfg.Logger, cfg.Metrics),
		Inbound:   NewInboundHandler(cfg.Store, state, cfg.Logger, cfg.Metrics),
		Waiter:    NewWaiter(cfg.Store),
		store:     cfg.Store,
		state:     state,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		defaults:  cfg.Defaults,
	}
}

// Defaults returns the configured run options.
func (e *Engine) Defaults() Options { return e.defaults }

// Store returns the message store shared by all components.
func (e *Engine) Store() MessageStore { return e.store }

// Run publishes a test message and waits for its echo. A publish failure or
// any fault is FAILED, a timeout is PARTIAL, a confirmed echo is OK. Each
// step is appended to diag relative to start.
func (e *Engine) Run(ctx context.Context, opts Options, diag *Diagnostics, start time.Time) (report Report) {
	if diag == nil {
		diag = NewDiagnostics()
	}
	if !opts.CancelOnDone {
		ctx = context.WithoutCancel(ctx)
	}
	base := QueueTest{
		MaxAttempts:         MaxAttempts(opts.Timeout, opts.Interval),
		ConfiguredTimeoutMs: opts.Timeout.Milliseconds(),
		CheckIntervalMs:     opts.Interval.Milliseconds(),
	}

	defer func() {
		if r := recover(); r != nil {
			report = e.fault(diag, start, base, fmt.Errorf("panic: %v", r))
		}
		e.metrics.RoundTrip(report.Status, report.QueueTest.Attempts)
	}()

	diag.Add("queue-publish-start", start, nil)
	pub := e.Publisher.Publish(ctx, map[string]any{
		"content": "This is a health check message",
		"testId":  fmt.Sprintf("health-%d", time.Now().UnixMilli()),
	}, "")
	if !pub.Success {
		diag.Add("queue-publish-failed", start, map[string]any{"error": pub.Error})
		qt := base
		qt.CorrelationID = pub.CorrelationID
		qt.Error = pub.Error
		return Report{Status: StatusFailed, QueueTest: qt}
	}

	qt := base
	qt.MessagePublished = true
	qt.MessageID = pub.MessageID
	qt.CorrelationID = pub.CorrelationID
	diag.Add("queue-publish-complete", start, map[string]any{
		"messageId":     pub.MessageID,
		"correlationId": pub.CorrelationID,
	})

	e.log.Infof("queue: waiting for message (correlationId %s)", pub.CorrelationID)
	diag.Add("queue-waiting-start", start, nil)
	res, err := e.Waiter.Wait(ctx, pub.CorrelationID, WaitOptions{Timeout: opts.Timeout, Interval: opts.Interval})
	if err != nil {
		qt.Attempts = res.Attempts
		return e.fault(diag, start, qt, err)
	}
	diag.Add("queue-waiting-complete", start, map[string]any{
		"attempts": res.Attempts,
		"received": res.Received,
		"waitedMs": int64(res.Attempts) * opts.Interval.Milliseconds(),
	})

	qt.Attempts = res.Attempts
	qt.Timeout = res.Timeout
	qt.MessageReceived = res.Received
	if !res.Received {
		e.log.Warnf("queue: message %s not received within %s (%d attempts)", pub.CorrelationID, opts.Timeout, res.Attempts)
		return Report{Status: StatusPartial, QueueTest: qt}
	}

	e.log.Infof("queue: message %s received after %d attempts", pub.CorrelationID, res.Attempts)
	if entry, ok, err := e.store.Received(ctx, pub.CorrelationID); err == nil && ok {
		qt.ReceivedMessage = &entry
	}
	return Report{Status: StatusOK, QueueTest: qt}
}

func (e *Engine) fault(diag *Diagnostics, start time.Time, qt QueueTest, err error) Report {
	e.log.Errorf("queue: health check failed: %v", err)
	diag.Add("queue-health-error", start, map[string]any{"error": err.Error()})
	qt.Error = err.Error()
	return Report{Status: StatusFailed, QueueTest: qt}
}

// QueueStatus reports store sizes and the last inbound message.
func (e *Engine) QueueStatus(ctx context.Context) (QueueStatus, error) {
	pending, received, err := e.store.Counts(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	last, got := e.state.snapshot()
	return QueueStatus{
		PendingCount:    pending,
		ReceivedCount:   received,
		LastReceived:    last,
		MessageReceived: got,
	}, nil
}
