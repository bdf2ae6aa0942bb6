package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicTransport struct{}

func (panicTransport) Send(context.Context, string) (string, error) { panic("boom") }

type recordingMetrics struct {
	mu       sync.Mutex
	statuses []Status
}

func (m *recordingMetrics) Published()     {}
func (m *recordingMetrics) PublishFailed() {}
func (m *recordingMetrics) Inbound(bool)   {}
func (m *recordingMetrics) RoundTrip(s Status, _ int) {
	m.mu.Lock()
	m.statuses = append(m.statuses, s)
	m.mu.Unlock()
}

func stepNames(d *Diagnostics) []string {
	var names []string
	for _, s := range d.Steps() {
		names = append(names, s.Name)
	}
	return names
}

func assertIncreasing(t *testing.T, d *Diagnostics) {
	t.Helper()
	steps := d.Steps()
	for i := 1; i < len(steps); i++ {
		assert.Greater(t, steps[i].Elapsed, steps[i-1].Elapsed, "step %s", steps[i].Name)
	}
}

func TestEngine_RunOK(t *testing.T) {
	tr := &fakeTransport{}
	e := NewEngine(Config{Transport: tr})
	tr.onSend = func(content string) {
		time.AfterFunc(300*time.Millisecond, func() {
			e.Inbound.Handle(context.Background(), content, nil)
		})
	}

	diag := NewDiagnostics()
	rep := e.Run(context.Background(), Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, diag, time.Now())

	assert.Equal(t, StatusOK, rep.Status)
	assert.True(t, rep.QueueTest.MessagePublished)
	assert.True(t, rep.QueueTest.MessageReceived)
	assert.GreaterOrEqual(t, rep.QueueTest.Attempts, 3)
	assert.LessOrEqual(t, rep.QueueTest.Attempts, 4)
	assert.Equal(t, 10, rep.QueueTest.MaxAttempts)
	assert.Equal(t, int64(1000), rep.QueueTest.ConfiguredTimeoutMs)
	assert.Equal(t, int64(100), rep.QueueTest.CheckIntervalMs)
	require.NotNil(t, rep.QueueTest.ReceivedMessage)
	assert.Equal(t, []string{
		"queue-publish-start",
		"queue-publish-complete",
		"queue-waiting-start",
		"queue-waiting-complete",
	}, stepNames(diag))
	assertIncreasing(t, diag)
}

func TestEngine_RunPartial(t *testing.T) {
	m := &recordingMetrics{}
	e := NewEngine(Config{Transport: &fakeTransport{}, Metrics: m})
	diag := NewDiagnostics()
	rep := e.Run(context.Background(), Options{Timeout: time.Second, Interval: 100 * time.Millisecond}, diag, time.Now())

	assert.Equal(t, StatusPartial, rep.Status)
	assert.True(t, rep.QueueTest.MessagePublished)
	assert.False(t, rep.QueueTest.MessageReceived)
	assert.True(t, rep.QueueTest.Timeout)
	assert.Equal(t, 10, rep.QueueTest.Attempts)
	assert.Nil(t, rep.QueueTest.ReceivedMessage)
	assertIncreasing(t, diag)
	assert.Equal(t, []Status{StatusPartial}, m.statuses)
}

func TestEngine_RunPublishFailed(t *testing.T) {
	e := NewEngine(Config{Transport: &fakeTransport{err: errors.New("send failed")}})
	diag := NewDiagnostics()
	rep := e.Run(context.Background(), e.Defaults(), diag, time.Now())

	assert.Equal(t, StatusFailed, rep.Status)
	assert.False(t, rep.QueueTest.MessagePublished)
	assert.Equal(t, "send failed", rep.QueueTest.Error)
	assert.NotEmpty(t, rep.QueueTest.CorrelationID)
	assert.True(t, diag.has("queue-publish-failed"))
	assert.False(t, diag.has("queue-waiting-start"))
}

func TestEngine_RunRecoversPanic(t *testing.T) {
	e := NewEngine(Config{Transport: panicTransport{}})
	diag := NewDiagnostics()
	rep := e.Run(context.Background(), e.Defaults(), diag, time.Now())

	assert.Equal(t, StatusFailed, rep.Status)
	assert.Contains(t, rep.QueueTest.Error, "boom")
	assert.True(t, diag.has("queue-health-error"))
	assertIncreasing(t, diag)
}

func TestEngine_RunInvalidInterval(t *testing.T) {
	e := NewEngine(Config{Transport: &fakeTransport{}})
	diag := NewDiagnostics()
	rep := e.Run(context.Background(), Options{Timeout: time.Second}, diag, time.Now())

	assert.Equal(t, StatusFailed, rep.Status)
	assert.True(t, rep.QueueTest.MessagePublished)
	assert.Equal(t, ErrInvalidInterval.Error(), rep.QueueTest.Error)
}

func TestEngine_RunIgnoresCallerCancelByDefault(t *testing.T) {
	e := NewEngine(Config{Transport: &fakeTransport{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := e.Run(ctx, Options{Timeout: 30 * time.Millisecond, Interval: 10 * time.Millisecond}, nil, time.Now())
	assert.Equal(t, StatusPartial, rep.Status)
	assert.Equal(t, 3, rep.QueueTest.Attempts)

	rep = e.Run(ctx, Options{Timeout: 30 * time.Millisecond, Interval: 10 * time.Millisecond, CancelOnDone: true}, nil, time.Now())
	assert.Equal(t, StatusFailed, rep.Status)
}

func TestEngine_ZeroDefaultTimeoutChecksOnce(t *testing.T) {
	e := NewEngine(Config{Transport: &fakeTransport{}, Defaults: Options{Interval: 10 * time.Millisecond}})
	assert.Zero(t, e.Defaults().Timeout)

	rep := e.Run(context.Background(), e.Defaults(), nil, time.Now())
	assert.Equal(t, StatusPartial, rep.Status)
	assert.Equal(t, 1, rep.QueueTest.Attempts)
	assert.Equal(t, 0, rep.QueueTest.MaxAttempts)
	assert.True(t, rep.QueueTest.Timeout)
}

func TestEngine_QueueStatus(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(Config{Transport: &fakeTransport{}})

	st, err := e.QueueStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.MessageReceived)
	assert.Nil(t, st.LastReceived.Timestamp)

	pub := e.Publisher.Publish(ctx, nil, "")
	require.True(t, pub.Success)
	e.Inbound.Handle(ctx, map[string]any{"correlationId": pub.CorrelationID}, nil)

	st, err = e.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PendingCount)
	assert.Equal(t, 1, st.ReceivedCount)
	assert.True(t, st.MessageReceived)
	require.NotNil(t, st.LastReceived.Timestamp)
}
