package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundHandler_MatchesPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.RegisterPending(ctx, "c1", "m1", "{}"))
	h := NewInboundHandler(store, nil, nil, nil)

	res := h.Handle(ctx, `{"correlationId":"c1","content":"hi"}`, map[string]string{"X-Test": "1"})
	require.True(t, res.Success)
	assert.Equal(t, "c1", res.CorrelationID)
	assert.True(t, res.Matched)

	ok, _ := store.IsReceived(ctx, "c1")
	assert.True(t, ok)

	entry, found, _ := store.Received(ctx, "c1")
	require.True(t, found)
	assert.Equal(t, "1", entry.Headers["X-Test"])
	assert.Equal(t, "hi", entry.Message.(map[string]any)["content"])

	p, _ := store.pendingEntry("c1")
	assert.False(t, p.ReceivedAt.After(entry.ReceivedAt))
}

func TestInboundHandler_PreParsedAndBytes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	h := NewInboundHandler(store, nil, nil, nil)

	res := h.Handle(ctx, map[string]any{"correlationId": "pre"}, nil)
	assert.True(t, res.Success)
	assert.Equal(t, "pre", res.CorrelationID)
	assert.False(t, res.Matched)

	res = h.Handle(ctx, []byte(`{"correlationId":"raw"}`), nil)
	assert.Equal(t, "raw", res.CorrelationID)

	res = h.Handle(ctx, map[string]string{"correlationId": "flat"}, nil)
	assert.Equal(t, "flat", res.CorrelationID)

	for _, id := range []string{"pre", "raw", "flat"} {
		_, ok, _ := store.Received(ctx, id)
		assert.True(t, ok, id)
	}
}

func TestInboundHandler_MatchesFlatStringMap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.RegisterPending(ctx, "abc", "m1", "{}"))
	h := NewInboundHandler(store, nil, nil, nil)

	res := h.Handle(ctx, map[string]string{"correlationId": "abc"}, nil)
	assert.Equal(t, "abc", res.CorrelationID)
	assert.True(t, res.Matched)
	ok, _ := store.IsReceived(ctx, "abc")
	assert.True(t, ok)
}

func TestInboundHandler_OpaqueMessage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	state := NewState()
	h := NewInboundHandler(store, state, nil, nil)

	res := h.Handle(ctx, "not json", nil)
	require.True(t, res.Success)
	assert.Empty(t, res.CorrelationID)

	_, received, _ := store.Counts(ctx)
	assert.Equal(t, 1, received)

	last, got := state.snapshot()
	assert.True(t, got)
	assert.Equal(t, "not json", last.Message)
	require.NotNil(t, last.Timestamp)
}

func TestInboundHandler_UncorrelatedMessagesAreKeptApart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	h := NewInboundHandler(store, nil, nil, nil)

	h.Handle(ctx, `{"content":"a"}`, nil)
	h.Handle(ctx, `{"content":"b"}`, nil)

	_, received, _ := store.Counts(ctx)
	assert.Equal(t, 2, received)
}
