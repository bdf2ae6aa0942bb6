package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InboundResult is the outcome of handling one delivery.
type InboundResult struct {
	Success       bool      `json:"success"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Matched       bool      `json:"matched"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// InboundHandler processes messages the transport delivers back to us.
type InboundHandler struct {
	store   MessageStore
	state   *State
	log     Logger
	metrics Metrics
	now     func() time.Time
}

func NewInboundHandler(s MessageStore, st *State, l Logger, m Metrics) *InboundHandler {
	if l == nil {
		l = nopLogger{}
	}
	if m == nil {
		m = nopMetrics{}
	}
	if st == nil {
		st = NewState()
	}
	return &InboundHandler{store: s, state: st, log: l, metrics: m, now: time.Now}
}

// Handle accepts a pre-parsed message or a raw string/[]byte body. Bodies
// that are not JSON are kept as opaque strings. Every message is recorded;
// one that carries a correlationId also marks the matching pending entry.
func (h *InboundHandler) Handle(ctx context.Context, raw any, headers map[string]string) InboundResult {
	msg := h.parse(raw)
	correlationID := extractCorrelationID(msg)
	at := h.now()

	key := correlationID
	if key == "" {
		key = "uncorrelated-" + uuid.NewString()
		h.log.Infof("queue: received message without correlationId")
	} else {
		h.log.Infof("queue: received message with correlationId %s", correlationID)
	}

	entry := ReceivedEntry{Message: msg, ReceivedAt: at, Headers: headers}
	if err := h.store.RecordReceived(ctx, key, entry); err != nil {
		h.log.Errorf("queue: record received message: %v", err)
		return InboundResult{Success: false, CorrelationID: correlationID, Error: err.Error()}
	}

	matched := false
	if correlationID != "" {
		ok, err := h.store.MarkReceived(ctx, correlationID, at)
		if err != nil {
			h.log.Errorf("queue: mark %s received: %v", correlationID, err)
			return InboundResult{Success: false, CorrelationID: correlationID, Error: err.Error()}
		}
		if ok {
			matched = true
			h.log.Infof("queue: matched message with pending correlationId %s", correlationID)
		}
	}

	h.state.record(msg, at)
	h.metrics.Inbound(matched)
	return InboundResult{Success: true, CorrelationID: correlationID, Matched: matched, Timestamp: at}
}

func (h *InboundHandler) parse(raw any) any {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case json.RawMessage:
		text = string(v)
	default:
		return raw
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		h.log.Warnf("queue: could not parse message as JSON: %v", err)
		return text
	}
	return parsed
}

func extractCorrelationID(msg any) string {
	var v any
	switch m := msg.(type) {
	case map[string]any:
		v = m["correlationId"]
	case map[string]string:
		return m["correlationId"]
	default:
		return ""
	}
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
