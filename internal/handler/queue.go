package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/queue-health-probe/internal/probe"
)

// maxInboundBody caps the size of an inbound delivery callback.
const maxInboundBody = 1 << 20

// DefaultMaxTimeout bounds the timeoutMs and intervalMs overrides.
const DefaultMaxTimeout = time.Minute

// QueueHandler serves the queue round-trip probe and the inbound delivery callback.
type QueueHandler struct {
	Engine *probe.Engine
	// MaxTimeout is the largest timeoutMs or intervalMs a request may ask for.
	MaxTimeout time.Duration
}

func NewQueueHandler(e *probe.Engine) *QueueHandler {
	if e == nil {
		panic("nil engine passed to NewQueueHandler")
	}
	return &QueueHandler{Engine: e, MaxTimeout: DefaultMaxTimeout}
}

type queueCheckResp struct {
	Status      probe.Status       `json:"status"`
	QueueTest   probe.QueueTest    `json:"queueTest"`
	Diagnostics *probe.Diagnostics `json:"diagnostics"`
	Timestamp   time.Time          `json:"timestamp"`
	DurationMs  int64              `json:"durationMs"`
}

// Check runs one publish/wait cycle. timeoutMs and intervalMs (or
// checkIntervalMs) query parameters override the configured defaults and
// may not exceed MaxTimeout. FAILED maps to 500; OK and PARTIAL both answer
// 200 and are told apart by the status field.
func (h *QueueHandler) Check(c echo.Context) error {
	start := time.Now()
	opts := h.Engine.Defaults()
	maxMs := h.maxTimeout().Milliseconds()

	if v := c.QueryParam("timeoutMs"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n > maxMs {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "timeoutMs must be an integer no greater than " + strconv.FormatInt(maxMs, 10),
			})
		}
		if n < 0 {
			n = 0 // any non-positive timeout means one immediate check
		}
		opts.Timeout = time.Duration(n) * time.Millisecond
	}
	v := c.QueryParam("intervalMs")
	if v == "" {
		v = c.QueryParam("checkIntervalMs")
	}
	if v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > maxMs {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "intervalMs must be a positive integer no greater than " + strconv.FormatInt(maxMs, 10),
			})
		}
		opts.Interval = time.Duration(n) * time.Millisecond
	}

	diag := probe.NewDiagnostics()
	rep := h.Engine.Run(c.Request().Context(), opts, diag, start)

	code := http.StatusOK
	if rep.Status == probe.StatusFailed {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, queueCheckResp{
		Status:      rep.Status,
		QueueTest:   rep.QueueTest,
		Diagnostics: diag,
		Timestamp:   start.UTC(),
		DurationMs:  time.Since(start).Milliseconds(),
	})
}

func (h *QueueHandler) maxTimeout() time.Duration {
	if h.MaxTimeout <= 0 {
		return DefaultMaxTimeout
	}
	return h.MaxTimeout
}

// Status returns store sizes and the last inbound message.
func (h *QueueHandler) Status(c echo.Context) error {
	st, err := h.Engine.QueueStatus(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("queue status: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "message store unavailable"})
	}
	return c.JSON(http.StatusOK, st)
}

// Inbound is the delivery callback the hosting platform invokes with a
// queue message. The raw body goes to the inbound handler untouched.
func (h *QueueHandler) Inbound(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxInboundBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	res := h.Engine.Inbound.Handle(c.Request().Context(), body, flattenHeaders(c.Request().Header))
	if !res.Success {
		return c.JSON(http.StatusBadRequest, res)
	}
	return c.JSON(http.StatusOK, res)
}

// flattenHeaders keeps the first value of each header under a lower-cased
// name. Authorization is dropped so tokens never land in the store.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 || strings.EqualFold(k, "Authorization") {
			continue
		}
		out[strings.ToLower(k)] = v[0]
	}
	return out
}
