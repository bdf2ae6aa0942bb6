package probe

// Logger is the subset of echo.Logger (gommon/log) the engine writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Metrics receives round-trip events. internal/metrics provides the
// Prometheus implementation.
type Metrics interface {
	Published()
	PublishFailed()
	Inbound(matched bool)
	RoundTrip(status Status, attempts int)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

type nopMetrics struct{}

func (nopMetrics) Published()            {}
func (nopMetrics) PublishFailed()        {}
func (nopMetrics) Inbound(bool)          {}
func (nopMetrics) RoundTrip(Status, int) {}
