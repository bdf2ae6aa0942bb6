package probe

import (
	"encoding/json"
	"sync"
	"time"
)

// Step is one entry of the diagnostics audit trail.
type Step struct {
	Name    string
	Elapsed time.Duration
	Fields  map[string]any
}

// MarshalJSON flattens Fields next to "step" and "timeMs".
func (s Step) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["step"] = s.Name
	out["timeMs"] = float64(s.Elapsed) / float64(time.Millisecond)
	return json.Marshal(out)
}

// Diagnostics is an append-only list of timestamped steps. It is safe for
// concurrent use.
type Diagnostics struct {
	mu    sync.Mutex
	steps []Step
}

func NewDiagnostics() *Diagnostics { return &Diagnostics{} }

// Add appends a step measured from start. Elapsed values are kept strictly
// increasing even when two steps land on the same clock reading.
func (d *Diagnostics) Add(name string, start time.Time, fields map[string]any) {
	elapsed := time.Since(start)
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.steps); n > 0 && elapsed <= d.steps[n-1].Elapsed {
		elapsed = d.steps[n-1].Elapsed + time.Nanosecond
	}
	d.steps = append(d.steps, Step{Name: name, Elapsed: elapsed, Fields: fields})
}

// Steps returns a copy of the recorded steps.
func (d *Diagnostics) Steps() []Step {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Step, len(d.steps))
	copy(out, d.steps)
	return out
}

// has reports whether a step with the given name was recorded.
func (d *Diagnostics) has(name string) bool {
	for _, s := range d.Steps() {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (d *Diagnostics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"steps": d.Steps()})
}
