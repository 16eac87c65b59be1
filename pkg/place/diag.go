package place

import "fmt"

// Diagnostic codes reported while resolving placements.
const (
	// DiagPartNotInStack: a placed part has no stack entry and was dropped.
	// Emitted once per distinct part name.
	DiagPartNotInStack = "part-not-in-stack"
	// DiagUnusedStackEntry: a stack entry matched no placed part. This is
	// informational; loaded but unplaced reels are not an error.
	DiagUnusedStackEntry = "unused-stack-entry"
)

// Level classifies a diagnostic event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

// Event is one diagnostic produced during resolution. Events are collected
// and returned with the result; library code never prints.
type Event struct {
	Level   Level
	Code    string
	Part    string
	Message string
}

// Report accumulates the diagnostics of one resolution run.
type Report struct {
	RunID  string // set by the caller to identify the run
	Layer  Layer  // the layer this run resolved (explicit or auto-detected)
	Events []Event
}

func (r *Report) warnf(code, part, format string, args ...any) {
	r.Events = append(r.Events, Event{
		Level: LevelWarning, Code: code, Part: part,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Report) infof(code, part, format string, args ...any) {
	r.Events = append(r.Events, Event{
		Level: LevelInfo, Code: code, Part: part,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnings returns the warning-level events.
func (r *Report) Warnings() []Event { return r.filter(LevelWarning) }

// Notices returns the info-level events.
func (r *Report) Notices() []Event { return r.filter(LevelInfo) }

func (r *Report) filter(level Level) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
