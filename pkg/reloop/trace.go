package reloop

import (
	"fmt"

	"github.com/l3aro/go-relooper/internal/log"
)

// TraceEvent records one classification decision. Events are only collected
// when Options.Debug is set.
type TraceEvent struct {
	Region  string    `json:"region"`
	ID      ShapeID   `json:"id,omitempty"`
	Blocks  []BlockID `json:"blocks,omitempty"`
	Entries []BlockID `json:"entries,omitempty"`
	Handled []BlockID `json:"handled,omitempty"`
	Exits   []BlockID `json:"exits,omitempty"`
	Fused   bool      `json:"fused,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

func (e TraceEvent) String() string {
	s := e.Region
	if e.ID != 0 {
		s += fmt.Sprintf(" L%d", e.ID)
	}
	if len(e.Blocks) > 0 {
		s += fmt.Sprintf(" blocks=%v", e.Blocks)
	}
	if len(e.Entries) > 0 {
		s += fmt.Sprintf(" entries=%v", e.Entries)
	}
	if len(e.Handled) > 0 {
		s += fmt.Sprintf(" handled=%v", e.Handled)
	}
	if len(e.Exits) > 0 {
		s += fmt.Sprintf(" exits=%v", e.Exits)
	}
	if e.Fused {
		s += " fused"
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

type tracer struct {
	enabled bool
	graph   string
	logger  log.Logger
	events  []TraceEvent
}

func (t *tracer) add(e TraceEvent) {
	if t == nil || !t.enabled {
		return
	}
	t.events = append(t.events, e)
	if t.logger != nil {
		t.logger.Debug("reloop", "graph", t.graph, "event", e.String())
	}
}

func (t *tracer) note(region string, id ShapeID, format string, args ...interface{}) {
	if t == nil || !t.enabled {
		return
	}
	t.add(TraceEvent{Region: region, ID: id, Detail: fmt.Sprintf(format, args...)})
}
