package incident

import "fmt"

// EventValue is the trigger state carried by one event.
type EventValue int

const (
	// EventFalse means the condition recovered (service OK).
	EventFalse EventValue = 0
	// EventTrue means the condition fired (service failing).
	EventTrue EventValue = 1
	// EventUnknown means the trigger could not be evaluated (no data).
	EventUnknown EventValue = 2
)

// String returns the lowercase name used in JSON documents.
func (v EventValue) String() string {
	switch v {
	case EventFalse:
		return "false"
	case EventTrue:
		return "true"
	case EventUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// MarshalText encodes the value by name.
func (v EventValue) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a value name produced by MarshalText.
func (v *EventValue) UnmarshalText(text []byte) error {
	switch string(text) {
	case "false", "ok":
		*v = EventFalse
	case "true", "problem":
		*v = EventTrue
	case "unknown":
		*v = EventUnknown
	default:
		return fmt.Errorf("unknown event value %q", string(text))
	}
	return nil
}

// Event is one trigger state change recorded by the monitoring engine.
type Event struct {
	ID              int64      `json:"id"`
	Clock           int64      `json:"clock"`
	Value           EventValue `json:"value"`
	IsFalsePositive bool       `json:"is_false_positive"`
}

// DebounceConfig holds the consecutive-cycle thresholds of one check type.
type DebounceConfig struct {
	FailCount     uint `json:"fail_count" yaml:"fail_count"`
	RecoveryCount uint `json:"recovery_count" yaml:"recovery_count"`
	DelaySeconds  uint `json:"delay_seconds" yaml:"delay_seconds"`
}

// Backoff is the distance from the problem event back to the first failing cycle.
func (c DebounceConfig) Backoff() int64 {
	return int64(c.FailCount) * int64(c.DelaySeconds)
}

// Forwardoff is the distance from the resolution event to the last recovering cycle.
func (c DebounceConfig) Forwardoff() int64 {
	return int64(c.RecoveryCount) * int64(c.DelaySeconds)
}

// TimeWindow is a closed range of Unix seconds.
type TimeWindow struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Valid reports whether From <= To.
func (w TimeWindow) Valid() bool {
	return w.From <= w.To
}

// Duration returns To-From in seconds.
func (w TimeWindow) Duration() int64 {
	return w.To - w.From
}

// ProbeSample is one raw probe cycle result.
type ProbeSample struct {
	Clock  int64 `json:"clock"`
	Passed bool  `json:"passed"`
}

// MetricSample is one derived-metric observation, e.g. a rolling availability percentage.
type MetricSample struct {
	Clock int64   `json:"clock"`
	Value float64 `json:"value"`
}

// TimelineRow is one presentation-ready row of the incident timeline.
type TimelineRow struct {
	Clock       int64       `json:"clock"`
	Passed      bool        `json:"passed"`
	Result      string      `json:"result"`
	MetricValue *float64    `json:"metric_value"`
	IsStart     bool        `json:"is_start"`
	IsEnd       bool        `json:"is_end"`
	EndValue    *EventValue `json:"end_value"`
}

// Disposition is the incident outcome derived from its two events.
type Disposition string

const (
	DispositionFalsePositive  Disposition = "false_positive"
	DispositionResolved       Disposition = "resolved"
	DispositionResolvedNoData Disposition = "resolved_no_data"
	DispositionActive         Disposition = "active"
)

// PageSpec selects one page of probe rows.
type PageSpec struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Incident is the reconstructed incident-detail document.
type Incident struct {
	EntityID        int64          `json:"entity_id"`
	TriggerID       int64          `json:"trigger_id"`
	CheckType       string         `json:"check_type"`
	ProblemEvent    Event          `json:"problem_event"`
	ResolutionEvent *Event         `json:"resolution_event"`
	Debounce        DebounceConfig `json:"debounce"`
	Natural         TimeWindow     `json:"natural_window"`
	Window          TimeWindow     `json:"window"`
	MetricWindow    TimeWindow     `json:"metric_window"`
	Disposition     Disposition    `json:"disposition"`
	EndValue        EventValue     `json:"end_value"`
	TotalProbes     int            `json:"total_probes"`
	Page            *PageSpec      `json:"page"`
	Rows            []TimelineRow  `json:"rows"`
}
