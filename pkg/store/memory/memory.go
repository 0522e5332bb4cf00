package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// TriggerEvent is one event bound to an entity and trigger.
type TriggerEvent struct {
	EntityID  int64 `json:"entity_id"`
	TriggerID int64 `json:"trigger_id"`
	incident.Event
}

// Store is an immutable in-memory monitoring store. Build it with NewStore or
// LoadJSONL; it is safe for concurrent reads.
type Store struct {
	events  []TriggerEvent
	probes  map[int64][]incident.ProbeSample
	metrics map[int64][]incident.MetricSample
}

// NewStore copies and sorts the given series.
func NewStore(events []TriggerEvent, probes map[int64][]incident.ProbeSample, metrics map[int64][]incident.MetricSample) *Store {
	s := &Store{
		events:  append([]TriggerEvent(nil), events...),
		probes:  make(map[int64][]incident.ProbeSample, len(probes)),
		metrics: make(map[int64][]incident.MetricSample, len(metrics)),
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		if s.events[i].Clock != s.events[j].Clock {
			return s.events[i].Clock < s.events[j].Clock
		}
		return s.events[i].ID < s.events[j].ID
	})
	for entity, series := range probes {
		sorted := append([]incident.ProbeSample(nil), series...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Clock < sorted[j].Clock })
		s.probes[entity] = sorted
	}
	for entity, series := range metrics {
		sorted := append([]incident.MetricSample(nil), series...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Clock < sorted[j].Clock })
		s.metrics[entity] = sorted
	}
	return s
}

// TriggerKey identifies one trigger of one entity.
type TriggerKey struct {
	EntityID  int64
	TriggerID int64
}

// Triggers lists every trigger that has at least one problem event, ordered by entity then trigger.
func (s *Store) Triggers() []TriggerKey {
	seen := map[TriggerKey]bool{}
	var out []TriggerKey
	for _, ev := range s.events {
		key := TriggerKey{EntityID: ev.EntityID, TriggerID: ev.TriggerID}
		if ev.Value != incident.EventTrue || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].TriggerID < out[j].TriggerID
	})
	return out
}

// GetProblemAndResolution implements incident.EventStore.
func (s *Store) GetProblemAndResolution(_ context.Context, entityID, triggerID, eventID int64) (incident.Event, *incident.Event, error) {
	problemIdx := -1
	for i, ev := range s.events {
		if ev.EntityID != entityID || ev.TriggerID != triggerID || ev.Value != incident.EventTrue {
			continue
		}
		if eventID > 0 && ev.ID != eventID {
			continue
		}
		problemIdx = i
		if eventID > 0 {
			break
		}
	}
	if problemIdx < 0 {
		return incident.Event{}, nil, fmt.Errorf("problem event of trigger %d: %w", triggerID, incident.ErrNotFound)
	}
	problem := s.events[problemIdx].Event

	for _, ev := range s.events[problemIdx+1:] {
		if ev.EntityID != entityID || ev.TriggerID != triggerID {
			continue
		}
		if ev.Value == incident.EventFalse || ev.Value == incident.EventUnknown {
			resolution := ev.Event
			return problem, &resolution, nil
		}
	}
	return problem, nil, nil
}

// Probes returns a reader over the probe series.
func (s *Store) Probes() ProbeReader {
	return ProbeReader{store: s}
}

// Metrics returns a reader over the metric series.
func (s *Store) Metrics() MetricReader {
	return MetricReader{store: s}
}

// ProbeReader implements incident.ProbeSeriesReader.
type ProbeReader struct {
	store *Store
}

// Query returns probe samples inside window ordered by clock.
func (r ProbeReader) Query(_ context.Context, entityID int64, window incident.TimeWindow, failingOnly bool) ([]incident.ProbeSample, error) {
	series := r.store.probes[entityID]
	lo := sort.Search(len(series), func(i int) bool { return series[i].Clock >= window.From })
	out := make([]incident.ProbeSample, 0)
	for _, sample := range series[lo:] {
		if sample.Clock > window.To {
			break
		}
		if failingOnly && sample.Passed {
			continue
		}
		out = append(out, sample)
	}
	return out, nil
}

// MetricReader implements incident.MetricSeriesReader.
type MetricReader struct {
	store *Store
}

// Query returns metric samples inside window ordered by clock.
func (r MetricReader) Query(_ context.Context, entityID int64, window incident.TimeWindow) ([]incident.MetricSample, error) {
	series := r.store.metrics[entityID]
	lo := sort.Search(len(series), func(i int) bool { return series[i].Clock >= window.From })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Clock > window.To })
	if hi < lo {
		hi = lo
	}
	return append([]incident.MetricSample(nil), series[lo:hi]...), nil
}
