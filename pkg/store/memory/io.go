package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// FixtureLine is one JSONL record. Kind selects which fields are read:
// "event" uses the event fields, "probe" uses clock/passed, "metric" uses clock/value.
type FixtureLine struct {
	Kind            string              `json:"kind"`
	EntityID        int64               `json:"entity_id"`
	TriggerID       int64               `json:"trigger_id,omitempty"`
	ID              int64               `json:"id,omitempty"`
	Clock           int64               `json:"clock"`
	EventValue      incident.EventValue `json:"event_value,omitempty"`
	IsFalsePositive bool                `json:"is_false_positive,omitempty"`
	Passed          bool                `json:"passed,omitempty"`
	Value           float64             `json:"value,omitempty"`
}

// LoadJSONL builds a Store from a fixtures file.
func LoadJSONL(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures file: %w", err)
	}
	defer file.Close()

	var (
		events  []TriggerEvent
		probes  = map[int64][]incident.ProbeSample{}
		metrics = map[int64][]incident.MetricSample{}
		lines   int
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines++
		var rec FixtureLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse fixture line %d: %w", lines, err)
		}
		switch rec.Kind {
		case "event":
			events = append(events, TriggerEvent{
				EntityID:  rec.EntityID,
				TriggerID: rec.TriggerID,
				Event: incident.Event{
					ID:              rec.ID,
					Clock:           rec.Clock,
					Value:           rec.EventValue,
					IsFalsePositive: rec.IsFalsePositive,
				},
			})
		case "probe":
			probes[rec.EntityID] = append(probes[rec.EntityID], incident.ProbeSample{Clock: rec.Clock, Passed: rec.Passed})
		case "metric":
			metrics[rec.EntityID] = append(metrics[rec.EntityID], incident.MetricSample{Clock: rec.Clock, Value: rec.Value})
		default:
			return nil, fmt.Errorf("fixture line %d: unknown kind %q", lines, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fixtures file: %w", err)
	}
	if lines == 0 {
		return nil, fmt.Errorf("no fixtures loaded from %s", path)
	}
	return NewStore(events, probes, metrics), nil
}
