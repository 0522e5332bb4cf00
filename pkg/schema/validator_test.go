package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

func sampleIncident() incident.Incident {
	metric := 0.5
	end := incident.EventFalse
	return incident.Incident{
		EntityID:        7,
		TriggerID:       70,
		CheckType:       "dns",
		ProblemEvent:    incident.Event{ID: 1, Clock: 1000, Value: incident.EventTrue},
		ResolutionEvent: &incident.Event{ID: 2, Clock: 1200, Value: incident.EventFalse},
		Debounce:        incident.DebounceConfig{FailCount: 2, RecoveryCount: 3, DelaySeconds: 60},
		Natural:         incident.TimeWindow{From: 880, To: 1380},
		Window:          incident.TimeWindow{From: 880, To: 1380},
		MetricWindow:    incident.TimeWindow{From: 880, To: 1380},
		Disposition:     incident.DispositionResolved,
		EndValue:        incident.EventFalse,
		TotalProbes:     2,
		Rows: []incident.TimelineRow{
			{Clock: 1000, Passed: false, Result: "Down", MetricValue: &metric, IsStart: true},
			{Clock: 1200, Passed: true, Result: "Up", IsEnd: true, EndValue: &end},
		},
	}
}

func TestValidateIncident(t *testing.T) {
	if err := ValidateIncident(sampleIncident()); err != nil {
		t.Fatalf("schema validation failed: %v", err)
	}
}

func TestValidateActivePagedIncident(t *testing.T) {
	inc := sampleIncident()
	inc.ResolutionEvent = nil
	inc.Disposition = incident.DispositionActive
	inc.Page = &incident.PageSpec{Offset: 0, Limit: 50}
	inc.Rows = []incident.TimelineRow{}
	if err := ValidateIncident(inc); err != nil {
		t.Fatalf("schema validation failed: %v", err)
	}
}

func TestValidateIncidentRejectsUnknownDisposition(t *testing.T) {
	inc := sampleIncident()
	inc.Disposition = "flapping"
	if err := ValidateIncident(inc); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestValidateAgainstSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incident.schema.json")
	if err := os.WriteFile(path, IncidentSchema(), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	if err := ValidateAgainstSchema(path, sampleIncident()); err != nil {
		t.Fatalf("schema validation failed: %v", err)
	}
	if err := ValidateAgainstSchema(filepath.Join(t.TempDir(), "missing.json"), sampleIncident()); err == nil {
		t.Fatal("expected missing schema error")
	}
}
