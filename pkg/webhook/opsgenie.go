package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

// Opsgenie Alert API payload.
type opsgeniePayload struct {
	Message     string            `json:"message"`
	Alias       string            `json:"alias"`
	Description string            `json:"description"`
	Priority    string            `json:"priority"`
	Source      string            `json:"source"`
	Tags        []string          `json:"tags"`
	Details     map[string]string `json:"details"`
	Entity      string            `json:"entity"`
}

// BuildOpsgeniePayload formats a report as an Opsgenie alert.
func BuildOpsgeniePayload(report sla.Report) ([]byte, string, error) {
	inc := report.Incident
	priority := "P5"
	switch inc.Disposition {
	case incident.DispositionActive:
		priority = "P2"
		if report.Summary.Availability < 0.5 {
			priority = "P1"
		}
	case incident.DispositionResolvedNoData:
		priority = "P3"
	case incident.DispositionResolved:
		priority = "P4"
	}

	payload := opsgeniePayload{
		Message:  fmt.Sprintf("[%s] entity %d incident %s", inc.CheckType, inc.EntityID, inc.Disposition),
		Alias:    dedupKey(report),
		Priority: priority,
		Description: fmt.Sprintf("Window: %d-%d\nFailed cycles: %d\nDowntime: %ds\nAvailability: %.4f",
			inc.Window.From, inc.Window.To, report.Summary.FailedCycles, report.Summary.DowntimeSec, report.Summary.Availability),
		Source: "rsm-incident-toolkit",
		Tags:   []string{"rsm", inc.CheckType, string(inc.Disposition)},
		Details: map[string]string{
			"report_id":   report.ReportID,
			"entity_id":   fmt.Sprintf("%d", inc.EntityID),
			"trigger_id":  fmt.Sprintf("%d", inc.TriggerID),
			"event_id":    fmt.Sprintf("%d", inc.ProblemEvent.ID),
			"disposition": string(inc.Disposition),
		},
		Entity: fmt.Sprintf("entity-%d/%s", inc.EntityID, inc.CheckType),
	}

	data, err := json.Marshal(payload)
	return data, "application/json", err
}
