package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

// PagerDuty Events API v2 payload.
type pagerDutyPayload struct {
	RoutingKey  string         `json:"routing_key"`
	EventAction string         `json:"event_action"`
	DedupKey    string         `json:"dedup_key"`
	Payload     pdEventPayload `json:"payload"`
}

type pdEventPayload struct {
	Summary       string            `json:"summary"`
	Source        string            `json:"source"`
	Severity      string            `json:"severity"`
	Timestamp     string            `json:"timestamp"`
	Component     string            `json:"component"`
	Group         string            `json:"group"`
	CustomDetails map[string]string `json:"custom_details"`
}

// BuildPagerDutyPayload formats a report as a PagerDuty Events v2 event.
// Active incidents trigger; every other disposition resolves the same dedup key.
func BuildPagerDutyPayload(report sla.Report) ([]byte, string, error) {
	inc := report.Incident
	action := "resolve"
	severity := "info"
	if inc.Disposition == incident.DispositionActive {
		action = "trigger"
		severity = "critical"
	} else if inc.Disposition == incident.DispositionResolvedNoData {
		severity = "warning"
	}

	payload := pagerDutyPayload{
		EventAction: action,
		DedupKey:    dedupKey(report),
		Payload: pdEventPayload{
			Summary:   fmt.Sprintf("[%s] entity %d incident %s (downtime=%ds)", inc.CheckType, inc.EntityID, inc.Disposition, report.Summary.DowntimeSec),
			Source:    fmt.Sprintf("entity-%d", inc.EntityID),
			Severity:  severity,
			Timestamp: time.Unix(inc.ProblemEvent.Clock, 0).UTC().Format("2006-01-02T15:04:05.000+0000"),
			Component: inc.CheckType,
			Group:     fmt.Sprintf("trigger-%d", inc.TriggerID),
			CustomDetails: map[string]string{
				"report_id":     report.ReportID,
				"event_id":      fmt.Sprintf("%d", inc.ProblemEvent.ID),
				"disposition":   string(inc.Disposition),
				"failed_cycles": fmt.Sprintf("%d", report.Summary.FailedCycles),
				"availability":  fmt.Sprintf("%.4f", report.Summary.Availability),
				"window":        fmt.Sprintf("%d-%d", inc.Window.From, inc.Window.To),
			},
		},
	}

	data, err := json.Marshal(payload)
	return data, "application/json", err
}
