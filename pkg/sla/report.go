package sla

import (
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// Report is the exportable envelope of one reconstructed incident.
type Report struct {
	ReportID    string            `json:"report_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Incident    incident.Incident `json:"incident"`
	Summary     Summary           `json:"summary"`
}

// NewReport summarizes inc and stamps it with a fresh report ID.
func NewReport(inc incident.Incident, now time.Time) (Report, error) {
	summary, err := Summarize(inc)
	if err != nil {
		return Report{}, err
	}
	return Report{
		ReportID:    uuid.NewString(),
		GeneratedAt: now.UTC(),
		Incident:    inc,
		Summary:     summary,
	}, nil
}
