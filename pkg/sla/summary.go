package sla

import (
	"fmt"
	"math"
	"sort"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// Summary condenses one reconstructed incident into service-level figures.
type Summary struct {
	Rows          int      `json:"rows"`
	FailedCycles  int      `json:"failed_cycles"`
	PassedCycles  int      `json:"passed_cycles"`
	DowntimeSec   int64    `json:"downtime_seconds"`
	Availability  float64  `json:"availability"`
	DurationSec   int64    `json:"duration_seconds"`
	MetricFirst   *float64 `json:"metric_first,omitempty"`
	MetricLast    *float64 `json:"metric_last,omitempty"`
	MetricMin     *float64 `json:"metric_min,omitempty"`
	MetricMedian  *float64 `json:"metric_median,omitempty"`
	HasStartMark  bool     `json:"has_start_mark"`
	HasEndMark    bool     `json:"has_end_mark"`
	EndMarkerText string   `json:"end_marker_text,omitempty"`
}

// Summarize computes the summary of the rows carried by inc. Downtime counts
// one delay interval per failed cycle.
func Summarize(inc incident.Incident) (Summary, error) {
	if !inc.Window.Valid() {
		return Summary{}, fmt.Errorf("%w: window from=%d to=%d", incident.ErrInvalidWindow, inc.Window.From, inc.Window.To)
	}

	out := Summary{
		Rows:        len(inc.Rows),
		DurationSec: inc.Natural.Duration(),
	}
	metrics := make([]float64, 0, len(inc.Rows))
	for _, row := range inc.Rows {
		if row.Passed {
			out.PassedCycles++
		} else {
			out.FailedCycles++
		}
		if row.IsStart {
			out.HasStartMark = true
		}
		if row.IsEnd {
			out.HasEndMark = true
		}
		if row.MetricValue != nil {
			metrics = append(metrics, *row.MetricValue)
		}
	}

	out.DowntimeSec = int64(out.FailedCycles) * int64(inc.Debounce.DelaySeconds)
	out.Availability = Availability(out.PassedCycles, out.Rows)
	if out.HasEndMark {
		out.EndMarkerText = EndMarkerText(inc.EndValue)
	}

	if len(metrics) > 0 {
		first, last := metrics[0], metrics[len(metrics)-1]
		lowest := minimum(metrics)
		median := quantile(metrics, 0.50)
		out.MetricFirst = &first
		out.MetricLast = &last
		out.MetricMin = &lowest
		out.MetricMedian = &median
	}
	return out, nil
}

// Availability returns passed/total, or 1 when there are no rows.
func Availability(passed, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(passed) / float64(total)
}

// EndMarkerText is the label rendered next to the end-of-incident row.
func EndMarkerText(v incident.EventValue) string {
	switch v {
	case incident.EventUnknown:
		return "Resolved (no data)"
	case incident.EventTrue:
		return "Active"
	default:
		return "Resolved"
	}
}

func minimum(values []float64) float64 {
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}

func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if q <= 0 {
		q = 0
	}
	if q >= 1 {
		q = 1
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}

	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
