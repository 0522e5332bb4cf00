package incident

const (
	resultUp   = "Up"
	resultDown = "Down"
)

// MergeTimeline joins probe samples with the sparser metric series. Both inputs
// must be sorted by clock ascending. Each probe row carries the most recent
// metric value at or before its clock, never a later one.
//
// The first row in the problem event's minute gets the start marker and the
// first row in the resolution event's minute gets the end marker.
func MergeTimeline(probes []ProbeSample, metrics []MetricSample, problem Event, resolution *Event) []TimelineRow {
	rows := make([]TimelineRow, 0, len(probes))

	startMinute := FloorToMinute(problem.Clock)
	var endMinute int64
	if resolution != nil {
		endMinute = FloorToMinute(resolution.Clock)
	}
	startClaimed := false
	endClaimed := resolution == nil

	cursor := 0
	var last *MetricSample
	for _, probe := range probes {
		for cursor < len(metrics) && metrics[cursor].Clock <= probe.Clock {
			last = &metrics[cursor]
			cursor++
		}

		row := TimelineRow{
			Clock:  probe.Clock,
			Passed: probe.Passed,
			Result: resultDown,
		}
		if probe.Passed {
			row.Result = resultUp
		}
		if last != nil {
			v := last.Value
			row.MetricValue = &v
		}

		minute := FloorToMinute(probe.Clock)
		if !startClaimed && minute == startMinute {
			row.IsStart = true
			startClaimed = true
		}
		if !endClaimed && minute == endMinute {
			v := resolution.Value
			row.IsEnd = true
			row.EndValue = &v
			endClaimed = true
		}

		rows = append(rows, row)
	}
	return rows
}

// EndValue returns the value attached to the end marker, or EventFalse when no
// row claimed it.
func EndValue(rows []TimelineRow) EventValue {
	for _, row := range rows {
		if row.IsEnd && row.EndValue != nil {
			return *row.EndValue
		}
	}
	return EventFalse
}
