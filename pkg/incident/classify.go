package incident

// Classify derives the incident disposition from its problem and resolution events.
// A resolution carrying neither FALSE nor UNKNOWN does not close the incident.
func Classify(problem Event, resolution *Event) Disposition {
	switch {
	case problem.IsFalsePositive:
		return DispositionFalsePositive
	case resolution != nil && resolution.Value == EventFalse:
		return DispositionResolved
	case resolution != nil && resolution.Value == EventUnknown:
		return DispositionResolvedNoData
	default:
		return DispositionActive
	}
}
