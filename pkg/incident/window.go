package incident

import "fmt"

// RedisplayMargin is the slack added past the last paged row so minute-aligned
// events next to the page edge are not excluded from the metric overlay.
const RedisplayMargin int64 = 60

// FloorToMinute truncates a Unix timestamp to the start of its minute.
func FloorToMinute(clock int64) int64 {
	rem := clock % 60
	if rem < 0 {
		rem += 60
	}
	return clock - rem
}

// NaturalWindow derives the incident range implied by the events and debounce alone.
// An unresolved incident runs until now.
func NaturalWindow(problem Event, resolution *Event, cfg DebounceConfig, now int64) TimeWindow {
	w := TimeWindow{From: problem.Clock - cfg.Backoff(), To: now}
	if resolution != nil {
		w.To = resolution.Clock + cfg.Forwardoff()
	}
	return clampWindow(w)
}

// DisplayWindow intersects the natural window with an optional user filter.
// An unresolved incident is clipped to the filter's right edge rather than to now.
func DisplayWindow(natural TimeWindow, resolved bool, filter *TimeWindow) TimeWindow {
	if filter == nil {
		return clampWindow(natural)
	}
	w := TimeWindow{From: max(natural.From, filter.From), To: filter.To}
	if resolved {
		w.To = min(natural.To, filter.To)
	}
	return clampWindow(w)
}

// ShowAllWindow widens a resolved incident's display window by the recovery
// debounce once more so the full recovery tail is listed.
func ShowAllWindow(display TimeWindow, resolved bool, cfg DebounceConfig) TimeWindow {
	if !resolved {
		return display
	}
	return clampWindow(TimeWindow{From: display.From, To: display.To + cfg.Forwardoff()})
}

// RedisplayWindow re-derives the window from the first and last rows of a page.
func RedisplayWindow(pageFirst, pageLast ProbeSample, cfg DebounceConfig) TimeWindow {
	return clampWindow(TimeWindow{
		From: pageFirst.Clock - cfg.Backoff(),
		To:   pageLast.Clock + cfg.Forwardoff() + RedisplayMargin,
	})
}

// Paginate returns the samples selected by page. An offset past the end yields
// an empty page.
func Paginate(samples []ProbeSample, page PageSpec) ([]ProbeSample, error) {
	if page.Offset < 0 || page.Limit <= 0 {
		return nil, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPage, page.Offset, page.Limit)
	}
	if page.Offset >= len(samples) {
		return []ProbeSample{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(samples) {
		end = len(samples)
	}
	return samples[page.Offset:end], nil
}

// clampWindow pulls From down to To for degenerate ranges.
func clampWindow(w TimeWindow) TimeWindow {
	if w.From > w.To {
		w.From = w.To
	}
	return w
}
