package incident

import (
	"errors"
	"testing"
)

func TestFloorToMinute(t *testing.T) {
	cases := map[int64]int64{
		0:     0,
		59:    0,
		60:    60,
		10019: 9960,
		-1:    -60,
		-60:   -60,
	}
	for in, want := range cases {
		if got := FloorToMinute(in); got != want {
			t.Fatalf("FloorToMinute(%d): expected %d, got %d", in, want, got)
		}
	}
}

func TestNaturalWindowResolved(t *testing.T) {
	cfg := DebounceConfig{FailCount: 3, RecoveryCount: 2, DelaySeconds: 60}
	problem := Event{Clock: 10000, Value: EventTrue}
	resolution := &Event{Clock: 10900, Value: EventFalse}

	w := NaturalWindow(problem, resolution, cfg, 99999)
	if w.From != 9820 || w.To != 11020 {
		t.Fatalf("expected [9820,11020], got [%d,%d]", w.From, w.To)
	}
}

func TestNaturalWindowActiveRunsUntilNow(t *testing.T) {
	cfg := DebounceConfig{FailCount: 3, RecoveryCount: 2, DelaySeconds: 60}
	w := NaturalWindow(Event{Clock: 10000, Value: EventTrue}, nil, cfg, 12000)
	if w.To != 12000 {
		t.Fatalf("expected to=12000, got %d", w.To)
	}
	if w.From != 9820 {
		t.Fatalf("expected from=9820, got %d", w.From)
	}
}

func TestNaturalWindowZeroOffsets(t *testing.T) {
	problem := Event{Clock: 500, Value: EventTrue}
	resolution := &Event{Clock: 800, Value: EventFalse}
	for _, cfg := range []DebounceConfig{
		{FailCount: 0, RecoveryCount: 0, DelaySeconds: 60},
		{FailCount: 5, RecoveryCount: 5, DelaySeconds: 0},
	} {
		w := NaturalWindow(problem, resolution, cfg, 0)
		if w.From != 500 || w.To != 800 {
			t.Fatalf("cfg %+v: expected raw event window, got [%d,%d]", cfg, w.From, w.To)
		}
	}
}

func TestDebounceSymmetry(t *testing.T) {
	for f := uint(0); f < 6; f++ {
		cfg := DebounceConfig{FailCount: f, RecoveryCount: f, DelaySeconds: 60}
		problem := Event{Clock: 100000, Value: EventTrue}
		resolution := &Event{Clock: 200000, Value: EventFalse}
		w := NaturalWindow(problem, resolution, cfg, 0)
		if problem.Clock-w.From != w.To-resolution.Clock {
			t.Fatalf("f=%d: asymmetric offsets %d vs %d", f, problem.Clock-w.From, w.To-resolution.Clock)
		}
	}
}

func TestNaturalWindowNeverInverted(t *testing.T) {
	// Now earlier than the problem event minus backoff would invert the range.
	cfg := DebounceConfig{FailCount: 1, RecoveryCount: 1, DelaySeconds: 60}
	w := NaturalWindow(Event{Clock: 10000}, nil, cfg, 5000)
	if !w.Valid() || w.Duration() != 0 {
		t.Fatalf("expected degenerate window at 5000, got [%d,%d]", w.From, w.To)
	}
}

func TestDisplayWindow(t *testing.T) {
	natural := TimeWindow{From: 9820, To: 11020}

	tests := []struct {
		name     string
		resolved bool
		filter   *TimeWindow
		want     TimeWindow
	}{
		{name: "no filter", resolved: true, want: natural},
		{name: "filter wider than incident", resolved: true, filter: &TimeWindow{From: 0, To: 20000}, want: natural},
		{name: "filter starts later", resolved: true, filter: &TimeWindow{From: 10000, To: 20000}, want: TimeWindow{From: 10000, To: 11020}},
		{name: "filter ends earlier", resolved: true, filter: &TimeWindow{From: 0, To: 10500}, want: TimeWindow{From: 9820, To: 10500}},
		{name: "active clipped to filter edge", resolved: false, filter: &TimeWindow{From: 0, To: 15000}, want: TimeWindow{From: 9820, To: 15000}},
		{name: "filter before incident", resolved: true, filter: &TimeWindow{From: 0, To: 5000}, want: TimeWindow{From: 5000, To: 5000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DisplayWindow(natural, tc.resolved, tc.filter)
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if !got.Valid() {
				t.Fatalf("window inverted: %+v", got)
			}
		})
	}
}

func TestShowAllWindow(t *testing.T) {
	cfg := DebounceConfig{FailCount: 3, RecoveryCount: 2, DelaySeconds: 60}
	display := TimeWindow{From: 9820, To: 11020}

	if got := ShowAllWindow(display, true, cfg); got.To != 11140 || got.From != 9820 {
		t.Fatalf("expected resolved window widened to 11140, got %+v", got)
	}
	if got := ShowAllWindow(display, false, cfg); got != display {
		t.Fatalf("expected active window unchanged, got %+v", got)
	}
}

func TestRedisplayWindow(t *testing.T) {
	cfg := DebounceConfig{FailCount: 1, RecoveryCount: 1, DelaySeconds: 60}
	got := RedisplayWindow(ProbeSample{Clock: 4000}, ProbeSample{Clock: 4300}, cfg)
	if got.From != 3940 || got.To != 4420 {
		t.Fatalf("expected [3940,4420], got %+v", got)
	}
}

func TestPaginate(t *testing.T) {
	samples := make([]ProbeSample, 10)
	for i := range samples {
		samples[i] = ProbeSample{Clock: int64(i * 60)}
	}

	page, err := Paginate(samples, PageSpec{Offset: 8, Limit: 5})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(page) != 2 || page[0].Clock != 480 {
		t.Fatalf("unexpected tail page: %+v", page)
	}

	page, err = Paginate(samples, PageSpec{Offset: 20, Limit: 5})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d rows", len(page))
	}

	if _, err := Paginate(samples, PageSpec{Offset: 0, Limit: 0}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := Paginate(samples, PageSpec{Offset: -1, Limit: 3}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}
