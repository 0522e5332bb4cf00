package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.data[r.idx-1], dest)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		target.Set(reflect.ValueOf(v).Convert(target.Type()))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	rowResults []fakeRow
	rows       *fakeRows
	queryErr   error
	calls      []call
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql: sql, args: args})
	row := f.rowResults[0]
	f.rowResults = f.rowResults[1:]
	return row
}

func TestGetProblemAndResolution(t *testing.T) {
	db := &fakeDB{rowResults: []fakeRow{
		{values: []any{int64(11), int64(10000), int64(1), false}},
		{values: []any{int64(12), int64(10900), int64(2), false}},
	}}
	store := &Store{db: db}

	problem, resolution, err := store.GetProblemAndResolution(context.Background(), 5, 6, 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if problem.ID != 11 || problem.Value != incident.EventTrue {
		t.Fatalf("unexpected problem %+v", problem)
	}
	if resolution == nil || resolution.Value != incident.EventUnknown || resolution.Clock != 10900 {
		t.Fatalf("unexpected resolution %+v", resolution)
	}
	if db.calls[0].sql != latestProblemQuery {
		t.Fatalf("expected latest-problem query without event id")
	}
	if !reflect.DeepEqual(db.calls[1].args, []any{int64(5), int64(6), int64(10000), int64(11)}) {
		t.Fatalf("unexpected resolution args %v", db.calls[1].args)
	}
}

func TestGetProblemAndResolutionByEventID(t *testing.T) {
	db := &fakeDB{rowResults: []fakeRow{
		{values: []any{int64(42), int64(500), int64(1), true}},
		{err: pgx.ErrNoRows},
	}}
	store := &Store{db: db}

	problem, resolution, err := store.GetProblemAndResolution(context.Background(), 1, 2, 42)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if !problem.IsFalsePositive {
		t.Fatalf("expected false positive flag")
	}
	if resolution != nil {
		t.Fatalf("expected active incident, got %+v", resolution)
	}
	if db.calls[0].sql != problemByIDQuery {
		t.Fatalf("expected problem-by-id query")
	}
}

func TestGetProblemAndResolutionErrors(t *testing.T) {
	store := &Store{db: &fakeDB{rowResults: []fakeRow{{err: pgx.ErrNoRows}}}}
	if _, _, err := store.GetProblemAndResolution(context.Background(), 1, 2, 0); !errors.Is(err, incident.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store = &Store{db: &fakeDB{rowResults: []fakeRow{{err: errors.New("conn closed")}}}}
	if _, _, err := store.GetProblemAndResolution(context.Background(), 1, 2, 0); !errors.Is(err, incident.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestProbeReaderQuery(t *testing.T) {
	rows := &fakeRows{data: [][]any{
		{int64(60), int64(1)},
		{int64(120), int64(0)},
	}}
	db := &fakeDB{rows: rows}
	reader := (&Store{db: db}).Probes()

	samples, err := reader.Query(context.Background(), 3, incident.TimeWindow{From: 0, To: 200}, false)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(samples) != 2 || !samples[0].Passed || samples[1].Passed {
		t.Fatalf("unexpected samples %+v", samples)
	}
	if !rows.closed {
		t.Fatalf("expected rows to be closed")
	}

	db.rows = &fakeRows{}
	if _, err := reader.Query(context.Background(), 3, incident.TimeWindow{From: 0, To: 200}, true); err != nil {
		t.Fatalf("query failing only: %v", err)
	}
	if !strings.Contains(db.calls[1].sql, "value = 0") {
		t.Fatalf("expected failing-only filter in %q", db.calls[1].sql)
	}
}

func TestMetricReaderErrors(t *testing.T) {
	reader := (&Store{db: &fakeDB{queryErr: errors.New("timeout")}}).Metrics()
	if _, err := reader.Query(context.Background(), 1, incident.TimeWindow{}); !errors.Is(err, incident.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	reader = (&Store{db: &fakeDB{rows: &fakeRows{err: errors.New("broken pipe")}}}).Metrics()
	if _, err := reader.Query(context.Background(), 1, incident.TimeWindow{}); !errors.Is(err, incident.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from rows.Err, got %v", err)
	}
}

func TestMetricReaderQuery(t *testing.T) {
	reader := (&Store{db: &fakeDB{rows: &fakeRows{data: [][]any{
		{int64(60), 99.5},
		{int64(360), 99.25},
	}}}}).Metrics()
	samples, err := reader.Query(context.Background(), 1, incident.TimeWindow{From: 0, To: 600})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(samples) != 2 || samples[1].Value != 99.25 {
		t.Fatalf("unexpected samples %+v", samples)
	}
}

func TestResolve(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{"RSM.INCIDENT.EPP.FAIL", int64(2)},
		{"RSM.INCIDENT.EPP.RECOVER", int64(4)},
		{"RSM.EPP.DELAY", int64(300)},
	}}}
	cfg, err := (&Store{db: db}).Resolve(context.Background(), "epp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg != (incident.DebounceConfig{FailCount: 2, RecoveryCount: 4, DelaySeconds: 300}) {
		t.Fatalf("unexpected config %+v", cfg)
	}

	db = &fakeDB{rows: &fakeRows{data: [][]any{{"RSM.INCIDENT.EPP.FAIL", int64(2)}}}}
	if _, err := (&Store{db: db}).Resolve(context.Background(), "epp"); !errors.Is(err, incident.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}
