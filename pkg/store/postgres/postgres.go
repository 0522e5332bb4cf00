package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/debounce"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// querier is the subset of pgxpool.Pool used by the readers.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads events, probe history, metric history and configuration macros
// from PostgreSQL.
type Store struct {
	db querier
}

// ensure Store and its readers satisfy the incident interfaces.
var (
	_ incident.EventStore         = (*Store)(nil)
	_ incident.DebounceResolver   = (*Store)(nil)
	_ incident.ProbeSeriesReader  = ProbeReader{}
	_ incident.MetricSeriesReader = MetricReader{}
)

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Probes returns the probe history reader.
func (s *Store) Probes() ProbeReader {
	return ProbeReader{db: s.db}
}

// Metrics returns the derived-metric history reader.
func (s *Store) Metrics() MetricReader {
	return MetricReader{db: s.db}
}

const (
	eventColumns = `eventid, clock, value, false_positive`

	latestProblemQuery = `SELECT ` + eventColumns + ` FROM events
		WHERE entityid = $1 AND triggerid = $2 AND value = 1
		ORDER BY clock DESC, eventid DESC
		LIMIT 1`

	problemByIDQuery = `SELECT ` + eventColumns + ` FROM events
		WHERE entityid = $1 AND triggerid = $2 AND eventid = $3 AND value = 1`

	resolutionQuery = `SELECT ` + eventColumns + ` FROM events
		WHERE entityid = $1 AND triggerid = $2 AND value IN (0, 2)
			AND (clock > $3 OR (clock = $3 AND eventid > $4))
		ORDER BY clock, eventid
		LIMIT 1`
)

// GetProblemAndResolution fetches the problem event and the first event after
// it that returned the trigger to OK or UNKNOWN.
func (s *Store) GetProblemAndResolution(ctx context.Context, entityID, triggerID, eventID int64) (incident.Event, *incident.Event, error) {
	var row pgx.Row
	if eventID > 0 {
		row = s.db.QueryRow(ctx, problemByIDQuery, entityID, triggerID, eventID)
	} else {
		row = s.db.QueryRow(ctx, latestProblemQuery, entityID, triggerID)
	}
	problem, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Event{}, nil, fmt.Errorf("problem event of trigger %d: %w", triggerID, incident.ErrNotFound)
		}
		return incident.Event{}, nil, unavailable("select problem event", err)
	}

	resolution, err := scanEvent(s.db.QueryRow(ctx, resolutionQuery, entityID, triggerID, problem.Clock, problem.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return problem, nil, nil
		}
		return incident.Event{}, nil, unavailable("select resolution event", err)
	}
	return problem, &resolution, nil
}

func scanEvent(row pgx.Row) (incident.Event, error) {
	var (
		ev    incident.Event
		value int16
	)
	if err := row.Scan(&ev.ID, &ev.Clock, &value, &ev.IsFalsePositive); err != nil {
		return incident.Event{}, err
	}
	ev.Value = incident.EventValue(value)
	return ev, nil
}

const configValuesQuery = `SELECT name, value FROM config_values WHERE name = ANY($1)`

// Resolve reads the debounce macros of a check type from config_values.
func (s *Store) Resolve(ctx context.Context, checkType string) (incident.DebounceConfig, error) {
	macros, err := debounce.MacrosFor(checkType)
	if err != nil {
		return incident.DebounceConfig{}, err
	}

	rows, err := s.db.Query(ctx, configValuesQuery, []string{macros.Fail, macros.Recover, macros.Delay})
	if err != nil {
		return incident.DebounceConfig{}, unavailable("select config values", err)
	}
	defer rows.Close()

	values := make(map[string]int64, 3)
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return incident.DebounceConfig{}, unavailable("scan config value", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return incident.DebounceConfig{}, unavailable("iterate config values", err)
	}
	return debounce.FromValues(macros, values)
}

// ProbeReader reads raw probe results.
type ProbeReader struct {
	db querier
}

const (
	probeQuery = `SELECT clock, value FROM probe_history
		WHERE entityid = $1 AND clock BETWEEN $2 AND $3
		ORDER BY clock`

	failingProbeQuery = `SELECT clock, value FROM probe_history
		WHERE entityid = $1 AND clock BETWEEN $2 AND $3 AND value = 0
		ORDER BY clock`
)

// Query returns probe results inside window ordered by clock.
func (r ProbeReader) Query(ctx context.Context, entityID int64, window incident.TimeWindow, failingOnly bool) ([]incident.ProbeSample, error) {
	query := probeQuery
	if failingOnly {
		query = failingProbeQuery
	}
	rows, err := r.db.Query(ctx, query, entityID, window.From, window.To)
	if err != nil {
		return nil, unavailable("select probe history", err)
	}
	defer rows.Close()

	samples := make([]incident.ProbeSample, 0)
	for rows.Next() {
		var (
			clock int64
			value int16
		)
		if err := rows.Scan(&clock, &value); err != nil {
			return nil, unavailable("scan probe sample", err)
		}
		samples = append(samples, incident.ProbeSample{Clock: clock, Passed: value != 0})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate probe history", err)
	}
	return samples, nil
}

// MetricReader reads the derived availability metric.
type MetricReader struct {
	db querier
}

const metricQuery = `SELECT clock, value FROM metric_history
	WHERE entityid = $1 AND clock BETWEEN $2 AND $3
	ORDER BY clock`

// Query returns metric samples inside window ordered by clock.
func (r MetricReader) Query(ctx context.Context, entityID int64, window incident.TimeWindow) ([]incident.MetricSample, error) {
	rows, err := r.db.Query(ctx, metricQuery, entityID, window.From, window.To)
	if err != nil {
		return nil, unavailable("select metric history", err)
	}
	defer rows.Close()

	samples := make([]incident.MetricSample, 0)
	for rows.Next() {
		var sample incident.MetricSample
		if err := rows.Scan(&sample.Clock, &sample.Value); err != nil {
			return nil, unavailable("scan metric sample", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate metric history", err)
	}
	return samples, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, incident.ErrStoreUnavailable, err)
}
