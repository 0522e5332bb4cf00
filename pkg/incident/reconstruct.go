package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/semconv"
)

// EventStore returns the problem event and the first matching resolution event.
// An eventID of zero selects the most recent problem event of the trigger.
type EventStore interface {
	GetProblemAndResolution(ctx context.Context, entityID, triggerID, eventID int64) (Event, *Event, error)
}

// ProbeSeriesReader returns raw probe results ordered by clock.
type ProbeSeriesReader interface {
	Query(ctx context.Context, entityID int64, window TimeWindow, failingOnly bool) ([]ProbeSample, error)
}

// MetricSeriesReader returns derived-metric samples ordered by clock.
type MetricSeriesReader interface {
	Query(ctx context.Context, entityID int64, window TimeWindow) ([]MetricSample, error)
}

// DebounceResolver looks up the debounce thresholds of a check type.
type DebounceResolver interface {
	Resolve(ctx context.Context, checkType string) (DebounceConfig, error)
}

// ReconstructRequest identifies one incident and how it should be displayed.
type ReconstructRequest struct {
	EntityID    int64
	TriggerID   int64
	EventID     int64
	CheckType   string
	Filter      *TimeWindow
	Page        *PageSpec
	FailingOnly bool
}

// ReconstructionContext is the immutable state threaded through the pipeline.
// Every step returns a new copy.
type ReconstructionContext struct {
	Request      ReconstructRequest
	Now          int64
	Problem      Event
	Resolution   *Event
	Debounce     DebounceConfig
	Natural      TimeWindow
	Display      TimeWindow
	Probes       []ProbeSample
	Shown        []ProbeSample
	MetricWindow TimeWindow
	Metrics      []MetricSample
}

// Resolved reports whether a resolution event was found.
func (rc ReconstructionContext) Resolved() bool {
	return rc.Resolution != nil
}

// Option customizes a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconstructor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconstructor) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithClock overrides the wall clock used for unresolved incidents.
func WithClock(now func() time.Time) Option {
	return func(r *Reconstructor) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconstructor rebuilds incident windows and timelines. It keeps no state
// between calls and is safe for concurrent use.
type Reconstructor struct {
	events   EventStore
	probes   ProbeSeriesReader
	metrics  MetricSeriesReader
	debounce DebounceResolver
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewReconstructor wires the four read collaborators.
func NewReconstructor(
	events EventStore,
	probes ProbeSeriesReader,
	metrics MetricSeriesReader,
	debounce DebounceResolver,
	opts ...Option,
) *Reconstructor {
	r := &Reconstructor{
		events:   events,
		probes:   probes,
		metrics:  metrics,
		debounce: debounce,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("rsm-incident-toolkit/incident"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconstructIncident computes the incident window, reads the probe rows and
// metric overlay for it and returns the merged timeline. Either the full
// incident is returned or an error; there is no partial result.
func (r *Reconstructor) ReconstructIncident(ctx context.Context, req ReconstructRequest) (Incident, error) {
	ctx, span := r.tracer.Start(ctx, "incident.reconstruct", trace.WithAttributes(
		attribute.Int64(semconv.AttrEntityID, req.EntityID),
		attribute.Int64(semconv.AttrTriggerID, req.TriggerID),
		attribute.String(semconv.AttrCheckType, req.CheckType),
	))
	defer span.End()

	inc, err := r.reconstruct(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Debug("incident reconstruction failed",
			zap.Int64("entity_id", req.EntityID),
			zap.Int64("trigger_id", req.TriggerID),
			zap.Error(err),
		)
		return Incident{}, err
	}

	span.SetAttributes(
		attribute.String(semconv.AttrDisposition, string(inc.Disposition)),
		attribute.Int(semconv.AttrRows, len(inc.Rows)),
		attribute.Int64(semconv.AttrWindowFrom, inc.Window.From),
		attribute.Int64(semconv.AttrWindowTo, inc.Window.To),
	)
	return inc, nil
}

func (r *Reconstructor) reconstruct(ctx context.Context, req ReconstructRequest) (Incident, error) {
	if req.Filter != nil && !req.Filter.Valid() {
		return Incident{}, fmt.Errorf("%w: filter from=%d to=%d", ErrInvalidWindow, req.Filter.From, req.Filter.To)
	}
	if req.Page != nil && (req.Page.Offset < 0 || req.Page.Limit <= 0) {
		return Incident{}, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPage, req.Page.Offset, req.Page.Limit)
	}

	rc := ReconstructionContext{Request: req, Now: r.now().Unix()}

	rc, err := r.loadEvents(ctx, rc)
	if err != nil {
		return Incident{}, err
	}
	rc, err = r.resolveDebounce(ctx, rc)
	if err != nil {
		return Incident{}, err
	}
	rc = computeWindows(rc)
	rc, err = r.loadProbes(ctx, rc)
	if err != nil {
		return Incident{}, err
	}
	rc, err = cutPage(rc)
	if err != nil {
		return Incident{}, err
	}
	rc, err = r.loadMetrics(ctx, rc)
	if err != nil {
		return Incident{}, err
	}

	r.logger.Debug("incident reconstructed",
		zap.Int64("entity_id", req.EntityID),
		zap.Int64("event_id", rc.Problem.ID),
		zap.Int64("natural_from", rc.Natural.From),
		zap.Int64("natural_to", rc.Natural.To),
		zap.Int64("metric_from", rc.MetricWindow.From),
		zap.Int64("metric_to", rc.MetricWindow.To),
		zap.Int("probes", len(rc.Probes)),
		zap.Int("shown", len(rc.Shown)),
	)
	return assemble(rc), nil
}

func (r *Reconstructor) loadEvents(ctx context.Context, rc ReconstructionContext) (ReconstructionContext, error) {
	ctx, span := r.tracer.Start(ctx, "incident.events")
	defer span.End()

	req := rc.Request
	problem, resolution, err := r.events.GetProblemAndResolution(ctx, req.EntityID, req.TriggerID, req.EventID)
	if err != nil {
		return rc, storeError(fmt.Sprintf("load events entity=%d trigger=%d", req.EntityID, req.TriggerID), err)
	}
	rc.Problem = problem
	if resolution != nil {
		res := *resolution
		rc.Resolution = &res
	}
	return rc, nil
}

func (r *Reconstructor) resolveDebounce(ctx context.Context, rc ReconstructionContext) (ReconstructionContext, error) {
	ctx, span := r.tracer.Start(ctx, "incident.debounce")
	defer span.End()

	cfg, err := r.debounce.Resolve(ctx, rc.Request.CheckType)
	if err != nil {
		return rc, storeError(fmt.Sprintf("resolve debounce for %q", rc.Request.CheckType), err)
	}
	rc.Debounce = cfg
	return rc, nil
}

func computeWindows(rc ReconstructionContext) ReconstructionContext {
	rc.Natural = NaturalWindow(rc.Problem, rc.Resolution, rc.Debounce, rc.Now)
	rc.Display = DisplayWindow(rc.Natural, rc.Resolved(), rc.Request.Filter)
	if rc.Request.Page == nil {
		rc.Display = ShowAllWindow(rc.Display, rc.Resolved(), rc.Debounce)
	}
	rc.MetricWindow = rc.Display
	return rc
}

func (r *Reconstructor) loadProbes(ctx context.Context, rc ReconstructionContext) (ReconstructionContext, error) {
	ctx, span := r.tracer.Start(ctx, "incident.probes")
	defer span.End()

	probes, err := r.probes.Query(ctx, rc.Request.EntityID, rc.Display, rc.Request.FailingOnly)
	if err != nil {
		return rc, storeError("query probe series", err)
	}
	rc.Probes = probes
	rc.Shown = probes
	span.SetAttributes(attribute.Int(semconv.AttrRows, len(probes)))
	return rc, nil
}

// cutPage applies pagination and re-derives the metric window from the rows
// actually shown. It must run after the probe query and before the metric query.
func cutPage(rc ReconstructionContext) (ReconstructionContext, error) {
	if rc.Request.Page == nil {
		return rc, nil
	}
	shown, err := Paginate(rc.Probes, *rc.Request.Page)
	if err != nil {
		return rc, err
	}
	rc.Shown = shown
	if len(shown) > 0 {
		rc.MetricWindow = RedisplayWindow(shown[0], shown[len(shown)-1], rc.Debounce)
	}
	return rc, nil
}

func (r *Reconstructor) loadMetrics(ctx context.Context, rc ReconstructionContext) (ReconstructionContext, error) {
	if len(rc.Shown) == 0 {
		return rc, nil
	}
	ctx, span := r.tracer.Start(ctx, "incident.metrics", trace.WithAttributes(
		attribute.Int64(semconv.AttrWindowFrom, rc.MetricWindow.From),
		attribute.Int64(semconv.AttrWindowTo, rc.MetricWindow.To),
	))
	defer span.End()

	metrics, err := r.metrics.Query(ctx, rc.Request.EntityID, rc.MetricWindow)
	if err != nil {
		return rc, storeError("query metric series", err)
	}
	rc.Metrics = metrics
	return rc, nil
}

func assemble(rc ReconstructionContext) Incident {
	rows := MergeTimeline(rc.Shown, rc.Metrics, rc.Problem, rc.Resolution)
	window := rc.Display
	if rc.Request.Page != nil && len(rc.Shown) > 0 {
		window = rc.MetricWindow
	}
	var page *PageSpec
	if rc.Request.Page != nil {
		p := *rc.Request.Page
		page = &p
	}
	return Incident{
		EntityID:        rc.Request.EntityID,
		TriggerID:       rc.Request.TriggerID,
		CheckType:       rc.Request.CheckType,
		ProblemEvent:    rc.Problem,
		ResolutionEvent: rc.Resolution,
		Debounce:        rc.Debounce,
		Natural:         rc.Natural,
		Window:          window,
		MetricWindow:    rc.MetricWindow,
		Disposition:     Classify(rc.Problem, rc.Resolution),
		EndValue:        EndValue(rows),
		TotalProbes:     len(rc.Probes),
		Page:            page,
		Rows:            rows,
	}
}

// storeError keeps classified errors intact and marks anything else as a store failure.
func storeError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConfigMissing) || errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
