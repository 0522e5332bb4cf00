package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/safety"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/schema"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

// Reconstructor is the read-side engine behind the API.
type Reconstructor interface {
	ReconstructIncident(ctx context.Context, req incident.ReconstructRequest) (incident.Incident, error)
}

// Config holds request-level limits.
type Config struct {
	DefaultLimit      int
	MaxLimit          int
	RequestsPerSecond int
	// ValidateResponses checks every incident against the JSON contract before it is written.
	ValidateResponses bool
	RequestTimeout    time.Duration
}

// Handler serves incident detail documents.
type Handler struct {
	engine  Reconstructor
	cfg     Config
	limiter *safety.KeyedRateLimiter
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler wires the API. A nil logger or metrics disables them.
func NewHandler(engine Reconstructor, cfg Config, metrics *Metrics, logger *zap.Logger) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 1000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		engine:  engine,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		h.limiter = safety.NewKeyedRateLimiter(cfg.RequestsPerSecond)
	}
	return h
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/entities/{entity}/triggers/{trigger}/incident", h.handleIncident)
	mux.HandleFunc("GET /api/v1/entities/{entity}/triggers/{trigger}/incident/report", h.handleReport)
	mux.HandleFunc("GET /api/v1/schema/incident", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/schema+json")
		_, _ = w.Write(schema.IncidentSchema())
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (h *Handler) handleIncident(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.serve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	inc, ok := h.serve(w, r)
	if !ok {
		return
	}
	report, err := sla.NewReport(inc, h.now())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// serve runs the shared request path and writes the error response itself when
// it returns false.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (incident.Incident, bool) {
	start := h.now()
	if h.limiter != nil && !h.limiter.Allow(clientKey(r), start) {
		h.metrics.limited()
		writeError(w, http.StatusTooManyRequests, outcomeRateLimited, fmt.Errorf("rate limit exceeded"))
		return incident.Incident{}, false
	}

	req, err := h.parseRequest(r)
	if err != nil {
		h.metrics.observe(outcomeInvalid, 0, nil)
		writeError(w, http.StatusBadRequest, outcomeInvalid, err)
		return incident.Incident{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	inc, err := h.engine.ReconstructIncident(ctx, req)
	if err == nil && h.cfg.ValidateResponses {
		err = schema.ValidateIncident(inc)
	}
	elapsed := h.now().Sub(start).Seconds()
	if err != nil {
		status, code := classify(err)
		h.metrics.observe(code, elapsed, nil)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("incident request failed",
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		writeError(w, status, code, err)
		return incident.Incident{}, false
	}

	h.metrics.observe(outcomeOK, elapsed, &inc)
	h.logger.Info("incident served",
		zap.Int64("entity_id", inc.EntityID),
		zap.Int64("trigger_id", inc.TriggerID),
		zap.Int64("event_id", inc.ProblemEvent.ID),
		zap.String("disposition", string(inc.Disposition)),
		zap.Int("rows", len(inc.Rows)),
		zap.Float64("seconds", elapsed),
	)
	return inc, true
}

func (h *Handler) parseRequest(r *http.Request) (incident.ReconstructRequest, error) {
	var req incident.ReconstructRequest
	var err error

	if req.EntityID, err = parseID(r.PathValue("entity"), "entity"); err != nil {
		return req, err
	}
	if req.TriggerID, err = parseID(r.PathValue("trigger"), "trigger"); err != nil {
		return req, err
	}

	q := r.URL.Query()
	req.CheckType = strings.ToLower(strings.TrimSpace(q.Get("check")))
	if req.CheckType == "" {
		return req, fmt.Errorf("%w: check is required", errBadRequest)
	}
	if v := q.Get("event"); v != "" {
		if req.EventID, err = parseID(v, "event"); err != nil {
			return req, err
		}
	}

	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			return req, fmt.Errorf("%w: from and to must be given together", errBadRequest)
		}
		window := incident.TimeWindow{}
		if window.From, err = parseClock(from, "from"); err != nil {
			return req, err
		}
		if window.To, err = parseClock(to, "to"); err != nil {
			return req, err
		}
		req.Filter = &window
	}

	if req.FailingOnly, err = parseFlag(q.Get("failing_only"), "failing_only"); err != nil {
		return req, err
	}
	all, err := parseFlag(q.Get("all"), "all")
	if err != nil {
		return req, err
	}
	if all {
		return req, nil
	}

	page := incident.PageSpec{Limit: h.cfg.DefaultLimit}
	if v := q.Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: offset %q", errBadRequest, v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: limit %q", errBadRequest, v)
		}
	}
	page.Limit = min(page.Limit, h.cfg.MaxLimit)
	req.Page = &page
	return req, nil
}

func parseID(v, name string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s id %q", errBadRequest, name, v)
	}
	return id, nil
}

func parseClock(v, name string) (int64, error) {
	clock, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a unix timestamp", errBadRequest, name, v)
	}
	return clock, nil
}

func parseFlag(v, name string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", errBadRequest, name, v)
	}
	return b, nil
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
