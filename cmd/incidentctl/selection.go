package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/consolecfg"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/debounce"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/store/memory"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/store/postgres"
)

// selection holds the flags shared by every command that reconstructs an incident.
type selection struct {
	configPath  string
	fixtures    string
	dsn         string
	entity      int64
	trigger     int64
	event       int64
	check       string
	from        string
	to          string
	offset      int
	limit       int
	all         bool
	failingOnly bool
	now         int64
	verbose     bool
}

func (s *selection) register(fs *flag.FlagSet) {
	fs.StringVar(&s.configPath, "config", filepath.Join("config", "console.yaml"), "console config path")
	fs.StringVar(&s.fixtures, "fixtures", "", "read events and series from a JSONL fixture file instead of postgres")
	fs.StringVar(&s.dsn, "postgres-dsn", "", "monitoring store DSN (overrides config)")
	fs.Int64Var(&s.entity, "entity", 0, "monitored entity id")
	fs.Int64Var(&s.trigger, "trigger", 0, "trigger id")
	fs.Int64Var(&s.event, "event", 0, "problem event id (0 = latest)")
	fs.StringVar(&s.check, "check", "", "check type: dns|dnssec|rdds|epp")
	fs.StringVar(&s.from, "from", "", "filter start (unix seconds)")
	fs.StringVar(&s.to, "to", "", "filter end (unix seconds)")
	fs.IntVar(&s.offset, "offset", 0, "page offset")
	fs.IntVar(&s.limit, "limit", 0, "page size (0 = config default)")
	fs.BoolVar(&s.all, "all", false, "show all rows without pagination")
	fs.BoolVar(&s.failingOnly, "failing-only", false, "only show failing probe cycles")
	fs.Int64Var(&s.now, "now", 0, "override the current time for unresolved incidents (unix seconds)")
	fs.BoolVar(&s.verbose, "verbose", false, "log reconstruction steps to stderr")
}

// loadConfig falls back to defaults when the file is unreadable, but an
// incomplete checks entry is fatal: defaults carry no debounce values.
func (s *selection) loadConfig() (consolecfg.ConsoleConfig, error) {
	cfg, err := consolecfg.Load(s.configPath)
	if errors.Is(err, incident.ErrConfigMissing) {
		return cfg, err
	}
	if err != nil {
		if s.fixtures == "" || !errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: failed to load config %s: %v (using defaults)", s.configPath, err)
		}
		cfg = consolecfg.Default()
	}
	if s.dsn != "" {
		cfg.Storage.PostgresDSN = s.dsn
	}
	return cfg, nil
}

func (s *selection) request(cfg consolecfg.ConsoleConfig) (incident.ReconstructRequest, error) {
	if s.entity <= 0 || s.trigger <= 0 || s.check == "" {
		return incident.ReconstructRequest{}, fmt.Errorf("--entity, --trigger and --check are required")
	}
	req := incident.ReconstructRequest{
		EntityID:    s.entity,
		TriggerID:   s.trigger,
		EventID:     s.event,
		CheckType:   s.check,
		FailingOnly: s.failingOnly,
	}
	if s.from != "" || s.to != "" {
		from, err := strconv.ParseInt(s.from, 10, 64)
		if err != nil {
			return req, fmt.Errorf("parse --from: %w", err)
		}
		to, err := strconv.ParseInt(s.to, 10, 64)
		if err != nil {
			return req, fmt.Errorf("parse --to: %w", err)
		}
		req.Filter = &incident.TimeWindow{From: from, To: to}
	}
	if !s.all {
		limit := s.limit
		if limit == 0 {
			limit = cfg.Pagination.DefaultLimit
		}
		req.Page = &incident.PageSpec{Offset: s.offset, Limit: min(limit, cfg.Pagination.MaxLimit)}
	}
	return req, nil
}

// reconstruct builds the engine over fixtures or postgres and runs one request.
func (s *selection) reconstruct(ctx context.Context) (incident.Incident, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return incident.Incident{}, err
	}
	req, err := s.request(cfg)
	if err != nil {
		return incident.Incident{}, err
	}

	logger := zap.NewNop()
	if s.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return incident.Incident{}, err
		}
		defer func() { _ = logger.Sync() }()
	}
	opts := []incident.Option{incident.WithLogger(logger)}
	if s.now > 0 {
		now := time.Unix(s.now, 0)
		opts = append(opts, incident.WithClock(func() time.Time { return now }))
	}

	var resolver incident.DebounceResolver = debounce.NewStaticResolver(cfg.Checks)
	if s.fixtures != "" {
		store, err := memory.LoadJSONL(s.fixtures)
		if err != nil {
			return incident.Incident{}, err
		}
		engine := incident.NewReconstructor(store, store.Probes(), store.Metrics(), resolver, opts...)
		return engine.ReconstructIncident(ctx, req)
	}

	if cfg.Storage.PostgresDSN == "" {
		return incident.Incident{}, fmt.Errorf("either --fixtures or a postgres DSN is required")
	}
	pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return incident.Incident{}, err
	}
	defer pool.Close()
	store := postgres.New(pool)
	if len(cfg.Checks) == 0 {
		resolver = store
	}
	engine := incident.NewReconstructor(store, store.Probes(), store.Metrics(), resolver, opts...)
	return engine.ReconstructIncident(ctx, req)
}
