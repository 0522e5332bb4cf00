package debounce

import (
	"context"
	"fmt"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// StaticResolver serves debounce values from configuration.
type StaticResolver struct {
	checks map[string]incident.DebounceConfig
}

// NewStaticResolver copies the per-check values keyed by check type.
func NewStaticResolver(checks map[string]incident.DebounceConfig) *StaticResolver {
	out := make(map[string]incident.DebounceConfig, len(checks))
	for name, cfg := range checks {
		out[normalizeCheck(name)] = cfg
	}
	return &StaticResolver{checks: out}
}

// Resolve returns the configured values or ErrConfigMissing.
func (s *StaticResolver) Resolve(_ context.Context, checkType string) (incident.DebounceConfig, error) {
	cfg, ok := s.checks[normalizeCheck(checkType)]
	if !ok {
		return incident.DebounceConfig{}, fmt.Errorf("%w: no debounce values for check %q", incident.ErrConfigMissing, checkType)
	}
	return cfg, nil
}
