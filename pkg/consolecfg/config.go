package consolecfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// ConsoleConfig mirrors config/console.yaml.
type ConsoleConfig struct {
	APIVersion string                             `yaml:"apiVersion"`
	Kind       string                             `yaml:"kind"`
	Checks     map[string]incident.DebounceConfig `yaml:"-"`
	Storage    StorageConfig                      `yaml:"storage"`
	Cache      CacheConfig                        `yaml:"cache"`
	HTTP       HTTPConfig                         `yaml:"http"`
	OTLP       OTLPConfig                         `yaml:"otlp"`
	Log        LogConfig                          `yaml:"log"`
	Pagination PaginationConfig                   `yaml:"pagination"`
	Webhook    WebhookConfig                      `yaml:"webhook"`
}

// checkEntry is the on-disk form of one check. Pointers tell an absent key
// apart from an explicit zero.
type checkEntry struct {
	FailCount     *uint `yaml:"fail_count"`
	RecoveryCount *uint `yaml:"recovery_count"`
	DelaySeconds  *uint `yaml:"delay_seconds"`
}

// StorageConfig points at the monitoring store.
type StorageConfig struct {
	PostgresDSN    string `yaml:"postgres_dsn"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// CacheConfig enables the redis debounce cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// HTTPConfig contains listener settings.
type HTTPConfig struct {
	Bind              string `yaml:"bind"`
	MetricsBind       string `yaml:"metrics_bind"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	ValidateResponses bool   `yaml:"validate_responses"`
}

// OTLPConfig contains collector endpoint settings. Endpoint is the OTLP/gRPC
// trace collector (host:port); LogsEndpoint is the full OTLP/HTTP logs URL.
type OTLPConfig struct {
	Endpoint     string `yaml:"endpoint"`
	LogsEndpoint string `yaml:"logs_endpoint"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Development bool `yaml:"development"`
}

// PaginationConfig bounds page sizes requested by clients.
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// WebhookConfig configures incident report delivery.
type WebhookConfig struct {
	URL       string `yaml:"url"`
	Secret    string `yaml:"secret"`
	Format    string `yaml:"format"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Default returns v1alpha1 defaults. Debounce values have no defaults.
func Default() ConsoleConfig {
	return ConsoleConfig{
		APIVersion: "console.rsm-incident.dev/v1alpha1",
		Kind:       "ConsoleConfig",
		Checks:     map[string]incident.DebounceConfig{},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		HTTP: HTTPConfig{
			Bind:              ":8080",
			MetricsBind:       ":2112",
			RequestsPerSecond: 50,
		},
		Pagination: PaginationConfig{
			DefaultLimit: 50,
			MaxLimit:     1000,
		},
		Webhook: WebhookConfig{
			Format:    "generic",
			TimeoutMS: 5000,
		},
	}
}

// Load parses and normalizes a console config file.
func Load(path string) (ConsoleConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	checks, err := decodeChecks(data)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Checks = checks
	normalize(&cfg)
	return cfg, nil
}

// decodeChecks reads the checks section. Debounce values have no defaults, so
// an entry missing any key is rejected with ErrConfigMissing.
func decodeChecks(data []byte) (map[string]incident.DebounceConfig, error) {
	var doc struct {
		Checks map[string]checkEntry `yaml:"checks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal checks: %w", err)
	}

	out := make(map[string]incident.DebounceConfig, len(doc.Checks))
	for name, entry := range doc.Checks {
		var missing []string
		if entry.FailCount == nil {
			missing = append(missing, "fail_count")
		}
		if entry.RecoveryCount == nil {
			missing = append(missing, "recovery_count")
		}
		if entry.DelaySeconds == nil {
			missing = append(missing, "delay_seconds")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: check %q has no %s", incident.ErrConfigMissing, name, strings.Join(missing, ", "))
		}
		out[name] = incident.DebounceConfig{
			FailCount:     *entry.FailCount,
			RecoveryCount: *entry.RecoveryCount,
			DelaySeconds:  *entry.DelaySeconds,
		}
	}
	return out, nil
}

func normalize(cfg *ConsoleConfig) {
	def := Default()
	if cfg.Checks == nil {
		cfg.Checks = map[string]incident.DebounceConfig{}
	}
	checks := make(map[string]incident.DebounceConfig, len(cfg.Checks))
	for name, check := range cfg.Checks {
		checks[strings.ToLower(strings.TrimSpace(name))] = check
	}
	cfg.Checks = checks

	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = def.Cache.TTLSeconds
	}
	if cfg.HTTP.Bind == "" {
		cfg.HTTP.Bind = def.HTTP.Bind
	}
	if cfg.HTTP.MetricsBind == "" {
		cfg.HTTP.MetricsBind = def.HTTP.MetricsBind
	}
	if cfg.HTTP.RequestsPerSecond <= 0 {
		cfg.HTTP.RequestsPerSecond = def.HTTP.RequestsPerSecond
	}
	if cfg.Pagination.DefaultLimit <= 0 {
		cfg.Pagination.DefaultLimit = def.Pagination.DefaultLimit
	}
	if cfg.Pagination.MaxLimit <= 0 {
		cfg.Pagination.MaxLimit = def.Pagination.MaxLimit
	}
	if cfg.Pagination.DefaultLimit > cfg.Pagination.MaxLimit {
		cfg.Pagination.DefaultLimit = cfg.Pagination.MaxLimit
	}
	if cfg.Webhook.TimeoutMS <= 0 {
		cfg.Webhook.TimeoutMS = def.Webhook.TimeoutMS
	}
	cfg.Webhook.Format = strings.ToLower(strings.TrimSpace(cfg.Webhook.Format))
	if cfg.Webhook.Format == "" {
		cfg.Webhook.Format = def.Webhook.Format
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = def.APIVersion
	}
	if cfg.Kind == "" {
		cfg.Kind = def.Kind
	}
}
