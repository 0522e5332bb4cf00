package debounce

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

// Check types monitored per TLD.
const (
	CheckDNS    = "dns"
	CheckDNSSEC = "dnssec"
	CheckRDDS   = "rdds"
	CheckEPP    = "epp"
)

// Macros names the three configuration values that parametrize one check type.
type Macros struct {
	Fail    string
	Recover string
	Delay   string
}

// MacrosFor returns the macro names for a check type. DNSSEC is evaluated on
// the DNS probe cycle and shares its delay.
func MacrosFor(checkType string) (Macros, error) {
	switch normalizeCheck(checkType) {
	case CheckDNS:
		return Macros{Fail: "RSM.INCIDENT.DNS.FAIL", Recover: "RSM.INCIDENT.DNS.RECOVER", Delay: "RSM.DNS.UDP.DELAY"}, nil
	case CheckDNSSEC:
		return Macros{Fail: "RSM.INCIDENT.DNSSEC.FAIL", Recover: "RSM.INCIDENT.DNSSEC.RECOVER", Delay: "RSM.DNS.UDP.DELAY"}, nil
	case CheckRDDS:
		return Macros{Fail: "RSM.INCIDENT.RDDS.FAIL", Recover: "RSM.INCIDENT.RDDS.RECOVER", Delay: "RSM.RDDS.DELAY"}, nil
	case CheckEPP:
		return Macros{Fail: "RSM.INCIDENT.EPP.FAIL", Recover: "RSM.INCIDENT.EPP.RECOVER", Delay: "RSM.EPP.DELAY"}, nil
	default:
		return Macros{}, fmt.Errorf("%w: unknown check type %q", incident.ErrConfigMissing, checkType)
	}
}

// FromValues builds a DebounceConfig from macro values keyed by macro name.
func FromValues(m Macros, values map[string]int64) (incident.DebounceConfig, error) {
	fail, err := lookup(values, m.Fail)
	if err != nil {
		return incident.DebounceConfig{}, err
	}
	recovery, err := lookup(values, m.Recover)
	if err != nil {
		return incident.DebounceConfig{}, err
	}
	delay, err := lookup(values, m.Delay)
	if err != nil {
		return incident.DebounceConfig{}, err
	}
	return incident.DebounceConfig{FailCount: fail, RecoveryCount: recovery, DelaySeconds: delay}, nil
}

func lookup(values map[string]int64, name string) (uint, error) {
	v, ok := values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", incident.ErrConfigMissing, name)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s is negative (%d)", incident.ErrConfigMissing, name, v)
	}
	return uint(v), nil
}

func normalizeCheck(checkType string) string {
	return strings.ToLower(strings.TrimSpace(checkType))
}
