package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/consolecfg"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/debounce"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/schema"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/store/memory"
)

type check struct {
	name string
	run  func(root string) error
}

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Println(version)
		return
	}

	root := projectRoot()
	checks := []check{
		{name: "schema document parse", run: validateSchemaDocuments},
		{name: "console config schema", run: validateConsoleConfigAgainstSchema},
		{name: "console config loader", run: validateConsoleConfigLoader},
		{name: "fixture incidents", run: validateFixtureIncidents},
	}

	for _, c := range checks {
		if err := c.run(root); err != nil {
			fmt.Fprintf(os.Stderr, "schema validation failed (%s): %v\n", c.name, err)
			os.Exit(1)
		}
		fmt.Printf("ok: %s\n", c.name)
	}
}

func validateSchemaDocuments(root string) error {
	if err := validateSchemaBytes(schema.IncidentSchemaV1, schema.IncidentSchema()); err != nil {
		return err
	}
	path := filepath.Join(root, "config", "console.schema.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", path, err)
	}
	return validateSchemaBytes(path, data)
}

func validateConsoleConfigAgainstSchema(root string) error {
	schemaPath := filepath.Join(root, "config", "console.schema.json")
	configPath := filepath.Join(root, "config", "console.yaml")

	payloadBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read console config %s: %w", configPath, err)
	}

	var yamlPayload interface{}
	if err := yaml.Unmarshal(payloadBytes, &yamlPayload); err != nil {
		return fmt.Errorf("parse console yaml %s: %w", configPath, err)
	}

	return validatePayloadAgainstSchema(schemaPath, normalizeYAML(yamlPayload))
}

func validateConsoleConfigLoader(root string) error {
	configPath := filepath.Join(root, "config", "console.yaml")
	cfg, err := consolecfg.Load(configPath)
	if err != nil {
		return fmt.Errorf("load console config %s: %w", configPath, err)
	}
	for _, check := range []string{debounce.CheckDNS, debounce.CheckDNSSEC, debounce.CheckRDDS, debounce.CheckEPP} {
		if _, ok := cfg.Checks[check]; !ok {
			return fmt.Errorf("console config %s has no debounce values for %s", configPath, check)
		}
	}
	return nil
}

// validateFixtureIncidents reconstructs every trigger in the sample fixtures,
// paged and unpaged, and checks the documents against the incident contract.
func validateFixtureIncidents(root string) error {
	cfg, err := consolecfg.Load(filepath.Join(root, "config", "console.yaml"))
	if err != nil {
		return err
	}
	path := filepath.Join(root, "testdata", "incident-fixtures.jsonl")
	store, err := memory.LoadJSONL(path)
	if err != nil {
		return err
	}
	engine := incident.NewReconstructor(store, store.Probes(), store.Metrics(),
		debounce.NewStaticResolver(cfg.Checks),
		incident.WithClock(func() time.Time { return time.Unix(1_000_000, 0) }),
	)

	for _, key := range store.Triggers() {
		for _, page := range []*incident.PageSpec{nil, {Offset: 0, Limit: 3}} {
			inc, err := engine.ReconstructIncident(context.Background(), incident.ReconstructRequest{
				EntityID:  key.EntityID,
				TriggerID: key.TriggerID,
				CheckType: debounce.CheckDNS,
				Page:      page,
			})
			if err != nil {
				return fmt.Errorf("reconstruct entity %d trigger %d: %w", key.EntityID, key.TriggerID, err)
			}
			if err := schema.ValidateIncident(inc); err != nil {
				return fmt.Errorf("entity %d trigger %d: %w", key.EntityID, key.TriggerID, err)
			}
		}
	}
	return nil
}

func validateSchemaBytes(name string, data []byte) error {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse schema json %s: %w", name, err)
	}

	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data)); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	return nil
}

func validatePayloadAgainstSchema(schemaPath string, payload interface{}) error {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", schemaPath, err)
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", schemaPath, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("validate payload against %s: %w", schemaPath, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		errs = append(errs, issue.String())
	}
	return fmt.Errorf("payload failed %s: %s", schemaPath, strings.Join(errs, "; "))
}

func normalizeYAML(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, value := range x {
			out[k] = normalizeYAML(value)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, value := range x {
			out[fmt.Sprint(k)] = normalizeYAML(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = normalizeYAML(x[i])
		}
		return out
	default:
		return x
	}
}

func projectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}
