package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed contracts/v1/*.schema.json
var contracts embed.FS

// IncidentSchemaV1 is the embedded path of the incident-detail contract.
const IncidentSchemaV1 = "contracts/v1/incident.schema.json"

// ValidateAgainstSchema validates an arbitrary payload against a JSON schema file.
func ValidateAgainstSchema(schemaPath string, payload interface{}) error {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", schemaPath, err)
	}
	return validateBytes(schemaBytes, payload)
}

// ValidateIncident validates an incident document against the embedded v1 contract.
func ValidateIncident(payload interface{}) error {
	schemaBytes, err := contracts.ReadFile(IncidentSchemaV1)
	if err != nil {
		return fmt.Errorf("read embedded schema %s: %w", IncidentSchemaV1, err)
	}
	return validateBytes(schemaBytes, payload)
}

// IncidentSchema returns the raw embedded contract, e.g. for serving to clients.
func IncidentSchema() []byte {
	out, _ := contracts.ReadFile(IncidentSchemaV1)
	return out
}

func validateBytes(schemaBytes []byte, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	errors := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		errors = append(errors, issue.String())
	}
	return fmt.Errorf("payload failed schema validation: %s", strings.Join(errors, "; "))
}
