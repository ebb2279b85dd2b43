package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	sandboxSchemaOnce sync.Once
	sandboxSchemaJSON []byte
	sandboxSchemaErr  error
)

// SandboxSchema returns the JSON Schema for SandboxConfig, so operators and
// editor tooling can validate a sandbox config document before it's loaded.
func SandboxSchema() ([]byte, error) {
	sandboxSchemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			FieldNameTag: "yaml",
		}
		schema := r.Reflect(&SandboxConfig{})
		sandboxSchemaJSON, sandboxSchemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return sandboxSchemaJSON, sandboxSchemaErr
}
