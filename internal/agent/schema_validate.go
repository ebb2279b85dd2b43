package agent

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache memoizes compiled tool parameter schemas by tool name so a
// hot tool call doesn't recompile its JSON Schema on every invocation.
var schemaCache sync.Map // tool name -> *jsonschema.Schema

// validateToolParams checks params against the tool's own declared JSON
// Schema before Execute runs, so a malformed tool call fails fast with a
// schema error instead of an arbitrary panic or type-assertion failure
// inside the tool implementation.
func validateToolParams(tool Tool, params json.RawMessage) error {
	schemaBytes := tool.Schema()
	if len(schemaBytes) == 0 {
		return nil
	}

	compiled, err := compileToolSchema(tool.Name(), schemaBytes)
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", tool.Name(), err)
	}

	var decoded any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return fmt.Errorf("decode tool parameters: %w", err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("tool parameters invalid: %w", err)
	}
	return nil
}

func compileToolSchema(name string, schemaBytes json.RawMessage) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", string(schemaBytes))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(name, compiled)
	return compiled, nil
}
