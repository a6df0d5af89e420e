package toolbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaDoc is the subset of a JSON Schema object this package inspects
// directly, to build a detailed guidance message that includes the full
// parameter schema and a concrete example call. Structural correctness is
// still enforced by a compiled jsonschema.Schema, not by this struct.
type schemaDoc struct {
	Properties map[string]schemaProp `json:"properties"`
	Required   []string              `json:"required"`
}

type schemaProp struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Validate enforces the tool-parameter contract: the tool must exist,
// params must be a mapping (guaranteed by the map[string]any type in Go),
// every required property must be present, and each present property's
// value must match its declared type. For missing required parameters the
// returned message embeds the full schema and a concrete example call; a
// schema-validation failure embeds the schema only.
func (b *Bridge) Validate(toolName string, params map[string]any) (ok bool, message string) {
	info, found := b.lookupTool(toolName)
	if !found {
		return false, fmt.Sprintf("Tool %q not found. Available tools: %s", toolName, strings.Join(b.toolNames(), ", "))
	}

	if len(info.Parameters) == 0 {
		return true, ""
	}

	var doc schemaDoc
	if err := json.Unmarshal(info.Parameters, &doc); err != nil {
		// Schema itself is malformed; nothing to check against.
		return true, ""
	}

	var missing []string
	for _, req := range doc.Required {
		if _, present := params[req]; !present {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return false, b.missingParamsMessage(toolName, missing, doc, info.Parameters)
	}

	compiled, err := b.compileSchema(toolName, info.Parameters)
	if err == nil {
		if verr := compiled.Validate(toAny(params)); verr != nil {
			return false, fmt.Sprintf("Parameter validation failed for %q: %v\n\nSchema: %s", toolName, verr, string(info.Parameters))
		}
		return true, ""
	}

	// Compiler rejected the schema (e.g. a dialect-specific extension it
	// doesn't understand); fall back to the per-property type check below
	// rather than failing validation on a Bridge-internal problem.
	var typeErrors []string
	for name, value := range params {
		prop, ok := doc.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if !matchesType(value, prop.Type) {
			typeErrors = append(typeErrors, fmt.Sprintf("parameter %q should be %s, got %T", name, prop.Type, value))
		}
	}
	if len(typeErrors) > 0 {
		return false, fmt.Sprintf("Parameter type errors for %q:\n  - %s", toolName, strings.Join(typeErrors, "\n  - "))
	}
	return true, ""
}

func (b *Bridge) missingParamsMessage(toolName string, missing []string, doc schemaDoc, rawSchema json.RawMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Missing required parameters for %q: %s\n", toolName, strings.Join(missing, ", "))
	sb.WriteString("Required parameters:\n")
	for _, name := range missing {
		prop := doc.Properties[name]
		typ := prop.Type
		if typ == "" {
			typ = "unknown"
		}
		desc := prop.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&sb, "  - %s (%s): %s\n", name, typ, desc)
	}
	fmt.Fprintf(&sb, "Schema: %s\n", string(rawSchema))
	if example := usageExample(toolName, doc); example != "" {
		fmt.Fprintf(&sb, "Example usage: %s", example)
	}
	return strings.TrimSpace(sb.String())
}

// usageExample synthesizes a concrete call like `write_file(path="/path/to/file", content="content here")`.
func usageExample(toolName string, doc schemaDoc) string {
	required := doc.Required
	if len(required) > 3 {
		required = required[:3]
	}
	var parts []string
	for _, name := range required {
		prop := doc.Properties[name]
		parts = append(parts, fmt.Sprintf("%s=%s", name, exampleValueFor(name, prop.Type)))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s(%s)", toolName, strings.Join(parts, ", "))
}

func exampleValueFor(name, typ string) string {
	lname := strings.ToLower(name)
	switch {
	case strings.Contains(lname, "path"):
		return `"/path/to/file"`
	case strings.Contains(lname, "content"):
		return `"content here"`
	case strings.Contains(lname, "message"):
		return `"message text"`
	}
	switch typ {
	case "boolean":
		return "true"
	case "integer", "number":
		return "10"
	default:
		return `"value"`
	}
}

func matchesType(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch value.(type) {
		case int, int32, int64, float64: // JSON numbers decode as float64
			return true
		}
		return false
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true // unknown declared type: allow it
	}
}

// compileSchema compiles and caches a jsonschema.Schema for toolName.
func (b *Bridge) compileSchema(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	b.schemaMu.Lock()
	defer b.schemaMu.Unlock()
	if s, ok := b.compiledSchemas[toolName]; ok {
		return s, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	url := "mem://" + toolName
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	b.compiledSchemas[toolName] = schema
	return schema, nil
}

func toAny(params map[string]any) any {
	// jsonschema validates against decoded JSON values; round-trip through
	// encoding/json so numeric types match what a real wire payload would be.
	data, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	_ = dec.Decode(&v)
	return v
}
