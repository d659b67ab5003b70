package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildExtractionSchema returns the JSON Schema (draft 2020-12 subset) the
// vision backend's receipt JSON must satisfy. Numeric fields admit strings
// because models frequently quote amounts; the normalizer coerces them.
func BuildExtractionSchema() map[string]any {
	money := map[string]any{"type": []string{"number", "string"}}
	moneyOrNull := map[string]any{"type": []string{"number", "string", "null"}}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"merchant": map[string]any{"type": "string"},
			"date":     map[string]any{"type": []string{"string", "null"}},
			"total":    money,
			"tax":      money,
			"subtotal": moneyOrNull,
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":     map[string]any{"type": "string"},
						"price":    money,
						"quantity": money,
					},
				},
			},
			"paymentMethod": map[string]any{"type": []string{"string", "null"}},
			"rawText":       map[string]any{"type": []string{"string", "null"}},
		},
	}
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
