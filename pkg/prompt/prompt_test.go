package prompt

import (
	"testing"

	"github.com/pkg/errors"
)

const letterSchema = `{
  "type": "object",
  "properties": {
    "letter": {"type": "string"},
    "reason": {"type": "string"}
  },
  "required": ["letter", "reason"],
  "additionalProperties": false
}`

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema("write_letter", []byte(letterSchema))
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}

	if len(schema.Raw) == 0 {
		t.Error("Expected raw schema to be kept")
	}

	p := Prompt{Name: "write_letter", Schema: schema}
	if !p.Structured() {
		t.Error("Expected prompt with schema to be structured")
	}
}

func TestParseSchemaInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{"type": `},
		{name: "not an object", data: `["type"]`},
		{name: "bad keyword value", data: `{"type": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema("broken", []byte(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var schemaErr *InvalidSchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("Expected *InvalidSchemaError, got %T", err)
			}
			if schemaErr.Prompt != "broken" {
				t.Errorf("Expected prompt name 'broken', got %q", schemaErr.Prompt)
			}
		})
	}
}

func TestSchemaValidate(t *testing.T) {
	schema, err := ParseSchema("write_letter", []byte(letterSchema))
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}

	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{name: "conforming", doc: `{"letter": "Dear team", "reason": "tone"}`, wantError: false},
		{name: "missing field", doc: `{"letter": "Dear team"}`, wantError: true},
		{name: "extra field", doc: `{"letter": "a", "reason": "b", "extra": 1}`, wantError: true},
		{name: "wrong type", doc: `{"letter": 3, "reason": "b"}`, wantError: true},
		{name: "not json", doc: `Dear team`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate([]byte(tt.doc))
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestUnstructuredPrompt(t *testing.T) {
	p := Prompt{Name: "free", Template: "<job_description>"}
	if p.Structured() {
		t.Error("Expected prompt without schema to be unstructured")
	}
}
