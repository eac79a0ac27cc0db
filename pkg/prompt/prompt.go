// Package prompt defines one named step of a generation pipeline.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Prompt combines a fixed instruction, a placeholder-bearing template, and an optional
// output schema. Name is unique within a pipeline and is the store key its output occupies.
type Prompt struct {
	Name        string
	Instruction string
	Template    string
	Schema      *Schema
}

// Structured reports whether the prompt constrains its response to a schema.
func (p Prompt) Structured() (ok bool) {
	ok = p.Schema != nil
	return ok
}

// Schema is a compiled JSON schema constraining a step's response.
type Schema struct {
	Raw      json.RawMessage
	compiled *jsonschema.Schema
}

// InvalidSchemaError reports a schema document that is not well-formed.
type InvalidSchemaError struct {
	Prompt string
	Err    error
}

func (e *InvalidSchemaError) Error() (msg string) {
	msg = fmt.Sprintf("invalid output schema for prompt %q: %v", e.Prompt, e.Err)
	return msg
}

// Unwrap exposes the underlying parse or compile error.
func (e *InvalidSchemaError) Unwrap() (err error) {
	err = e.Err
	return err
}

// ParseSchema compiles a JSON schema document for the named prompt.
func ParseSchema(promptName string, data []byte) (schema *Schema, err error) {
	var doc interface{}
	doc, err = jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		err = &InvalidSchemaError{Prompt: promptName, Err: err}
		return schema, err
	}

	if _, isObject := doc.(map[string]interface{}); !isObject {
		err = &InvalidSchemaError{Prompt: promptName, Err: errors.New("schema must be a JSON object")}
		return schema, err
	}

	location := "file:///prompts/" + promptName + "/schema.json"

	compiler := jsonschema.NewCompiler()
	err = compiler.AddResource(location, doc)
	if err != nil {
		err = &InvalidSchemaError{Prompt: promptName, Err: err}
		return schema, err
	}

	var compiled *jsonschema.Schema
	compiled, err = compiler.Compile(location)
	if err != nil {
		err = &InvalidSchemaError{Prompt: promptName, Err: err}
		return schema, err
	}

	var compact bytes.Buffer
	err = json.Compact(&compact, data)
	if err != nil {
		err = &InvalidSchemaError{Prompt: promptName, Err: err}
		return schema, err
	}

	schema = &Schema{
		Raw:      json.RawMessage(compact.Bytes()),
		compiled: compiled,
	}

	return schema, err
}

// Validate parses a JSON document and checks it against the schema.
func (s *Schema) Validate(data []byte) (err error) {
	var inst interface{}
	inst, err = jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		err = errors.Wrap(err, "response is not valid JSON")
		return err
	}

	err = s.compiled.Validate(inst)
	if err != nil {
		err = errors.Wrap(err, "response does not match output schema")
		return err
	}

	return err
}
