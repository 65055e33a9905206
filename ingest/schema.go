package ingest

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/xiaot623/driftscope/domain"
)

// eventSchema is the contract for one JSONL trace record. Only the three
// required fields are pinned down; extra fields stay open for forward
// compatibility.
const eventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["timestamp", "trace_id", "event_type"],
  "properties": {
    "timestamp": {"type": "string", "minLength": 1},
    "trace_id": {"type": "string", "minLength": 1},
    "span_id": {"type": "string"},
    "component": {"type": "string"},
    "event_type": {"type": "string", "minLength": 1},
    "execution_stage": {"type": "string"},
    "phase": {"type": "string"},
    "turn": {"type": "integer"},
    "payload": {"type": "object"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledEventSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("event.schema.json", eventSchema)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks one raw line against the event schema.
func validateSchema(line []byte) error {
	schema, err := compiledEventSchema()
	if err != nil {
		return err
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return &domain.MalformedEventError{Field: "line", Reason: "not a JSON object"}
	}
	if err := schema.Validate(v); err != nil {
		return &domain.MalformedEventError{Field: "schema", Reason: err.Error()}
	}
	return nil
}
