package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const jobStatusSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"id": {"type": "string"},
		"status": {"enum": ["queued", "running", "succeeded", "failed"]},
		"current_step": {"type": ["string", "null"]},
		"percent": {"type": ["number", "null"]},
		"job_path": {"type": ["string", "null"]},
		"error": {"type": ["string", "null"]}
	}
}`

const jobResultsSchema = `{
	"type": "object",
	"properties": {
		"summary": {"type": ["string", "null"]},
		"drafts": {
			"type": ["object", "null"],
			"additionalProperties": {"type": ["array", "null"]}
		},
		"posters": {
			"type": ["object", "null"],
			"additionalProperties": {
				"type": ["array", "null"],
				"items": {"$ref": "#/$defs/asset"}
			}
		},
		"docs": {"type": ["array", "null"], "items": {"$ref": "#/$defs/asset"}},
		"cards": {"type": ["array", "null"], "items": {"$ref": "#/$defs/asset"}}
	},
	"$defs": {
		"asset": {
			"type": "object",
			"required": ["url"],
			"properties": {
				"url": {"type": "string"},
				"name": {"type": ["string", "null"]}
			}
		}
	}
}`

const jobCreatedSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1}
	}
}`

// payloadSchemas holds the compiled shapes of every JSON body we decode.
type payloadSchemas struct {
	status  *jsonschema.Schema
	results *jsonschema.Schema
	created *jsonschema.Schema
}

func compilePayloadSchemas() (*payloadSchemas, error) {
	status, err := compileSchema("job_status.json", jobStatusSchema)
	if err != nil {
		return nil, err
	}
	results, err := compileSchema("job_results.json", jobResultsSchema)
	if err != nil {
		return nil, err
	}
	created, err := compileSchema("job_created.json", jobCreatedSchema)
	if err != nil {
		return nil, err
	}
	return &payloadSchemas{status: status, results: results, created: created}, nil
}

func compileSchema(name, source string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// validatePayload checks body against schema before it is decoded into Go
// types.
func validatePayload(schema *jsonschema.Schema, body []byte) error {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
