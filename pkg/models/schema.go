package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "devsync-message.json"

// GenerateSchema reflects the wire Message into a JSON Schema document.
func GenerateSchema() ([]byte, error) {
	r := &invopop.Reflector{
		// Newer capture scripts may add fields; they are ignored on decode.
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "json",
	}

	schema := r.Reflect(&Message{})
	schema.Title = "DevSync Change Message"
	schema.Description = "One change event sent from the capture side to the patcher."

	return json.MarshalIndent(schema, "", "  ")
}

// Validator validates decoded wire messages against the generated schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the wire schema.
func NewValidator() (*Validator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add message schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile message schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a generic JSON value (as produced by json.Unmarshal into
// interface{}) against the schema.
func (v *Validator) Validate(doc interface{}) error {
	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			if len(messages) == 0 {
				messages = append(messages, validationErr.Message)
			}
			return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*messages = append(*messages, fmt.Sprintf("%s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}

var (
	defaultValidator     *Validator
	defaultValidatorErr  error
	defaultValidatorOnce sync.Once
)

// DefaultValidator returns a process-wide validator, compiled on first use.
func DefaultValidator() (*Validator, error) {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewValidator()
	})
	return defaultValidator, defaultValidatorErr
}
