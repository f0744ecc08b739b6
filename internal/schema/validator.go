// Package schema validates cargohook configuration documents against the
// JSON Schemas embedded in the binary.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cargohook/cargohook/internal/assets"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Validator wraps a compiled schema for repeated validation.
type Validator struct {
	schema *gojsonschema.Schema
}

// registry caches compiled embedded schemas by name for reuse.
var (
	schemaRegistry = make(map[string]*gojsonschema.Schema)
	regMu          sync.RWMutex
)

func compileSchemaBytes(schemaBytes []byte) (*gojsonschema.Schema, error) {
	// Schemas may be authored in YAML or JSON; normalize to canonical JSON
	// bytes for the loader.
	var tmp any
	if err := yaml.Unmarshal(schemaBytes, &tmp); err != nil {
		if err := json.Unmarshal(schemaBytes, &tmp); err != nil {
			return nil, fmt.Errorf("invalid schema format (must be valid YAML or JSON): %w", err)
		}
	}
	jb, err := json.Marshal(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema to JSON: %w", err)
	}
	sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jb))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return sch, nil
}

func ensureSupportedDraft(schemaBytes []byte) error {
	var schemaDoc map[string]interface{}
	if err := yaml.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
			return fmt.Errorf("invalid schema format (must be valid YAML or JSON): %w", err)
		}
	}
	if schemaDoc != nil {
		if v, ok := schemaDoc["$schema"].(string); ok {
			if !strings.Contains(v, "draft-07") && !strings.Contains(v, "2020-12") {
				return fmt.Errorf("unsupported $schema: only Draft-07 and Draft-2020-12 supported")
			}
		}
	}
	return nil
}

// NewValidatorFromBytes compiles schema bytes (JSON or YAML) into a reusable validator.
func NewValidatorFromBytes(schemaBytes []byte) (*Validator, error) {
	if err := ensureSupportedDraft(schemaBytes); err != nil {
		return nil, err
	}
	sch, err := compileSchemaBytes(schemaBytes)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: sch}, nil
}

// GetEmbeddedValidator returns a validator for a named embedded schema
// (e.g., "hooks-manifest-v1.0.0"). Compiled schemas are cached.
func GetEmbeddedValidator(schemaName string) (*Validator, error) {
	regMu.RLock()
	if sch, ok := schemaRegistry[schemaName]; ok {
		regMu.RUnlock()
		return &Validator{schema: sch}, nil
	}
	regMu.RUnlock()

	data, ok := assets.GetSchema(schemaName + ".json")
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("embedded schema not found: %s", schemaName)
	}
	sch, err := compileSchemaBytes(data)
	if err != nil {
		return nil, err
	}

	regMu.Lock()
	schemaRegistry[schemaName] = sch
	regMu.Unlock()

	return &Validator{schema: sch}, nil
}

// Validate applies the compiled schema to the provided data structure.
func (v *Validator) Validate(data interface{}) (*Result, error) {
	if v == nil || v.schema == nil {
		return nil, fmt.Errorf("validator not initialised")
	}
	return validateWithCompiled(v.schema, data)
}

// ValidateBytes parses YAML/JSON bytes and validates them against the compiled schema.
func (v *Validator) ValidateBytes(dataBytes []byte) (*Result, error) {
	if v == nil || v.schema == nil {
		return nil, fmt.Errorf("validator not initialised")
	}
	var data interface{}
	if err := yaml.Unmarshal(dataBytes, &data); err != nil {
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return nil, fmt.Errorf("failed to parse data bytes (YAML/JSON): %w", err)
		}
	}
	return validateWithCompiled(v.schema, data)
}

// Validate validates data against the named embedded schema.
func Validate(data interface{}, schemaName string) (*Result, error) {
	validator, err := GetEmbeddedValidator(schemaName)
	if err != nil {
		return nil, err
	}
	return validator.Validate(data)
}

// improveErrorMessage translates cryptic JSON Schema validator messages into
// more actionable ones for manifest authors.
func improveErrorMessage(path, message string) string {
	if strings.HasPrefix(path, "hooks") {
		if strings.Contains(message, "Property name of") || strings.Contains(message, "propertyNames") {
			return message + " (hook type must be one of: pre-commit, pre-push)"
		}
	}
	if strings.Contains(message, "Additional property") {
		return message + " (check for typos in stage attribute names)"
	}
	return message
}

func validateWithCompiled(sch *gojsonschema.Schema, data interface{}) (*Result, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode data to JSON: %w", err)
	}
	result, err := sch.Validate(gojsonschema.NewBytesLoader(dataJSON))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: improveErrorMessage(field, verr.Description()),
			})
		}
	}
	return res, nil
}
