// Package schema validates a raw matrix document against the published
// JSON Schema before the typed loader runs, so malformed documents fail
// with schema paths instead of decode errors.
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Validate checks doc against the schema file and returns the list of
// violation messages. A nil, nil return means the document conforms.
func Validate(schemaPath string, doc any) ([]string, error) {
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)
	docLoader := gojsonschema.NewGoLoader(doc)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", schemaPath, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}

// DecodeDocument unmarshals raw matrix YAML into plain Go values with all
// anchors and aliases resolved, the shape gojsonschema expects.
func DecodeDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode matrix document: %w", err)
	}
	return doc, nil
}
