package matrix

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ReferenceError reports a model pipeline reference whose anchor is not a
// registered pipeline template. It is its own type so callers can map it
// to a distinct exit code.
type ReferenceError struct {
	Model string
	Ref   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("model %s: pipeline reference *%s does not name a pipeline template", e.Model, e.Ref)
}

// Load reads and resolves a matrix file. Referential errors (a model
// referencing an anchor that is not a pipeline template) abort the load;
// silently skipping a reference would leave a model/backend combination
// untested without anyone noticing.
func Load(path string) (*Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read matrix %s", path)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse matrix %s", path)
	}
	return m, nil
}

// Parse decodes a matrix document. The document is walked as a node tree
// rather than unmarshalled directly so that alias references in model
// pipeline lists keep their anchor names; the names are what tie a model
// entry back to the template registry.
func Parse(raw []byte) (*Matrix, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty matrix document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("matrix root must be a mapping, got %s at line %d", kindName(root.Kind), root.Line)
	}

	m := &Matrix{registry: make(map[string]*PipelineProfile)}
	var modelsNode *yaml.Node

	// First pass: globals and the per-backend template sections. The
	// models section is resolved last so that template definition order
	// in the file does not matter relative to it.
	for i := 0; i < len(root.Content)-1; i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]
		switch key {
		case "globals":
			if err := value.Decode(&m.Globals); err != nil {
				return nil, errors.Wrap(err, "globals")
			}
		case "models":
			modelsNode = value
		default:
			group, err := m.parseBackendGroup(key, value)
			if err != nil {
				return nil, err
			}
			m.Backends = append(m.Backends, group)
		}
	}

	if modelsNode == nil {
		return nil, errors.New("matrix has no models section")
	}
	if modelsNode.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("models must be a sequence, got %s at line %d", kindName(modelsNode.Kind), modelsNode.Line)
	}
	for _, item := range modelsNode.Content {
		entry, err := m.parseModel(item)
		if err != nil {
			return nil, err
		}
		m.Models = append(m.Models, entry)
	}
	return m, nil
}

func (m *Matrix) parseBackendGroup(backend string, node *yaml.Node) (BackendGroup, error) {
	group := BackendGroup{Name: backend}
	if node.Kind != yaml.MappingNode {
		return group, errors.Errorf("backend section %s must be a mapping of pipeline templates, got %s at line %d",
			backend, kindName(node.Kind), node.Line)
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		name := node.Content[i].Value
		def := node.Content[i+1]
		if def.Kind != yaml.MappingNode {
			return group, errors.Errorf("backend %s: pipeline %s must be a mapping, got %s at line %d",
				backend, name, kindName(def.Kind), def.Line)
		}
		p := &PipelineProfile{Name: name, Backend: backend}
		if err := def.Decode(p); err != nil {
			return group, errors.Wrapf(err, "backend %s: pipeline %s", backend, name)
		}
		p.sdkDeclared = hasKey(def, "sdk_config")
		if err := m.register(name, p); err != nil {
			return group, err
		}
		// Aliases resolve against the anchor, which by convention
		// matches the mapping key; register both when they differ.
		if def.Anchor != "" && def.Anchor != name {
			if err := m.register(def.Anchor, p); err != nil {
				return group, err
			}
		}
		group.Pipelines = append(group.Pipelines, p)
	}
	return group, nil
}

func (m *Matrix) register(name string, p *PipelineProfile) error {
	if prev, ok := m.registry[name]; ok && prev != p {
		return errors.Errorf("pipeline template %s defined twice (backends %s and %s)", name, prev.Backend, p.Backend)
	}
	m.registry[name] = p
	return nil
}

func (m *Matrix) parseModel(node *yaml.Node) (ModelEntry, error) {
	var entry ModelEntry
	if node.Kind != yaml.MappingNode {
		return entry, errors.Errorf("model entry must be a mapping, got %s at line %d", kindName(node.Kind), node.Line)
	}
	var pipelinesNode *yaml.Node
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "name":
			if err := value.Decode(&entry.Name); err != nil {
				return entry, errors.Wrapf(err, "model entry at line %d: name", node.Line)
			}
		case "metafile":
			if err := value.Decode(&entry.Metafile); err != nil {
				return entry, errors.Wrapf(err, "model %s: metafile", entry.Name)
			}
		case "model_configs":
			if err := value.Decode(&entry.ModelConfigs); err != nil {
				return entry, errors.Wrapf(err, "model %s: model_configs", entry.Name)
			}
		case "pipelines":
			pipelinesNode = value
		}
	}
	if entry.Name == "" {
		return entry, errors.Errorf("model entry at line %d has no name", node.Line)
	}
	if pipelinesNode == nil {
		return entry, errors.Errorf("model %s declares no pipelines", entry.Name)
	}
	if pipelinesNode.Kind != yaml.SequenceNode {
		return entry, errors.Errorf("model %s: pipelines must be a sequence, got %s at line %d",
			entry.Name, kindName(pipelinesNode.Kind), pipelinesNode.Line)
	}
	for _, ref := range pipelinesNode.Content {
		p, err := m.resolvePipelineRef(entry.Name, ref)
		if err != nil {
			return entry, err
		}
		entry.Pipelines = append(entry.Pipelines, p)
	}
	return entry, nil
}

// resolvePipelineRef accepts either an alias into the template registry or
// an inline mapping (an anonymous, single-use pipeline).
func (m *Matrix) resolvePipelineRef(model string, ref *yaml.Node) (*PipelineProfile, error) {
	switch ref.Kind {
	case yaml.AliasNode:
		p, ok := m.registry[ref.Value]
		if !ok {
			return nil, &ReferenceError{Model: model, Ref: ref.Value}
		}
		return p, nil
	case yaml.MappingNode:
		p := &PipelineProfile{}
		if err := ref.Decode(p); err != nil {
			return nil, errors.Wrapf(err, "model %s: inline pipeline at line %d", model, ref.Line)
		}
		p.sdkDeclared = hasKey(ref, "sdk_config")
		return p, nil
	default:
		return nil, errors.Errorf("model %s: pipeline reference at line %d must be an alias or a mapping", model, ref.Line)
	}
}

func hasKey(mapping *yaml.Node, key string) bool {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			return true
		}
	}
	return false
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
