package matrix

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Marshal serializes the matrix back to YAML. Pipeline templates are
// re-emitted once under their backend section with an anchor, and model
// pipeline lists reference them by alias, so a loaded-and-rewritten matrix
// keeps the same sharing structure as the source.
func Marshal(m *Matrix) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	globalsNode := &yaml.Node{}
	if err := globalsNode.Encode(m.Globals); err != nil {
		return nil, errors.Wrap(err, "encode globals")
	}
	appendPair(root, "globals", globalsNode)

	anchored := make(map[*PipelineProfile]*yaml.Node, len(m.registry))
	for _, g := range m.Backends {
		section := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range g.Pipelines {
			node := &yaml.Node{}
			if err := node.Encode(p); err != nil {
				return nil, errors.Wrapf(err, "encode pipeline %s", p.Name)
			}
			node.Anchor = p.Name
			anchored[p] = node
			appendPair(section, p.Name, node)
		}
		appendPair(root, g.Name, section)
	}

	models := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range m.Models {
		node, err := encodeModel(e, anchored)
		if err != nil {
			return nil, err
		}
		models.Content = append(models.Content, node)
	}
	appendPair(root, "models", models)

	return yaml.Marshal(root)
}

// WriteFile rewrites the matrix to path in normalized form.
func WriteFile(path string, m *Matrix) error {
	raw, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write matrix %s", path)
	}
	return nil
}

func encodeModel(e ModelEntry, anchored map[*PipelineProfile]*yaml.Node) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	appendPair(node, "name", scalar(e.Name))
	appendPair(node, "metafile", scalar(e.Metafile))

	configs := &yaml.Node{Kind: yaml.SequenceNode}
	for _, cfg := range e.ModelConfigs {
		configs.Content = append(configs.Content, scalar(cfg))
	}
	appendPair(node, "model_configs", configs)

	pipelines := &yaml.Node{Kind: yaml.SequenceNode}
	for _, p := range e.Pipelines {
		if target, ok := anchored[p]; ok {
			pipelines.Content = append(pipelines.Content, &yaml.Node{
				Kind:  yaml.AliasNode,
				Value: p.Name,
				Alias: target,
			})
			continue
		}
		// Inline pipeline, emitted in place.
		inline := &yaml.Node{}
		if err := inline.Encode(p); err != nil {
			return nil, errors.Wrapf(err, "model %s: encode inline pipeline", e.Name)
		}
		pipelines.Content = append(pipelines.Content, inline)
	}
	appendPair(node, "pipelines", pipelines)
	return node, nil
}

func appendPair(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, scalar(key), value)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
