package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/relationship"
)

var kindByName = map[string]relationship.Kind{
	"DEPENDENCY": relationship.Dependency,
	"PLUGIN":     relationship.Plugin,
	"PLUGIN_DEP": relationship.PluginDep,
	"PARENT":     relationship.Parent,
	"BOM":        relationship.Bom,
	"EXTENSION":  relationship.Extension,
}

// relationshipDoc is the on-disk YAML shape a dependency graph is loaded
// from: a flat list of relationships, independent of any particular
// build-tool document format. Producing this list from an actual POM
// tree is the Maven parser's job, explicitly out of scope here — this
// loader only ever consumes the already-extracted relationships.
type relationshipDoc struct {
	Kind         string   `yaml:"kind"`
	Scope        string   `yaml:"scope"`
	Declaring    string   `yaml:"declaring"`
	Target       string   `yaml:"target"`
	Managed      bool     `yaml:"managed"`
	Concrete     bool     `yaml:"concrete"`
	Sources      []string `yaml:"sources"`
	POMLocation  string   `yaml:"pom_location"`
	Index        int      `yaml:"index"`
}

// graphDoc is the top-level document: a flat relationship list.
type graphDoc struct {
	Relationships []relationshipDoc `yaml:"relationships"`
}

// loadGraphDoc reads and parses a graph document from path.
func loadGraphDoc(path string) (graphDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graphDoc{}, fmt.Errorf("depgraphctl: reading graph document: %w", err)
	}
	var doc graphDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return graphDoc{}, fmt.Errorf("depgraphctl: parsing graph document: %w", err)
	}
	return doc, nil
}

// toRelationships resolves every entry in doc into a relationship.Relationship.
func (doc graphDoc) toRelationships() ([]relationship.Relationship, error) {
	out := make([]relationship.Relationship, 0, len(doc.Relationships))
	for i, rd := range doc.Relationships {
		rel, err := rd.toRelationship()
		if err != nil {
			return nil, fmt.Errorf("depgraphctl: relationship %d: %w", i, err)
		}
		out = append(out, rel)
	}
	return out, nil
}

func (rd relationshipDoc) toRelationship() (relationship.Relationship, error) {
	declaring, err := coordinate.Parse(rd.Declaring)
	if err != nil {
		return relationship.Relationship{}, err
	}
	target, err := coordinate.Parse(rd.Target)
	if err != nil {
		return relationship.Relationship{}, err
	}
	kind, ok := kindByName[rd.Kind]
	if !ok {
		return relationship.Relationship{}, fmt.Errorf("unrecognized relationship kind %q", rd.Kind)
	}
	if kind == relationship.Dependency {
		return relationship.NewDependency(rd.Scope, declaring, target, rd.Managed, rd.Concrete, rd.Sources, rd.POMLocation, rd.Index)
	}
	return relationship.New(kind, declaring, target, rd.Managed, rd.Concrete, rd.Sources, rd.POMLocation, rd.Index)
}
