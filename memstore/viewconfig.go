package memstore

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/filter"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/selector"
	"github.com/bxf12315/depgraph/view"
)

// ViewSpec is the YAML shape view configurations can be written in, for
// tests and cmd/depgraphctl — a convenience over hand-assembling a
// view.Config, mirroring how cuelang.org/go/internal/encoding/yaml turns
// a YAML document into a Go value the core then consumes unchanged.
// Filter and Selector name one of the closures package filter/selector
// export; the core itself never parses YAML.
type ViewSpec struct {
	Roots        []string          `yaml:"roots"`
	Filter       string            `yaml:"filter"`
	Selector     string            `yaml:"selector"`
	POMLocations []string          `yaml:"pom_locations"`
	SourceURIs   []string          `yaml:"source_uris"`
	Properties   map[string]string `yaml:"properties"`
}

// DecodeViewSpec parses a YAML document into a ViewSpec.
func DecodeViewSpec(doc []byte) (ViewSpec, error) {
	var spec ViewSpec
	if err := yaml.Unmarshal(doc, &spec); err != nil {
		return ViewSpec{}, fmt.Errorf("memstore: decoding view spec: %w", err)
	}
	return spec, nil
}

// ToConfig resolves spec's root coordinate strings and named
// filter/selector descriptors into a view.Config ready for
// query.Engine.RegisterView.
func (spec ViewSpec) ToConfig() (view.Config, error) {
	roots := make([]coordinate.Coordinate, 0, len(spec.Roots))
	for _, r := range spec.Roots {
		c, err := coordinate.Parse(r)
		if err != nil {
			return view.Config{}, err
		}
		roots = append(roots, c)
	}

	f, err := resolveFilter(spec.Filter)
	if err != nil {
		return view.Config{}, err
	}
	sel, err := resolveSelector(spec.Selector)
	if err != nil {
		return view.Config{}, err
	}

	return view.Config{
		Roots:              roots,
		Filter:             f,
		Selector:           sel,
		FilterDescriptor:   spec.Filter,
		SelectorDescriptor: spec.Selector,
		POMLocations:       append([]string(nil), spec.POMLocations...),
		SourceURIs:         append([]string(nil), spec.SourceURIs...),
		Properties:         spec.Properties,
	}, nil
}

// resolveFilter maps a short descriptor to a concrete pathinfo.Filter.
// Supported forms: "" / "accept-all", "managed-only", "concrete-only",
// and "types=KIND[,KIND...]" (kind names per relationship.Kind.String,
// e.g. "types=DEPENDENCY,BOM").
func resolveFilter(descriptor string) (pathinfo.Filter, error) {
	switch {
	case descriptor == "" || descriptor == "accept-all":
		return filter.AcceptAll(), nil
	case descriptor == "managed-only":
		return filter.ManagedOnly(), nil
	case descriptor == "concrete-only":
		return filter.ConcreteOnly(), nil
	case strings.HasPrefix(descriptor, "types="):
		kinds, err := parseKinds(strings.TrimPrefix(descriptor, "types="))
		if err != nil {
			return nil, err
		}
		return filter.Types(kinds...), nil
	default:
		return nil, fmt.Errorf("memstore: unrecognized filter descriptor %q", descriptor)
	}
}

// resolveSelector maps a short descriptor to a concrete pathinfo.Selector.
// Supported forms: "" / "pass-through", "first-win", "nearest-wins".
func resolveSelector(descriptor string) (pathinfo.Selector, error) {
	switch descriptor {
	case "", "pass-through":
		return selector.PassThrough(), nil
	case "first-win":
		return selector.NewFirstWin(), nil
	case "nearest-wins":
		return selector.NewNearestWins(), nil
	default:
		return nil, fmt.Errorf("memstore: unrecognized selector descriptor %q", descriptor)
	}
}

func parseKinds(list string) ([]relationship.Kind, error) {
	names := strings.Split(list, ",")
	kinds := make([]relationship.Kind, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToUpper(name))
		kind, ok := kindByName[name]
		if !ok {
			return nil, fmt.Errorf("memstore: unrecognized relationship kind %q", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

var kindByName = map[string]relationship.Kind{
	"DEPENDENCY": relationship.Dependency,
	"PLUGIN":     relationship.Plugin,
	"PLUGIN_DEP": relationship.PluginDep,
	"PARENT":     relationship.Parent,
	"BOM":        relationship.Bom,
	"EXTENSION":  relationship.Extension,
}
