// Package graphfixture parses small, txtar-archived relationship graphs
// used as test fixtures across the view, query, and memstore packages,
// mirroring modrequirements's txtar module-tree fixtures
// (internal/mod/modrequirements/requirements_test.go): a plain-text
// archive checked straight into a _test.go file's string literal (or a
// testdata file), rather than a fixture assembled line by line in Go.
package graphfixture

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/tools/txtar"

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

// Graph is a parsed fixture: the relationships its "graph" file declares,
// in file order.
type Graph struct {
	Relationships []relationship.Relationship
}

// Parse parses a txtar archive whose "graph" file holds one relationship
// per line, in the form:
//
//	<declaring> -[KIND]-> <target> [attr=value ...]
//
// Recognized attrs: scope (Dependency only), managed=true, concrete=true,
// src=uri[,uri...] (defaults to "fixture" if omitted), pom=location,
// idx=N. Blank lines and lines starting with "#" are skipped.
func Parse(archive []byte) (Graph, error) {
	a := txtar.Parse(archive)
	var g Graph
	for _, f := range a.Files {
		if f.Name != "graph" {
			continue
		}
		for i, line := range strings.Split(string(f.Data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rel, err := parseLine(line)
			if err != nil {
				return Graph{}, fmt.Errorf("graphfixture: graph line %d: %w", i+1, err)
			}
			g.Relationships = append(g.Relationships, rel)
		}
	}
	return g, nil
}

func parseLine(line string) (relationship.Relationship, error) {
	arrowAt := strings.Index(line, "-[")
	closeAt := strings.Index(line, "]->")
	if arrowAt < 0 || closeAt < arrowAt {
		return relationship.Relationship{}, fmt.Errorf("malformed line %q: expected \"<declaring> -[KIND]-> <target> [attrs...]\"", line)
	}
	declaringStr := strings.TrimSpace(line[:arrowAt])
	kindStr := strings.ToUpper(strings.TrimSpace(line[arrowAt+2 : closeAt]))
	fields := strings.Fields(line[closeAt+3:])
	if len(fields) == 0 {
		return relationship.Relationship{}, fmt.Errorf("malformed line %q: missing target", line)
	}

	declaring, err := coordinate.Parse(declaringStr)
	if err != nil {
		return relationship.Relationship{}, err
	}
	target, err := coordinate.Parse(fields[0])
	if err != nil {
		return relationship.Relationship{}, err
	}
	kind, ok := kindByName[kindStr]
	if !ok {
		return relationship.Relationship{}, fmt.Errorf("unrecognized relationship kind %q", kindStr)
	}

	attrs := map[string]string{}
	for _, f := range fields[1:] {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return relationship.Relationship{}, fmt.Errorf("malformed attribute %q", f)
		}
		attrs[kv[0]] = kv[1]
	}

	sources := []string{"fixture"}
	if s, ok := attrs["src"]; ok {
		sources = strings.Split(s, ",")
	}
	index := 0
	if idx, ok := attrs["idx"]; ok {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return relationship.Relationship{}, fmt.Errorf("invalid idx %q: %w", idx, err)
		}
		index = n
	}
	managed := attrs["managed"] == "true"
	concrete := attrs["concrete"] == "true"
	pomLoc := attrs["pom"]

	if kind == relationship.Dependency {
		return relationship.NewDependency(attrs["scope"], declaring, target, managed, concrete, sources, pomLoc, index)
	}
	return relationship.New(kind, declaring, target, managed, concrete, sources, pomLoc, index)
}
