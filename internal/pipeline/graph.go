package pipeline

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pipeline.yaml
var defaultDefinition []byte

// Definition is the declarative stage graph.
type Definition struct {
	Name  string    `yaml:"name"`
	Start string    `yaml:"start"`
	Nodes []NodeDef `yaml:"nodes"`
	Edges []EdgeDef `yaml:"edges"`
}

// NodeDef binds a node name to a registered stage.
type NodeDef struct {
	Name  string `yaml:"name"`
	Stage string `yaml:"stage"`
}

// EdgeDef is a directed edge between two nodes.
type EdgeDef struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadDefinition parses a YAML graph definition.
func LoadDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidGraph, err)
	}
	return &def, nil
}

// node is one compiled step of the graph.
type node struct {
	name  string
	stage string
	run   stageFunc
}

// compile validates def against the stage table and returns the nodes in
// execution order. The graph must be a single path from start that visits
// every node exactly once.
func compile(def *Definition, table map[string]stageFunc) ([]node, error) {
	if def == nil || len(def.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}
	byName := make(map[string]NodeDef, len(def.Nodes))
	for _, n := range def.Nodes {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: node without name", ErrInvalidGraph)
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, name)
		}
		if _, ok := table[n.Stage]; !ok {
			return nil, fmt.Errorf("%w: node %q uses unknown stage %q", ErrInvalidGraph, name, n.Stage)
		}
		byName[name] = n
	}

	next := make(map[string]string, len(def.Edges))
	for _, e := range def.Edges {
		if _, ok := byName[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, e.From)
		}
		if _, ok := byName[e.To]; !ok {
			return nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvalidGraph, e.To)
		}
		if _, dup := next[e.From]; dup {
			return nil, fmt.Errorf("%w: node %q has more than one outgoing edge", ErrInvalidGraph, e.From)
		}
		next[e.From] = e.To
	}

	if _, ok := byName[def.Start]; !ok {
		return nil, fmt.Errorf("%w: unknown start node %q", ErrInvalidGraph, def.Start)
	}
	order := make([]node, 0, len(byName))
	visited := make(map[string]bool, len(byName))
	for cur, ok := def.Start, true; ok; cur, ok = next[cur] {
		if visited[cur] {
			return nil, fmt.Errorf("%w: cycle at node %q", ErrInvalidGraph, cur)
		}
		visited[cur] = true
		n := byName[cur]
		order = append(order, node{name: cur, stage: n.Stage, run: table[n.Stage]})
	}
	if len(order) != len(byName) {
		return nil, fmt.Errorf("%w: %d of %d nodes unreachable from %q",
			ErrInvalidGraph, len(byName)-len(order), len(byName), def.Start)
	}
	return order, nil
}
