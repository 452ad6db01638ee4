// Package plan orders selected skills for execution. It expands a selection
// to the transitive closure of its dependencies, rejects dependency cycles,
// and groups the skills into phases that can run in parallel.
package plan

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/librarian/pkg/skills"
)

// ErrUnknownSkill is returned when a selected id is not in the registry
var ErrUnknownSkill = errors.New("unknown skill")

// CycleError names the exact dependency cycle that prevented a plan, starting
// and ending with the same id.
type CycleError struct {
	Cycle []string `json:"cycle"`
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// ExecutionPlan is an ordered list of phases. Skills within a phase have no
// dependencies on each other; every dependency of a skill is in an earlier
// phase.
type ExecutionPlan struct {
	Phases [][]string `json:"phases"`
}

// Skills returns every skill in the plan, phase by phase
func (p *ExecutionPlan) Skills() []string {
	var out []string
	for _, phase := range p.Phases {
		out = append(out, phase...)
	}
	return out
}

// Len returns the number of skills in the plan
func (p *ExecutionPlan) Len() int {
	n := 0
	for _, phase := range p.Phases {
		n += len(phase)
	}
	return n
}

// PhaseOf returns the phase index of id, or -1 if it is not in the plan
func (p *ExecutionPlan) PhaseOf(id string) int {
	for i, phase := range p.Phases {
		for _, s := range phase {
			if s == id {
				return i
			}
		}
	}
	return -1
}

// Resolve builds the execution plan for the selected ids. Duplicate ids are
// ignored; the first occurrence fixes the order.
func Resolve(selected []string, reg *skills.Registry) (*ExecutionPlan, error) {
	return NewResolver(reg, selected).Resolve()
}

type color int

const (
	white color = iota
	gray
	black
)

// graph holds the per-node bookkeeping of one depth-first traversal
type graph struct {
	reg   *skills.Registry
	color map[string]color
	rank  map[string]int
	layer map[string]int
	path  []string
	nodes []string
}

func newGraph(reg *skills.Registry) *graph {
	return &graph{
		reg:   reg,
		color: make(map[string]color),
		rank:  make(map[string]int),
		layer: make(map[string]int),
	}
}

// enter records id in discovery order unless it was already ranked
func (g *graph) enter(id string) {
	if _, ok := g.rank[id]; ok {
		return
	}
	g.rank[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// visit walks id depth-first, assigning each finished node the layer one
// above its deepest dependency. A dependency still in progress is a back
// edge and yields the cycle from that dependency around to itself.
func (g *graph) visit(id string) *CycleError {
	switch g.color[id] {
	case black:
		return nil
	case gray:
		start := 0
		for i, p := range g.path {
			if p == id {
				start = i
				break
			}
		}
		cycle := append([]string(nil), g.path[start:]...)
		return &CycleError{Cycle: append(cycle, id)}
	}

	g.enter(id)
	g.color[id] = gray
	g.path = append(g.path, id)

	layer := 0
	for _, dep := range g.reg.Dependencies(id) {
		if err := g.visit(dep); err != nil {
			return err
		}
		layer = max(layer, g.layer[dep]+1)
	}

	g.path = g.path[:len(g.path)-1]
	g.color[id] = black
	g.layer[id] = layer
	return nil
}

// phases groups visited nodes by layer, ordering each phase by entry rank
func (g *graph) phases() [][]string {
	depth := 0
	for _, id := range g.nodes {
		depth = max(depth, g.layer[id]+1)
	}

	phases := make([][]string, depth)
	for _, id := range g.nodes {
		l := g.layer[id]
		phases[l] = append(phases[l], id)
	}
	for _, phase := range phases {
		sort.SliceStable(phase, func(i, j int) bool {
			return g.rank[phase[i]] < g.rank[phase[j]]
		})
	}
	return phases
}

// DetectCycles walks the whole registry and returns one cycle for each back
// edge found, rotated to start at its smallest id and de-duplicated. It
// returns nil for an acyclic registry.
func DetectCycles(reg *skills.Registry) [][]string {
	g := newGraph(reg)
	seen := make(map[string]bool)
	var cycles [][]string

	var walk func(id string)
	walk = func(id string) {
		g.color[id] = gray
		g.path = append(g.path, id)
		for _, dep := range reg.Dependencies(id) {
			switch g.color[dep] {
			case white:
				walk(dep)
			case gray:
				start := 0
				for i, p := range g.path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := canonicalCycle(g.path[start:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		g.path = g.path[:len(g.path)-1]
		g.color[id] = black
	}

	for _, id := range reg.IDs() {
		if g.color[id] == white {
			walk(id)
		}
	}
	return cycles
}

// canonicalCycle rotates the open cycle nodes so the smallest id comes first
// and closes it by repeating that id.
func canonicalCycle(nodes []string) []string {
	start := 0
	for i, id := range nodes {
		if id < nodes[start] {
			start = i
		}
	}
	out := make([]string, 0, len(nodes)+1)
	out = append(out, nodes[start:]...)
	out = append(out, nodes[:start]...)
	return append(out, nodes[start])
}
