package plan

import (
	"github.com/pkg/errors"

	"github.com/jingkaihe/librarian/pkg/skills"
)

// State is the lifecycle of a Resolver
type State int

const (
	// Unresolved means Resolve has not completed a cycle check yet
	Unresolved State = iota
	// Resolving means the cycle check is in progress
	Resolving
	// Resolved means a plan was produced
	Resolved
	// Cyclic means the selection reaches a dependency cycle
	Cyclic
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Cyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// Resolver computes the plan for one selection against one registry snapshot.
// Once it reaches Resolved or Cyclic the outcome is fixed and later calls to
// Resolve return it unchanged. A Resolver is not safe for concurrent use.
type Resolver struct {
	reg      *skills.Registry
	selected []string

	state State
	plan  *ExecutionPlan
	err   error
}

// NewResolver creates a resolver for the selected ids. Duplicates are dropped
// keeping the first occurrence.
func NewResolver(reg *skills.Registry, selected []string) *Resolver {
	seen := make(map[string]bool, len(selected))
	ids := make([]string, 0, len(selected))
	for _, id := range selected {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return &Resolver{reg: reg, selected: ids, state: Unresolved}
}

// State returns the current state
func (r *Resolver) State() State {
	return r.state
}

// Selected returns the de-duplicated selection in entry order
func (r *Resolver) Selected() []string {
	return append([]string(nil), r.selected...)
}

// Resolve runs the cycle check and layering. It returns a *CycleError when the
// closure of the selection contains a cycle, or an error wrapping
// ErrUnknownSkill when a selected id is not registered; the latter leaves the
// resolver Unresolved.
func (r *Resolver) Resolve() (*ExecutionPlan, error) {
	switch r.state {
	case Resolved:
		return r.plan, nil
	case Cyclic:
		return nil, r.err
	}

	if r.reg == nil {
		return nil, errors.New("no registry loaded")
	}
	for _, id := range r.selected {
		if !r.reg.Has(id) {
			return nil, errors.Wrapf(ErrUnknownSkill, "%q", id)
		}
	}

	r.state = Resolving
	g := newGraph(r.reg)
	for _, id := range r.selected {
		g.enter(id)
	}
	for _, id := range r.selected {
		if cerr := g.visit(id); cerr != nil {
			r.state = Cyclic
			r.err = cerr
			return nil, cerr
		}
	}

	r.plan = &ExecutionPlan{Phases: g.phases()}
	r.state = Resolved
	return r.plan, nil
}
