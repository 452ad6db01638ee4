package plan

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/librarian/pkg/skills"
)

// registry builds a registry from id -> dependencies pairs
func registry(t *testing.T, deps map[string][]string) *skills.Registry {
	t.Helper()
	records := make([]skills.Record, 0, len(deps))
	for id, d := range deps {
		records = append(records, skills.Record{ID: id, Dependencies: d})
	}
	reg, err := skills.NewRegistry(records)
	require.NoError(t, err)
	return reg
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		deps     map[string][]string
		selected []string
		expected [][]string
	}{
		{
			name:     "chain",
			deps:     map[string][]string{"A": nil, "B": {"A"}, "C": {"B"}},
			selected: []string{"C"},
			expected: [][]string{{"A"}, {"B"}, {"C"}},
		},
		{
			name:     "diamond shares a phase",
			deps:     map[string][]string{"A": nil, "B": {"A"}, "C": {"A"}, "D": {"B", "C"}},
			selected: []string{"D"},
			expected: [][]string{{"A"}, {"B", "C"}, {"D"}},
		},
		{
			name:     "independent skills keep selection order",
			deps:     map[string][]string{"x": nil, "y": nil, "z": nil},
			selected: []string{"z", "x"},
			expected: [][]string{{"z", "x"}},
		},
		{
			name:     "selected skills precede discovered dependencies",
			deps:     map[string][]string{"a": {"c"}, "b": nil, "c": nil},
			selected: []string{"a", "b"},
			expected: [][]string{{"b", "c"}, {"a"}},
		},
		{
			name:     "dependency order follows declaration",
			deps:     map[string][]string{"top": {"second", "first"}, "first": nil, "second": nil},
			selected: []string{"top"},
			expected: [][]string{{"second", "first"}, {"top"}},
		},
		{
			name:     "duplicates are ignored",
			deps:     map[string][]string{"A": nil, "B": {"A"}},
			selected: []string{"B", "A", "B"},
			expected: [][]string{{"A"}, {"B"}},
		},
		{
			name:     "longest path decides the phase",
			deps:     map[string][]string{"A": nil, "B": {"A"}, "C": {"A", "B"}},
			selected: []string{"C"},
			expected: [][]string{{"A"}, {"B"}, {"C"}},
		},
		{
			name:     "empty selection",
			deps:     map[string][]string{"A": nil},
			selected: nil,
			expected: [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.selected, registry(t, tt.deps))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Phases)
		})
	}
}

func TestResolveCycles(t *testing.T) {
	tests := []struct {
		name     string
		deps     map[string][]string
		selected []string
		cycle    []string
	}{
		{
			name:     "two node cycle",
			deps:     map[string][]string{"A": {"B"}, "B": {"A"}},
			selected: []string{"A"},
			cycle:    []string{"A", "B", "A"},
		},
		{
			name:     "self dependency",
			deps:     map[string][]string{"A": {"A"}},
			selected: []string{"A"},
			cycle:    []string{"A", "A"},
		},
		{
			name:     "cycle reached through a dependency",
			deps:     map[string][]string{"X": {"A"}, "A": {"B"}, "B": {"C"}, "C": {"A"}},
			selected: []string{"X"},
			cycle:    []string{"A", "B", "C", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.selected, registry(t, tt.deps))
			assert.Nil(t, p)

			var cerr *CycleError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.cycle, cerr.Cycle)
		})
	}
}

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Cycle: []string{"A", "B", "A"}}
	assert.Equal(t, "dependency cycle: A -> B -> A", err.Error())
}

func TestResolveUnknownSkill(t *testing.T) {
	reg := registry(t, map[string][]string{"A": nil})
	r := NewResolver(reg, []string{"A", "ghost"})

	p, err := r.Resolve()
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnknownSkill)
	assert.Equal(t, `"ghost": unknown skill`, err.Error())
	assert.Equal(t, Unresolved, r.State())
}

func TestResolveWithoutRegistry(t *testing.T) {
	_, err := Resolve([]string{"A"}, nil)
	assert.EqualError(t, err, "no registry loaded")
}

func TestResolverCachesOutcome(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		r := NewResolver(registry(t, map[string][]string{"A": nil, "B": {"A"}}), []string{"B", "B"})
		assert.Equal(t, Unresolved, r.State())
		assert.Equal(t, []string{"B"}, r.Selected())

		first, err := r.Resolve()
		require.NoError(t, err)
		assert.Equal(t, Resolved, r.State())

		second, err := r.Resolve()
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("cyclic", func(t *testing.T) {
		r := NewResolver(registry(t, map[string][]string{"A": {"B"}, "B": {"A"}}), []string{"B"})

		_, first := r.Resolve()
		require.Error(t, first)
		assert.Equal(t, Cyclic, r.State())

		_, second := r.Resolve()
		assert.Same(t, first, second)
		assert.Equal(t, Cyclic, r.State())
	})
}

func TestResolveTopologicalValidity(t *testing.T) {
	// node i depends on i-1 and on i/2 when those differ, giving a DAG with
	// many shared dependencies
	deps := make(map[string][]string)
	for i := 0; i < 24; i++ {
		id := fmt.Sprintf("s%02d", i)
		var d []string
		if i > 0 {
			d = append(d, fmt.Sprintf("s%02d", i-1))
		}
		if i > 2 && i/2 != i-1 {
			d = append(d, fmt.Sprintf("s%02d", i/2))
		}
		deps[id] = d
	}
	reg := registry(t, deps)

	for _, selected := range [][]string{{"s23"}, {"s05", "s17"}, {"s11", "s03", "s22"}} {
		p, err := Resolve(selected, reg)
		require.NoError(t, err)

		for _, id := range selected {
			assert.NotEqual(t, -1, p.PhaseOf(id), "selected %s is planned", id)
		}
		for k, phase := range p.Phases {
			assert.NotEmpty(t, phase)
			for _, id := range phase {
				for _, dep := range reg.Dependencies(id) {
					depPhase := p.PhaseOf(dep)
					assert.NotEqual(t, -1, depPhase, "dependency %s of %s is planned", dep, id)
					assert.Less(t, depPhase, k, "dependency %s of %s runs earlier", dep, id)
				}
			}
		}
	}
}

func TestExecutionPlanHelpers(t *testing.T) {
	p := &ExecutionPlan{Phases: [][]string{{"A"}, {"B", "C"}}}
	assert.Equal(t, []string{"A", "B", "C"}, p.Skills())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, 1, p.PhaseOf("C"))
	assert.Equal(t, -1, p.PhaseOf("Z"))
}

func TestDetectCycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		reg := registry(t, map[string][]string{"A": nil, "B": {"A"}})
		assert.Nil(t, DetectCycles(reg))
	})

	t.Run("every cycle is reported once", func(t *testing.T) {
		reg := registry(t, map[string][]string{
			"a": {"b"}, "b": {"a"},
			"c": {"d"}, "d": {"e"}, "e": {"c"},
			"f": nil,
		})
		assert.Equal(t, [][]string{{"a", "b", "a"}, {"c", "d", "e", "c"}}, DetectCycles(reg))
	})

	t.Run("cycles start at their smallest id", func(t *testing.T) {
		reg := registry(t, map[string][]string{"a": {"z"}, "z": {"m"}, "m": {"z"}})
		assert.Equal(t, [][]string{{"m", "z", "m"}}, DetectCycles(reg))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unresolved", Unresolved.String())
	assert.Equal(t, "resolving", Resolving.String())
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "cyclic", Cyclic.String())
	assert.Equal(t, "unknown", State(9).String())
}
