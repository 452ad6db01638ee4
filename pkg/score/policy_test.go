package score

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(pairs ...any) []ScoredSkill {
	out := make([]ScoredSkill, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, ScoredSkill{SkillID: pairs[i].(string), Confidence: pairs[i+1].(float64)})
	}
	return out
}

func TestDecide(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		input    []ScoredSkill
		kind     DecisionKind
		selected []string
	}{
		{name: "no candidates", input: nil, kind: Clarify, selected: []string{}},
		{name: "single strong match", input: scored("cleanup", 0.95), kind: Auto, selected: []string{"cleanup"}},
		{name: "auto threshold is inclusive", input: scored("a", 0.80), kind: Auto, selected: []string{"a"}},
		{name: "margin includes close runners up", input: scored("a", 0.95, "b", 0.90, "c", 0.85), kind: Auto, selected: []string{"a", "b"}},
		{name: "margin is inclusive", input: scored("a", 0.85, "b", 0.80), kind: Auto, selected: []string{"a", "b"}},
		{name: "confirm between thresholds", input: scored("a", 0.75, "b", 0.75), kind: Confirm, selected: []string{"a", "b"}},
		{name: "confirm threshold is inclusive", input: scored("a", 0.60), kind: Confirm, selected: []string{"a"}},
		{name: "confirm keeps top three", input: scored("a", 0.75, "b", 0.70, "c", 0.65, "d", 0.62), kind: Confirm, selected: []string{"a", "b", "c"}},
		{name: "confirm lists options below threshold", input: scored("a", 0.65, "b", 0.55), kind: Confirm, selected: []string{"a", "b"}},
		{name: "weak matches clarify", input: scored("a", 0.55, "b", 0.5), kind: Clarify, selected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.input)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.selected, d.IDs())
		})
	}
}

func TestDecideConfirmSkipsDuplicates(t *testing.T) {
	p := DefaultPolicy()
	p.ConfirmLimit = 2
	d := p.Decide(scored("a", 0.7, "a", 0.7, "b", 0.65, "c", 0.6))
	assert.Equal(t, Confirm, d.Kind)
	assert.Equal(t, []string{"a", "b"}, d.IDs())
}

func TestDecideCustomPolicy(t *testing.T) {
	p := Policy{AutoThreshold: 0.9, ConfirmThreshold: 0.5, AutoMargin: 0, ConfirmLimit: 1}
	require.NoError(t, p.Validate())

	assert.Equal(t, Confirm, p.Decide(scored("a", 0.85)).Kind)
	d := p.Decide(scored("a", 0.95, "b", 0.95, "c", 0.94))
	assert.Equal(t, Auto, d.Kind)
	assert.Equal(t, []string{"a", "b"}, d.IDs())
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
		errMsg string
	}{
		{name: "default", mutate: func(*Policy) {}},
		{name: "auto above one", mutate: func(p *Policy) { p.AutoThreshold = 1.2 }, errMsg: "within [0, 1]"},
		{name: "negative confirm", mutate: func(p *Policy) { p.ConfirmThreshold = -0.1 }, errMsg: "within [0, 1]"},
		{name: "confirm above auto", mutate: func(p *Policy) { p.ConfirmThreshold = 0.9 }, errMsg: "is above auto threshold"},
		{name: "negative margin", mutate: func(p *Policy) { p.AutoMargin = -0.01 }, errMsg: "auto margin"},
		{name: "zero confirm limit", mutate: func(p *Policy) { p.ConfirmLimit = 0 }, errMsg: "confirm limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDecisionJSON(t *testing.T) {
	d := Decision{Kind: Auto, Selections: scored("cleanup", 0.95)}
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "auto",
		"selections": [{"skill_id": "cleanup", "confidence": 0.95, "match_type": "exact", "token": ""}]
	}`, string(data))

	data, err = json.Marshal(DefaultPolicy().Decide(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind": "clarify", "selections": []}`, string(data))
}

func TestDecisionKindString(t *testing.T) {
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "confirm", Confirm.String())
	assert.Equal(t, "clarify", Clarify.String())
	assert.Equal(t, "unknown", DecisionKind(7).String())
}
