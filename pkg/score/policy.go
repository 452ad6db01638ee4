package score

import (
	"github.com/pkg/errors"
)

// DecisionKind is the outcome of the escalation policy
type DecisionKind int

const (
	// Clarify means no skill was selected; the caller should ask for a
	// refined request
	Clarify DecisionKind = iota
	// Confirm means the best matches need an explicit choice by the user
	Confirm
	// Auto means the selections can be used without asking
	Auto
)

func (k DecisionKind) String() string {
	switch k {
	case Auto:
		return "auto"
	case Confirm:
		return "confirm"
	case Clarify:
		return "clarify"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k DecisionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Decision is the policy result. For Auto, Selections are the chosen skills;
// for Confirm they are the options to present; for Clarify it is empty.
type Decision struct {
	Kind       DecisionKind  `json:"kind"`
	Selections []ScoredSkill `json:"selections"`
}

// IDs returns the selected skill ids in order
func (d Decision) IDs() []string {
	ids := make([]string, len(d.Selections))
	for i, s := range d.Selections {
		ids[i] = s.SkillID
	}
	return ids
}

// Default policy values
const (
	DefaultAutoThreshold    = 0.80
	DefaultConfirmThreshold = 0.60
	DefaultAutoMargin       = 0.05
	DefaultConfirmLimit     = 3
)

// epsilon absorbs float error when comparing against thresholds and margins
const epsilon = 1e-9

// Policy holds the tunable decision thresholds
type Policy struct {
	AutoThreshold    float64 `mapstructure:"auto_threshold" json:"auto_threshold"`
	ConfirmThreshold float64 `mapstructure:"confirm_threshold" json:"confirm_threshold"`
	AutoMargin       float64 `mapstructure:"auto_margin" json:"auto_margin"`
	ConfirmLimit     int     `mapstructure:"confirm_limit" json:"confirm_limit"`
}

// DefaultPolicy returns the default thresholds
func DefaultPolicy() Policy {
	return Policy{
		AutoThreshold:    DefaultAutoThreshold,
		ConfirmThreshold: DefaultConfirmThreshold,
		AutoMargin:       DefaultAutoMargin,
		ConfirmLimit:     DefaultConfirmLimit,
	}
}

// Validate checks that the thresholds are ordered and in range
func (p Policy) Validate() error {
	if p.ConfirmThreshold < 0 || p.AutoThreshold > 1 {
		return errors.Errorf("thresholds must lie within [0, 1], got confirm=%v auto=%v", p.ConfirmThreshold, p.AutoThreshold)
	}
	if p.ConfirmThreshold > p.AutoThreshold {
		return errors.Errorf("confirm threshold %v is above auto threshold %v", p.ConfirmThreshold, p.AutoThreshold)
	}
	if p.AutoMargin < 0 {
		return errors.Errorf("auto margin must not be negative, got %v", p.AutoMargin)
	}
	if p.ConfirmLimit < 1 {
		return errors.Errorf("confirm limit must be at least 1, got %d", p.ConfirmLimit)
	}
	return nil
}

// Decide applies the policy to skills already ordered by Score. The top
// confidence picks the branch: at or above AutoThreshold every skill within
// AutoMargin of the top is selected; at or above ConfirmThreshold up to
// ConfirmLimit distinct skills are offered; anything lower clarifies.
func (p Policy) Decide(scored []ScoredSkill) Decision {
	if len(scored) == 0 {
		return Decision{Kind: Clarify, Selections: []ScoredSkill{}}
	}

	top := scored[0].Confidence
	switch {
	case top+epsilon >= p.AutoThreshold:
		var selections []ScoredSkill
		for _, s := range scored {
			if top-s.Confidence > p.AutoMargin+epsilon {
				break
			}
			selections = append(selections, s)
		}
		return Decision{Kind: Auto, Selections: selections}

	case top+epsilon >= p.ConfirmThreshold:
		selections := make([]ScoredSkill, 0, p.ConfirmLimit)
		seen := make(map[string]bool, p.ConfirmLimit)
		for _, s := range scored {
			if len(selections) == p.ConfirmLimit {
				break
			}
			if seen[s.SkillID] {
				continue
			}
			seen[s.SkillID] = true
			selections = append(selections, s)
		}
		return Decision{Kind: Confirm, Selections: selections}

	default:
		return Decision{Kind: Clarify, Selections: []ScoredSkill{}}
	}
}
