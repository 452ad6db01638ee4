// Package score aggregates match candidates into per-skill confidence and
// applies the escalation policy that decides whether to auto-select, ask the
// user to confirm, or ask for a clearer request.
package score

import (
	"sort"

	"github.com/jingkaihe/librarian/pkg/match"
	"github.com/jingkaihe/librarian/pkg/skills"
)

// ScoredSkill is the aggregated confidence of one skill for a query
type ScoredSkill struct {
	SkillID    string     `json:"skill_id"`
	Confidence float64    `json:"confidence"`
	MatchType  match.Type `json:"match_type"`
	Token      string     `json:"token"`
	TagPeers   int        `json:"-"`
}

// Score aggregates candidates per skill using the maximum single-token
// confidence, then orders skills by confidence descending, fewer tag peers,
// and id. reg supplies tag peer counts and may be nil, in which case every
// skill counts as having no peers.
func Score(cands []match.Candidate, reg *skills.Registry) []ScoredSkill {
	best := make(map[string]match.Candidate, len(cands))
	for _, c := range cands {
		cur, ok := best[c.SkillID]
		if !ok || c.Confidence > cur.Confidence {
			best[c.SkillID] = c
		}
	}

	scored := make([]ScoredSkill, 0, len(best))
	for id, c := range best {
		s := ScoredSkill{
			SkillID:    id,
			Confidence: c.Confidence,
			MatchType:  c.Type,
			Token:      c.Token,
		}
		if reg != nil {
			s.TagPeers = reg.TagPeers(id)
		}
		scored = append(scored, s)
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.TagPeers != b.TagPeers {
			return a.TagPeers < b.TagPeers
		}
		return a.SkillID < b.SkillID
	})
	return scored
}
