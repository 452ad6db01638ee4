// Package match implements lexical matching of normalized query tokens
// against the registry index: exact, alias, prefix, tag and Levenshtein
// fuzzy matches.
package match

import (
	"math"
	"sort"
	"strings"

	"github.com/jingkaihe/librarian/pkg/intent"
	"github.com/jingkaihe/librarian/pkg/skills"
)

// Type is the kind of match between a token and a skill
type Type int

const (
	// Exact is a case-insensitive match on a skill id or display name
	Exact Type = iota
	// Alias is an exact match on one of the skill aliases
	Alias
	// Prefix means the skill id, name or alias starts with the token
	Prefix
	// Tag is an exact match on one of the skill tags
	Tag
	// Fuzzy is an edit-distance match within the length threshold
	Fuzzy
)

func (t Type) String() string {
	switch t {
	case Exact:
		return "exact"
	case Alias:
		return "alias"
	case Prefix:
		return "prefix"
	case Tag:
		return "tag"
	case Fuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Base weights per match type
const (
	ExactWeight  = 1.0
	AliasWeight  = 0.95
	PrefixWeight = 0.85
	TagWeight    = 0.75

	fuzzyBase  = 0.9
	fuzzyStep  = 0.15
	fuzzyFloor = 0.5
)

const (
	// MinPrefixLength is the shortest token considered for prefix matches
	MinPrefixLength = 3
	// DefaultMinFuzzyLength is the shortest token considered for fuzzy matches
	DefaultMinFuzzyLength = 3
)

// Weight returns the confidence of a single match, rounded to four decimals
// so equal scores compare equal.
func Weight(t Type, distance int) float64 {
	var w float64
	switch t {
	case Exact:
		w = ExactWeight
	case Alias:
		w = AliasWeight
	case Prefix:
		w = PrefixWeight
	case Tag:
		w = TagWeight
	case Fuzzy:
		w = math.Max(fuzzyFloor, fuzzyBase-fuzzyStep*float64(distance))
	}
	return math.Round(w*1e4) / 1e4
}

// Candidate is the best match of one query token against one skill
type Candidate struct {
	SkillID     string  `json:"skill_id"`
	Token       string  `json:"token"`
	TokenIndex  int     `json:"token_index"`
	Key         string  `json:"key"`
	Type        Type    `json:"match_type"`
	RawDistance int     `json:"raw_distance"`
	Confidence  float64 `json:"confidence"`
}

// better reports whether c should replace cur as the best match for a pair
func (c Candidate) better(cur Candidate) bool {
	if c.Confidence != cur.Confidence {
		return c.Confidence > cur.Confidence
	}
	if c.RawDistance != cur.RawDistance {
		return c.RawDistance < cur.RawDistance
	}
	if c.Type != cur.Type {
		return c.Type < cur.Type
	}
	return c.Key < cur.Key
}

// Matcher matches normalized queries against a registry. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	minFuzzyLength int
	compound       bool
}

// Option configures a Matcher
type Option func(*Matcher)

// WithMinFuzzyLength sets the shortest token that may produce fuzzy matches
func WithMinFuzzyLength(n int) Option {
	return func(m *Matcher) {
		m.minFuzzyLength = n
	}
}

// WithCompoundProbes toggles probing hyphen-joined pairs of adjacent tokens
func WithCompoundProbes(enabled bool) Option {
	return func(m *Matcher) {
		m.compound = enabled
	}
}

// New creates a Matcher
func New(opts ...Option) *Matcher {
	m := &Matcher{
		minFuzzyLength: DefaultMinFuzzyLength,
		compound:       true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type probe struct {
	text      string
	lower     []rune
	index     int
	protected bool
}

func (m *Matcher) probes(q *intent.Query) []probe {
	probes := make([]probe, 0, len(q.Tokens)*2)
	for i, tok := range q.Tokens {
		probes = append(probes, probe{text: tok, lower: []rune(strings.ToLower(tok)), index: i, protected: q.IsProtected(i)})
		if !m.compound || i+1 >= len(q.Tokens) || q.IsProtected(i) || q.IsProtected(i+1) {
			continue
		}
		joined := tok + "-" + q.Tokens[i+1]
		probes = append(probes, probe{text: joined, lower: []rune(strings.ToLower(joined)), index: i})
	}
	return probes
}

// Match returns one candidate per (probe token, skill) pair that matched,
// ordered by token position and then skill id. An empty result is not an
// error.
func (m *Matcher) Match(q *intent.Query, reg *skills.Registry) []Candidate {
	if q == nil || reg == nil {
		return nil
	}

	keys := reg.Keys()
	keyRunes := make([][]rune, len(keys))
	for i, key := range keys {
		keyRunes[i] = []rune(key)
	}

	var out []Candidate
	for _, p := range m.probes(q) {
		best := make(map[string]Candidate)
		for i, key := range keys {
			t, dist, ok := m.classify(p.lower, keyRunes[i])
			if !ok || (p.protected && t != Exact) {
				continue
			}
			for _, entry := range reg.Lookup(key) {
				mt, ok := resolveType(t, entry.Kind)
				if !ok {
					continue
				}
				c := Candidate{
					SkillID:     entry.SkillID,
					Token:       p.text,
					TokenIndex:  p.index,
					Key:         key,
					Type:        mt,
					RawDistance: dist,
					Confidence:  Weight(mt, dist),
				}
				if cur, seen := best[entry.SkillID]; !seen || c.better(cur) {
					best[entry.SkillID] = c
				}
			}
		}

		ids := make([]string, 0, len(best))
		for id := range best {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, best[id])
		}
	}
	return out
}

// classify compares a probe against a key, returning Exact, Prefix or Fuzzy
// with the raw distance. Exact wins over prefix, which wins over fuzzy.
// Protected probes are held to exact matches by the caller.
func (m *Matcher) classify(tok, key []rune) (Type, int, bool) {
	if len(tok) == 0 {
		return 0, 0, false
	}
	if runesEqual(tok, key) {
		return Exact, 0, true
	}
	if len(tok) >= MinPrefixLength && len(key) > len(tok) && runesEqual(key[:len(tok)], tok) {
		return Prefix, len(key) - len(tok), true
	}
	if len(tok) < m.minFuzzyLength {
		return 0, 0, false
	}
	limit := Threshold(len(key))
	if d := boundedDistance(tok, key, limit); d <= limit {
		return Fuzzy, d, true
	}
	return 0, 0, false
}

// resolveType maps a raw match on an index key to the candidate type for the
// kind of entry the key came from. Tags only match exactly.
func resolveType(t Type, kind skills.Kind) (Type, bool) {
	switch kind {
	case skills.KindTag:
		return Tag, t == Exact
	case skills.KindAlias:
		if t == Exact {
			return Alias, true
		}
		return t, true
	default:
		return t, true
	}
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
