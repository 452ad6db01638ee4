package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var defaultAbbreviations = map[string]string{
	"k8s":   "kubernetes",
	"perf":  "performance",
	"auth":  "authentication",
	"cfg":   "configuration",
	"conf":  "configuration",
	"db":    "database",
	"dep":   "dependency",
	"deps":  "dependencies",
	"doc":   "documentation",
	"docs":  "documentation",
	"env":   "environment",
	"fn":    "function",
	"func":  "function",
	"impl":  "implementation",
	"infra": "infrastructure",
	"msg":   "message",
	"refac": "refactor",
	"repo":  "repository",
	"req":   "requirement",
	"reqs":  "requirements",
	"sec":   "security",
	"js":    "javascript",
	"ts":    "typescript",
	"py":    "python",
	"tf":    "terraform",
}

var defaultStopwords = []string{
	"a", "an", "the", "to", "of", "for", "and", "or", "in", "on", "at", "by",
	"with", "from", "into", "my", "me", "i", "we", "our", "us", "you", "your",
	"it", "its", "this", "that", "these", "those", "is", "are", "be", "was",
	"were", "am", "do", "does", "please", "can", "could", "would", "should",
	"will", "some", "any", "so", "then", "just", "also", "what", "how",
}

// DefaultAbbreviations returns a copy of the built-in abbreviation table
func DefaultAbbreviations() map[string]string {
	out := make(map[string]string, len(defaultAbbreviations))
	for k, v := range defaultAbbreviations {
		out[k] = v
	}
	return out
}

// Normalizer tokenizes requests. It holds only read-only tables and is safe
// for concurrent use.
type Normalizer struct {
	abbreviations map[string][]string
	stopwords     map[string]bool
}

// NormalizerOption configures a Normalizer
type NormalizerOption func(*Normalizer)

// WithAbbreviations merges entries over the default table. Keys are matched
// case-insensitively; an empty expansion removes the entry.
func WithAbbreviations(table map[string]string) NormalizerOption {
	return func(n *Normalizer) {
		for abbr, expansion := range table {
			abbr = strings.ToLower(strings.TrimSpace(abbr))
			words := strings.Fields(strings.ToLower(expansion))
			if len(words) == 0 {
				delete(n.abbreviations, abbr)
				continue
			}
			n.abbreviations[abbr] = words
		}
	}
}

// WithStopwords replaces the stopword list. Passing no words disables
// stopword removal.
func WithStopwords(words ...string) NormalizerOption {
	return func(n *Normalizer) {
		n.stopwords = make(map[string]bool, len(words))
		for _, w := range words {
			n.stopwords[strings.ToLower(w)] = true
		}
	}
}

// NewNormalizer creates a Normalizer with the default tables
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		abbreviations: make(map[string][]string, len(defaultAbbreviations)),
		stopwords:     make(map[string]bool, len(defaultStopwords)),
	}
	for abbr, expansion := range defaultAbbreviations {
		n.abbreviations[abbr] = strings.Fields(expansion)
	}
	for _, w := range defaultStopwords {
		n.stopwords[w] = true
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize tokenizes raw with the default tables
func Normalize(raw string) (*Query, error) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize tokenizes raw. It fails only when raw is empty or whitespace.
func (n *Normalizer) Normalize(raw string) (*Query, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &InvalidInputError{Input: raw}
	}

	q := &Query{
		Tokens:         []string{},
		ProtectedSpans: []Span{},
	}

	plainStart := 0
	for i := 0; i < len(raw); {
		if span, ok := scanProtected(raw, i); ok {
			n.addPlain(q, raw[plainStart:i], plainStart)
			q.addSpan(span)
			i = span.End
			plainStart = i
			continue
		}
		_, size := utf8.DecodeRuneInString(raw[i:])
		i += size
	}
	n.addPlain(q, raw[plainStart:], plainStart)

	return q, nil
}

func (q *Query) addSpan(span Span) {
	span.Token = -1
	if text := strings.TrimSpace(span.Text); text != "" {
		span.Token = len(q.Tokens)
		q.Tokens = append(q.Tokens, text)
	}
	q.ProtectedSpans = append(q.ProtectedSpans, span)
}

// scanProtected reports the delimited span starting at byte offset i, if any
func scanProtected(raw string, i int) (Span, bool) {
	rest := raw[i:]

	if strings.HasPrefix(rest, "```") {
		body := rest[3:]
		end := strings.Index(body, "```")
		if end < 0 {
			return Span{Start: i, End: len(raw), Kind: SpanFence, Text: body}, true
		}
		return Span{Start: i, End: i + 3 + end + 3, Kind: SpanFence, Text: body[:end]}, true
	}

	r, size := utf8.DecodeRuneInString(rest)
	switch r {
	case '`':
		return closeSpan(raw, i, size, "`", SpanBacktick, false)
	case '"':
		return closeSpan(raw, i, size, `"`, SpanQuoted, false)
	case '“':
		return closeSpan(raw, i, size, "”", SpanQuoted, false)
	case '\'':
		if atWordStart(raw, i) {
			return closeSpan(raw, i, size, "'", SpanQuoted, true)
		}
	case '‘':
		if atWordStart(raw, i) {
			return closeSpan(raw, i, size, "’", SpanQuoted, true)
		}
	}
	return Span{}, false
}

// closeSpan finds the closing delimiter for a span opened at i. Single quotes
// only close when followed by a non-word character so apostrophes inside words
// ("don't") do not terminate the span.
func closeSpan(raw string, i, openSize int, closer string, kind SpanKind, wordBoundary bool) (Span, bool) {
	bodyStart := i + openSize
	offset := bodyStart
	for {
		idx := strings.Index(raw[offset:], closer)
		if idx < 0 {
			return Span{}, false
		}
		end := offset + idx
		after := end + len(closer)
		if !wordBoundary || !wordRuneAt(raw, after) {
			return Span{Start: i, End: after, Kind: kind, Text: raw[bodyStart:end]}, true
		}
		offset = after
	}
}

func atWordStart(raw string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(raw[:i])
	return unicode.IsSpace(r) || strings.ContainsRune("([{", r)
}

func wordRuneAt(raw string, i int) bool {
	if i >= len(raw) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(raw[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

const (
	leadingPunct  = "([{<"
	trailingPunct = ".,;:!?)]}>\"'"
)

// addPlain tokenizes a natural-language segment that starts at byte offset
// base of the raw input.
func (n *Normalizer) addPlain(q *Query, segment string, base int) {
	for _, f := range fieldsWithOffsets(segment) {
		word := strings.TrimLeft(f.text, leadingPunct)
		start := f.start + len(f.text) - len(word)
		word = strings.TrimRight(word, trailingPunct)

		if looksLikeIdentifier(word) {
			q.addSpan(Span{
				Start: base + start,
				End:   base + start + len(word),
				Kind:  SpanIdentifier,
				Text:  word,
			})
			continue
		}

		for _, piece := range splitWord(strings.ToLower(f.text)) {
			words, ok := n.abbreviations[piece]
			if !ok {
				words = []string{piece}
			}
			// stopwords are dropped after expansion so expansions are filtered too
			for _, w := range words {
				if !n.stopwords[w] {
					q.Tokens = append(q.Tokens, w)
				}
			}
		}
	}
}

// looksLikeIdentifier reports whether a word is a path or symbol name that
// must not be rewritten.
func looksLikeIdentifier(word string) bool {
	if !strings.ContainsAny(word, "/._") {
		return false
	}
	return strings.IndexFunc(word, isWordRune) >= 0
}

// splitWord breaks a lowercased word into alphanumeric pieces. Hyphens between
// word characters are kept and apostrophes between letters are dropped; any
// other character separates pieces.
func splitWord(word string) []string {
	runes := []rune(word)
	var pieces []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur = append(cur, r)
		case (r == '-' || r == '\'' || r == '’') && len(cur) > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			if r == '-' {
				cur = append(cur, r)
			}
		default:
			flush()
		}
	}
	flush()
	return pieces
}

type field struct {
	text  string
	start int
}

func fieldsWithOffsets(s string) []field {
	var fields []field
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				fields = append(fields, field{text: s[start:i], start: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, field{text: s[start:], start: start})
	}
	return fields
}
