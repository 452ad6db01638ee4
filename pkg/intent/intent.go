// Package intent turns a raw user request into the token sequence the matcher
// works on. Natural-language text is lowercased, stripped of punctuation and
// abbreviation-expanded; quoted text, code and path-like identifiers are kept
// verbatim and recorded as protected spans.
package intent

import (
	"fmt"
	"strings"
)

// InvalidInputError is returned for empty or whitespace-only requests
type InvalidInputError struct {
	Input string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: request is empty (%q)", e.Input)
}

// SpanKind identifies why a span was protected
type SpanKind int

const (
	// SpanFence is a ``` fenced code block
	SpanFence SpanKind = iota
	// SpanBacktick is an inline `code` span
	SpanBacktick
	// SpanQuoted is a single or double quoted string
	SpanQuoted
	// SpanIdentifier is a bare word that looks like a path or symbol
	SpanIdentifier
)

func (k SpanKind) String() string {
	switch k {
	case SpanFence:
		return "fence"
	case SpanBacktick:
		return "backtick"
	case SpanQuoted:
		return "quoted"
	case SpanIdentifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// Span is a protected region of the raw input. Start and End are byte offsets
// into the raw string; Text is the verbatim content without its delimiters.
// Token is the index in Query.Tokens the span was emitted as, or -1 when the
// span held no text.
type Span struct {
	Start int
	End   int
	Kind  SpanKind
	Text  string
	Token int
}

// Query is the normalized form of a request
type Query struct {
	Tokens         []string
	ProtectedSpans []Span
}

// IsProtected reports whether the token at index i came from a protected span
func (q *Query) IsProtected(i int) bool {
	for _, span := range q.ProtectedSpans {
		if span.Token == i {
			return true
		}
	}
	return false
}

// String joins the tokens with single spaces
func (q *Query) String() string {
	return strings.Join(q.Tokens, " ")
}
