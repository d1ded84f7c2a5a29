package markers

import (
	"fmt"
	"regexp"
)

const (
	startPrefix = "template-section-start"
	endPrefix   = "template-section-end"
)

var markerPattern = regexp.MustCompile(`<!--\s*(template-section-start|template-section-end):\s*(\S+?)\s*-->`)

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenStart
	TokenEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenStart:
		return "start"
	case TokenEnd:
		return "end"
	default:
		return "text"
	}
}

// Token is a span of the scanned document. Start and End are byte offsets,
// End exclusive. Name is only set for marker tokens.
type Token struct {
	Kind  TokenKind
	Name  string
	Start int
	End   int
}

func (t Token) String() string {
	if t.Kind == TokenText {
		return fmt.Sprintf("text[%d:%d]", t.Start, t.End)
	}
	return fmt.Sprintf("%s(%s)[%d:%d]", t.Kind, t.Name, t.Start, t.End)
}

// Scan splits doc into a flat list of marker and text tokens covering the
// whole document in order. No pairing happens here.
func Scan(doc string) []Token {
	var tokens []Token

	offset := 0
	for _, m := range markerPattern.FindAllStringSubmatchIndex(doc, -1) {
		if m[0] > offset {
			tokens = append(tokens, Token{Kind: TokenText, Start: offset, End: m[0]})
		}

		kind := TokenEnd
		if doc[m[2]:m[3]] == startPrefix {
			kind = TokenStart
		}
		tokens = append(tokens, Token{Kind: kind, Name: doc[m[4]:m[5]], Start: m[0], End: m[1]})

		offset = m[1]
	}

	if offset < len(doc) {
		tokens = append(tokens, Token{Kind: TokenText, Start: offset, End: len(doc)})
	}

	return tokens
}

// StartMarker renders the canonical start marker for a section name.
func StartMarker(name string) string {
	return fmt.Sprintf("<!-- %s: %s -->", startPrefix, name)
}

// EndMarker renders the canonical end marker for a section name.
func EndMarker(name string) string {
	return fmt.Sprintf("<!-- %s: %s -->", endPrefix, name)
}
