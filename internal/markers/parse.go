package markers

import (
	"fmt"
	"strings"
)

// Section is a named span bounded by a start marker and the first following
// end marker with the same name. Start and End are offsets into the parsed
// document; End is exclusive and includes the end marker.
type Section struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
	Start   int    `json:"start" yaml:"start"`
	End     int    `json:"end" yaml:"end"`
}

type DiagnosticKind string

const (
	DiagnosticUnmatchedStart DiagnosticKind = "unmatched-start"
	DiagnosticUnmatchedEnd   DiagnosticKind = "unmatched-end"
	DiagnosticDuplicateName  DiagnosticKind = "duplicate-name"
	DiagnosticOverlap        DiagnosticKind = "overlap"
)

// Diagnostic describes a marker anomaly. Anomalies never stop parsing; the
// offending marker or section is ignored.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Name    string         `json:"name" yaml:"name"`
	Offset  int            `json:"offset" yaml:"offset"`
	Line    int            `json:"line" yaml:"line"`
	Message string         `json:"message" yaml:"message"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

func (d Diagnostic) LineNumber() int {
	return d.Line
}

type Document struct {
	Source      string
	Sections    []Section
	Diagnostics []Diagnostic
}

// Names returns the accepted section names in document order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Name)
	}
	return names
}

// Lookup finds an accepted section by name.
func (d *Document) Lookup(name string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Span returns the section's full text, markers included.
func (d *Document) Span(s Section) string {
	return d.Source[s.Start:s.End]
}

// Parse pairs the tokens produced by Scan into sections. Accepted sections are
// disjoint and ordered by start offset. When two candidate sections share a
// name the first one wins, and when they overlap or nest the one starting
// earlier wins.
func Parse(doc string) *Document {
	tokens := Scan(doc)
	d := &Document{Source: doc}

	type candidate struct {
		start, end int
	}
	var candidates []candidate
	pairedEnds := map[int]bool{}

	for i, tok := range tokens {
		if tok.Kind != TokenStart {
			continue
		}

		end := -1
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j].Kind == TokenEnd && tokens[j].Name == tok.Name {
				end = j
				break
			}
		}
		if end < 0 {
			d.diagnose(DiagnosticUnmatchedStart, tok.Name, tok.Start, "no end marker after start marker for section %q", tok.Name)
			continue
		}

		pairedEnds[end] = true
		candidates = append(candidates, candidate{start: i, end: end})
	}

	for i, tok := range tokens {
		if tok.Kind == TokenEnd && !pairedEnds[i] {
			d.diagnose(DiagnosticUnmatchedEnd, tok.Name, tok.Start, "end marker for section %q has no start marker", tok.Name)
		}
	}

	seen := map[string]bool{}
	acceptedEnd := 0
	for _, c := range candidates {
		open, closing := tokens[c.start], tokens[c.end]

		if seen[open.Name] {
			d.diagnose(DiagnosticDuplicateName, open.Name, open.Start, "section %q appears more than once, keeping the first", open.Name)
			continue
		}
		if open.Start < acceptedEnd {
			d.diagnose(DiagnosticOverlap, open.Name, open.Start, "section %q overlaps an earlier section and is ignored", open.Name)
			continue
		}

		seen[open.Name] = true
		acceptedEnd = closing.End
		d.Sections = append(d.Sections, Section{
			Name:    open.Name,
			Content: doc[open.End:closing.Start],
			Start:   open.Start,
			End:     closing.End,
		})
	}

	return d
}

func (d *Document) diagnose(kind DiagnosticKind, name string, offset int, format string, args ...any) {
	d.Diagnostics = append(d.Diagnostics, Diagnostic{
		Kind:    kind,
		Name:    name,
		Offset:  offset,
		Line:    strings.Count(d.Source[:offset], "\n") + 1,
		Message: fmt.Sprintf(format, args...),
	})
}
