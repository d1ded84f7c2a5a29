package markers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func section(name, body string) string {
	return StartMarker(name) + body + EndMarker(name)
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestScan(t *testing.T) {
	t.Parallel()

	doc := "intro\n<!-- template-section-start: a -->body<!--template-section-end:a-->\n"
	tokens := Scan(doc)

	require.Len(t, tokens, 5)
	assert.Equal(t, []TokenKind{TokenText, TokenStart, TokenText, TokenEnd, TokenText}, []TokenKind{
		tokens[0].Kind, tokens[1].Kind, tokens[2].Kind, tokens[3].Kind, tokens[4].Kind,
	})
	assert.Equal(t, "a", tokens[1].Name)
	assert.Equal(t, "a", tokens[3].Name)
	assert.Equal(t, "body", doc[tokens[2].Start:tokens[2].End])

	// Tokens tile the document without gaps.
	offset := 0
	for _, tok := range tokens {
		assert.Equal(t, offset, tok.Start)
		offset = tok.End
	}
	assert.Equal(t, len(doc), offset)
}

func TestScan_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Scan(""))
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		wantNames []string
		wantDiags []DiagnosticKind
	}{
		{
			name:      "well formed",
			doc:       "x" + section("a", "1") + "y" + section("b", "2") + "z",
			wantNames: []string{"a", "b"},
		},
		{
			name:      "unmatched start",
			doc:       StartMarker("a") + "dangling" + section("b", "2"),
			wantNames: []string{"b"},
			wantDiags: []DiagnosticKind{DiagnosticUnmatchedStart},
		},
		{
			name:      "unmatched end",
			doc:       EndMarker("a") + section("b", "2"),
			wantNames: []string{"b"},
			wantDiags: []DiagnosticKind{DiagnosticUnmatchedEnd},
		},
		{
			name:      "end before start does not pair",
			doc:       EndMarker("a") + StartMarker("a"),
			wantNames: nil,
			wantDiags: []DiagnosticKind{DiagnosticUnmatchedStart, DiagnosticUnmatchedEnd},
		},
		{
			name:      "duplicate name keeps first",
			doc:       section("a", "first") + section("a", "second"),
			wantNames: []string{"a"},
			wantDiags: []DiagnosticKind{DiagnosticDuplicateName},
		},
		{
			name:      "nested section is rejected",
			doc:       StartMarker("outer") + section("inner", "i") + EndMarker("outer"),
			wantNames: []string{"outer"},
			wantDiags: []DiagnosticKind{DiagnosticOverlap},
		},
		{
			name:      "interleaved sections keep the earlier one",
			doc:       StartMarker("a") + StartMarker("b") + EndMarker("a") + EndMarker("b"),
			wantNames: []string{"a"},
			wantDiags: []DiagnosticKind{DiagnosticOverlap},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Parse(tt.doc)
			if tt.wantNames == nil {
				assert.Empty(t, d.Names())
			} else {
				assert.Equal(t, tt.wantNames, d.Names())
			}

			kinds := make([]DiagnosticKind, 0, len(d.Diagnostics))
			for _, diag := range d.Diagnostics {
				kinds = append(kinds, diag.Kind)
			}
			if tt.wantDiags == nil {
				assert.Empty(t, kinds)
			} else {
				assert.ElementsMatch(t, tt.wantDiags, kinds)
			}
		})
	}
}

func TestParse_Offsets(t *testing.T) {
	t.Parallel()

	doc := "head\n" + section("a", "\nbody\n") + "\ntail"
	d := Parse(doc)

	s, ok := d.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "\nbody\n", s.Content)
	assert.Equal(t, 5, s.Start)
	assert.Equal(t, section("a", "\nbody\n"), d.Span(s))
	assert.Equal(t, "\ntail", doc[s.End:])
}

func TestParse_DuplicateKeepsFirstContent(t *testing.T) {
	t.Parallel()

	d := Parse(section("a", "first") + section("a", "second"))
	s, ok := d.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "first", s.Content)
}

func TestUpdate_UpdatesAndAppends(t *testing.T) {
	t.Parallel()

	local := "# Title\n\n" + section("intro", "\nHello\n") + "\n\nMy notes\n"
	template := section("intro", "\nHello, world\n") + "\n" + section("outro", "\nBye\n") + "\n"

	res := Update(local, template, WithClock(fixedClock))

	assert.Equal(t, "# Title\n\n"+section("intro", "\nHello, world\n")+"\n\nMy notes\n"+
		"\n\n<!-- NEW TEMPLATE SECTION ADDED (2026-01-02T03:04:05.000Z) -->\n"+section("outro", "\nBye\n"),
		res.Content)
	assert.Equal(t, []string{"intro"}, res.Changes.Updated)
	assert.Equal(t, []string{"outro"}, res.Changes.Added)
	assert.Empty(t, res.Changes.Preserved)
	assert.Empty(t, res.Changes.Deprecated)
	assert.True(t, res.Changes.HasChanges())
}

func TestUpdate_SelfMergeIsIdentity(t *testing.T) {
	t.Parallel()

	docs := []string{
		"",
		"no markers at all\n",
		"a\n" + section("one", "\n1\n") + "\nb\n" + section("two", "2") + "\nc",
	}

	for _, doc := range docs {
		res := Update(doc, doc, WithClock(fixedClock))

		assert.Equal(t, doc, res.Content)
		assert.Equal(t, Parse(doc).Names(), append([]string{}, res.Changes.Preserved...))
		assert.Empty(t, res.Changes.Updated)
		assert.Empty(t, res.Changes.Added)
		assert.Empty(t, res.Changes.Deprecated)
		assert.False(t, res.Changes.HasChanges())
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	t.Parallel()

	local := "user text\n" + section("a", "old") + "\n" + section("legacy", "keep me") + "\nfooter\n"
	template := section("a", "new") + section("b", "added")

	first := Update(local, template, WithClock(fixedClock))
	second := Update(first.Content, template, WithClock(fixedClock))

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, []string{"a", "b"}, second.Changes.Preserved)
	assert.Equal(t, []string{"legacy"}, second.Changes.Deprecated)
	assert.Empty(t, second.Changes.Updated)
	assert.Empty(t, second.Changes.Added)
}

func TestUpdate_Deprecates(t *testing.T) {
	t.Parallel()

	local := "top\n" + section("legacy", "x") + "\nbottom\n"

	res := Update(local, "nothing here\n", WithClock(fixedClock))

	assert.Equal(t, "top\n"+DeprecationNotice+section("legacy", "x")+"\nbottom\n", res.Content)
	assert.Equal(t, []string{"legacy"}, res.Changes.Deprecated)
}

func TestUpdate_IgnoresSurroundingWhitespace(t *testing.T) {
	t.Parallel()

	local := section("a", "\n  same  \n")
	res := Update(local, section("a", "same"), WithClock(fixedClock))

	assert.Equal(t, local, res.Content)
	assert.Equal(t, []string{"a"}, res.Changes.Preserved)
}

func TestUpdate_EveryLocalSectionClassifiedOnce(t *testing.T) {
	t.Parallel()

	local := section("keep", "k") + section("change", "old") + section("gone", "g")
	template := section("change", "new") + section("keep", "k") + section("fresh", "f")

	res := Update(local, template, WithClock(fixedClock))

	classified := append(append(append([]string{}, res.Changes.Updated...), res.Changes.Deprecated...), res.Changes.Preserved...)
	assert.ElementsMatch(t, []string{"keep", "change", "gone"}, classified)
	assert.Equal(t, []string{"fresh"}, res.Changes.Added)
}

func TestUpdate_ReportsDiagnostics(t *testing.T) {
	t.Parallel()

	local := StartMarker("broken") + "text " + section("a", "1")
	template := section("a", "2") + EndMarker("stray")

	res := Update(local, template, WithClock(fixedClock))

	assert.Equal(t, StartMarker("broken")+"text "+section("a", "2"), res.Content)
	require.Len(t, res.LocalDiagnostics, 1)
	assert.Equal(t, DiagnosticUnmatchedStart, res.LocalDiagnostics[0].Kind)
	require.Len(t, res.TemplateDiagnostics, 1)
	assert.Equal(t, DiagnosticUnmatchedEnd, res.TemplateDiagnostics[0].Kind)
}

func TestDiagnostic_Line(t *testing.T) {
	t.Parallel()

	d := Parse("one\ntwo\n" + EndMarker("stray") + "\n")
	require.Len(t, d.Diagnostics, 1)
	assert.Equal(t, 3, d.Diagnostics[0].LineNumber())
	assert.Equal(t, `line 3: end marker for section "stray" has no start marker`, d.Diagnostics[0].Error())
}

func TestUpdate_StrayStartBlocksAppend(t *testing.T) {
	t.Parallel()

	local := "# Notes\n" + StartMarker("intro") + "\nMY OWN TEXT\n"
	template := section("intro", "\nHello\n")

	first := Update(local, template, WithClock(fixedClock))

	assert.Equal(t, local, first.Content)
	assert.Equal(t, []string{"intro"}, first.Changes.Blocked)
	assert.Empty(t, first.Changes.Added)
	assert.False(t, first.Changes.HasChanges())
	require.Len(t, first.LocalDiagnostics, 1)
	assert.Equal(t, DiagnosticUnmatchedStart, first.LocalDiagnostics[0].Kind)

	second := Update(first.Content, template, WithClock(fixedClock))

	assert.Equal(t, local, second.Content)
	assert.Contains(t, second.Content, "MY OWN TEXT")
	assert.Equal(t, []string{"intro"}, second.Changes.Blocked)
	assert.Empty(t, second.Changes.Updated)
}

func TestUpdate_StrayStartDoesNotBlockOtherSections(t *testing.T) {
	t.Parallel()

	local := StartMarker("broken") + "\nmine\n"
	template := section("broken", "x") + section("fresh", "f")

	res := Update(local, template, WithClock(fixedClock))

	assert.Equal(t, []string{"broken"}, res.Changes.Blocked)
	assert.Equal(t, []string{"fresh"}, res.Changes.Added)
	assert.True(t, strings.HasPrefix(res.Content, local))
	assert.NotContains(t, strings.TrimPrefix(res.Content, local), StartMarker("broken"))
}
