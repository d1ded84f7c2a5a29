package merge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   Snapshot
		ours   Snapshot
		theirs Snapshot
		want   Decision
	}{
		{
			name: "not present anywhere",
			want: Skip{ReasonNotInEither},
		},
		{
			name:   "new in template",
			theirs: Present("new"),
			want:   Replace{ReasonNewInTemplate},
		},
		{
			name:   "deleted locally",
			base:   Present("a"),
			theirs: Present("b"),
			want:   Keep{ReasonDeletedLocally},
		},
		{
			name: "user created file",
			ours: Present("mine"),
			want: Keep{ReasonUserOnlyChange},
		},
		{
			name: "removed from template, missing locally",
			base: Present("a"),
			want: Keep{ReasonUserOnlyChange},
		},
		{
			name: "removed from template, kept locally",
			base: Present("a"),
			ours: Present("a"),
			want: Keep{ReasonUserOnlyChange},
		},
		{
			name:   "unchanged",
			base:   Present("a"),
			ours:   Present("a"),
			theirs: Present("a"),
			want:   Skip{ReasonUnchanged},
		},
		{
			name:   "unchanged ignoring surrounding whitespace",
			base:   Present("a\n"),
			ours:   Present("  a"),
			theirs: Present("\na\n\n"),
			want:   Skip{ReasonUnchanged},
		},
		{
			name:   "template only change",
			base:   Present("a"),
			ours:   Present("a"),
			theirs: Present("b"),
			want:   Replace{ReasonTemplateOnlyChange},
		},
		{
			name:   "user only change",
			base:   Present("a"),
			ours:   Present("b"),
			theirs: Present("a"),
			want:   Keep{ReasonUserOnlyChange},
		},
		{
			name:   "both modified",
			base:   Present("a"),
			ours:   Present("b"),
			theirs: Present("c"),
			want:   Conflict{ReasonBothModified},
		},
		{
			name:   "both changed to the same content falls back to conflict",
			base:   Present("a"),
			ours:   Present("b"),
			theirs: Present("b"),
			want:   Conflict{ReasonBothModified},
		},
		{
			name:   "created on both sides falls back to conflict",
			ours:   Present("b"),
			theirs: Present("b"),
			want:   Conflict{ReasonBothModified},
		},
		{
			name:   "empty file is still present",
			base:   Present(""),
			ours:   Present(""),
			theirs: Present("filled"),
			want:   Replace{ReasonTemplateOnlyChange},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Decide(tt.base, tt.ours, tt.theirs))
		})
	}
}

// Every presence/equality class must produce exactly one decision of a known kind.
func TestDecide_Exhaustive(t *testing.T) {
	t.Parallel()

	contents := []Snapshot{Absent(), Present("x"), Present("y"), Present("z")}

	for _, base := range contents {
		for _, ours := range contents {
			for _, theirs := range contents {
				d := Decide(base, ours, theirs)
				require.NotNil(t, d)

				switch v := d.(type) {
				case Replace:
					assert.Contains(t, []ReplaceReason{ReasonTemplateOnlyChange, ReasonNewInTemplate}, v.Why)
				case Keep:
					assert.Contains(t, []KeepReason{ReasonUserOnlyChange, ReasonDeletedLocally}, v.Why)
				case Conflict:
					assert.Equal(t, ReasonBothModified, v.Why)
				case Skip:
					assert.Contains(t, []SkipReason{ReasonUnchanged, ReasonNotInEither}, v.Why)
				default:
					t.Fatalf("unexpected decision type %T", d)
				}

				assert.Equal(t, d, Decide(base, ours, theirs), "decisions must be deterministic")
			}
		}
	}
}

func TestDecide_Properties(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "a", "multi\nline\n"} {
		x := Present(content)
		assert.Equal(t, Skip{ReasonUnchanged}, Decide(x, x, x))
		assert.Equal(t, Replace{ReasonNewInTemplate}, Decide(Absent(), Absent(), x))

		for _, ours := range []Snapshot{Absent(), Present("other"), x} {
			assert.Equal(t, Keep{ReasonUserOnlyChange}, Decide(x, ours, Absent()))
		}
	}
}

func TestDecision_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		Decision Decision `json:"decision"`
	}{Decision: Conflict{ReasonBothModified}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":{"action":"conflict","reason":"both-modified"}}`, string(data))

	assert.Equal(t, "replace (template-only-change)", String(Replace{ReasonTemplateOnlyChange}))
}
