package merge

import (
	"encoding/json"
	"strings"
)

// Snapshot is the content of one artifact at one of the three points in time.
// Absence is meaningful: it means the artifact did not exist at that point.
type Snapshot struct {
	Content string
	Present bool
}

// Present returns a snapshot of an artifact that exists, possibly empty.
func Present(content string) Snapshot {
	return Snapshot{Content: content, Present: true}
}

// Absent returns the snapshot of an artifact that does not exist.
func Absent() Snapshot {
	return Snapshot{}
}

// Matches reports whether two present snapshots hold the same content once
// surrounding whitespace is ignored. Absent snapshots never match.
func (s Snapshot) Matches(other Snapshot) bool {
	if !s.Present || !other.Present {
		return false
	}
	return FilesMatch(s.Content, other.Content)
}

// FilesMatch compares two file bodies ignoring leading and trailing whitespace.
func FilesMatch(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// Action is what a caller should do with the local copy of an artifact.
type Action string

const (
	ActionReplace  Action = "replace"
	ActionKeep     Action = "keep"
	ActionConflict Action = "conflict"
	ActionSkip     Action = "skip"
)

// ReplaceReason explains why the template version should overwrite the local copy.
type ReplaceReason string

const (
	ReasonTemplateOnlyChange ReplaceReason = "template-only-change"
	ReasonNewInTemplate      ReplaceReason = "new-in-template"
)

// KeepReason explains why the local copy stays as it is.
type KeepReason string

const (
	ReasonUserOnlyChange KeepReason = "user-only-change"
	ReasonDeletedLocally KeepReason = "deleted-locally"
)

// ConflictReason explains why no side can be picked automatically.
type ConflictReason string

const (
	ReasonBothModified ConflictReason = "both-modified"
)

// SkipReason explains why there is nothing to do.
type SkipReason string

const (
	ReasonUnchanged   SkipReason = "unchanged"
	ReasonNotInEither SkipReason = "not-in-either"
)

// Decision is the outcome of a three-way comparison of a single artifact.
// The set of implementations is closed: Replace, Keep, Conflict and Skip.
type Decision interface {
	Action() Action
	Reason() string
	isDecision()
}

// Replace takes the template version.
type Replace struct{ Why ReplaceReason }

// Keep leaves the local copy untouched.
type Keep struct{ Why KeepReason }

// Conflict needs a human to reconcile both sides.
type Conflict struct{ Why ConflictReason }

// Skip means local and template agree or the artifact exists nowhere.
type Skip struct{ Why SkipReason }

func (Replace) Action() Action  { return ActionReplace }
func (Keep) Action() Action     { return ActionKeep }
func (Conflict) Action() Action { return ActionConflict }
func (Skip) Action() Action     { return ActionSkip }

func (d Replace) Reason() string  { return string(d.Why) }
func (d Keep) Reason() string     { return string(d.Why) }
func (d Conflict) Reason() string { return string(d.Why) }
func (d Skip) Reason() string     { return string(d.Why) }

func (Replace) isDecision()  {}
func (Keep) isDecision()     {}
func (Conflict) isDecision() {}
func (Skip) isDecision()     {}

func (d Replace) MarshalJSON() ([]byte, error)  { return marshalDecision(d) }
func (d Keep) MarshalJSON() ([]byte, error)     { return marshalDecision(d) }
func (d Conflict) MarshalJSON() ([]byte, error) { return marshalDecision(d) }
func (d Skip) MarshalJSON() ([]byte, error)     { return marshalDecision(d) }

func (d Replace) MarshalYAML() (interface{}, error)  { return decisionFields(d), nil }
func (d Keep) MarshalYAML() (interface{}, error)     { return decisionFields(d), nil }
func (d Conflict) MarshalYAML() (interface{}, error) { return decisionFields(d), nil }
func (d Skip) MarshalYAML() (interface{}, error)     { return decisionFields(d), nil }

type decisionJSON struct {
	Action Action `json:"action" yaml:"action"`
	Reason string `json:"reason" yaml:"reason"`
}

func decisionFields(d Decision) decisionJSON {
	return decisionJSON{Action: d.Action(), Reason: d.Reason()}
}

func marshalDecision(d Decision) ([]byte, error) {
	return json.Marshal(decisionFields(d))
}

// String renders a decision as "action (reason)".
func String(d Decision) string {
	return string(d.Action()) + " (" + d.Reason() + ")"
}

// Decide classifies a (base, ours, theirs) triple. Cases are evaluated in
// priority order; any combination not covered falls back to a conflict so the
// caller always gets an actionable answer.
func Decide(base, ours, theirs Snapshot) Decision {
	switch {
	case !base.Present && !ours.Present && !theirs.Present:
		return Skip{ReasonNotInEither}
	case !base.Present && !ours.Present && theirs.Present:
		return Replace{ReasonNewInTemplate}
	case base.Present && !ours.Present && theirs.Present:
		return Keep{ReasonDeletedLocally}
	case !base.Present && ours.Present && !theirs.Present:
		return Keep{ReasonUserOnlyChange}
	case base.Present && !theirs.Present:
		// Template dropped the file; whatever the user has stays.
		return Keep{ReasonUserOnlyChange}
	}

	if base.Present && ours.Present && theirs.Present {
		baseIsOurs := base.Matches(ours)
		baseIsTheirs := base.Matches(theirs)

		switch {
		case baseIsOurs && baseIsTheirs:
			return Skip{ReasonUnchanged}
		case baseIsOurs:
			return Replace{ReasonTemplateOnlyChange}
		case baseIsTheirs:
			return Keep{ReasonUserOnlyChange}
		case !ours.Matches(theirs):
			return Conflict{ReasonBothModified}
		}
	}

	return Conflict{ReasonBothModified}
}
