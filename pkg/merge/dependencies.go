package merge

import (
	"fmt"

	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DependencyMap maps package names to version strings, remembering insertion order.
type DependencyMap = orderedmap.OrderedMap[string, string]

// NewDependencyMap builds a DependencyMap from alternating name/version pairs.
func NewDependencyMap(pairs ...string) *DependencyMap {
	if len(pairs)%2 != 0 {
		panic("merge: NewDependencyMap expects name/version pairs")
	}

	deps := orderedmap.New[string, string]()
	for i := 0; i < len(pairs); i += 2 {
		deps.Set(pairs[i], pairs[i+1])
	}
	return deps
}

type ChangeAction string

const (
	ChangeAdded    ChangeAction = "added"
	ChangeUpdated  ChangeAction = "updated"
	ChangeRemoved  ChangeAction = "removed"
	ChangeKept     ChangeAction = "kept"
	ChangeConflict ChangeAction = "conflict"
)

// DependencyChange records what happened to one package during a merge.
type DependencyChange struct {
	Name   string       `json:"name" yaml:"name"`
	Action ChangeAction `json:"action" yaml:"action"`
	From   string       `json:"from,omitempty" yaml:"from,omitempty"`
	To     string       `json:"to,omitempty" yaml:"to,omitempty"`
	Reason string       `json:"reason" yaml:"reason"`
}

type DependencyMergeResult struct {
	Merged  *DependencyMap
	Changes []DependencyChange
}

// MergeDependencies merges three dependency maps key by key. Keys are visited
// in the order they are first seen across base, then ours, then theirs, so the
// merged map and the change list are stable for identical inputs. A nil map is
// treated as empty.
func MergeDependencies(base, ours, theirs *DependencyMap) DependencyMergeResult {
	result := DependencyMergeResult{
		Merged:  orderedmap.New[string, string](),
		Changes: []DependencyChange{},
	}

	for _, name := range unionKeys(base, ours, theirs) {
		baseVer, inBase := lookup(base, name)
		oursVer, inOurs := lookup(ours, name)
		theirsVer, inTheirs := lookup(theirs, name)

		change, keep, version := mergeDependency(name, baseVer, inBase, oursVer, inOurs, theirsVer, inTheirs)
		if keep {
			result.Merged.Set(name, version)
		}
		if change != nil {
			result.Changes = append(result.Changes, *change)
		}
	}

	return result
}

func mergeDependency(name, baseVer string, inBase bool, oursVer string, inOurs bool, theirsVer string, inTheirs bool) (*DependencyChange, bool, string) {
	switch {
	case !inBase && !inOurs && inTheirs:
		return &DependencyChange{Name: name, Action: ChangeAdded, To: theirsVer, Reason: "New dependency in template"}, true, theirsVer

	case !inBase && inOurs && !inTheirs:
		return &DependencyChange{Name: name, Action: ChangeKept, From: oursVer, Reason: "User-added dependency"}, true, oursVer

	case !inBase && inOurs && inTheirs:
		if oursVer == theirsVer {
			return &DependencyChange{Name: name, Action: ChangeKept, From: oursVer, Reason: "Both added same version"}, true, oursVer
		}
		return &DependencyChange{
			Name:   name,
			Action: ChangeConflict,
			From:   oursVer,
			To:     theirsVer,
			Reason: fmt.Sprintf("Both added: user set %s, template set %s", oursVer, theirsVer),
		}, true, oursVer

	case inBase && inOurs && !inTheirs:
		if baseVer == oursVer {
			return &DependencyChange{Name: name, Action: ChangeRemoved, From: oursVer, Reason: "Template removed dependency"}, false, ""
		}
		return &DependencyChange{Name: name, Action: ChangeKept, From: oursVer, Reason: "User modified before template removal"}, true, oursVer

	case inBase && !inOurs && inTheirs:
		return &DependencyChange{Name: name, Action: ChangeKept, Reason: "User removed locally"}, false, ""

	case inBase && inOurs && inTheirs:
		switch {
		case baseVer == oursVer && oursVer == theirsVer:
			return nil, true, oursVer
		case baseVer == oursVer:
			return &DependencyChange{Name: name, Action: ChangeUpdated, From: oursVer, To: theirsVer, Reason: "Template updated version"}, true, theirsVer
		case baseVer == theirsVer:
			return &DependencyChange{Name: name, Action: ChangeKept, From: oursVer, Reason: "User modified version"}, true, oursVer
		case oursVer == theirsVer:
			return &DependencyChange{Name: name, Action: ChangeKept, From: oursVer, Reason: "Both changed to same version"}, true, oursVer
		default:
			return &DependencyChange{
				Name:   name,
				Action: ChangeConflict,
				From:   oursVer,
				To:     theirsVer,
				Reason: fmt.Sprintf("Both modified: user set %s, template set %s", oursVer, theirsVer),
			}, true, oursVer
		}
	}

	// Only in base: both sides dropped it.
	return nil, false, ""
}

func lookup(deps *DependencyMap, name string) (string, bool) {
	if deps == nil {
		return "", false
	}
	return deps.Get(name)
}

func unionKeys(maps ...*DependencyMap) []string {
	keys := []string{}
	for _, m := range maps {
		if m == nil {
			continue
		}
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
	}

	// lo.Uniq keeps the first occurrence, which gives first-seen order.
	return lo.Uniq(keys)
}
