package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	SectionDependencies    = "dependencies"
	SectionDevDependencies = "devDependencies"
)

var ErrMalformedSection = errors.New("dependency section is not a map of package names to version strings")

// SectionError is returned when a dependency section of a manifest cannot be
// read as a name -> version map.
type SectionError struct {
	Side    string
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s manifest: %s: %s: %v", e.Side, e.Section, ErrMalformedSection.Error(), e.Err)
}

func (e *SectionError) Is(target error) bool {
	return target == ErrMalformedSection
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// Manifest is a package.json-like document. Top-level keys keep their original
// order and values are held as raw JSON so fields the merger does not own are
// passed through untouched.
type Manifest struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewManifest() *Manifest {
	return &Manifest{fields: orderedmap.New[string, json.RawMessage]()}
}

func ParseManifest(data []byte) (*Manifest, error) {
	m := NewManifest()
	if err := m.fields.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

func (m *Manifest) Get(key string) (json.RawMessage, bool) {
	if m == nil {
		return nil, false
	}
	return m.fields.Get(key)
}

// Set stores value under key, marshalling it to JSON. New keys go to the end.
func (m *Manifest) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	m.fields.Set(key, data)
	return nil
}

func (m *Manifest) Delete(key string) {
	m.fields.Delete(key)
}

func (m *Manifest) Keys() []string {
	keys := []string{}
	if m == nil {
		return keys
	}
	for pair := m.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Copy returns a shallow copy; raw values are shared.
func (m *Manifest) Copy() *Manifest {
	c := NewManifest()
	if m == nil {
		return c
	}
	for pair := m.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, pair.Value)
	}
	return c
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	return m.fields.MarshalJSON()
}

// MarshalIndent renders the manifest with two-space indentation and a
// trailing newline, the way npm writes package.json.
func (m *Manifest) MarshalIndent() ([]byte, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Dependencies reads a dependency section. A missing or null section is an
// empty map.
func (m *Manifest) Dependencies(section string) (*DependencyMap, error) {
	raw, ok := m.Get(section)
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return orderedmap.New[string, string](), nil
	}

	deps := orderedmap.New[string, string]()
	if err := deps.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	return deps, nil
}

type ManifestChanges struct {
	Dependencies    []DependencyChange `json:"dependencies" yaml:"dependencies"`
	DevDependencies []DependencyChange `json:"devDependencies" yaml:"devDependencies"`
}

type ManifestMergeResult struct {
	Merged    *Manifest
	Changes   ManifestChanges
	Conflicts []DependencyChange
}

// MergeManifests three-way merges the dependencies and devDependencies
// sections. Every other field comes from ours unchanged.
func MergeManifests(base, ours, theirs *Manifest) (*ManifestMergeResult, error) {
	merged := ours.Copy()

	depsResult, err := mergeSection(SectionDependencies, base, ours, theirs)
	if err != nil {
		return nil, err
	}
	devDepsResult, err := mergeSection(SectionDevDependencies, base, ours, theirs)
	if err != nil {
		return nil, err
	}

	if err := setSection(merged, SectionDependencies, depsResult.Merged); err != nil {
		return nil, err
	}
	if err := setSection(merged, SectionDevDependencies, devDepsResult.Merged); err != nil {
		return nil, err
	}

	conflicts := []DependencyChange{}
	for _, changes := range [][]DependencyChange{depsResult.Changes, devDepsResult.Changes} {
		for _, change := range changes {
			if change.Action == ChangeConflict {
				conflicts = append(conflicts, change)
			}
		}
	}

	return &ManifestMergeResult{
		Merged: merged,
		Changes: ManifestChanges{
			Dependencies:    depsResult.Changes,
			DevDependencies: devDepsResult.Changes,
		},
		Conflicts: conflicts,
	}, nil
}

func mergeSection(section string, base, ours, theirs *Manifest) (DependencyMergeResult, error) {
	sides := []struct {
		name     string
		manifest *Manifest
	}{
		{"base", base},
		{"ours", ours},
		{"theirs", theirs},
	}

	maps := make([]*DependencyMap, len(sides))
	for i, side := range sides {
		deps, err := side.manifest.Dependencies(section)
		if err != nil {
			return DependencyMergeResult{}, &SectionError{Side: side.name, Section: section, Err: err}
		}
		maps[i] = deps
	}

	return MergeDependencies(maps[0], maps[1], maps[2]), nil
}

func setSection(m *Manifest, section string, deps *DependencyMap) error {
	if deps.Len() == 0 {
		m.Delete(section)
		return nil
	}
	return m.Set(section, deps)
}
