package markers

import (
	"fmt"
	"strings"
	"time"
)

// DeprecationNotice is placed directly before a local section the template no
// longer carries.
const DeprecationNotice = "<!-- DEPRECATED: This template section is no longer maintained. Consider removing if not needed. -->\n"

const addedNoticeFormat = "\n\n<!-- NEW TEMPLATE SECTION ADDED (%s) -->\n"

// Changes lists how every section was treated. Each local section lands in
// exactly one of Updated, Deprecated or Preserved; template-only sections land
// in Added, or in Blocked when the local document has a stray start marker
// with the same name. Names are in document order.
type Changes struct {
	Updated    []string `json:"updated" yaml:"updated"`
	Added      []string `json:"added" yaml:"added"`
	Deprecated []string `json:"deprecated" yaml:"deprecated"`
	Preserved  []string `json:"preserved" yaml:"preserved"`
	Blocked    []string `json:"blocked" yaml:"blocked"`
}

func (c Changes) HasChanges() bool {
	return len(c.Updated) > 0 || len(c.Added) > 0 || len(c.Deprecated) > 0
}

type Result struct {
	Content             string       `json:"content" yaml:"content"`
	Changes             Changes      `json:"changes" yaml:"changes"`
	LocalDiagnostics    []Diagnostic `json:"localDiagnostics,omitempty" yaml:"localDiagnostics,omitempty"`
	TemplateDiagnostics []Diagnostic `json:"templateDiagnostics,omitempty" yaml:"templateDiagnostics,omitempty"`
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock sets the clock used to timestamp added sections.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type outcome int

const (
	outcomePreserve outcome = iota
	outcomeReplace
	outcomeDeprecate
)

// Update merges the template's marker sections into the local document. Only
// the byte ranges of recognised sections are touched: changed sections take
// the template's span, sections the template dropped get DeprecationNotice,
// and template-only sections are appended with a timestamped notice.
func Update(local, template string, opts ...Option) Result {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	localDoc := Parse(local)
	templateDoc := Parse(template)

	changes := Changes{
		Updated:    []string{},
		Added:      []string{},
		Deprecated: []string{},
		Preserved:  []string{},
		Blocked:    []string{},
	}

	outcomes := make([]outcome, len(localDoc.Sections))
	for i, s := range localDoc.Sections {
		ts, ok := templateDoc.Lookup(s.Name)
		switch {
		case !ok:
			outcomes[i] = outcomeDeprecate
			changes.Deprecated = append(changes.Deprecated, s.Name)
		case strings.TrimSpace(s.Content) != strings.TrimSpace(ts.Content):
			outcomes[i] = outcomeReplace
			changes.Updated = append(changes.Updated, s.Name)
		default:
			outcomes[i] = outcomePreserve
			changes.Preserved = append(changes.Preserved, s.Name)
		}
	}

	// Splice from the end so earlier offsets stay valid.
	result := local
	for i := len(localDoc.Sections) - 1; i >= 0; i-- {
		s := localDoc.Sections[i]
		before, after := result[:s.Start], result[s.End:]

		switch outcomes[i] {
		case outcomeReplace:
			ts, _ := templateDoc.Lookup(s.Name)
			result = before + templateDoc.Span(ts) + after
		case outcomeDeprecate:
			if !strings.HasSuffix(before, DeprecationNotice) {
				result = before + DeprecationNotice + result[s.Start:]
			}
		}
	}

	// An appended end marker would pair with a stray local start marker on the
	// next run and swallow the text between them.
	stray := map[string]bool{}
	for _, d := range localDoc.Diagnostics {
		if d.Kind == DiagnosticUnmatchedStart || d.Kind == DiagnosticOverlap {
			stray[d.Name] = true
		}
	}

	var appended strings.Builder
	for _, ts := range templateDoc.Sections {
		if _, ok := localDoc.Lookup(ts.Name); ok {
			continue
		}
		if stray[ts.Name] {
			changes.Blocked = append(changes.Blocked, ts.Name)
			continue
		}

		fmt.Fprintf(&appended, addedNoticeFormat, o.now().UTC().Format("2006-01-02T15:04:05.000Z"))
		appended.WriteString(templateDoc.Span(ts))
		changes.Added = append(changes.Added, ts.Name)
	}

	return Result{
		Content:             result + appended.String(),
		Changes:             changes,
		LocalDiagnostics:    localDoc.Diagnostics,
		TemplateDiagnostics: templateDoc.Diagnostics,
	}
}
