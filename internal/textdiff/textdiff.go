// Package textdiff renders line diffs of template files for verbose output.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const contextLines = 3

type Op byte

const (
	OpEqual  Op = ' '
	OpDelete Op = '-'
	OpInsert Op = '+'
)

type Line struct {
	Op   Op
	Text string
}

type Stats struct {
	Added   int `json:"added" yaml:"added"`
	Deleted int `json:"deleted" yaml:"deleted"`
}

func (s Stats) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Deleted)
}

// Lines diffs old against new line by line.
func Lines(oldText, newText string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}

		for _, text := range splitLines(d.Text) {
			lines = append(lines, Line{Op: op, Text: text})
		}
	}
	return lines
}

func ComputeStats(lines []Line) Stats {
	var s Stats
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			s.Added++
		case OpDelete:
			s.Deleted++
		}
	}
	return s
}

// Unified renders a unified diff of old and new for path with three lines of
// context. Identical inputs produce an empty string.
func Unified(oldText, newText, path string) string {
	lines := Lines(oldText, newText)

	var changed []int
	for i, l := range lines {
		if l.Op != OpEqual {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	// Line numbers (1-based) of lines[i] in old and new.
	oldNo := make([]int, len(lines)+1)
	newNo := make([]int, len(lines)+1)
	o, n := 1, 1
	for i, l := range lines {
		oldNo[i], newNo[i] = o, n
		if l.Op != OpInsert {
			o++
		}
		if l.Op != OpDelete {
			n++
		}
	}
	oldNo[len(lines)], newNo[len(lines)] = o, n

	for h := 0; h < len(changed); {
		start := max(changed[h]-contextLines, 0)
		end := changed[h]
		for h < len(changed) && changed[h] <= end+2*contextLines {
			end = changed[h]
			h++
		}
		end = min(end+contextLines+1, len(lines))

		var oldCount, newCount int
		for _, l := range lines[start:end] {
			if l.Op != OpInsert {
				oldCount++
			}
			if l.Op != OpDelete {
				newCount++
			}
		}

		fmt.Fprintf(&b, "@@ -%s +%s @@\n", hunkRange(oldNo[start], oldCount), hunkRange(newNo[start], newCount))
		for _, l := range lines[start:end] {
			b.WriteByte(byte(l.Op))
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func hunkRange(start, count int) string {
	if count == 0 {
		start--
	}
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
