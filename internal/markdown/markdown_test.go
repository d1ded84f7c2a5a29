package markdown_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templatesync/templatesync/internal/markdown"
)

func TestCreateMarkdownTable(t *testing.T) {
	type args struct {
		contents [][]string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "Plan table",
			args: args{
				contents: [][]string{
					{"File", "Action", "Reason"},
					{"README.md", "replace", "template-only-change"},
					{"src/app.ts", "keep", "user-only-change"},
				},
			},
			want: `
| File       | Action  | Reason               |
| ---------- | ------- | -------------------- |
| README.md  | replace | template-only-change |
| src/app.ts | keep    | user-only-change     |`,
		},
		{
			name: "Table with mismatched number of columns",
			args: args{
				contents: [][]string{
					{"Name", "From", "To"},
					{"react"},
					{"zod", "3.0.0"},
				},
			},
			want: `
| Name  | From  | To  |
| ----- | ----- | --- |
| react |       |     |
| zod   | 3.0.0 |     |`,
		},
		{
			name: "Table with cells less than 3 characters",
			args: args{
				contents: [][]string{
					{"N", "A"},
					{"Jo", "20"},
				},
			},
			want: `
| N   | A   |
| --- | --- |
| Jo  | 20  |`,
		},
		{
			name: "Pipes are escaped and counted in the width",
			args: args{
				contents: [][]string{
					{"Name", "Range"},
					{"lodash", "^4|^5"},
				},
			},
			want: `
| Name   | Range  |
| ------ | ------ |
| lodash | ^4\|^5 |`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := markdown.CreateMarkdownTable(tt.args.contents)
			assert.Equal(t, strings.TrimPrefix(tt.want, "\n"), got)
		})
	}
}

func TestRender(t *testing.T) {
	out, err := markdown.Render("## [1.0.0]\n\n- first release", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "first release")
}
