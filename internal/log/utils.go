package log

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var Formats = []string{string(FormatText), string(FormatJSON), string(FormatYAML)}

// PrintValue writes value to w in the requested format. For the text format
// the render func produces the human readable form.
func PrintValue(w io.Writer, format Format, value any, render func() string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatText, "":
		_, err := fmt.Fprintln(w, render())
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintArray is PrintValue for lists. Empty lists print a placeholder in text
// mode and an empty list otherwise.
func PrintArray[K any](w io.Writer, format Format, arr []K, render func(K) string) error {
	if arr == nil {
		arr = []K{}
	}

	return PrintValue(w, format, arr, func() string {
		if len(arr) == 0 {
			return "NO RESULTS"
		}

		lines := make([]string, 0, len(arr))
		for _, item := range arr {
			lines = append(lines, render(item))
		}
		return strings.Join(lines, "\n")
	})
}
