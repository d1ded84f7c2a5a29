package flag

import (
	"encoding/csv"
	"strings"

	"github.com/spf13/cobra"
)

type StringSliceFlag struct {
	Name, Shorthand, Description string
	Required, Hidden             bool
	DefaultValue                 []string
	Deprecated                   bool
	DeprecationMessage           string
	// Validate checks a non-empty list before the command runs.
	Validate func([]string) error
}

func (f StringSliceFlag) Init(cmd *cobra.Command) error {
	fullDescription := f.Description + " (comma-separated list)"

	cmd.Flags().StringSliceP(f.Name, f.Shorthand, f.DefaultValue, fullDescription)
	if err := setRequiredAndHidden(cmd, f.Name, f.Required, f.Hidden); err != nil {
		return err
	}
	if f.Deprecated {
		if err := setDeprecated(cmd, f.Name, f.DeprecationMessage); err != nil {
			return err
		}
	}
	return nil
}

func (f StringSliceFlag) GetName() string {
	return f.Name
}

func (f StringSliceFlag) ParseValue(v string) (interface{}, error) {
	v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")

	if v == "" {
		return []string{}, nil
	}

	values, err := csv.NewReader(strings.NewReader(v)).Read()
	if err != nil {
		return nil, err
	}
	if f.Validate != nil {
		if err := f.Validate(values); err != nil {
			return nil, err
		}
	}
	return values, nil
}
