package flag

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type IntFlag struct {
	Name, Shorthand, Description string
	Required, Hidden             bool
	DefaultValue                 int
	// Minimum rejects smaller values when set.
	Minimum *int
}

func (f IntFlag) Init(cmd *cobra.Command) error {
	cmd.Flags().IntP(f.Name, f.Shorthand, f.DefaultValue, f.Description)
	if err := setRequiredAndHidden(cmd, f.Name, f.Required, f.Hidden); err != nil {
		return err
	}

	return nil
}

func (f IntFlag) GetName() string {
	return f.Name
}

func (f IntFlag) ParseValue(v string) (interface{}, error) {
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	if f.Minimum != nil && i < *f.Minimum {
		return nil, fmt.Errorf("--%s must be at least %d", f.Name, *f.Minimum)
	}
	return i, nil
}
