package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HewlettPackard/zing-stats/internal/config"
)

// ValidateCommand checks a projects file against the embedded schema.
type ValidateCommand struct {
	out io.Writer
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return newValidateCommandWithDeps(os.Stdout)
}

func newValidateCommandWithDeps(out io.Writer) *cobra.Command {
	vc := &ValidateCommand{out: out}

	return &cobra.Command{
		Use:   "validate <projects.json>",
		Short: "Validate a projects file against the schema",
		Long: `Validate a projects file against the embedded JSON schema.

Examples:
  zing-stats validate projects.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return vc.run(args[0])
		},
	}
}

func (vc *ValidateCommand) run(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read projects file: %w", err)
	}

	violations, err := config.ValidateProjects(data)
	if err != nil {
		return err
	}

	if len(violations) == 0 {
		color.New(color.FgGreen).Fprintf(vc.out, "projects file is valid (%s)\n", path)

		return nil
	}

	color.New(color.FgRed).Fprintf(vc.out, "projects file validation failed (%s)\n", path)

	for _, violation := range violations {
		color.New(color.FgRed).Fprintf(vc.out, "  - %s\n", violation)
	}

	return fmt.Errorf("%w: %d violation(s)", config.ErrProjectsInvalid, len(violations))
}
