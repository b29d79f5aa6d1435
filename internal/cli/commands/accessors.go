package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/modelkit/internal/cli/ui"
	"github.com/conduit-lang/modelkit/internal/orm/codegen"
)

// NewAccessorsCommand creates the accessors command
func NewAccessorsCommand(flags *globalFlags) *cobra.Command {
	var (
		pkg    string
		output string
	)

	cmd := &cobra.Command{
		Use:     "accessors [models...]",
		Aliases: []string{"gen"},
		Short:   "Generate typed Go accessors for the models",
		Long: `Generate a Go file with one typed view per model. Each view wraps a
model instance and exposes a getter, a setter and a changed check per
declared attribute. Use --output - to print to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			schemas, err := p.selectSchemas(args)
			if err != nil {
				return err
			}

			if pkg == "" {
				pkg = p.cfg.Codegen.Package
			}
			if output == "" {
				output = p.cfg.Codegen.Output
			}

			src, err := codegen.NewAccessorGenerator(pkg, "").Generate(schemas)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(output, src, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("wrote accessors for %d models to %s", len(schemas), output), color.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pkg, "package", "p", "", "package name of the generated file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}
