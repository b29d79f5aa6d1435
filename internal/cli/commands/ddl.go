package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/modelkit/internal/orm/codegen"
)

// NewDDLCommand creates the ddl command
func NewDDLCommand(flags *globalFlags) *cobra.Command {
	var (
		dialect string
		drop    bool
	)

	cmd := &cobra.Command{
		Use:   "ddl [models...]",
		Short: "Print the CREATE TABLE statements of the models",
		Long: `Print the SQL DDL creating a table per model. The dialect follows
database.driver unless --dialect is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			schemas, err := p.selectSchemas(args)
			if err != nil {
				return err
			}

			if dialect == "" {
				dialect = p.cfg.Database.Driver
			}
			d, err := codegen.ParseDialect(dialect)
			if err != nil {
				return err
			}

			gen := codegen.NewDDLGenerator(d, p.cfg.Schema.IDKey)
			statements, err := gen.Generate(schemas)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if drop {
				for i := len(schemas) - 1; i >= 0; i-- {
					fmt.Fprintln(out, gen.GenerateDropTable(schemas[i]))
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, strings.Join(statements, "\n\n"))
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect: postgres or sqlite")
	cmd.Flags().BoolVar(&drop, "drop", false, "prefix DROP TABLE statements")
	return cmd
}
