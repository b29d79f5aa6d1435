package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/modelkit/internal/cli/ui"
	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schemacache"
)

// NewCompileCommand creates the compile command
func NewCompileCommand(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		verify bool
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "compile [models...]",
		Short: "Compile the manifest and list the model schemas",
		Long: `Compile every model declared in the manifest and list the resulting
schemas with their fingerprints. With --verify the fingerprints are compared
against the ones published in the schema cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			schemas, err := p.selectSchemas(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(schemas)
			}

			table := ui.NewTable(out, color.NoColor, "MODEL", "COLLECTION", "ATTRIBUTES", "FINGERPRINT")
			for _, ms := range schemas {
				fp, _, err := schemacache.Fingerprint(ms)
				if err != nil {
					return err
				}
				table.AddRow(ms.ClassName, ms.CollectionName, strconv.Itoa(ms.Len()), fp[:12])
			}
			table.Render()

			if stats {
				if err := writeStats(out, p); err != nil {
					return err
				}
			}

			if !verify {
				return nil
			}

			cache, closeCache, err := p.cache(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			if err := schemacache.NewPublisher(cache, p.logger).Verify(cmd.Context(), schemas); err != nil {
				return err
			}
			ui.WriteSuccess(out, fmt.Sprintf("%d schemas match the published fingerprints", len(schemas)), color.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the compiled schemas as JSON")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify fingerprints against the schema cache")
	cmd.Flags().BoolVar(&stats, "stats", false, "print registry statistics")
	return cmd
}

// writeStats prints the registry gauges of the project
func writeStats(w io.Writer, p *project) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(registry.NewCollector(p.factory.Registry())); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	kv := ui.NewKeyValueTable(w, color.NoColor)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			kv.AddRow(mf.GetName(), strconv.FormatFloat(m.GetGauge().GetValue(), 'f', -1, 64))
		}
	}
	kv.Render()
	return nil
}
