package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/cli/ui"
	"github.com/conduit-lang/modelkit/internal/orm/schemacache"
	"github.com/conduit-lang/modelkit/internal/orm/sqlstore"
)

// NewSyncCommand creates the sync command
func NewSyncCommand(flags *globalFlags) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create the model tables and publish the schemas",
		Long: `Create the tables of every model that does not exist yet in the
configured database, then publish the schema fingerprints to the schema cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := sqlstore.Open(ctx, p.cfg.Database.Driver, p.cfg.Database.URL, sqlstore.WithLogger(p.logger))
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Sync(ctx, p.cfg.Schema.IDKey, p.schemas); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, fmt.Sprintf("synced %d models to %s", len(p.schemas), p.cfg.Database.Driver), color.NoColor)

			if !publish {
				return nil
			}
			cache, closeCache, err := p.cache(ctx)
			if err != nil {
				p.logger.Warn("schema cache unavailable", zap.Error(err))
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("schemas were not published: "+err.Error(), color.NoColor))
				return nil
			}
			defer closeCache()

			if err := schemacache.NewPublisher(cache, p.logger).Publish(ctx, p.schemas); err != nil {
				return err
			}
			ui.WriteSuccess(out, fmt.Sprintf("published %d schemas", len(p.schemas)), color.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", true, "publish schema fingerprints to the schema cache")
	return cmd
}
