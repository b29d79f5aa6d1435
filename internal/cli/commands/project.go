package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/cli/config"
	"github.com/conduit-lang/modelkit/internal/logging"
	"github.com/conduit-lang/modelkit/internal/orm/manifest"
	"github.com/conduit-lang/modelkit/internal/orm/model"
	"github.com/conduit-lang/modelkit/internal/orm/registry"
	"github.com/conduit-lang/modelkit/internal/orm/schema"
	"github.com/conduit-lang/modelkit/internal/orm/schemacache"
)

// project is the compiled state shared by the commands
type project struct {
	cfg     *config.Config
	logger  *zap.Logger
	factory *model.Factory
	classes map[string]*model.Class
	schemas []*schema.ModelSchema
}

// loadProject reads the configuration and compiles the manifest into a fresh
// registry
func loadProject(flags *globalFlags) (*project, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	manifestPath := cfg.Schema.Manifest
	if flags.configPath != "" && !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(filepath.Dir(flags.configPath), manifestPath)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	factory := model.NewFactory(registry.New(logger),
		model.WithLogger(logger),
		model.WithIDKey(cfg.Schema.IDKey),
		model.WithTempIDKey(cfg.Schema.TempIDKey),
	)
	classes, err := m.Declare(factory)
	if err != nil {
		return nil, schemaError{err}
	}

	return &project{
		cfg:     cfg,
		logger:  logger,
		factory: factory,
		classes: classes,
		schemas: factory.Registry().Models(),
	}, nil
}

// names returns the class names in order
func (p *project) names() []string {
	names := make([]string, 0, len(p.classes))
	for name := range p.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectSchemas returns the schemas of the named models, or all schemas when
// names is empty
func (p *project) selectSchemas(names []string) ([]*schema.ModelSchema, error) {
	if len(names) == 0 {
		return p.schemas, nil
	}
	selected := make([]*schema.ModelSchema, 0, len(names))
	for _, name := range names {
		cls, ok := p.classes[name]
		if !ok {
			return nil, modelNotFound{name: name, known: p.names()}
		}
		ms, _ := cls.Schema()
		selected = append(selected, ms)
	}
	return selected, nil
}

// cache opens the configured schema cache
func (p *project) cache(ctx context.Context) (schemacache.Cache, func() error, error) {
	cacheCfg := schemacache.Config{DefaultTTL: -1, Prefix: p.cfg.Cache.Prefix}
	if p.cfg.Cache.RedisAddr == "" {
		return schemacache.NewMemoryCache(cacheCfg), func() error { return nil }, nil
	}
	c, err := schemacache.NewRedisCache(ctx, schemacache.RedisConfig{
		Addr:  p.cfg.Cache.RedisAddr,
		Cache: cacheCfg,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// schemaError marks errors raised while compiling the manifest
type schemaError struct{ err error }

func (e schemaError) Error() string { return e.err.Error() }
func (e schemaError) Unwrap() error { return e.err }

// modelNotFound reports an unknown model name
type modelNotFound struct {
	name  string
	known []string
}

func (e modelNotFound) Error() string {
	return fmt.Sprintf("model %s not found", e.name)
}
