package plugin

import (
	"context"

	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/algorithm"
)

// Registry holds everything the installed bundles contribute. It is built
// once at startup from an explicit bundle list and never re-scanned; pass
// it by handle into the components that need it.
type Registry struct {
	plugins    []*Plugin
	algorithms []algorithm.Type
	byName     map[string]algorithm.Type
	displays   []ItemDisplayFunc
	hooks      []LifecycleHook
	logger     *zap.Logger
}

// New discovers the given bundles and builds a registry. A bundle whose
// Manifest errors (or returns nil) is logged and skipped; discovery never
// aborts because one bundle is broken.
func New(logger *zap.Logger, bundles ...Bundle) *Registry {
	r := &Registry{
		byName: make(map[string]algorithm.Type),
		logger: logger,
	}

	for _, bundle := range bundles {
		if bundle == nil {
			logger.Warn("skipping nil plugin bundle")
			continue
		}

		manifest, err := bundle.Manifest()
		if err != nil {
			logger.Warn("skipping broken plugin bundle", zap.Error(err))
			continue
		}
		if manifest == nil || manifest.Name == "" {
			logger.Warn("skipping plugin bundle with empty manifest")
			continue
		}

		r.plugins = append(r.plugins, manifest)
		for _, typ := range manifest.Algorithms {
			if typ == nil || typ.Name() == "" {
				logger.Warn("skipping unnamed algorithm type",
					zap.String("plugin", manifest.Name),
				)
				continue
			}
			if _, exists := r.byName[typ.Name()]; exists {
				logger.Warn("skipping duplicate algorithm type",
					zap.String("plugin", manifest.Name),
					zap.String("algorithm", typ.Name()),
				)
				continue
			}
			r.byName[typ.Name()] = typ
			r.algorithms = append(r.algorithms, typ)
		}
		r.displays = append(r.displays, manifest.ItemDisplays...)
		r.hooks = append(r.hooks, manifest.Hooks...)

		logger.Info("registered plugin",
			zap.String("plugin", manifest.Name),
			zap.Int("algorithms", len(manifest.Algorithms)),
		)
	}

	return r
}

// Plugins returns the discovered plugin manifests.
func (r *Registry) Plugins() []*Plugin {
	return r.plugins
}

// Algorithms returns all discovered algorithm types in registration order.
func (r *Registry) Algorithms() []algorithm.Type {
	return r.algorithms
}

// Resolve looks up an algorithm type by name. A miss is an expected
// condition, not an error; callers fall back to Default.
func (r *Registry) Resolve(name string) (algorithm.Type, bool) {
	typ, ok := r.byName[name]
	return typ, ok
}

// Default returns the first registered algorithm type, or nil when no
// bundle contributed one.
func (r *Registry) Default() algorithm.Type {
	if len(r.algorithms) == 0 {
		return nil
	}
	return r.algorithms[0]
}

// ItemDisplays returns all contributed item display callbacks.
func (r *Registry) ItemDisplays() []ItemDisplayFunc {
	return r.displays
}

// RunHooks runs every lifecycle hook and returns a teardown that unwinds
// the ones that succeeded. A failing hook is logged and skipped.
func (r *Registry) RunHooks(ctx context.Context) TeardownFunc {
	var teardowns []TeardownFunc
	for _, hook := range r.hooks {
		teardown, err := hook(ctx)
		if err != nil {
			r.logger.Warn("plugin lifecycle hook failed", zap.Error(err))
			continue
		}
		if teardown != nil {
			teardowns = append(teardowns, teardown)
		}
	}

	return func() {
		for i := len(teardowns) - 1; i >= 0; i-- {
			teardowns[i]()
		}
	}
}
