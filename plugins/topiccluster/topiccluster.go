// Package topiccluster bundles the k-means topic-clustering algorithm as
// the default plugin.
package topiccluster

import (
	"context"

	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/cluster"
	"github.com/driftline/driftline/pkg/plugin"
)

// Bundle wires the topic-clustering algorithm into the plugin registry.
type Bundle struct {
	deps cluster.Deps
}

func NewBundle(deps cluster.Deps) *Bundle {
	return &Bundle{deps: deps}
}

func (b *Bundle) Manifest() (*plugin.Plugin, error) {
	logger := b.deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &plugin.Plugin{
		Name:        "topic-cluster",
		DisplayName: "Topic Cluster",
		Description: "Groups the timeline into labeled topics with k-means over item embeddings.",
		Author:      "driftline",
		Algorithms: []plugin.AlgorithmType{
			cluster.NewType(b.deps),
		},
		Hooks: []plugin.LifecycleHook{
			func(_ context.Context) (plugin.TeardownFunc, error) {
				logger.Debug("topic cluster plugin started")
				return func() {
					if b.deps.Assignments != nil {
						if err := b.deps.Assignments.Close(); err != nil {
							logger.Warn("failed to close assignment store", zap.Error(err))
						}
					}
				}, nil
			},
		},
	}, nil
}

var _ plugin.Bundle = (*Bundle)(nil)
