// Package cluster implements the reference timeline algorithm: k-means
// topic clustering over item embeddings, with LLM-produced cluster labels
// and a versioned per-item prediction cache.
package cluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/summarize"
	"github.com/driftline/driftline/pkg/timeline"
)

const (
	// TypeName is the stable identifier recorded in algorithm specs.
	TypeName = "TopicCluster"

	// ParamClusterCount is the hyperparameter naming the requested K.
	ParamClusterCount = "num_clusters"

	// DefaultClusterCount is used when the caller supplies no K.
	DefaultClusterCount = 15

	// degenerateLabel names the single partition of the fallback model.
	degenerateLabel = "All items"
)

// Deps are the collaborators a trained TopicCluster needs at train and
// render time. They are bound to the Type, not serialized with the model.
// Summarize is a factory so the session's model override, if any, binds
// the caller per train run.
type Deps struct {
	Assignments AssignmentStore
	Summarize   summarize.Factory
	Logger      *zap.Logger
}

// TopicType is the registrable algorithm.Type for topic clustering.
type TopicType struct {
	deps Deps
}

// NewType creates the topic-clustering algorithm type.
func NewType(deps Deps) *TopicType {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TopicType{deps: deps}
}

func (t *TopicType) Name() string        { return TypeName }
func (t *TopicType) DisplayName() string { return "Topic Cluster" }

// Train fits a k-means partition over the window's embeddings and labels
// each partition with one summarization call. Training is all-or-nothing:
// a failed summarization aborts the run and nothing is persisted.
func (t *TopicType) Train(ctx context.Context, tc *algorithm.TrainContext, params map[string]string) (algorithm.Algorithm, error) {
	items, err := tc.TrainingItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading training items: %w", err)
	}

	embeddable := embeddableItems(items)
	t.deps.Logger.Debug("training topic cluster",
		zap.Int("items", len(items)),
		zap.Int("embeddable", len(embeddable)),
	)

	k := DefaultClusterCount
	if raw, ok := params[ParamClusterCount]; ok && raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid %s %q", ParamClusterCount, raw)
		}
		k = parsed
	}

	// Clustering with K > N is meaningless: coarsen to one partition
	// instead of failing the request.
	if len(embeddable) < k {
		t.deps.Logger.Info("too few embeddable items, using single-partition model",
			zap.Int("items", len(embeddable)),
			zap.Int("requested_clusters", k),
		)
		return t.newModel(SinglePartition{}, map[int]string{0: degenerateLabel}), nil
	}

	vecs := make([][]float32, len(embeddable))
	for i, item := range embeddable {
		vecs[i] = item.Embedding
	}

	predictor, assignments := fitKMeans(vecs, k, time.Now().UnixNano())

	call := t.deps.Summarize(tc.Settings.SummarizeModel)

	labels := make(map[int]string, k)
	for partition := range k {
		var texts []string
		for i, item := range embeddable {
			if assignments[i] == partition {
				texts = append(texts, item.Content)
			}
		}

		prompt := fmt.Sprintf(
			"Create a single label that describes all of these related posts, make it succinct but descriptive. The label should describe all %d of these\n\n%s",
			len(texts), strings.Join(texts, "\n\n"),
		)

		label, err := call(ctx, summarize.ReduceSize(prompt, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("labeling partition %d: %w", partition, err)
		}
		labels[partition] = label
	}

	return t.newModel(predictor, labels), nil
}

// Deserialize reconstructs a trained instance from Serialize output.
func (t *TopicType) Deserialize(data []byte) (algorithm.Algorithm, error) {
	predictor, labels, version, err := decodeModel(data)
	if err != nil {
		return nil, err
	}
	return &TopicCluster{
		predictor:    predictor,
		labels:       labels,
		modelVersion: version,
		deps:         t.deps,
	}, nil
}

// RenderParams surfaces the cluster-count slider.
func (t *TopicType) RenderParams(rc *algorithm.RenderContext) string {
	current := rc.Setting(ParamClusterCount, strconv.Itoa(DefaultClusterCount))
	return fmt.Sprintf(`<div class="slider">
  <input type="range" name="num_clusters" id="num_clusters" min="1" max="20" value="%s" onchange="document.getElementById('num_clusters_value').innerHTML = this.value">
  <span><span class="slider-value" id="num_clusters_value">%s</span> clusters</span>
</div>`, current, current)
}

// newModel wraps a predictor and labels into a trained instance with a
// freshly minted model version.
func (t *TopicType) newModel(predictor Predictor, labels map[int]string) *TopicCluster {
	return &TopicCluster{
		predictor:    predictor,
		labels:       labels,
		modelVersion: uuid.NewString(),
		deps:         t.deps,
	}
}

// TopicCluster is one trained topic-clustering model.
type TopicCluster struct {
	predictor    Predictor
	labels       map[int]string
	modelVersion string
	deps         Deps
}

// NewTrained builds a trained instance from explicit parts. Exists so the
// cache behavior can be exercised against substitute predictors.
func NewTrained(predictor Predictor, labels map[int]string, modelVersion string, deps Deps) *TopicCluster {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TopicCluster{
		predictor:    predictor,
		labels:       labels,
		modelVersion: modelVersion,
		deps:         deps,
	}
}

// ModelVersion returns the opaque token minted when this model was trained.
func (a *TopicCluster) ModelVersion() string {
	return a.modelVersion
}

// Render groups items by partition. Cached assignments for this model
// version are reused; only cache misses hit the predictor, and their
// results are written back so each (item, version) pair is classified at
// most once.
func (a *TopicCluster) Render(ctx context.Context, items []*timeline.Item, rc *algorithm.RenderContext) (algorithm.Renderable, error) {
	embeddable := embeddableItems(items)
	if dropped := len(items) - len(embeddable); dropped > 0 {
		a.deps.Logger.Debug("dropped items with no embedding",
			zap.Int("dropped", dropped),
			zap.Int("remaining", len(embeddable)),
		)
	}

	ids := make([]int64, len(embeddable))
	for i, item := range embeddable {
		ids[i] = item.ID
	}

	cached, err := a.deps.Assignments.Assignments(ctx, a.modelVersion, ids)
	if err != nil {
		return nil, fmt.Errorf("loading cached assignments: %w", err)
	}

	assignments := make(map[int64]int, len(embeddable))
	for _, item := range embeddable {
		if partition, ok := cached[item.ID]; ok {
			assignments[item.ID] = partition
			continue
		}

		partition := a.predictor.Predict(item.Embedding)
		assignments[item.ID] = partition

		// Write-back failures degrade the cache, not the render.
		if err := a.deps.Assignments.SaveAssignment(ctx, item.ID, a.modelVersion, partition); err != nil {
			a.deps.Logger.Warn("failed to cache cluster assignment",
				zap.Int64("item_id", item.ID),
				zap.String("model_version", a.modelVersion),
				zap.Error(err),
			)
		}
	}

	// Every trained partition appears, even when empty in this window.
	groups := make([]Group, 0, len(a.labels))
	for partition := 0; partition < a.predictor.Partitions(); partition++ {
		group := Group{
			Index: partition,
			Label: a.labels[partition],
			Items: []RenderedItem{},
		}
		for _, item := range embeddable {
			if assignments[item.ID] == partition {
				group.Items = append(group.Items, RenderedItem{
					Item:   item,
					Extras: rc.ItemExtras(item),
				})
			}
		}
		groups = append(groups, group)
	}

	return &Groups{
		Algorithm:    TypeName,
		ModelVersion: a.modelVersion,
		Groups:       groups,
	}, nil
}

// Serialize returns the self-contained model payload.
func (a *TopicCluster) Serialize() ([]byte, error) {
	return encodeModel(a)
}

func embeddableItems(items []*timeline.Item) []*timeline.Item {
	result := make([]*timeline.Item, 0, len(items))
	for _, item := range items {
		if item.HasEmbedding() {
			result = append(result, item)
		}
	}
	return result
}

// Ensure the contract is satisfied
var (
	_ algorithm.Type      = (*TopicType)(nil)
	_ algorithm.Algorithm = (*TopicCluster)(nil)
)
