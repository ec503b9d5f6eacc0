package cluster_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/cluster"
	"github.com/driftline/driftline/pkg/summarize"
	"github.com/driftline/driftline/pkg/timeline"
)

// staticSource hands Train a fixed item slice.
type staticSource struct {
	items []*timeline.Item
}

func (s *staticSource) ItemsSince(_ context.Context, _ time.Time) ([]*timeline.Item, error) {
	return s.items, nil
}

// countingPredictor records how many vectors reached the wrapped model.
type countingPredictor struct {
	mu    sync.Mutex
	inner cluster.Predictor
	calls int
}

func (p *countingPredictor) Predict(vec []float32) int {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.inner.Predict(vec)
}

func (p *countingPredictor) Partitions() int { return p.inner.Partitions() }

func (p *countingPredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// clusteredItems builds count embeddable items spread across the given
// centers, with small per-item jitter so each item stays nearest its center.
func clusteredItems(count int, centers [][]float32, startID int64) []*timeline.Item {
	items := make([]*timeline.Item, count)
	for i := range count {
		center := centers[i%len(centers)]
		vec := make([]float32, len(center))
		for d, v := range center {
			vec[d] = v + float32(i%7)*0.01
		}
		id := startID + int64(i)
		items[i] = &timeline.Item{
			ID:        id,
			Content:   fmt.Sprintf("post %d", id),
			Author:    "someone",
			URL:       fmt.Sprintf("https://example.social/@someone/%d", id),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
			Embedding: vec,
		}
	}
	return items
}

func trainContext(items []*timeline.Item) *algorithm.TrainContext {
	return &algorithm.TrainContext{
		End:       time.Now(),
		Span:      24 * time.Hour,
		SessionID: "session-1",
		Items:     &staticSource{items: items},
	}
}

var _ = Describe("TopicType", func() {
	var (
		ctx        context.Context
		store      *cluster.InMemoryAssignmentStore
		summarized []string
		models     []string
		typ        *cluster.TopicType
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = cluster.NewInMemoryAssignmentStore()
		summarized = nil
		models = nil
		typ = cluster.NewType(cluster.Deps{
			Assignments: store,
			Summarize: func(model string) summarize.CallFunc {
				models = append(models, model)
				return func(_ context.Context, prompt string) (string, error) {
					summarized = append(summarized, prompt)
					return fmt.Sprintf("label %d", len(summarized)), nil
				}
			},
		})
	})

	It("reports its identity", func() {
		Expect(typ.Name()).To(Equal("TopicCluster"))
		Expect(typ.DisplayName()).To(Equal("Topic Cluster"))
	})

	Describe("Train", func() {
		It("fits one partition per requested cluster and labels each", func() {
			centers := [][]float32{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}}
			items := clusteredItems(30, centers, 1)

			alg, err := typ.Train(ctx, trainContext(items), map[string]string{"num_clusters": "3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summarized).To(HaveLen(3))

			renderable, err := alg.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())

			groups := renderable.(*cluster.Groups)
			Expect(groups.Groups).To(HaveLen(3))
			total := 0
			for _, group := range groups.Groups {
				Expect(group.Label).NotTo(BeEmpty())
				total += len(group.Items)
			}
			Expect(total).To(Equal(30))
		})

		It("falls back to a single partition when items are fewer than clusters", func() {
			items := clusteredItems(4, [][]float32{{1, 2}}, 1)

			alg, err := typ.Train(ctx, trainContext(items), map[string]string{"num_clusters": "10"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summarized).To(BeEmpty(), "degenerate models are not labeled by the summarizer")

			renderable, err := alg.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())

			groups := renderable.(*cluster.Groups)
			Expect(groups.Groups).To(HaveLen(1))
			Expect(groups.Groups[0].Label).To(Equal("All items"))
			Expect(groups.Groups[0].Items).To(HaveLen(4))
		})

		It("counts only embeddable items against the cluster threshold", func() {
			items := clusteredItems(3, [][]float32{{1, 2}}, 1)
			items = append(items, &timeline.Item{
				ID:        100,
				Content:   "no embedding",
				URL:       "https://example.social/@someone/100",
				CreatedAt: time.Now(),
			})

			alg, err := typ.Train(ctx, trainContext(items), map[string]string{"num_clusters": "4"})
			Expect(err).NotTo(HaveOccurred())

			renderable, err := alg.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(renderable.(*cluster.Groups).Groups).To(HaveLen(1))
		})

		It("uses the default cluster count when the parameter is absent", func() {
			centers := [][]float32{{10, 0}, {0, 10}}
			items := clusteredItems(40, centers, 1)

			alg, err := typ.Train(ctx, trainContext(items), nil)
			Expect(err).NotTo(HaveOccurred())

			renderable, err := alg.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(renderable.(*cluster.Groups).Groups).To(HaveLen(cluster.DefaultClusterCount))
		})

		It("rejects an unparseable cluster count", func() {
			items := clusteredItems(10, [][]float32{{1}}, 1)

			_, err := typ.Train(ctx, trainContext(items), map[string]string{"num_clusters": "lots"})
			Expect(err).To(HaveOccurred())

			_, err = typ.Train(ctx, trainContext(items), map[string]string{"num_clusters": "0"})
			Expect(err).To(HaveOccurred())
		})

		It("aborts entirely when labeling fails", func() {
			failing := cluster.NewType(cluster.Deps{
				Assignments: store,
				Summarize: func(string) summarize.CallFunc {
					return func(_ context.Context, _ string) (string, error) {
						return "", fmt.Errorf("provider unavailable")
					}
				},
			})
			items := clusteredItems(30, [][]float32{{10, 0}, {0, 10}}, 1)

			_, err := failing.Train(ctx, trainContext(items), map[string]string{"num_clusters": "2"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("provider unavailable"))
		})

		It("binds the session's summarize model override", func() {
			items := clusteredItems(30, [][]float32{{10, 0}, {0, 10}}, 1)
			params := map[string]string{"num_clusters": "2"}

			_, err := typ.Train(ctx, trainContext(items), params)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(Equal([]string{""}), "no override uses the configured default")

			tc := trainContext(items)
			tc.Settings.SummarizeModel = "llama3.2:70b"
			_, err = typ.Train(ctx, tc, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(Equal([]string{"", "llama3.2:70b"}))
		})

		It("mints a fresh model version on every train", func() {
			items := clusteredItems(10, [][]float32{{10, 0}, {0, 10}}, 1)
			params := map[string]string{"num_clusters": "2"}

			first, err := typ.Train(ctx, trainContext(items), params)
			Expect(err).NotTo(HaveOccurred())
			second, err := typ.Train(ctx, trainContext(items), params)
			Expect(err).NotTo(HaveOccurred())

			v1 := first.(*cluster.TopicCluster).ModelVersion()
			v2 := second.(*cluster.TopicCluster).ModelVersion()
			Expect(v1).NotTo(BeEmpty())
			Expect(v2).NotTo(Equal(v1))
		})
	})

	Describe("RenderParams", func() {
		It("reflects the session's last cluster count", func() {
			rc := &algorithm.RenderContext{UISettings: map[string]string{"num_clusters": "7"}}
			html := typ.RenderParams(rc)
			Expect(html).To(ContainSubstring(`name="num_clusters"`))
			Expect(html).To(ContainSubstring(`value="7"`))
		})

		It("falls back to the default count", func() {
			html := typ.RenderParams(&algorithm.RenderContext{})
			Expect(html).To(ContainSubstring(`value="15"`))
		})
	})
})

var _ = Describe("TopicCluster", func() {
	var (
		ctx   context.Context
		store *cluster.InMemoryAssignmentStore
	)

	centers := [][]float32{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}, {10, 10, 0}, {0, 10, 10}}

	newModel := func(predictor cluster.Predictor, version string) *cluster.TopicCluster {
		labels := make(map[int]string, predictor.Partitions())
		for i := 0; i < predictor.Partitions(); i++ {
			labels[i] = fmt.Sprintf("topic %d", i)
		}
		return cluster.NewTrained(predictor, labels, version, cluster.Deps{Assignments: store})
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = cluster.NewInMemoryAssignmentStore()
	})

	It("drops items without embeddings from the rendered output", func() {
		items := clusteredItems(5, centers[:1], 1)
		items = append(items, &timeline.Item{
			ID:        99,
			Content:   "pending embedding",
			URL:       "https://example.social/@someone/99",
			CreatedAt: time.Now(),
		})

		model := newModel(&cluster.Centroids{Points: centers[:1]}, "v1")
		renderable, err := model.Render(ctx, items, &algorithm.RenderContext{})
		Expect(err).NotTo(HaveOccurred())

		groups := renderable.(*cluster.Groups)
		Expect(groups.Groups[0].Items).To(HaveLen(5))
		for _, item := range groups.Groups[0].Items {
			Expect(item.ID).NotTo(Equal(int64(99)))
		}
	})

	It("includes partitions that are empty in the rendered window", func() {
		items := clusteredItems(6, centers[:1], 1)

		model := newModel(&cluster.Centroids{Points: centers}, "v1")
		renderable, err := model.Render(ctx, items, &algorithm.RenderContext{})
		Expect(err).NotTo(HaveOccurred())

		groups := renderable.(*cluster.Groups)
		Expect(groups.Groups).To(HaveLen(5))
		Expect(groups.Groups[0].Items).To(HaveLen(6))
		for _, group := range groups.Groups[1:] {
			Expect(group.Items).To(BeEmpty())
			Expect(group.Label).NotTo(BeEmpty())
		}
	})

	It("attaches plugin display extras to rendered items", func() {
		items := clusteredItems(2, centers[:1], 1)
		model := newModel(&cluster.Centroids{Points: centers[:1]}, "v1")

		rc := &algorithm.RenderContext{
			Displays: []algorithm.ItemDisplayFunc{
				func(item *timeline.Item, _ *algorithm.RenderContext) string {
					return fmt.Sprintf("<span>#%d</span>", item.ID)
				},
			},
		}
		renderable, err := model.Render(ctx, items, rc)
		Expect(err).NotTo(HaveOccurred())

		for _, item := range renderable.(*cluster.Groups).Groups[0].Items {
			Expect(item.Extras).To(HaveLen(1))
		}
	})

	Describe("assignment caching", func() {
		It("classifies each item at most once per model version", func() {
			counting := &countingPredictor{inner: &cluster.Centroids{Points: centers}}
			model := newModel(counting, "v1")
			items := clusteredItems(20, centers, 1)

			_, err := model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(counting.Calls()).To(Equal(20))

			_, err = model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(counting.Calls()).To(Equal(20), "second render must be served from cache")
		})

		It("classifies only the new items on an incremental re-render", func() {
			counting := &countingPredictor{inner: &cluster.Centroids{Points: centers}}
			model := newModel(counting, "v1")

			unembedded := func(count int, startID int64) []*timeline.Item {
				result := make([]*timeline.Item, count)
				for i := range count {
					result[i] = &timeline.Item{
						ID:        startID + int64(i),
						Content:   "no embedding yet",
						URL:       fmt.Sprintf("https://example.social/@someone/%d", startID+int64(i)),
						CreatedAt: time.Now(),
					}
				}
				return result
			}

			// 120 items, 3 of them unembedded.
			items := clusteredItems(117, centers, 1)
			items = append(items, unembedded(3, 500)...)

			renderable, err := model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(counting.Calls()).To(Equal(117))

			groups := renderable.(*cluster.Groups).Groups
			Expect(groups).To(HaveLen(5))
			total := 0
			for _, group := range groups {
				Expect(group.Label).NotTo(BeEmpty())
				total += len(group.Items)
			}
			Expect(total).To(Equal(117))

			// 10 more arrive, 5 of them embeddable.
			fresh := clusteredItems(5, centers, 1000)
			items = append(items, fresh...)
			items = append(items, unembedded(5, 2000)...)

			renderable, err = model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(counting.Calls()).To(Equal(122), "previously rendered items must not be reclassified")

			freshIDs := make([]int64, len(fresh))
			for i, item := range fresh {
				freshIDs[i] = item.ID
			}
			cached, err := store.Assignments(ctx, "v1", freshIDs)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(HaveLen(5), "new embeddable items receive cache entries")

			total = 0
			for _, group := range renderable.(*cluster.Groups).Groups {
				total += len(group.Items)
			}
			Expect(total).To(Equal(122))
		})

		It("does not reuse assignments across model versions", func() {
			items := clusteredItems(10, centers, 1)

			first := &countingPredictor{inner: &cluster.Centroids{Points: centers}}
			_, err := newModel(first, "v1").Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Calls()).To(Equal(10))

			second := &countingPredictor{inner: &cluster.Centroids{Points: centers}}
			_, err = newModel(second, "v2").Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Calls()).To(Equal(10), "a retrained model starts with an empty cache")
		})

		It("still renders when the cache write fails", func() {
			broken := &failingAssignmentStore{}
			model := cluster.NewTrained(
				&cluster.Centroids{Points: centers[:1]},
				map[int]string{0: "topic 0"},
				"v1",
				cluster.Deps{Assignments: broken},
			)

			items := clusteredItems(3, centers[:1], 1)
			renderable, err := model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			Expect(renderable.(*cluster.Groups).Groups[0].Items).To(HaveLen(3))
		})
	})

	Describe("serialization", func() {
		It("round-trips a centroid model with identical render output", func() {
			items := clusteredItems(25, centers, 1)
			model := newModel(&cluster.Centroids{Points: centers}, "v1")

			data, err := model.Serialize()
			Expect(err).NotTo(HaveOccurred())

			typ := cluster.NewType(cluster.Deps{Assignments: cluster.NewInMemoryAssignmentStore()})
			restored, err := typ.Deserialize(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.(*cluster.TopicCluster).ModelVersion()).To(Equal("v1"))

			want, err := model.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())
			got, err := restored.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())

			wantJSON, err := json.Marshal(want)
			Expect(err).NotTo(HaveOccurred())
			gotJSON, err := json.Marshal(got)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotJSON).To(MatchJSON(wantJSON))
		})

		It("round-trips a degenerate model", func() {
			model := cluster.NewTrained(
				cluster.SinglePartition{},
				map[int]string{0: "All items"},
				"v1",
				cluster.Deps{Assignments: store},
			)

			data, err := model.Serialize()
			Expect(err).NotTo(HaveOccurred())

			typ := cluster.NewType(cluster.Deps{Assignments: store})
			restored, err := typ.Deserialize(data)
			Expect(err).NotTo(HaveOccurred())

			items := clusteredItems(2, centers[:1], 1)
			renderable, err := restored.Render(ctx, items, &algorithm.RenderContext{})
			Expect(err).NotTo(HaveOccurred())

			groups := renderable.(*cluster.Groups)
			Expect(groups.Groups).To(HaveLen(1))
			Expect(groups.Groups[0].Label).To(Equal("All items"))
		})

		It("rejects payloads from an unknown schema", func() {
			typ := cluster.NewType(cluster.Deps{Assignments: store})
			_, err := typ.Deserialize([]byte(`{"schema":99,"model_version":"v1"}`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects payloads without a model version", func() {
			typ := cluster.NewType(cluster.Deps{Assignments: store})
			_, err := typ.Deserialize([]byte(`{"schema":1,"degenerate":true}`))
			Expect(err).To(HaveOccurred())
		})

		It("rejects garbage payloads", func() {
			typ := cluster.NewType(cluster.Deps{Assignments: store})
			_, err := typ.Deserialize([]byte("not json"))
			Expect(err).To(HaveOccurred())
		})
	})
})

// failingAssignmentStore reads an empty cache and refuses every write.
type failingAssignmentStore struct{}

func (failingAssignmentStore) Assignments(_ context.Context, _ string, _ []int64) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (failingAssignmentStore) SaveAssignment(_ context.Context, _ int64, _ string, _ int) error {
	return fmt.Errorf("disk full")
}

func (failingAssignmentStore) Close() error { return nil }
