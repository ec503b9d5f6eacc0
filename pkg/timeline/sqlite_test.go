package timeline_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftline/driftline/pkg/timeline"
)

// testItem creates a simple item for testing with the given url and age.
func testItem(url string, age time.Duration) *timeline.Item {
	return &timeline.Item{
		Content:   "post at " + url,
		Author:    "ada@example.social",
		URL:       url,
		CreatedAt: time.Now().UTC().Add(-age).Truncate(time.Second),
		RawJSON:   `{"id":"1"}`,
	}
}

var _ = Describe("SQLiteStore", func() {
	var (
		store *timeline.SQLiteStore
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = timeline.NewSQLiteStore(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("NewSQLiteStore", func() {
		It("creates a store with a file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "items.db")

			s, err := timeline.NewSQLiteStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Save", func() {
		It("stores and retrieves an item", func() {
			item := testItem("https://example.social/@ada/1", time.Hour)

			written, err := store.Save(ctx, item)
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(BeTrue())
			Expect(item.ID).NotTo(BeZero())

			got, err := store.GetByID(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.URL).To(Equal(item.URL))
			Expect(got.Content).To(Equal(item.Content))
			Expect(got.Author).To(Equal(item.Author))
			Expect(got.Embedding).To(BeNil())
		})

		It("round-trips the embedding vector", func() {
			item := testItem("https://example.social/@ada/2", time.Hour)
			item.Embedding = []float32{0.25, -1.5, 3.0}

			_, err := store.Save(ctx, item)
			Expect(err).NotTo(HaveOccurred())

			got, err := store.GetByID(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{0.25, -1.5, 3.0}))
		})

		It("never rewrites a row that already has an embedding", func() {
			item := testItem("https://example.social/@ada/3", time.Hour)
			item.Embedding = []float32{1, 2, 3}
			_, err := store.Save(ctx, item)
			Expect(err).NotTo(HaveOccurred())

			replacement := testItem("https://example.social/@ada/3", time.Minute)
			replacement.Content = "edited"
			written, err := store.Save(ctx, replacement)
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(BeFalse())

			got, err := store.GetByID(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal(item.Content))
			Expect(got.Embedding).To(Equal([]float32{1, 2, 3}))
		})

		It("replaces a row that has no embedding yet", func() {
			item := testItem("https://example.social/@ada/4", time.Hour)
			_, err := store.Save(ctx, item)
			Expect(err).NotTo(HaveOccurred())

			replacement := testItem("https://example.social/@ada/4", time.Hour)
			replacement.Embedding = []float32{0.5}
			written, err := store.Save(ctx, replacement)
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(BeTrue())

			got, err := store.GetByID(ctx, replacement.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{0.5}))
		})

		It("rejects an item without a URL", func() {
			_, err := store.Save(ctx, &timeline.Item{Content: "no identity"})
			Expect(err).To(MatchError(timeline.ErrNoURL))
		})

		It("rejects a nil item", func() {
			_, err := store.Save(ctx, nil)
			Expect(err).To(MatchError(timeline.ErrNilItem))
		})
	})

	Describe("ItemsSince", func() {
		It("returns only items inside the window", func() {
			old := testItem("https://example.social/@ada/old", 48*time.Hour)
			recent := testItem("https://example.social/@ada/recent", time.Hour)

			_, err := store.Save(ctx, old)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Save(ctx, recent)
			Expect(err).NotTo(HaveOccurred())

			items, err := store.ItemsSince(ctx, time.Now().UTC().Add(-24*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].URL).To(Equal(recent.URL))
		})

		It("returns nothing from an empty store", func() {
			items, err := store.ItemsSince(ctx, time.Now().Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})
	})

	Describe("GetByID", func() {
		It("returns ErrNotFound for an unknown id", func() {
			_, err := store.GetByID(ctx, 9999)
			Expect(err).To(MatchError(timeline.ErrNotFound))
		})
	})

	Describe("LatestCreatedAt", func() {
		It("reports an empty store", func() {
			_, ok, err := store.LatestCreatedAt(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("returns the newest creation time", func() {
			older := testItem("https://example.social/@ada/a", 2*time.Hour)
			newer := testItem("https://example.social/@ada/b", time.Hour)

			_, err := store.Save(ctx, older)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Save(ctx, newer)
			Expect(err).NotTo(HaveOccurred())

			latest, ok, err := store.LatestCreatedAt(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(latest.Unix()).To(Equal(newer.CreatedAt.Unix()))
		})
	})
})

var _ = Describe("InMemoryStore", func() {
	It("honors the embedded-row write invariant", func() {
		ctx := context.Background()
		store := timeline.NewInMemoryStore()

		item := testItem("https://example.social/@mem/1", time.Hour)
		item.Embedding = []float32{1}
		written, err := store.Save(ctx, item)
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(BeTrue())

		replacement := testItem("https://example.social/@mem/1", time.Hour)
		written, err = store.Save(ctx, replacement)
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(BeFalse())
	})

	It("keeps a stable id across re-saves of the same URL", func() {
		ctx := context.Background()
		store := timeline.NewInMemoryStore()

		first := testItem("https://example.social/@mem/2", time.Hour)
		_, err := store.Save(ctx, first)
		Expect(err).NotTo(HaveOccurred())

		again := testItem("https://example.social/@mem/2", time.Hour)
		again.Embedding = []float32{1}
		_, err = store.Save(ctx, again)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.ID).To(Equal(first.ID))
	})
})
