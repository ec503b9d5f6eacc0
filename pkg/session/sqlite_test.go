package session_test

import (
	"context"
	"database/sql"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	_ "modernc.org/sqlite"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/session"
)

var _ = Describe("SQLiteStore", func() {
	var (
		ctx    context.Context
		dbPath string
		store  *session.SQLiteStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "sessions.db")

		var err error
		store, err = session.NewSQLiteStore(dbPath, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("round-trips a full session", func() {
		sess := &session.Session{
			ID:   "abc",
			Name: "my timeline",
			Spec: &algorithm.Spec{
				Type:   "TopicCluster",
				Params: map[string]string{"num_clusters": "5"},
			},
			Model:      []byte(`{"schema":1}`),
			UISettings: map[string]string{"num_clusters": "5"},
			Settings:   algorithm.ProviderSettings{SummarizeModel: "llama3.2"},
		}
		Expect(store.Put(ctx, sess)).To(Succeed())

		got, err := store.Get(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("my timeline"))
		Expect(got.Spec.Type).To(Equal("TopicCluster"))
		Expect(got.Spec.Params).To(Equal(map[string]string{"num_clusters": "5"}))
		Expect(got.Model).To(Equal([]byte(`{"schema":1}`)))
		Expect(got.UISettings).To(Equal(map[string]string{"num_clusters": "5"}))
		Expect(got.Settings.SummarizeModel).To(Equal("llama3.2"))
		Expect(got.HasModel()).To(BeTrue())
	})

	It("returns ErrNotFound for an unknown id", func() {
		_, err := store.Get(ctx, "nope")
		Expect(err).To(MatchError(session.ErrNotFound))
	})

	It("creates an empty session on first contact", func() {
		sess, err := store.GetOrCreate(ctx, "fresh")
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.ID).To(Equal("fresh"))
		Expect(sess.Spec).To(BeNil())
		Expect(sess.HasModel()).To(BeFalse())

		again, err := store.Get(ctx, "fresh")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.ID).To(Equal("fresh"))
	})

	It("returns the existing session from GetOrCreate", func() {
		Expect(store.Put(ctx, &session.Session{ID: "abc", Name: "kept"})).To(Succeed())

		sess, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Name).To(Equal("kept"))
	})

	It("replaces the row wholesale on upsert", func() {
		Expect(store.Put(ctx, &session.Session{
			ID:    "abc",
			Spec:  &algorithm.Spec{Type: "TopicCluster"},
			Model: []byte("old"),
		})).To(Succeed())

		Expect(store.Put(ctx, &session.Session{ID: "abc", Name: "renamed"})).To(Succeed())

		got, err := store.Get(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("renamed"))
		Expect(got.Spec).To(BeNil())
		Expect(got.Model).To(BeEmpty())
	})

	It("rejects sessions without an id", func() {
		Expect(store.Put(ctx, &session.Session{})).To(MatchError(session.ErrNoID))
		Expect(store.Put(ctx, nil)).To(MatchError(session.ErrNoID))
	})

	Describe("corrupt rows", func() {
		corruptColumn := func(column, value string) {
			db, err := sql.Open("sqlite", dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			_, err = db.ExecContext(ctx,
				"UPDATE sessions SET "+column+" = ? WHERE id = ?", value, "abc")
			Expect(err).NotTo(HaveOccurred())
		}

		BeforeEach(func() {
			Expect(store.Put(ctx, &session.Session{
				ID:    "abc",
				Name:  "mine",
				Spec:  &algorithm.Spec{Type: "TopicCluster"},
				Model: []byte(`{"schema":1}`),
			})).To(Succeed())
		})

		It("loads a session whose algorithm spec no longer parses", func() {
			corruptColumn("algorithm_spec", "{not json")

			got, err := store.Get(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("mine"))
			Expect(got.Spec).To(BeNil())
			Expect(got.Model).To(BeNil(), "a model without its spec can never be deserialized")
			Expect(got.HasModel()).To(BeFalse())
		})

		It("still creates-or-returns the session under a corrupt spec", func() {
			corruptColumn("algorithm_spec", "{not json")

			got, err := store.GetOrCreate(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("abc"))

			// A retrain writes a fresh spec over the corrupt one.
			got.Spec = &algorithm.Spec{Type: "TopicCluster"}
			got.Model = []byte(`{"schema":1}`)
			Expect(store.Put(ctx, got)).To(Succeed())

			again, err := store.Get(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.HasModel()).To(BeTrue())
		})

		It("drops unreadable ui and provider settings", func() {
			corruptColumn("ui_settings", "not json")
			corruptColumn("provider_settings", "[]")

			got, err := store.Get(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UISettings).To(BeNil())
			Expect(got.Settings).To(Equal(algorithm.ProviderSettings{}))
		})
	})
})
