package session_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/session"
	"github.com/driftline/driftline/pkg/timeline"
)

type fakeAlgorithm struct{}

func (fakeAlgorithm) Render(_ context.Context, _ []*timeline.Item, _ *algorithm.RenderContext) (algorithm.Renderable, error) {
	return nil, nil
}

func (fakeAlgorithm) Serialize() ([]byte, error) { return []byte("model"), nil }

type fakeType struct {
	name      string
	deserErr  error
	lastBlob  []byte
	algorithm algorithm.Algorithm
}

func (t *fakeType) Name() string        { return t.name }
func (t *fakeType) DisplayName() string { return t.name }

func (t *fakeType) Train(_ context.Context, _ *algorithm.TrainContext, _ map[string]string) (algorithm.Algorithm, error) {
	return t.algorithm, nil
}

func (t *fakeType) Deserialize(data []byte) (algorithm.Algorithm, error) {
	t.lastBlob = data
	if t.deserErr != nil {
		return nil, t.deserErr
	}
	return t.algorithm, nil
}

func (t *fakeType) RenderParams(_ *algorithm.RenderContext) string { return "" }

type fakeResolver map[string]algorithm.Type

func (r fakeResolver) Resolve(name string) (algorithm.Type, bool) {
	typ, ok := r[name]
	return typ, ok
}

var _ = Describe("ResolveAlgorithm", func() {
	var (
		typ      *fakeType
		resolver fakeResolver
	)

	BeforeEach(func() {
		typ = &fakeType{name: "TopicCluster", algorithm: fakeAlgorithm{}}
		resolver = fakeResolver{"TopicCluster": typ}
	})

	It("restores the trained algorithm", func() {
		sess := &session.Session{
			ID:    "abc",
			Spec:  &algorithm.Spec{Type: "TopicCluster"},
			Model: []byte("blob"),
		}

		gotType, gotAlg := session.ResolveAlgorithm(sess, resolver, nil)
		Expect(gotType).To(Equal(algorithm.Type(typ)))
		Expect(gotAlg).NotTo(BeNil())
		Expect(typ.lastBlob).To(Equal([]byte("blob")))
	})

	It("returns nothing for a session without a spec", func() {
		gotType, gotAlg := session.ResolveAlgorithm(&session.Session{ID: "abc"}, resolver, nil)
		Expect(gotType).To(BeNil())
		Expect(gotAlg).To(BeNil())
	})

	It("returns nothing for a nil session", func() {
		gotType, gotAlg := session.ResolveAlgorithm(nil, resolver, nil)
		Expect(gotType).To(BeNil())
		Expect(gotAlg).To(BeNil())
	})

	It("degrades to no algorithm when the type is unknown", func() {
		sess := &session.Session{
			ID:    "abc",
			Spec:  &algorithm.Spec{Type: "Vanished"},
			Model: []byte("blob"),
		}

		gotType, gotAlg := session.ResolveAlgorithm(sess, resolver, nil)
		Expect(gotType).To(BeNil())
		Expect(gotAlg).To(BeNil())
	})

	It("keeps the type but drops the model when deserialization fails", func() {
		typ.deserErr = fmt.Errorf("bad blob")
		sess := &session.Session{
			ID:    "abc",
			Spec:  &algorithm.Spec{Type: "TopicCluster"},
			Model: []byte("blob"),
		}

		gotType, gotAlg := session.ResolveAlgorithm(sess, resolver, nil)
		Expect(gotType).To(Equal(algorithm.Type(typ)))
		Expect(gotAlg).To(BeNil())
	})

	It("returns the type alone for an untrained session", func() {
		sess := &session.Session{
			ID:   "abc",
			Spec: &algorithm.Spec{Type: "TopicCluster"},
		}

		gotType, gotAlg := session.ResolveAlgorithm(sess, resolver, nil)
		Expect(gotType).To(Equal(algorithm.Type(typ)))
		Expect(gotAlg).To(BeNil())
	})
})
