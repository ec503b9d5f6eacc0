package cluster

import (
	"math"
	"math/rand"
)

const defaultMaxIterations = 50

// Predictor maps an embedding vector to a partition index.
type Predictor interface {
	// Predict returns the partition index for a vector.
	Predict(vec []float32) int

	// Partitions returns how many partitions the model defines.
	Partitions() int
}

// Centroids is a trained partition model: a vector is assigned to its
// nearest centroid by squared euclidean distance.
type Centroids struct {
	Points [][]float32
}

func (c *Centroids) Predict(vec []float32) int {
	best := 0
	bestDist := math.Inf(1)
	for i, point := range c.Points {
		if d := squaredDistance(vec, point); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func (c *Centroids) Partitions() int {
	return len(c.Points)
}

// SinglePartition is the degenerate model used when there are fewer items
// than requested clusters: everything lands in partition zero.
type SinglePartition struct{}

func (SinglePartition) Predict(_ []float32) int { return 0 }
func (SinglePartition) Partitions() int         { return 1 }

// fitKMeans partitions vectors into k groups with Lloyd's algorithm,
// returning the centroids and each vector's assignment. Callers guarantee
// len(vecs) >= k and k >= 1.
func fitKMeans(vecs [][]float32, k int, seed int64) (*Centroids, []int) {
	rng := rand.New(rand.NewSource(seed))

	// Initial centroids: k distinct input vectors.
	perm := rng.Perm(len(vecs))
	centroids := make([][]float32, k)
	for i := range k {
		centroids[i] = append([]float32(nil), vecs[perm[i]]...)
	}

	assignments := make([]int, len(vecs))
	model := &Centroids{Points: centroids}

	for range defaultMaxIterations {
		changed := false
		for i, vec := range vecs {
			if next := model.Predict(vec); next != assignments[i] {
				assignments[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}

		dims := len(vecs[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, vec := range vecs {
			group := assignments[i]
			counts[group]++
			for d, v := range vec {
				sums[group][d] += float64(v)
			}
		}
		for i := range k {
			if counts[i] == 0 {
				// Empty partition: reseed from a random vector so the
				// model keeps k live centroids.
				centroids[i] = append([]float32(nil), vecs[rng.Intn(len(vecs))]...)
				continue
			}
			for d := range dims {
				centroids[i][d] = float32(sums[i][d] / float64(counts[i]))
			}
		}
	}

	// Final assignment pass against the settled centroids.
	for i, vec := range vecs {
		assignments[i] = model.Predict(vec)
	}

	return model, assignments
}

func squaredDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := range n {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	// Dimension mismatches contribute their missing components wholesale,
	// pushing mismatched vectors away from this centroid.
	for i := n; i < len(a); i++ {
		sum += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}
	return sum
}
