// Package cluster partitions embedding vectors into semantic categories with
// seeded k-means.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch indicates embeddings of differing length.
var ErrDimensionMismatch = errors.New("cluster: embedding dimension mismatch")

// Config controls the clustering engine.
type Config struct {
	// Seed feeds the centroid initialisation. Equal seeds give equal results.
	Seed int64
	// Restarts is the number of k-means++ initialisations tried.
	Restarts int
	// MaxIterations caps Lloyd iterations per restart.
	MaxIterations int
	// Tolerance stops iterating once total squared centroid movement falls
	// to or below it.
	Tolerance float64
	// Policy chooses k when the caller does not.
	Policy Policy
}

// DefaultConfig returns seed 42, 10 restarts and DefaultPolicy.
func DefaultConfig() Config {
	return Config{
		Seed:          42,
		Restarts:      10,
		MaxIterations: 300,
		Tolerance:     1e-8,
		Policy:        DefaultPolicy,
	}
}

// Engine runs k-means over embedding batches. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an Engine, filling zero fields from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Restarts <= 0 {
		cfg.Restarts = def.Restarts
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.Policy == nil {
		cfg.Policy = def.Policy
	}
	return &Engine{cfg: cfg}
}

// K returns the cluster count the engine would use for n items when the
// caller passes k <= 0.
func (e *Engine) K(n int) int {
	return e.cfg.Policy(n)
}

// Cluster assigns every embedding to one of at most k clusters. k <= 0 uses
// the configured Policy; k larger than the batch is reduced to the batch
// size. Fewer than two embeddings all land in cluster 0.
//
// Identifiers are numbered by first appearance, so the first embedding is
// always in cluster 0.
func (e *Engine) Cluster(embeddings [][]float32, k int) (Assignment, error) {
	n := len(embeddings)
	if n < 2 {
		return make(Assignment, n), nil
	}
	if k <= 0 {
		k = e.cfg.Policy(n)
	}
	if k > n {
		k = n
	}
	if k <= 1 {
		return make(Assignment, n), nil
	}

	data, err := toDense(embeddings)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < e.cfg.Restarts; r++ {
		centroids := initPlusPlus(data, k, rng)
		labels, inertia := e.lloyd(data, centroids)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}

	return canonical(best), nil
}

func toDense(embeddings [][]float32) (*mat.Dense, error) {
	n, dim := len(embeddings), len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector at index 0", ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*dim)
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: index %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		for _, v := range vec {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(n, dim, data), nil
}

// initPlusPlus picks k starting centroids with D² weighting.
func initPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	dist := make([]float64, n)
	for c := 1; c < k; c++ {
		var total float64
		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			nearest := math.Inf(1)
			for p := 0; p < c; p++ {
				if dd := sqDist(point, centroids.RawRowView(p)); dd < nearest {
					nearest = dd
				}
			}
			dist[j] = nearest
			total += nearest
		}

		if total == 0 {
			// All points coincide with chosen centroids.
			centroids.SetRow(c, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * total
		chosen := -1
		var cum float64
		for j, dd := range dist {
			if dd == 0 {
				continue
			}
			cum += dd
			chosen = j
			if cum >= target {
				break
			}
		}
		centroids.SetRow(c, data.RawRowView(chosen))
	}
	return centroids
}

// lloyd refines centroids until they settle and returns the labels and the
// within-cluster sum of squared distances.
func (e *Engine) lloyd(data, centroids *mat.Dense) ([]int, float64) {
	labels := assign(data, centroids)
	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		relocateEmpty(data, centroids, labels)
		next := means(data, labels, centroids)
		shift := 0.0
		k, _ := centroids.Dims()
		for c := 0; c < k; c++ {
			shift += sqDist(centroids.RawRowView(c), next.RawRowView(c))
		}
		centroids = next
		labels = assign(data, centroids)
		if shift <= e.cfg.Tolerance {
			break
		}
	}

	var inertia float64
	for i, c := range labels {
		inertia += sqDist(data.RawRowView(i), centroids.RawRowView(c))
	}
	return labels, inertia
}

// assign labels each point with its nearest centroid; ties go to the lower
// centroid index.
func assign(data, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dd := sqDist(point, centroids.RawRowView(c)); dd < bestDist {
				best, bestDist = c, dd
			}
		}
		labels[i] = best
	}
	return labels
}

// relocateEmpty moves the point farthest from its centroid into each empty
// cluster, taking only from clusters that keep at least one member.
func relocateEmpty(data, centroids *mat.Dense, labels []int) {
	k, _ := centroids.Dims()
	counts := make([]int, k)
	for _, c := range labels {
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, lc := range labels {
			if counts[lc] < 2 {
				continue
			}
			if dd := sqDist(data.RawRowView(i), centroids.RawRowView(lc)); dd > farDist {
				far, farDist = i, dd
			}
		}
		if far < 0 {
			return
		}
		counts[labels[far]]--
		counts[c]++
		labels[far] = c
		centroids.SetRow(c, data.RawRowView(far))
	}
}

// means returns the mean of each cluster's members. A cluster without
// members keeps its previous centroid.
func means(data *mat.Dense, labels []int, prev *mat.Dense) *mat.Dense {
	k, d := prev.Dims()
	next := mat.NewDense(k, d, nil)
	counts := make([]float64, k)
	for i, c := range labels {
		floats.Add(next.RawRowView(c), data.RawRowView(i))
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			next.SetRow(c, prev.RawRowView(c))
			continue
		}
		floats.Scale(1/counts[c], next.RawRowView(c))
	}
	return next
}

func sqDist(a, b []float64) float64 {
	dd := floats.Distance(a, b, 2)
	return dd * dd
}

// canonical renumbers labels in order of first appearance.
func canonical(labels []int) Assignment {
	remap := make(map[int]int)
	out := make(Assignment, len(labels))
	for i, l := range labels {
		id, ok := remap[l]
		if !ok {
			id = len(remap)
			remap[l] = id
		}
		out[i] = id
	}
	return out
}
