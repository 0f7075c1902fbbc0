package estimator

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
)

// NameRandomForest is the factory name of RandomForestRegressor.
const NameRandomForest = "RandomForestRegressor"

// Feature sampling strategies accepted by MaxFeatures.
const (
	MaxFeaturesAll  = ""
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

// leaf marks a TreeNode without children.
const leaf = -1

// TreeNode is one node of a flattened regression tree. Rows with
// x[Feature] <= Threshold go Left.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a CART regression tree stored as a node slice rooted at 0.
type Tree struct {
	Nodes []TreeNode
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// RandomForestRegressor averages bagged CART trees grown on squared error.
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int // 0 grows until leaves are pure
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string // "", "sqrt", "log2" or a count
	Bootstrap       bool
	RandomState     int64
	NJobs           int

	Trees  []Tree
	Width  int
	Fitted bool
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(d int) ForestOption { return func(f *RandomForestRegressor) { f.MaxDepth = d } }

// WithMinSamplesSplit sets the smallest node that may be split.
func WithMinSamplesSplit(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the smallest allowed leaf.
func WithMinSamplesLeaf(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature sampling strategy.
func WithMaxFeatures(s string) ForestOption {
	return func(f *RandomForestRegressor) { f.MaxFeatures = s }
}

// WithBootstrap toggles sampling rows with replacement.
func WithBootstrap(b bool) ForestOption { return func(f *RandomForestRegressor) { f.Bootstrap = b } }

// WithRandomState seeds tree construction.
func WithRandomState(seed int64) ForestOption {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithNJobs sets how many trees are grown concurrently.
func WithNJobs(n int) ForestOption { return func(f *RandomForestRegressor) { f.NJobs = n } }

// NewRandomForestRegressor returns an unfitted forest.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
		NJobs:           1,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Name implements Estimator.
func (f *RandomForestRegressor) Name() string { return NameRandomForest }

// Params implements Estimator.
func (f *RandomForestRegressor) Params() map[string]any {
	return map[string]any{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
		"n_jobs":            f.NJobs,
	}
}

func (f *RandomForestRegressor) validate(cols int) (int, error) {
	switch {
	case f.NEstimators < 1:
		return 0, fmt.Errorf("%w: n_estimators must be at least 1", ErrInvalidParam)
	case f.MaxDepth < 0:
		return 0, fmt.Errorf("%w: max_depth must be non-negative", ErrInvalidParam)
	case f.MinSamplesSplit < 2:
		return 0, fmt.Errorf("%w: min_samples_split must be at least 2", ErrInvalidParam)
	case f.MinSamplesLeaf < 1:
		return 0, fmt.Errorf("%w: min_samples_leaf must be at least 1", ErrInvalidParam)
	}
	return featureCount(f.MaxFeatures, cols)
}

func featureCount(setting string, cols int) (int, error) {
	switch setting {
	case MaxFeaturesAll:
		return cols, nil
	case MaxFeaturesSqrt:
		return max(1, int(math.Sqrt(float64(cols)))), nil
	case MaxFeaturesLog2:
		return max(1, int(math.Log2(float64(cols)))), nil
	}
	var k int
	if _, err := fmt.Sscanf(setting, "%d", &k); err != nil || k < 1 {
		return 0, fmt.Errorf("%w: max_features %q", ErrInvalidParam, setting)
	}
	return min(k, cols), nil
}

// Fit grows NEstimators trees. Tree i is seeded with RandomState+i, so the
// result does not depend on NJobs.
func (f *RandomForestRegressor) Fit(X mat.Matrix, y []float64) error {
	rows, cols, err := checkFitInput(X, y)
	if err != nil {
		return err
	}
	k, err := f.validate(cols)
	if err != nil {
		return err
	}

	data := make([][]float64, rows)
	for i := range rows {
		data[i] = mat.Row(nil, i, X)
	}

	trees := make([]Tree, f.NEstimators)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range max(1, f.NJobs) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				trees[t] = f.grow(data, y, k, rand.New(rand.NewSource(f.RandomState+int64(t))))
			}
		}()
	}
	for t := range f.NEstimators {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	f.Trees, f.Width, f.Fitted = trees, cols, true
	return nil
}

// Predict averages the trees.
func (f *RandomForestRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !f.Fitted {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != f.Width {
		return nil, fmt.Errorf("%w: got %d features, fitted on %d", ErrDimensionMismatch, cols, f.Width)
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range rows {
		mat.Row(row, i, X)
		sum := 0.0
		for t := range f.Trees {
			sum += f.Trees[t].predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

type grower struct {
	forest *RandomForestRegressor
	data   [][]float64
	y      []float64
	k      int
	rnd    *rand.Rand
	tree   Tree
}

func (f *RandomForestRegressor) grow(data [][]float64, y []float64, k int, rnd *rand.Rand) Tree {
	n := len(data)
	idx := make([]int, n)
	for i := range idx {
		if f.Bootstrap {
			idx[i] = rnd.Intn(n)
		} else {
			idx[i] = i
		}
	}
	g := &grower{forest: f, data: data, y: y, k: k, rnd: rnd}
	g.build(idx, 0)
	return g.tree
}

// build appends the subtree for idx and returns its node index.
func (g *grower) build(idx []int, depth int) int {
	sum := 0.0
	for _, i := range idx {
		sum += g.y[i]
	}
	node := len(g.tree.Nodes)
	g.tree.Nodes = append(g.tree.Nodes, TreeNode{Feature: leaf, Left: leaf, Right: leaf, Value: sum / float64(len(idx))})

	f := g.forest
	if (f.MaxDepth > 0 && depth >= f.MaxDepth) || len(idx) < f.MinSamplesSplit || len(idx) < 2*f.MinSamplesLeaf {
		return node
	}

	feature, threshold, ok := g.bestSplit(idx, sum)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if g.data[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.tree.Nodes[node] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: g.tree.Nodes[node].Value}
	return node
}

// bestSplit maximizes sumL²/nL + sumR²/nR, which minimizes the summed
// squared error of the children.
func (g *grower) bestSplit(idx []int, total float64) (feature int, threshold float64, ok bool) {
	n := len(idx)
	minLeaf := g.forest.MinSamplesLeaf
	parent := total * total / float64(n)
	best := parent + 1e-12

	cols := len(g.data[0])
	candidates := g.rnd.Perm(cols)[:g.k]
	sorted := slices.Clone(idx)
	for _, j := range candidates {
		slices.SortFunc(sorted, func(a, b int) int {
			switch va, vb := g.data[a][j], g.data[b][j]; {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})

		left := 0.0
		for pos := 0; pos < n-1; pos++ {
			left += g.y[sorted[pos]]
			nl := pos + 1
			if nl < minLeaf || n-nl < minLeaf {
				continue
			}
			cur, next := g.data[sorted[pos]][j], g.data[sorted[pos+1]][j]
			if cur == next {
				continue
			}
			right := total - left
			score := left*left/float64(nl) + right*right/float64(n-nl)
			if score > best {
				mid := cur + (next-cur)/2
				if mid >= next {
					mid = cur
				}
				best, feature, threshold, ok = score, j, mid, true
			}
		}
	}
	return feature, threshold, ok
}
