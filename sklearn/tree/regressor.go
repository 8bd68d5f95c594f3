// Package tree implements CART regression trees.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pitwall-labs/lapcast/core/model"
	"github.com/pitwall-labs/lapcast/metrics"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// splits between values closer than this are not considered
	featureThreshold = 1e-7
	// nodes with impurity below this are pure
	impurityEpsilon = 1e-12
)

// node is one entry of the flattened tree. Leaves have left == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	impurity  float64
	nSamples  int
	depth     int
}

func (n *node) isLeaf() bool { return n.left < 0 }

// DecisionTreeRegressor fits a binary regression tree by greedy variance
// reduction. Leaves predict the mean target of their training samples.
type DecisionTreeRegressor struct {
	state *model.StateManager

	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	randomState     int

	nodes              []node
	featureImportances []float64
}

// NewDecisionTreeRegressor creates a tree with scikit-learn defaults:
// squared_error, unlimited depth, min_samples_split=2, min_samples_leaf=1.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		criterion:       "squared_error",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeRegressor) validateParams() error {
	switch dt.criterion {
	case "squared_error", "friedman_mse":
	default:
		return errors.NewValidationError("criterion", "must be squared_error or friedman_mse", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit grows the tree on X (n×p) and y (n×1).
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := dt.validateParams(); err != nil {
		return err
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit X", X, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit y", y, 0); err != nil {
		return err
	}

	b := &builder{
		dt:     dt,
		X:      X,
		y:      mat.Col(nil, 0, y),
		nCols:  cols,
		rng:    rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState))),
		impDec: make([]float64, cols),
	}

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	dt.nodes = dt.nodes[:0]
	b.build(indices, 0)

	dt.featureImportances = normalize(b.impDec)
	dt.state.SetFitted(cols, rows)
	return nil
}

// Predict returns the leaf value reached by each row of X.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckPredictInput("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	if rows == 0 {
		return nil, errors.NewValueError("DecisionTreeRegressor.Predict", "empty input")
	}
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		predictions.Set(i, 0, dt.predictRow(X, i))
	}
	return predictions, nil
}

func (dt *DecisionTreeRegressor) predictRow(X mat.Matrix, row int) float64 {
	idx := 0
	for !dt.nodes[idx].isLeaf() {
		n := &dt.nodes[idx]
		if X.At(row, n.feature) <= n.threshold {
			idx = n.left
		} else {
			idx = n.right
		}
	}
	return dt.nodes[idx].value
}

// Score returns the R² of the predictions on X against y.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector("DecisionTreeRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.ColumnVector("DecisionTreeRegressor.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// GetDepth returns the depth of the deepest leaf. A single-leaf tree has depth 0.
func (dt *DecisionTreeRegressor) GetDepth() int {
	depth := 0
	for i := range dt.nodes {
		if dt.nodes[i].depth > depth {
			depth = dt.nodes[i].depth
		}
	}
	return depth
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	leaves := 0
	for i := range dt.nodes {
		if dt.nodes[i].isLeaf() {
			leaves++
		}
	}
	return leaves
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances...)
}

// GetParams returns the hyperparameters in scikit-learn naming.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"random_state":      dt.randomState,
	}
}

type builder struct {
	dt     *DecisionTreeRegressor
	X      mat.Matrix
	y      []float64
	nCols  int
	rng    *rand.Rand
	impDec []float64
}

type candidate struct {
	feature   int
	threshold float64
	pos       int
	proxy     float64
}

// build appends the subtree for indices and returns its node index.
func (b *builder) build(indices []int, depth int) int {
	dt := b.dt
	n := len(indices)

	mean, impurity := meanVariance(b.y, indices)

	self := len(dt.nodes)
	dt.nodes = append(dt.nodes, node{
		left:     -1,
		right:    -1,
		value:    mean,
		impurity: impurity,
		nSamples: n,
		depth:    depth,
	})

	if (dt.maxDepth >= 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		impurity <= impurityEpsilon {
		return self
	}

	best, sorted, ok := b.bestSplit(indices)
	if !ok {
		return self
	}

	left := append([]int(nil), sorted[:best.pos]...)
	right := append([]int(nil), sorted[best.pos:]...)

	_, leftImp := meanVariance(b.y, left)
	_, rightImp := meanVariance(b.y, right)
	b.impDec[best.feature] += float64(n)*impurity -
		float64(len(left))*leftImp - float64(len(right))*rightImp

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	nd := &dt.nodes[self]
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = l
	nd.right = r
	return self
}

// bestSplit scans every feature, visited in a seeded random order, and
// returns the split with the largest improvement together with indices
// sorted on the chosen feature. Ties keep the first candidate found.
func (b *builder) bestSplit(indices []int) (candidate, []int, bool) {
	dt := b.dt
	n := len(indices)
	best := candidate{proxy: math.Inf(-1)}
	var bestSorted []int
	found := false

	features := b.rng.Perm(b.nCols)
	sorted := make([]int, n)

	for _, f := range features {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X.At(sorted[a], f) < b.X.At(sorted[c], f)
		})

		var total float64
		for _, i := range sorted {
			total += b.y[i]
		}

		var sumLeft float64
		for pos := 1; pos < n; pos++ {
			sumLeft += b.y[sorted[pos-1]]

			nLeft, nRight := pos, n-pos
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}
			lo := b.X.At(sorted[pos-1], f)
			hi := b.X.At(sorted[pos], f)
			if hi <= lo+featureThreshold {
				continue
			}

			sumRight := total - sumLeft
			proxy := b.proxy(sumLeft, sumRight, nLeft, nRight)
			if proxy > best.proxy {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = candidate{feature: f, threshold: threshold, pos: pos, proxy: proxy}
				bestSorted = append(bestSorted[:0], sorted...)
				found = true
			}
		}
	}
	return best, bestSorted, found
}

// proxy ranks splits. Both criteria drop terms that are constant for a node.
func (b *builder) proxy(sumLeft, sumRight float64, nLeft, nRight int) float64 {
	nl, nr := float64(nLeft), float64(nRight)
	if b.dt.criterion == "friedman_mse" {
		diff := nr*sumLeft - nl*sumRight
		return diff * diff / (nl * nr)
	}
	return sumLeft*sumLeft/nl + sumRight*sumRight/nr
}

// meanVariance returns the mean and population variance of y over indices,
// computed in two passes.
func meanVariance(y []float64, indices []int) (float64, float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	var sum float64
	for _, i := range indices {
		sum += y[i]
	}
	mean := sum / float64(len(indices))

	var ss float64
	for _, i := range indices {
		d := y[i] - mean
		ss += d * d
	}
	return mean, ss / float64(len(indices))
}

func normalize(values []float64) []float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make([]float64, len(values))
	if total <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
