package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithCriterion sets the split criterion, "squared_error" or "friedman_mse".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the tree depth. A negative value means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesLeaf = n
	}
}

// WithRandomState seeds the feature visiting order.
func WithRandomState(seed int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.randomState = seed
	}
}
