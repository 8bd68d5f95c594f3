package ensemble

// Option configures a GradientBoostingRegressor.
type Option func(*GradientBoostingRegressor)

// WithNEstimators sets the number of boosting stages.
func WithNEstimators(n int) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to each stage.
func WithLearningRate(lr float64) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.learningRate = lr
	}
}

// WithMaxDepth sets the depth of each regression tree.
func WithMaxDepth(depth int) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.maxDepth = depth
	}
}

// WithMinSamplesSplit sets min_samples_split for each tree.
func WithMinSamplesSplit(n int) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets min_samples_leaf for each tree.
func WithMinSamplesLeaf(n int) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.minSamplesLeaf = n
	}
}

// WithSubsample sets the fraction of rows drawn for each stage. Values
// below 1 give stochastic gradient boosting.
func WithSubsample(fraction float64) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.subsample = fraction
	}
}

// WithRandomState seeds row subsampling and the trees' feature order.
func WithRandomState(seed int) Option {
	return func(gb *GradientBoostingRegressor) {
		gb.randomState = seed
	}
}
