package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "GradientBoostingRegressor".
	ModelNameKey = "model.name"

	// OperationKey is the ML operation: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey names the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "training", "validation", "inference".
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TrainKey    = "data.train_samples"
	TestKey     = "data.test_samples"
)

// Session and driver context.
const (
	// SeasonKey is the championship year.
	SeasonKey = "f1.season"

	// RoundKey is the 1-based round of the season.
	RoundKey = "f1.round"

	// SessionKey is the session type, e.g. "Qualifying".
	SessionKey = "f1.session"

	// SessionIDKey is the data source's session identifier.
	SessionIDKey = "f1.session_key"

	LapsKey    = "f1.laps"
	DriversKey = "f1.drivers"

	// DroppedKey lists driver acronyms removed by a join or by having no
	// timed lap.
	DroppedKey = "f1.dropped_drivers"
)

// Metrics and training progress.
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	MAEKey        = "metrics.mae"
	R2ScoreKey    = "metrics.r2_score"
	IterationKey  = "training.iteration"
)

// Hyperparameters.
const (
	EstimatorsKey   = "hyperparams.n_estimators"
	LearningRateKey = "hyperparams.learning_rate"
	MaxDepthKey     = "hyperparams.max_depth"
	RandomSeedKey   = "config.random_seed"
)

// Transport and cache.
const (
	URLKey      = "http.url"
	StatusKey   = "http.status"
	CacheHitKey = "cache.hit"
	CachePath   = "cache.path"
)

// Error context.
const (
	// ErrAttrKey carries an error value. Backends render its stack trace
	// under StacktraceKey.
	ErrAttrKey    = "error"
	StacktraceKey = "stacktrace"
)

// Standard values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
