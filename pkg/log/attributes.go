package log

// Run and operation context.
const (
	// RunIDKey identifies a single pipeline run.
	RunIDKey = "run.id"

	// ModelNameKey identifies the estimator emitting the record.
	// Examples: "StandardScaler", "TSNE"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// StageKey names the pipeline stage.
	StageKey = "pipeline.stage"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	DroppedKey  = "data.dropped"
	RowKey      = "data.row"
	ColumnKey   = "data.column"
	PathKey     = "data.path"
	EncodingKey = "data.encoding"
)

// Performance and optimization.
const (
	DurationMsKey   = "perf.duration_ms"
	LossKey         = "metrics.loss"
	GradNormKey     = "metrics.grad_norm"
	IterationKey    = "training.iteration"
	LearningRateKey = "hyperparams.learning_rate"
	PerplexityKey   = "hyperparams.perplexity"
	RandomSeedKey   = "config.random_seed"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
)

// Standard operation values.
const (
	OperationLoad         = "load"
	OperationCoerce       = "coerce"
	OperationClean        = "clean"
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationWrite        = "write"
	OperationExport       = "export"
)
