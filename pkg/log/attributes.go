package log

// 探索のコンテキスト
const (
	// SearchIDKey は AutoMLSearch のセッションIDです。
	SearchIDKey = "automl.search_id"

	BatchKey          = "automl.batch"
	PipelineNumberKey = "automl.pipeline_number"
	PipelineIDKey     = "automl.pipeline_id"
	PipelineNameKey   = "automl.pipeline_name"
	ModelFamilyKey    = "automl.model_family"
	ScoreKey          = "automl.score"
	ObjectiveKey      = "automl.objective"
	ProblemTypeKey    = "automl.problem_type"
	FoldKey           = "automl.fold"
)

// コンポーネントと処理
const (
	// ComponentKey はグラフ中のノード名です。
	ComponentKey = "ml.component"

	// OperationKey は "fit", "predict", "transform", "score" などの処理名です。
	OperationKey = "ml.operation"

	SamplesKey     = "data.samples"
	FeaturesKey    = "data.features"
	DurationMsKey  = "perf.duration_ms"
	ThresholdKey   = "preds.threshold"
	RandomSeedKey  = "config.random_seed"
	HyperParamsKey = "model.hyperparams"
)

// 標準的な処理名
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
)
