// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// AutoML探索で発生する設定エラー・スケジューリングエラー・パラメータ不整合を
// 構造化された型として表現し、警告は差し替え可能なハンドラへ送られます。
package errors

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("goautoml-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// ParameterNotUsedWarningなどのカスタム警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ParameterNotUsedWarning はパイプラインに渡されたパラメータのうち、
// グラフ中のどのノードにも対応しないものがあった場合の警告です。
type ParameterNotUsedWarning struct {
	Components []string
}

func (w *ParameterNotUsedWarning) Error() string {
	return fmt.Sprintf("Parameters for components %v will not be used to instantiate the pipeline since they don't appear in the pipeline", w.Components)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ParameterNotUsedWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Strs("components", w.Components).
		Str("type", "ParameterNotUsedWarning")
}

// NewParameterNotUsedWarning はコンポーネント名をソートした上で警告を作成します。
func NewParameterNotUsedWarning(components []string) *ParameterNotUsedWarning {
	sorted := append([]string(nil), components...)
	sort.Strings(sorted)
	return &ParameterNotUsedWarning{Components: sorted}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はコンポーネントが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("automl: %s: this component is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// PipelineNotYetFittedError はパイプラインが未学習のまま predict/score を呼んだ場合のエラーです。
type PipelineNotYetFittedError struct {
	Pipeline string
	Method   string
}

func (e *PipelineNotYetFittedError) Error() string {
	return fmt.Sprintf("automl: this %s is not fitted yet. You must fit %s before calling %s.", e.Pipeline, e.Pipeline, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PipelineNotYetFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("pipeline", e.Pipeline).
		Str("method", e.Method).
		Str("type", "PipelineNotYetFittedError")
}

// NewPipelineNotYetFittedError は新しいPipelineNotYetFittedErrorを作成します。
func NewPipelineNotYetFittedError(pipeline, method string) error {
	return errors.WithStack(&PipelineNotYetFittedError{Pipeline: pipeline, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("automl: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は設定値やパラメータ単体の検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("automl: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 探索の設定ミス、未知のラベル、探索空間外のパラメータなどを表します。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("automl: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NewValueErrorf はフォーマット付きのValueErrorを作成します。
func NewValueErrorf(op, format string, args ...interface{}) error {
	return NewValueError(op, fmt.Sprintf(format, args...))
}

// GraphValidationError はコンポーネントグラフの構造が不正な場合のエラーです。
type GraphValidationError struct {
	Reason string
	Nodes  []string
}

func (e *GraphValidationError) Error() string {
	if len(e.Nodes) == 0 {
		return "automl: invalid component graph: " + e.Reason
	}
	return fmt.Sprintf("automl: invalid component graph: %s: [%s]", e.Reason, strings.Join(e.Nodes, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *GraphValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("reason", e.Reason).
		Strs("nodes", e.Nodes).
		Str("type", "GraphValidationError")
}

// NewGraphValidationError は新しいGraphValidationErrorを作成します。
func NewGraphValidationError(reason string, nodes ...string) error {
	return errors.WithStack(&GraphValidationError{Reason: reason, Nodes: nodes})
}

// MissingComponentError はレジストリに存在しないコンポーネント名が指定された場合のエラーです。
type MissingComponentError struct {
	Name string
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("Component \"%s\" was not found", e.Name)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingComponentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("component", e.Name).
		Str("type", "MissingComponentError")
}

// NewMissingComponentError は新しいMissingComponentErrorを作成します。
func NewMissingComponentError(name string) error {
	return errors.WithStack(&MissingComponentError{Name: name})
}

// PipelineNotFoundError は探索結果に存在しないパイプラインIDを参照した場合のエラーです。
type PipelineNotFoundError struct {
	ID int
}

func (e *PipelineNotFoundError) Error() string {
	return fmt.Sprintf("Pipeline not found: id %d", e.ID)
}

// NewPipelineNotFoundError は新しいPipelineNotFoundErrorを作成します。
func NewPipelineNotFoundError(id int) error {
	return errors.WithStack(&PipelineNotFoundError{ID: id})
}

// AutoMLAlgorithmError はバッチのスケジューリング規約に違反した場合のエラーです。
// 例えば最初のバッチの結果が一件も報告されないまま次のバッチを要求した場合など。
type AutoMLAlgorithmError struct {
	Op      string
	Message string
}

func (e *AutoMLAlgorithmError) Error() string {
	return fmt.Sprintf("automl: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *AutoMLAlgorithmError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "AutoMLAlgorithmError")
}

// NewAutoMLAlgorithmError は新しいAutoMLAlgorithmErrorを作成します。
func NewAutoMLAlgorithmError(op, message string) error {
	return errors.WithStack(&AutoMLAlgorithmError{Op: op, Message: message})
}

// NoParamsError はチューナーがこれ以上提案できるパラメータを持たない場合のエラーです。
type NoParamsError struct {
	Tuner string
}

func (e *NoParamsError) Error() string {
	return fmt.Sprintf("automl: %s: no remaining points in the search space", e.Tuner)
}

// NewNoParamsError は新しいNoParamsErrorを作成します。
func NewNoParamsError(tuner string) error {
	return errors.WithStack(&NoParamsError{Tuner: tuner})
}

// ModelError は推定器の学習・推論に関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("automl: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("automl: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrNoResultsReported は最初のバッチの結果が報告されていないことを表します。
	ErrNoResultsReported = New("no results reported")

	// ErrPendingResults は前のバッチに未報告のパイプラインが残っていることを表します。
	ErrPendingResults = New("pending results")

	// ErrUnknownPipeline はアルゴリズムが提案していないパイプラインの結果を表します。
	ErrUnknownPipeline = New("unknown pipeline")
)

// Mark は err に reference を付与し、errors.Is(err, reference) が真になるようにします。
func Mark(err error, reference error) error {
	return errors.Mark(err, reference)
}
