// Package goautoml searches machine learning pipelines for tabular data in Go.
//
// goautoml builds candidate pipelines (component graphs of transformers and
// an estimator), evaluates them with cross validation and tunes their
// hyperparameters batch by batch, one tuner per model family.
//
// # Installation
//
//	go get github.com/YuminosukeSato/goautoml
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/goautoml/automl"
//	    "github.com/YuminosukeSato/goautoml/core/data"
//	    "github.com/YuminosukeSato/goautoml/problemtype"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
//	    y := data.NewStringSeries([]string{"a", "a", "a", "b", "b", "b"})
//
//	    search, err := automl.NewAutoMLSearch(X, y, problemtype.Binary,
//	        automl.WithMaxBatches(3),
//	        automl.WithCVFolds(2),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := search.Search(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, r := range search.Rankings() {
//	        fmt.Println(r.PipelineName, r.MeanCVScore)
//	    }
//	}
//
// # Packages
//
//   - automl: AutoMLSearch, the IterativeAlgorithm and evaluation engines
//   - pipelines: Pipeline construction, fitting and scoring
//   - componentgraph: DAG of components with topological execution
//   - components: Component registry, transformers and estimators
//   - tuners: Search spaces and SMBO / random / grid tuners
//   - objectives: Scoring objectives and threshold optimization
//   - preprocessing: Data splitters and scalers
//   - config: Search settings from YAML/JSON files and environment variables
//   - cli: Cobra commands used by cmd/goautoml
//   - linear, sklearn/*: Estimators wrapped by components
//   - metrics: Classification and regression metrics
//   - core/data, core/model, core/parallel: Shared data types and helpers
//   - pkg/errors, pkg/log: Error types and structured logging
//
// # Command Line
//
//	goautoml search --data train.csv --target label --problem-type binary --max-batches 3
//	goautoml components --problem-type regression
//
// # License
//
// goautoml is released under the MIT License.
package goautoml
