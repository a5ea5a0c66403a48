package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/goautoml/automl"
	"github.com/YuminosukeSato/goautoml/config"
	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
)

var logger log.Logger = log.NopLogger{}

// SetLogger はコマンドが探索に渡すロガーを設定します。
func SetLogger(l log.Logger) {
	if l == nil {
		l = log.NopLogger{}
	}
	logger = l
}

// overrideFlags はフラグ名と設定キーの対応です。指定されたフラグだけが設定を上書きします。
var overrideFlags = map[string]string{
	"problem-type":   "problem_type",
	"objective":      "objective",
	"max-batches":    "max_batches",
	"max-iterations": "max_iterations",
	"max-time":       "max_time",
	"workers":        "workers",
	"random-seed":    "random_seed",
	"ensembling":     "ensembling",
}

type searchFlags struct {
	data       string
	target     string
	configFile string
	output     string
	json       bool
}

// NewSearchCmd は CSV を読み込んで探索を実行するコマンドを返します。
func NewSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search --data <file.csv> --target <column>",
		Short: "Search pipelines",
		Long: `Search pipelines for a CSV dataset and print the rankings.

Settings are read from --config, then GOAUTOML_* environment variables, then flags.

Examples:
  # Binary classification with the default settings
  goautoml search --data churn.csv --target churned --problem-type binary

  # Three batches with ensembling, results saved as JSON
  goautoml search --data houses.csv --target price --problem-type regression \
    --max-batches 3 --ensembling --output results.json`,
		Run: func(cmd *cobra.Command, _ []string) {
			if f.data == "" || f.target == "" {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if err := runSearch(cmd, f); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
		},
	}

	cmd.Flags().StringVar(&f.data, "data", "", "CSV file with a header row")
	cmd.Flags().StringVar(&f.target, "target", "", "Target column name")
	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML or JSON search config")
	cmd.Flags().StringVar(&f.output, "output", "", "Write the search results to this JSON file")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print rankings as JSON")

	cmd.Flags().String("problem-type", "", "binary, multiclass, regression or a time series variant")
	cmd.Flags().String("objective", "auto", "Primary objective name")
	cmd.Flags().Int("max-batches", 0, "Maximum number of batches")
	cmd.Flags().Int("max-iterations", 0, "Maximum number of pipelines including the baseline")
	cmd.Flags().Duration("max-time", 0, "Time limit such as 5m")
	cmd.Flags().Int("workers", 0, "Evaluate pipelines of a batch in parallel")
	cmd.Flags().Int64("random-seed", 0, "Random seed")
	cmd.Flags().Bool("ensembling", false, "Add stacked ensemble batches")

	return cmd
}

func runSearch(cmd *cobra.Command, f searchFlags) error {
	opts := []config.LoaderOption{}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	for name, key := range overrideFlags {
		if cmd.Flags().Changed(name) {
			opts = append(opts, config.WithOverride(key, cmd.Flags().Lookup(name).Value.String()))
		}
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	pt, err := cfg.ProblemTypeValue()
	if err != nil {
		return err
	}

	file, err := os.Open(f.data)
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.data)
	}
	frame, err := data.ReadCSV(file, f.target)
	file.Close()
	if err != nil {
		return err
	}

	searchOpts, err := cfg.SearchOptions()
	if err != nil {
		return err
	}
	searchOpts = append(searchOpts, automl.WithSearchLogger(logger))
	search, err := automl.NewAutoMLSearch(frame.X, frame.Y, pt, searchOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := search.Search(ctx); err != nil {
		return err
	}

	if f.output != "" {
		if err := search.SaveResultsFile(f.output); err != nil {
			return err
		}
	}

	if f.json {
		logJSONCmd(*cmd, search.Rankings())

		return nil
	}
	logRankingsCmd(*cmd, search.Rankings(), search.Objective().Name())
	if f.output != "" {
		logOKCmd(*cmd, "results written to "+f.output)
	}
	return nil
}
