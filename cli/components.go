package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

type componentInfo struct {
	Name                 string                    `json:"name"`
	ModelFamily          modelfamily.ModelFamily   `json:"model_family"`
	Estimator            bool                      `json:"estimator"`
	ProblemTypes         []problemtype.ProblemType `json:"problem_types,omitempty"`
	DefaultParameters    model.Params              `json:"default_parameters"`
	HyperparameterRanges map[string]string         `json:"hyperparameter_ranges,omitempty"`
}

func describeSpec(s *components.Spec) componentInfo {
	info := componentInfo{
		Name:              s.Name,
		ModelFamily:       s.ModelFamily,
		Estimator:         s.IsEstimator,
		ProblemTypes:      s.ProblemTypes,
		DefaultParameters: s.DefaultParameters,
	}
	if len(s.HyperparameterRanges) > 0 {
		info.HyperparameterRanges = make(map[string]string, len(s.HyperparameterRanges))
		for k, d := range s.HyperparameterRanges {
			info.HyperparameterRanges[k] = d.String()
		}
	}
	return info
}

// NewComponentsCmd は登録済みのコンポーネントを表示するコマンドを返します。
func NewComponentsCmd() *cobra.Command {
	var problemType string
	cmd := &cobra.Command{
		Use:   "components [--problem-type <type>]",
		Short: "List components",
		Long: `List registered components with their default parameters and tuning ranges.

With --problem-type only the estimators searched for that problem type are listed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			registry := components.DefaultRegistry()

			var specs []*components.Spec
			if problemType == "" {
				for _, name := range registry.Names() {
					spec, err := registry.Lookup(name)
					if err != nil {
						logErrorCmd(*cmd, err)

						return
					}
					specs = append(specs, spec)
				}
			} else {
				pt, err := problemtype.Parse(problemType)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				specs = registry.Estimators(pt)
			}

			out := make([]componentInfo, 0, len(specs))
			for _, s := range specs {
				out = append(out, describeSpec(s))
			}
			logJSONCmd(*cmd, out)
		},
	}

	cmd.Flags().StringVar(&problemType, "problem-type", "", "Only list estimators for this problem type")

	return cmd
}
