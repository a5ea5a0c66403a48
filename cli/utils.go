package cli

import (
	"fmt"
	"math"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/goautoml/automl"
)

func logJSONCmd(cmd cobra.Command, iList ...any) {
	f := prettyjson.NewFormatter()
	f.DisabledColor = color.NoColor
	for _, i := range iList {
		pj, err := f.Marshal(i)
		if err != nil {
			logErrorCmd(cmd, err)

			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", string(pj))
	}
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), color.YellowString("\nusage: %s\n\n"), u)
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	boldRed.Fprint(cmd.ErrOrStderr(), "\nerror: ")

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", color.RedString(err.Error()))
}

func logOKCmd(cmd cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", color.BlueString(msg))
}

// logRankingsCmd は順位表を出力します。先頭行（最良）は緑、ベースラインは灰色です。
func logRankingsCmd(cmd cobra.Command, rankings []automl.PipelineResult, objective string) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	bold.Fprintf(out, "\n%-4s %-6s %-58s %12s %10s %10s\n", "rank", "id", "pipeline", objective, "std", "% better")
	for i, r := range rankings {
		line := fmt.Sprintf("%-4d %-6d %-58s %12s %10s %10s",
			i+1, r.ID, truncate(r.PipelineName, 58),
			formatScore(r.MeanCVScore), formatScore(r.StdCVScore), formatScore(r.PercentBetterThanBaseline))
		switch {
		case i == 0:
			line = color.GreenString(line)
		case r.IsBaseline:
			line = color.HiBlackString(line)
		case math.IsNaN(r.MeanCVScore):
			line = color.RedString(line)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
