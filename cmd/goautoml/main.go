package main

import (
	stdlog "log"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/goautoml/cli"
	"github.com/YuminosukeSato/goautoml/config"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
)

const defEnvFile = ".env"

func main() {
	var envFile, logLevel string

	rootCmd := &cobra.Command{
		Use:   "goautoml",
		Short: "goautoml CLI",
		Long:  `goautoml searches machine learning pipelines for tabular data.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			logCfg, err := config.LoadLogConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				logCfg.Level = logLevel
			}
			logger, err := logCfg.NewLogger(os.Stderr)
			if err != nil {
				return err
			}
			if zl, ok := logger.(*log.ZerologLogger); ok {
				zl.Install()
			} else {
				log.SetLogger(logger)
				errors.SetWarningHandler(func(w error) {
					logger.Warn(w.Error())
				})
			}
			cli.SetLogger(logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defEnvFile, "Load environment variables from this file if it exists")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides GOAUTOML_LOG_LEVEL)")

	rootCmd.AddCommand(cli.NewSearchCmd())
	rootCmd.AddCommand(cli.NewComponentsCmd())

	if err := rootCmd.Execute(); err != nil {
		stdlog.Fatal(err)
	}
}
