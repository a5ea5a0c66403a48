package config

import (
	"io"

	"github.com/caarlos0/env/v11"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
)

// LogConfig はロガーの設定です。GOAUTOML_LOG_LEVEL などの環境変数から読み込みます。
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// Format は console / json / cloud のいずれかです。
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// LoadLogConfig は環境変数から LogConfig を読み込みます。
func LoadLogConfig() (LogConfig, error) {
	var cfg LogConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix + "_"}); err != nil {
		return cfg, errors.Wrap(err, "parsing log config")
	}
	return cfg, nil
}

// NewLogger は設定に従って w に書き込むロガーを作成します。
// cloud は CloudLogging 形式の slog ロガーで、slog のデフォルトにも設定します。
func (c LogConfig) NewLogger(w io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	switch c.Format {
	case "", "console":
		return log.NewZerologLogger(w, level, true), nil
	case "json":
		return log.NewZerologLogger(w, level, false), nil
	case "cloud":
		return log.SetupLogger(w, c.Level)
	}
	return nil, errors.Mark(errors.NewValidationError("format", "must be one of: console json cloud", c.Format), ErrInvalidConfig)
}
