// Package log は探索処理の構造化ログのためのインターフェースを提供します。
//
// log/slog 互換の最小インターフェースを定義し、実装として zerolog と slog の
// アダプタ、テスト用のキャプチャロガーを用意しています。
//
//	logger := log.GetLogger().With(log.SearchIDKey, id)
//	logger.Info("batch started",
//	    log.BatchKey, 2,
//	    log.PipelineNameKey, "Logistic Regression Classifier w/ Imputer",
//	)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Logger は log/slog 互換の構造化ロガーです。
// fields はキーと値を交互に並べたものです。Error の最初の field に error を
// 渡すと、実装によってはスタックトレースが付与されます。
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With は fields を常に含む新しい Logger を返します。
	With(fields ...any) Logger

	// Enabled は level のログが出力されるかを返します。
	Enabled(ctx context.Context, level Level) bool
}

// Level は slog.Level と互換の値を持つログレベルです。
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel は "debug" / "info" / "warn" / "error" を Level に変換します。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValueErrorf("ParseLevel", "invalid log level %q", s)
	}
}
