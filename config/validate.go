package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// ErrInvalidConfig は設定の検証に失敗したことを表します。
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator はタグ名に json 名を使うシングルトンの validator を返します。
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("problem_type", func(fl validator.FieldLevel) bool {
			_, err := problemtype.Parse(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("model_family", func(fl validator.FieldLevel) bool {
			_, err := modelfamily.Parse(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate はタグに従って設定を検証します。
// 失敗した場合はフィールドごとのメッセージをまとめた ErrInvalidConfig を返します。
func (c *SearchConfig) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Mark(errors.Wrap(err, "validating search config"), ErrInvalidConfig)
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fieldPath(e.Namespace())+": "+formatValidationError(e))
	}
	return errors.Mark(errors.NewValueError("config.Validate", strings.Join(messages, "; ")), ErrInvalidConfig)
}

// fieldPath は "SearchConfig.cv_folds" から構造体名を除きます。
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "gtefield":
		return "must not be less than " + strings.ToLower(e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "problem_type":
		return "must be a problem type such as binary, multiclass or regression"
	case "model_family":
		return "must be a model family such as linear_model or decision_tree"
	default:
		return "is invalid"
	}
}
