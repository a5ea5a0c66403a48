package tuners

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// RandomSearchTuner は探索空間から一様にサンプリングするチューナーです。
type RandomSearchTuner struct {
	space           *SearchSpace
	rng             *rand.Rand
	withReplacement bool
	maxAttempts     int
	history         observations
	proposed        map[string]bool
}

// NewRandomSearchTuner は RandomSearchTuner を作成します。
// withReplacement が false の場合、一度提案した点は再提案しません。
func NewRandomSearchTuner(space *SearchSpace, randomSeed int64, withReplacement bool) *RandomSearchTuner {
	return &RandomSearchTuner{
		space:           space,
		rng:             NewSeededRand(randomSeed),
		withReplacement: withReplacement,
		maxAttempts:     100,
		proposed:        make(map[string]bool),
	}
}

func (t *RandomSearchTuner) Propose() (model.PipelineParameters, error) {
	if t.space.Len() == 0 {
		return model.PipelineParameters{}, nil
	}
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		candidate := t.space.Sample(t.rng)
		if t.withReplacement {
			return candidate, nil
		}
		x, err := t.space.Encode(candidate)
		if err != nil {
			return nil, err
		}
		k := key(x)
		if !t.proposed[k] && !t.history.seen[k] {
			t.proposed[k] = true
			return candidate, nil
		}
	}
	return nil, errors.NewNoParamsError("RandomSearchTuner")
}

func (t *RandomSearchTuner) Add(parameters model.PipelineParameters, score float64) error {
	x, err := t.space.Encode(parameters)
	if err != nil {
		return err
	}
	t.history.add(x, score)
	return nil
}
