package model

import (
	"encoding/json"
	"fmt"
)

// NodeDescription はグラフの1ノードの説明です。
type NodeDescription struct {
	Name      string   `json:"name"`
	Component string   `json:"component"`
	Inputs    []string `json:"inputs"`
	Params    Params   `json:"parameters"`
}

// PipelineDescription はパイプラインの JSON シリアライズ可能なスナップショットです。
// 学習済みの重みは含みません。パラメータと乱数シードから再構築できます。
type PipelineDescription struct {
	Name        string             `json:"name"`
	ProblemType string             `json:"problem_type"`
	ModelFamily string             `json:"model_family"`
	Nodes       []NodeDescription  `json:"nodes"`
	Parameters  PipelineParameters `json:"parameters"`
	RandomSeed  int64              `json:"random_seed"`
	IsFitted    bool               `json:"is_fitted"`
	Threshold   *float64           `json:"threshold,omitempty"`
}

// ToJSON は整形済み JSON を返します。
func (d *PipelineDescription) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// FromJSON は JSON から読み込みます。
func (d *PipelineDescription) FromJSON(data []byte) error {
	return json.Unmarshal(data, d)
}

// Validate は必須項目が揃っているかを確認します。
func (d *PipelineDescription) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("pipeline %s has no nodes", d.Name)
	}
	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if seen[n.Name] {
			return fmt.Errorf("duplicate node %q", n.Name)
		}
		seen[n.Name] = true
	}
	return nil
}
