package model

import (
	"sync"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// StateManager はコンポーネントの学習状態をスレッドセーフに管理します。
// 埋め込みではなく合成で使います。
type StateManager struct {
	mu     sync.RWMutex
	fitted bool

	nFeatures int
	nSamples  int
}

// NewStateManager は未学習状態の StateManager を作成します。
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted は学習済みかどうかを返します。
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted は学習済み状態にし、学習時の次元を記録します。
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset は未学習状態に戻します。
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// GetDimensions は学習時の特徴量数とサンプル数を返します。
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted は未学習なら NotFittedError を返します。
func (s *StateManager) RequireFitted(name, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(name, method)
	}
	return nil
}

// RequireFeatures は学習済みで、かつ列数が学習時と一致することを確認します。
func (s *StateManager) RequireFeatures(name, method string, nFeatures int) error {
	if err := s.RequireFitted(name, method); err != nil {
		return err
	}
	if expected, _ := s.GetDimensions(); expected != nFeatures {
		return errors.NewDimensionError(name+"."+method, expected, nFeatures, 1)
	}
	return nil
}
