// Package random 提供可注入種子的亂數來源。
// 模擬器中所有機率判斷都經由同一個 Source，測試時以固定種子重現結果。
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source 執行緒安全的亂數來源 (math/rand/v2 PCG)
type Source struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New 以種子建立亂數來源
func New(seed uint64) *Source {
	return &Source{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewFromTime 以目前時間為種子
func NewFromTime() *Source {
	return New(uint64(time.Now().UnixNano()))
}

// Float64 回傳 [0,1)
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// IntN 回傳 [0,n)；n <= 0 時回傳 0
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// IntBetween 回傳 [lo,hi] (含兩端)
func (s *Source) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.IntN(hi-lo+1)
}

// Int64Between 回傳 [lo,hi] (含兩端)
func (s *Source) Int64Between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rnd.Int64N(hi-lo+1)
}

// FloatBetween 回傳 [lo,hi)
func (s *Source) FloatBetween(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.Float64()*(hi-lo)
}

// Chance 以機率 p 回傳 true；p <= 0 必為 false，p >= 1 必為 true
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float64() < p
}

// Duration 回傳 [lo,hi] 之間的隨機時間長度
func (s *Source) Duration(lo, hi time.Duration) time.Duration {
	return time.Duration(s.Int64Between(int64(lo), int64(hi)))
}

// Shuffle 洗牌
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// WeightedIndex 依權重抽出索引；權重總和 <= 0 時回傳 -1
func (s *Source) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := s.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
	}
	// 浮點誤差時回傳最後一個正權重
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// Pick 從切片中隨機取一個元素
func Pick[T any](s *Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[s.IntN(len(items))], true
}

// Window 延遲範圍設定 (min ~ max)
type Window struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Sample 在範圍內取一個延遲
func (w Window) Sample(s *Source) time.Duration {
	return s.Duration(w.Min, w.Max)
}
