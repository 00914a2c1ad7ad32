// Package metrics 提供指标存储功能
//
// 主要功能：
// - 每个信号域一个固定容量的滚动窗口（FIFO，满时淘汰最旧读数）
// - 写入由单一互斥锁串行化，保证 FIFO 淘汰的原子性
// - 快照返回不可变副本，检测器读取不阻塞采样写入
package metrics

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// Store 指标存储（Metric Store）
type Store struct {
	mu       sync.Mutex
	capacity int
	windows  map[models.SignalDomain][]models.Reading
	logger   *zap.Logger
}

// NewStore 创建指标存储
// capacity: 每个域的窗口容量（<= 0 时使用默认值 100）
func NewStore(capacity int, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		capacity: capacity,
		windows:  make(map[models.SignalDomain][]models.Reading),
		logger:   logger,
	}
}

// Ingest 写入一条读数
// 无效读数直接丢弃并记录日志，不向调用方返回错误（采样循环不因坏数据中断）
func (s *Store) Ingest(reading models.Reading) {
	if !reading.Valid() {
		s.logger.Warn("Dropping invalid reading",
			zap.String("domain", string(reading.Domain)),
			zap.Time("timestamp", reading.Timestamp),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[reading.Domain]
	if len(window) >= s.capacity {
		// FIFO：淘汰最旧的读数
		window = window[1:]
	}
	window = append(window, reading)
	s.windows[reading.Domain] = window
}

// Snapshot 返回指定域窗口的不可变副本
func (s *Store) Snapshot(domain models.SignalDomain) []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.windows[domain]
	out := make([]models.Reading, len(window))
	copy(out, window)
	return out
}

// Len 返回指定域窗口的当前长度
func (s *Store) Len(domain models.SignalDomain) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows[domain])
}

// FusedSnapshot 将各域的最新读数融合为一个状态快照（检测器的输入）
//
// 融合规则：
// - cardiac/respiratory/stress/location/motion/audio：取各自窗口的最新读数
// - behavioral：取最近 recentBehavioral 条文本（行为模式检测扫描的是近期条目）
// - 快照时间戳取所有参与读数中最新的一个
func (s *Store) FusedSnapshot(recentBehavioral int) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recentBehavioral <= 0 {
		recentBehavioral = 10
	}

	snapshot := models.Snapshot{}
	var latest time.Time

	track := func(ts time.Time) {
		if ts.After(latest) {
			latest = ts
		}
	}

	if w := s.windows[models.DomainCardiac]; len(w) > 0 {
		r := w[len(w)-1]
		sample := *r.Cardiac
		snapshot.Cardiac = &sample
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainRespiratory]; len(w) > 0 {
		r := w[len(w)-1]
		sample := *r.Breath
		snapshot.Breath = &sample
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainStress]; len(w) > 0 {
		r := w[len(w)-1]
		sample := *r.Stress
		snapshot.Stress = &sample
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainLocation]; len(w) > 0 {
		r := w[len(w)-1]
		point := *r.Location
		snapshot.Location = &point
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainMotion]; len(w) > 0 {
		r := w[len(w)-1]
		sample := *r.Motion
		snapshot.Motion = &sample
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainAudio]; len(w) > 0 {
		r := w[len(w)-1]
		sample := *r.Audio
		snapshot.Audio = &sample
		track(r.Timestamp)
	}
	if w := s.windows[models.DomainBehavioral]; len(w) > 0 {
		start := len(w) - recentBehavioral
		if start < 0 {
			start = 0
		}
		for _, r := range w[start:] {
			snapshot.Behavioral = append(snapshot.Behavioral, *r.Text)
			track(r.Timestamp)
		}
	}

	snapshot.Timestamp = latest
	return snapshot
}
