package models

import (
	"time"
)

// SignalDomain 信号域（每个域对应一个独立的采样循环）
type SignalDomain string

const (
	DomainCardiac     SignalDomain = "cardiac"
	DomainRespiratory SignalDomain = "respiratory"
	DomainStress      SignalDomain = "stress"
	DomainBehavioral  SignalDomain = "behavioral"
	DomainLocation    SignalDomain = "location"
	DomainMotion      SignalDomain = "motion"
	DomainAudio       SignalDomain = "audio"
)

// Reading 单次采样数据（创建后不可变）
// 每个域只填充对应的载荷字段，其他字段为 nil
type Reading struct {
	Domain    SignalDomain       `json:"domain"`
	Cardiac   *CardiacSample     `json:"cardiac,omitempty"`
	Breath    *RespiratorySample `json:"respiratory,omitempty"`
	Stress    *StressSample      `json:"stress,omitempty"`
	Text      *string            `json:"text,omitempty"`
	Location  *GeoPoint          `json:"location,omitempty"`
	Motion    *MotionSample      `json:"motion,omitempty"`
	Audio     *AudioSample       `json:"audio,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// CardiacSample 心脏域采样（心率 + 血压）
type CardiacSample struct {
	HeartRate *int `json:"heart_rate,omitempty"`
	Systolic  *int `json:"systolic,omitempty"`
	Diastolic *int `json:"diastolic,omitempty"`
}

// RespiratorySample 呼吸域采样（血氧 + 呼吸率）
type RespiratorySample struct {
	SpO2            *int `json:"spo2,omitempty"`
	RespiratoryRate *int `json:"respiratory_rate,omitempty"`
}

// StressSample 压力域采样（压力水平 + 心理健康评分 + 综合风险评分）
type StressSample struct {
	StressLevel       *int `json:"stress_level,omitempty"`
	MentalHealthScore *int `json:"mental_health_score,omitempty"`
	RiskScore         *int `json:"risk_score,omitempty"`
}

// GeoPoint 位置信息
type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// MotionSample 运动域采样（来自加速度传感器）
type MotionSample struct {
	Magnitude    float64 `json:"magnitude"`
	FallDetected bool    `json:"fall_detected"`
}

// AudioSample 音频域采样（环境音分析结果）
type AudioSample struct {
	NoiseLevel       float64 `json:"noise_level"`
	DistressDetected bool    `json:"distress_detected"`
}

// Valid 校验采样数据是否有效（无效数据会被 Metric Store 丢弃并记录日志）
func (r *Reading) Valid() bool {
	if r.Domain == "" || r.Timestamp.IsZero() {
		return false
	}
	switch r.Domain {
	case DomainCardiac:
		return r.Cardiac != nil
	case DomainRespiratory:
		return r.Breath != nil
	case DomainStress:
		return r.Stress != nil
	case DomainBehavioral:
		return r.Text != nil
	case DomainLocation:
		return r.Location != nil
	case DomainMotion:
		return r.Motion != nil
	case DomainAudio:
		return r.Audio != nil
	}
	return false
}

// Snapshot 融合后的最新状态快照（检测器的输入，与各域窗口的最新读数保持一致）
// 所有字段均为副本，检测器读取时不会阻塞采样写入
type Snapshot struct {
	Cardiac    *CardiacSample     `json:"cardiac,omitempty"`
	Breath     *RespiratorySample `json:"respiratory,omitempty"`
	Stress     *StressSample      `json:"stress,omitempty"`
	Behavioral []string           `json:"behavioral,omitempty"`
	Location   *GeoPoint          `json:"location,omitempty"`
	Motion     *MotionSample      `json:"motion,omitempty"`
	Audio      *AudioSample       `json:"audio,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}
