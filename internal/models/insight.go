package models

import (
	"time"
)

// Insight 健康洞察（Insight Aggregator 的输出）
type Insight struct {
	OverallHealth   int           `json:"overall_health"` // 0-100
	RiskScore       int           `json:"risk_score"`     // 0-100
	RiskFactors     []string      `json:"risk_factors"`
	Recommendations []string      `json:"recommendations"`
	NextCheckIn     time.Duration `json:"next_check_in"`
	GeneratedAt     time.Time     `json:"generated_at"`
}
