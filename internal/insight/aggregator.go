// Package insight 提供健康洞察汇总功能
//
// 周期性地将指标窗口汇总为健康评分、风险因素和建议；
// 下次复查间隔随风险评分单调缩短
package insight

import (
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// 复查间隔档位
const (
	checkInHighRisk   = 7 * 24 * time.Hour
	checkInMediumRisk = 30 * 24 * time.Hour
	checkInLowRisk    = 90 * 24 * time.Hour
)

// Aggregator 健康洞察汇总器
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator 创建汇总器
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Analyze 分析快照，生成健康洞察
//
// overallHealth 为各指标归一化子分数的平均值；
// riskScore = 100 - overallHealth，有活跃检测置信度时取两者较大值；
// nextCheckIn：风险 >70 → 7 天，>50 → 30 天，否则 90 天
func (a *Aggregator) Analyze(snapshot models.Snapshot, activeConfidence int) models.Insight {
	var scores []int
	var riskFactors []string

	if snapshot.Cardiac != nil && snapshot.Cardiac.HeartRate != nil {
		hr := *snapshot.Cardiac.HeartRate
		if hr >= 60 && hr <= 100 {
			scores = append(scores, 100)
		} else {
			scores = append(scores, 50)
			riskFactors = append(riskFactors, "heart rate out of resting range")
		}
	}
	if snapshot.Breath != nil && snapshot.Breath.SpO2 != nil {
		if *snapshot.Breath.SpO2 > 95 {
			scores = append(scores, 100)
		} else {
			scores = append(scores, 70)
			riskFactors = append(riskFactors, "low blood oxygen saturation")
		}
	}
	if snapshot.Cardiac != nil && snapshot.Cardiac.Systolic != nil {
		sys := *snapshot.Cardiac.Systolic
		if sys >= 90 && sys <= 140 {
			scores = append(scores, 100)
		} else {
			scores = append(scores, 60)
			riskFactors = append(riskFactors, "abnormal blood pressure")
		}
	}
	if snapshot.Stress != nil && snapshot.Stress.StressLevel != nil {
		if *snapshot.Stress.StressLevel < 60 {
			scores = append(scores, 100)
		} else {
			scores = append(scores, 50)
			riskFactors = append(riskFactors, "elevated stress level")
		}
	}
	if snapshot.Stress != nil && snapshot.Stress.MentalHealthScore != nil {
		if *snapshot.Stress.MentalHealthScore >= 40 {
			scores = append(scores, 100)
		} else {
			scores = append(scores, 40)
			riskFactors = append(riskFactors, "low mental health score")
		}
	}

	overall := 100
	if len(scores) > 0 {
		sum := 0
		for _, s := range scores {
			sum += s
		}
		overall = sum / len(scores)
	}

	risk := 100 - overall
	if activeConfidence > risk {
		risk = activeConfidence
	}

	result := models.Insight{
		OverallHealth:   overall,
		RiskScore:       risk,
		RiskFactors:     riskFactors,
		Recommendations: recommendations(risk, riskFactors),
		NextCheckIn:     nextCheckIn(risk),
		GeneratedAt:     time.Now(),
	}

	a.logger.Debug("Insight generated",
		zap.Int("overall_health", result.OverallHealth),
		zap.Int("risk_score", result.RiskScore),
		zap.Int("risk_factor_count", len(result.RiskFactors)),
	)

	return result
}

// nextCheckIn 风险越高复查间隔越短（单调）
func nextCheckIn(risk int) time.Duration {
	switch {
	case risk > 70:
		return checkInHighRisk
	case risk > 50:
		return checkInMediumRisk
	default:
		return checkInLowRisk
	}
}

func recommendations(risk int, riskFactors []string) []string {
	var recs []string
	switch {
	case risk > 70:
		recs = append(recs, "Schedule a medical check-up within a week")
	case risk > 50:
		recs = append(recs, "Schedule a medical check-up within a month")
	default:
		recs = append(recs, "Maintain current routine")
	}
	for _, factor := range riskFactors {
		switch factor {
		case "elevated stress level":
			recs = append(recs, "Consider stress-reduction activities")
		case "low mental health score":
			recs = append(recs, "Consider talking to a mental health professional")
		case "low blood oxygen saturation":
			recs = append(recs, "Monitor breathing and avoid strenuous activity")
		}
	}
	return recs
}
