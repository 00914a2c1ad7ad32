package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func healthySnapshot() models.Snapshot {
	return models.Snapshot{
		Cardiac: &models.CardiacSample{
			HeartRate: intPtr(72),
			Systolic:  intPtr(120),
		},
		Breath: &models.RespiratorySample{SpO2: intPtr(98)},
		Stress: &models.StressSample{
			StressLevel:       intPtr(30),
			MentalHealthScore: intPtr(80),
		},
		Timestamp: time.Now(),
	}
}

func TestAnalyze_HealthySnapshot(t *testing.T) {
	a := NewAggregator(zap.NewNop())

	result := a.Analyze(healthySnapshot(), 0)

	assert.Equal(t, 100, result.OverallHealth)
	assert.Equal(t, 0, result.RiskScore)
	assert.Empty(t, result.RiskFactors)
	assert.Equal(t, 90*24*time.Hour, result.NextCheckIn)
}

func TestAnalyze_DegradedVitalsLowerScore(t *testing.T) {
	a := NewAggregator(zap.NewNop())

	snapshot := healthySnapshot()
	snapshot.Cardiac.HeartRate = intPtr(130)
	snapshot.Breath.SpO2 = intPtr(92)
	snapshot.Stress.StressLevel = intPtr(90)
	snapshot.Stress.MentalHealthScore = intPtr(20)

	result := a.Analyze(snapshot, 0)

	// (50 + 70 + 100 + 50 + 40) / 5 = 62
	assert.Equal(t, 62, result.OverallHealth)
	assert.Contains(t, result.RiskFactors, "heart rate out of resting range")
	assert.Contains(t, result.RiskFactors, "low blood oxygen saturation")
	assert.Contains(t, result.RiskFactors, "elevated stress level")
	assert.Contains(t, result.RiskFactors, "low mental health score")
	assert.NotEmpty(t, result.Recommendations)
}

func TestAnalyze_ActiveConfidenceRaisesRisk(t *testing.T) {
	a := NewAggregator(zap.NewNop())

	result := a.Analyze(healthySnapshot(), 75)

	assert.Equal(t, 75, result.RiskScore)
	assert.Equal(t, 7*24*time.Hour, result.NextCheckIn)
}

func TestNextCheckIn_MonotoneInRisk(t *testing.T) {
	// 间隔随风险单调缩短
	assert.Equal(t, 90*24*time.Hour, nextCheckIn(0))
	assert.Equal(t, 90*24*time.Hour, nextCheckIn(50))
	assert.Equal(t, 30*24*time.Hour, nextCheckIn(51))
	assert.Equal(t, 30*24*time.Hour, nextCheckIn(70))
	assert.Equal(t, 7*24*time.Hour, nextCheckIn(71))
	assert.Equal(t, 7*24*time.Hour, nextCheckIn(100))
}

func TestAnalyze_EmptySnapshot(t *testing.T) {
	a := NewAggregator(zap.NewNop())

	result := a.Analyze(models.Snapshot{Timestamp: time.Now()}, 0)

	// 无数据时不虚报风险
	assert.Equal(t, 100, result.OverallHealth)
	assert.Equal(t, 0, result.RiskScore)
}
