package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

func intPtr(v int) *int {
	return &v
}

// vitalsSnapshot 构造包含完整生命体征的快照
func vitalsSnapshot(hr, spo2, systolic, stress, mental int) models.Snapshot {
	return models.Snapshot{
		Cardiac: &models.CardiacSample{
			HeartRate: intPtr(hr),
			Systolic:  intPtr(systolic),
			Diastolic: intPtr(80),
		},
		Breath: &models.RespiratorySample{
			SpO2: intPtr(spo2),
		},
		Stress: &models.StressSample{
			StressLevel:       intPtr(stress),
			MentalHealthScore: intPtr(mental),
		},
		Timestamp: time.Now(),
	}
}

func TestDetect_BradycardiaIsCriticalAndEscalates(t *testing.T) {
	d := NewDetector(zap.NewNop())

	// 心率 < 40 属于严重异常
	event := d.Detect(vitalsSnapshot(28, 98, 120, 20, 70))
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyCardiac, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.True(t, event.ShouldEscalate)
}

func TestDetect_TachycardiaIsCriticalAndEscalates(t *testing.T) {
	d := NewDetector(zap.NewNop())

	event := d.Detect(vitalsSnapshot(185, 98, 120, 20, 70))
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyCardiac, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.True(t, event.ShouldEscalate)
}

func TestDetect_SevereBradycardiaAlone(t *testing.T) {
	d := NewDetector(zap.NewNop())

	event := d.Detect(vitalsSnapshot(35, 98, 120, 20, 70))
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyCardiac, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.True(t, event.ShouldEscalate)
}

func TestDetect_NormalVitalsNoEvent(t *testing.T) {
	d := NewDetector(zap.NewNop())

	event := d.Detect(vitalsSnapshot(75, 99, 120, 20, 80))
	assert.Nil(t, event)
}

// 两条规则同时命中：置信度相加，严重程度取较高者，只产生一个事件
func TestDetect_AdditiveConfidenceMaxSeverity(t *testing.T) {
	d := NewDetector(zap.NewNop())

	// 心率 130（异常 +30，high）+ SpO2 93（偏低 +40，high）
	event := d.Detect(vitalsSnapshot(130, 93, 120, 20, 70))
	require.NotNil(t, event)
	assert.Equal(t, 70, event.Confidence)
	// 类型取单条置信度最高的规则（SpO2 +40 → respiratory）
	assert.Equal(t, models.EmergencyRespiratory, event.Type)
	assert.Equal(t, models.SeverityHigh, event.Severity)
	assert.False(t, event.ShouldEscalate)
	assert.Equal(t, []string{"abnormal heart rate", "low blood oxygen"}, event.Symptoms)
}

func TestDetect_SevereHypoxemiaForcesEscalation(t *testing.T) {
	d := NewDetector(zap.NewNop())

	event := d.Detect(vitalsSnapshot(75, 82, 120, 20, 70))
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyRespiratory, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.True(t, event.ShouldEscalate)
}

func TestDetect_ConfidenceCappedAt100(t *testing.T) {
	d := NewDetector(zap.NewNop())

	// 多条规则命中：严重心率 60 + 严重血氧 70 + 心理健康 35
	event := d.Detect(vitalsSnapshot(30, 80, 120, 90, 10))
	require.NotNil(t, event)
	assert.Equal(t, 100, event.Confidence)
}

func TestDetect_SingleLowRuleBelowThreshold(t *testing.T) {
	d := NewDetector(zap.NewNop())

	// 仅血压规则命中（+25），不超过发射阈值 30
	event := d.Detect(vitalsSnapshot(75, 99, 185, 20, 70))
	assert.Nil(t, event)
}

func TestDetect_FallDetectedEscalates(t *testing.T) {
	d := NewDetector(zap.NewNop())

	snapshot := models.Snapshot{
		Motion:    &models.MotionSample{Magnitude: 9.5, FallDetected: true},
		Timestamp: time.Now(),
	}
	event := d.Detect(snapshot)
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyFall, event.Type)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.True(t, event.ShouldEscalate)
}

func TestDetect_EmptySnapshotNoEvent(t *testing.T) {
	d := NewDetector(zap.NewNop())
	assert.Nil(t, d.Detect(models.Snapshot{Timestamp: time.Now()}))
}

func TestDetect_LocationAttached(t *testing.T) {
	d := NewDetector(zap.NewNop())

	snapshot := vitalsSnapshot(35, 98, 120, 20, 70)
	snapshot.Location = &models.GeoPoint{Lat: 59.33, Lon: 18.06, Address: "Home"}

	event := d.Detect(snapshot)
	require.NotNil(t, event)
	require.NotNil(t, event.Location)
	assert.Equal(t, "Home", event.Location.Address)
}

func TestBehavioralScan_KeywordMatch(t *testing.T) {
	d := NewBehavioralDetector([]string{"want to die", "hurt myself"}, zap.NewNop())

	snapshot := models.Snapshot{
		Behavioral: []string{
			"had a good lunch",
			"I just want to DIE right now",
		},
		Timestamp: time.Now(),
	}

	event := d.Scan(snapshot)
	require.NotNil(t, event)
	assert.Equal(t, models.EmergencyMental, event.Type)
	assert.Equal(t, 60, event.Confidence)
	assert.Equal(t, models.SeverityMedium, event.Severity)
	assert.False(t, event.ShouldEscalate)
	assert.Equal(t, []string{"concerning language pattern"}, event.Symptoms)
}

func TestBehavioralScan_NoMatch(t *testing.T) {
	d := NewBehavioralDetector([]string{"want to die"}, zap.NewNop())

	snapshot := models.Snapshot{
		Behavioral: []string{"everything is fine"},
		Timestamp:  time.Now(),
	}
	assert.Nil(t, d.Scan(snapshot))
}

func TestBehavioralScan_EmptyEntries(t *testing.T) {
	d := NewBehavioralDetector([]string{"want to die"}, zap.NewNop())
	assert.Nil(t, d.Scan(models.Snapshot{Timestamp: time.Now()}))
}
