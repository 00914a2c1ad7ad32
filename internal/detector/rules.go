package detector

import (
	"vital-guardian/internal/models"
)

// ruleResult 单条规则的命中结果
type ruleResult struct {
	confidence    int
	severity      models.Severity
	eventType     models.EmergencyType
	symptom       string
	forceEscalate bool
}

// rule 检测规则：针对同一快照独立评估，未命中返回 nil
// 规则可以带更严格的内层阈值（如心率严重异常），命中时提升置信度和严重程度
type rule func(s models.Snapshot) *ruleResult

// defaultRules 默认规则表（按固定顺序评估）
//
// 置信度策略：所有命中规则的置信度相加（上限 100）；
// 事件类型取单条置信度最高的规则的类型（并列时取表中靠前者）；
// 严重程度取所有命中规则中的最大值
var defaultRules = []rule{
	ruleHeartRate,
	ruleSpO2,
	ruleBloodPressure,
	ruleStressLevel,
	ruleMentalHealth,
	ruleRiskScore,
	ruleFall,
	ruleAudioDistress,
}

// ruleHeartRate 心率规则
// 正常范围 [50,120]；严重异常（<40 或 >160）直接判定 critical 并提高置信度
func ruleHeartRate(s models.Snapshot) *ruleResult {
	if s.Cardiac == nil || s.Cardiac.HeartRate == nil {
		return nil
	}
	hr := *s.Cardiac.HeartRate
	if hr < 40 || hr > 160 {
		return &ruleResult{
			confidence: 60,
			severity:   models.SeverityCritical,
			eventType:  models.EmergencyCardiac,
			symptom:    "severely abnormal heart rate",
		}
	}
	if hr < 50 || hr > 120 {
		return &ruleResult{
			confidence: 30,
			severity:   models.SeverityHigh,
			eventType:  models.EmergencyCardiac,
			symptom:    "abnormal heart rate",
		}
	}
	return nil
}

// ruleSpO2 血氧规则
// SpO2 < 95 异常；< 85 判定 critical 并强制升级
func ruleSpO2(s models.Snapshot) *ruleResult {
	if s.Breath == nil || s.Breath.SpO2 == nil {
		return nil
	}
	spo2 := *s.Breath.SpO2
	if spo2 < 85 {
		return &ruleResult{
			confidence:    70,
			severity:      models.SeverityCritical,
			eventType:     models.EmergencyRespiratory,
			symptom:       "severe hypoxemia",
			forceEscalate: true,
		}
	}
	if spo2 < 95 {
		return &ruleResult{
			confidence: 40,
			severity:   models.SeverityHigh,
			eventType:  models.EmergencyRespiratory,
			symptom:    "low blood oxygen",
		}
	}
	return nil
}

// ruleBloodPressure 血压规则（收缩压 >180 或 <90 异常；>220 判定 critical）
func ruleBloodPressure(s models.Snapshot) *ruleResult {
	if s.Cardiac == nil || s.Cardiac.Systolic == nil {
		return nil
	}
	sys := *s.Cardiac.Systolic
	if sys > 220 {
		return &ruleResult{
			confidence: 50,
			severity:   models.SeverityCritical,
			eventType:  models.EmergencyStroke,
			symptom:    "hypertensive crisis",
		}
	}
	if sys > 180 || sys < 90 {
		return &ruleResult{
			confidence: 25,
			severity:   models.SeverityMedium,
			eventType:  models.EmergencyCardiac,
			symptom:    "abnormal blood pressure",
		}
	}
	return nil
}

// ruleStressLevel 压力规则（压力水平 > 85）
func ruleStressLevel(s models.Snapshot) *ruleResult {
	if s.Stress == nil || s.Stress.StressLevel == nil {
		return nil
	}
	if *s.Stress.StressLevel > 85 {
		return &ruleResult{
			confidence: 20,
			severity:   models.SeverityMedium,
			eventType:  models.EmergencyMental,
			symptom:    "extreme stress",
		}
	}
	return nil
}

// ruleMentalHealth 心理健康规则（评分 < 20）
func ruleMentalHealth(s models.Snapshot) *ruleResult {
	if s.Stress == nil || s.Stress.MentalHealthScore == nil {
		return nil
	}
	if *s.Stress.MentalHealthScore < 20 {
		return &ruleResult{
			confidence: 35,
			severity:   models.SeverityHigh,
			eventType:  models.EmergencyMental,
			symptom:    "mental health crisis",
		}
	}
	return nil
}

// ruleRiskScore 综合风险规则（计算风险评分 > 80）
func ruleRiskScore(s models.Snapshot) *ruleResult {
	if s.Stress == nil || s.Stress.RiskScore == nil {
		return nil
	}
	if *s.Stress.RiskScore > 80 {
		return &ruleResult{
			confidence: 50,
			severity:   models.SeverityCritical,
			eventType:  models.EmergencyPhysical,
			symptom:    "critical overall risk",
		}
	}
	return nil
}

// ruleFall 跌倒规则（运动域报告跌倒）
func ruleFall(s models.Snapshot) *ruleResult {
	if s.Motion == nil || !s.Motion.FallDetected {
		return nil
	}
	return &ruleResult{
		confidence:    45,
		severity:      models.SeverityCritical,
		eventType:     models.EmergencyFall,
		symptom:       "fall detected",
		forceEscalate: true,
	}
}

// ruleAudioDistress 音频求救规则（环境音中检测到呼救）
func ruleAudioDistress(s models.Snapshot) *ruleResult {
	if s.Audio == nil || !s.Audio.DistressDetected {
		return nil
	}
	return &ruleResult{
		confidence: 20,
		severity:   models.SeverityMedium,
		eventType:  models.EmergencyMental,
		symptom:    "distress detected in audio",
	}
}
