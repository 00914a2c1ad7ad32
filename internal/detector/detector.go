// Package detector 提供异常检测功能
//
// 包含两个独立的检测器：
// - Detector：基于规则表的生命体征检测（加法置信度 / 最大严重程度策略）
// - BehavioralDetector：基于关键词的行为模式检测
//
// 两者产生的事件都提交到同一个 Escalation Controller 入口，
// "最多一个活跃会话"的不变式在控制器集中保证，不在检测器侧处理
package detector

import (
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// 事件发射阈值：总置信度必须严格大于该值
const emitThreshold = 30

// Detector 生命体征异常检测器
type Detector struct {
	rules  []rule
	logger *zap.Logger
}

// NewDetector 创建检测器（使用默认规则表）
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{
		rules:  defaultRules,
		logger: logger,
	}
}

// Detect 对快照运行规则表，返回紧急事件候选（无异常返回 nil）
//
// 策略（对原始工程中顺序敏感的 if 累加逻辑的显式化）：
// - 所有规则针对同一快照独立评估
// - 命中规则的置信度相加，上限 100
// - 症状按规则表顺序追加
// - 事件类型取单条置信度最高的规则的类型（并列取靠前者）
// - 严重程度取所有命中规则的最大值
// - shouldEscalate：最终严重程度为 critical，或任一命中规则显式要求升级
func (d *Detector) Detect(snapshot models.Snapshot) *models.EmergencyEvent {
	total := 0
	maxSeverity := models.SeverityLow
	var eventType models.EmergencyType
	topConfidence := 0
	var symptoms []string
	forceEscalate := false

	for _, r := range d.rules {
		result := r(snapshot)
		if result == nil {
			continue
		}

		total += result.confidence
		symptoms = append(symptoms, result.symptom)
		maxSeverity = models.MaxSeverity(maxSeverity, result.severity)
		if result.forceEscalate {
			forceEscalate = true
		}
		if result.confidence > topConfidence {
			topConfidence = result.confidence
			eventType = result.eventType
		}
	}

	if total <= emitThreshold {
		return nil
	}
	if total > 100 {
		total = 100
	}

	shouldEscalate := maxSeverity == models.SeverityCritical || forceEscalate

	event := &models.EmergencyEvent{
		Type:              eventType,
		Confidence:        total,
		Severity:          maxSeverity,
		Symptoms:          symptoms,
		RecommendedAction: recommendedAction(maxSeverity),
		ShouldEscalate:    shouldEscalate,
		Location:          snapshot.Location,
		DetectedAt:        time.Now(),
	}

	d.logger.Info("Anomaly detected",
		zap.String("type", string(event.Type)),
		zap.Int("confidence", event.Confidence),
		zap.String("severity", string(event.Severity)),
		zap.Strings("symptoms", event.Symptoms),
		zap.Bool("should_escalate", event.ShouldEscalate),
	)

	return event
}

// recommendedAction 根据最终严重程度给出建议动作
func recommendedAction(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "Call emergency services immediately"
	case models.SeverityHigh:
		return "Seek medical attention"
	default:
		return "Monitor closely"
	}
}
