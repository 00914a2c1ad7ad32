package detector

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/models"
)

// 行为模式事件的固定参数（命中即产生，不做加法累积）
const behavioralConfidence = 60

// BehavioralDetector 行为模式检测器
// 扫描近期文本/活动条目中的配置关键词，命中产生一个固定参数的 mental 事件
type BehavioralDetector struct {
	keywords []string
	logger   *zap.Logger
}

// NewBehavioralDetector 创建行为模式检测器
// keywords: 关键词列表（匹配时不区分大小写）
func NewBehavioralDetector(keywords []string, logger *zap.Logger) *BehavioralDetector {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &BehavioralDetector{
		keywords: lowered,
		logger:   logger,
	}
}

// Scan 扫描快照中的行为条目，命中关键词时返回事件（否则返回 nil）
func (d *BehavioralDetector) Scan(snapshot models.Snapshot) *models.EmergencyEvent {
	for _, entry := range snapshot.Behavioral {
		lowered := strings.ToLower(entry)
		for _, keyword := range d.keywords {
			if !strings.Contains(lowered, keyword) {
				continue
			}

			d.logger.Info("Behavioral pattern matched",
				zap.String("keyword", keyword),
			)

			return &models.EmergencyEvent{
				Type:              models.EmergencyMental,
				Confidence:        behavioralConfidence,
				Severity:          models.SeverityMedium,
				Symptoms:          []string{"concerning language pattern"},
				RecommendedAction: "Reach out and check in",
				ShouldEscalate:    false,
				Location:          snapshot.Location,
				DetectedAt:        time.Now(),
			}
		}
	}
	return nil
}
