package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/cache"
	"vital-guardian/internal/escalation"
	"vital-guardian/internal/insight"
	"vital-guardian/internal/metrics"
	"vital-guardian/internal/models"
	"vital-guardian/internal/report"
	"vital-guardian/internal/repository"
)

// 报表导出包含的审计记录上限
const reportAuditLimit = 200

// GuardianHandler 守护引擎 HTTP 处理器
type GuardianHandler struct {
	store       *metrics.Store
	controller  *escalation.Controller
	statusCache *cache.StatusCache
	aggregator  *insight.Aggregator
	eventsRepo  *repository.EmergencyEventsRepository
	auditRepo   *repository.AuditRepository
	logger      *zap.Logger
}

// NewGuardianHandler 创建处理器
func NewGuardianHandler(
	store *metrics.Store,
	controller *escalation.Controller,
	statusCache *cache.StatusCache,
	aggregator *insight.Aggregator,
	eventsRepo *repository.EmergencyEventsRepository,
	auditRepo *repository.AuditRepository,
	logger *zap.Logger,
) *GuardianHandler {
	return &GuardianHandler{
		store:       store,
		controller:  controller,
		statusCache: statusCache,
		aggregator:  aggregator,
		eventsRepo:  eventsRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// GetStatus 返回最新融合快照和活跃会话
func (h *GuardianHandler) GetStatus(w http.ResponseWriter, req *http.Request) {
	snapshot := h.store.FusedSnapshot(0)

	var active *models.EscalationSession
	if session := h.controller.Active(); session != nil {
		active = session
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"snapshot":     snapshot,
		"activeAlert":  active,
		"monitoringOn": true,
	}))
}

// GetInsight 返回健康洞察
func (h *GuardianHandler) GetInsight(w http.ResponseWriter, req *http.Request) {
	snapshot := h.store.FusedSnapshot(0)

	activeConfidence := 0
	if session := h.controller.Active(); session != nil {
		activeConfidence = session.Event.Confidence
	}

	result := h.aggregator.Analyze(snapshot, activeConfidence)
	writeJSON(w, http.StatusOK, Ok(result))
}

// ListEvents 返回历史紧急事件（分页）
func (h *GuardianHandler) ListEvents(w http.ResponseWriter, req *http.Request) {
	page := parseInt(req.URL.Query().Get("page"), 1)
	size := parseInt(req.URL.Query().Get("size"), 20)

	events, total, err := h.eventsRepo.ListEvents(req.Context(), page, size)
	if err != nil {
		h.logger.Error("Failed to list events",
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": events,
		"total": total,
		"page":  page,
		"size":  size,
	}))
}

// TriggerEmergency 手动触发紧急事件
func (h *GuardianHandler) TriggerEmergency(w http.ResponseWriter, req *http.Request) {
	sessionID, err := h.controller.TriggerManual(req.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"sessionId": sessionID,
	}))
}

// ConfirmEmergency 用户确认当前待确认的事件
func (h *GuardianHandler) ConfirmEmergency(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.Confirm(req.Context()); err != nil {
		if errors.Is(err, models.ErrNoActiveSession) {
			writeJSON(w, http.StatusOK, Fail("no active session"))
			return
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	// 确认触发的调度已完成，刷新告警镜像（会话终态则清除，避免残留 suspected 状态）
	h.refreshAlertMirror(req)

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"confirmed": true,
	}))
}

// refreshAlertMirror 将告警缓存与当前活跃会话对齐
func (h *GuardianHandler) refreshAlertMirror(req *http.Request) {
	if active := h.controller.Active(); active != nil {
		if err := h.statusCache.SetActiveAlert(req.Context(), *active); err != nil {
			h.logger.Error("Failed to refresh alert cache",
				zap.Error(err),
			)
		}
		return
	}
	if err := h.statusCache.ClearActiveAlert(req.Context()); err != nil {
		h.logger.Error("Failed to clear alert cache",
			zap.Error(err),
		)
	}
}

// DismissEmergency 用户驳回当前待确认的事件
// 宽限期定时器已开始调度时驳回被拒绝
func (h *GuardianHandler) DismissEmergency(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.Dismiss(req.Context()); err != nil {
		switch {
		case errors.Is(err, models.ErrNoActiveSession):
			writeJSON(w, http.StatusOK, Fail("no active session"))
		case errors.Is(err, models.ErrSessionNotCancellable):
			writeJSON(w, http.StatusOK, Fail("session is no longer cancellable, escalation proceeds"))
		default:
			writeJSON(w, http.StatusOK, Fail(err.Error()))
		}
		return
	}

	// 驳回后清除告警缓存
	if err := h.statusCache.ClearActiveAlert(req.Context()); err != nil {
		h.logger.Error("Failed to clear alert cache after dismiss",
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"dismissed": true,
	}))
}

// ExportReport 导出健康报表（xlsx）
func (h *GuardianHandler) ExportReport(w http.ResponseWriter, req *http.Request) {
	snapshot := h.store.FusedSnapshot(0)

	activeConfidence := 0
	if session := h.controller.Active(); session != nil {
		activeConfidence = session.Event.Confidence
	}
	healthInsight := h.aggregator.Analyze(snapshot, activeConfidence)

	events, _, err := h.eventsRepo.ListEvents(req.Context(), 1, 100)
	if err != nil {
		h.logger.Error("Failed to load events for report",
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	audit, err := h.auditRepo.ListRecent(req.Context(), reportAuditLimit)
	if err != nil {
		h.logger.Error("Failed to load audit records for report",
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	data, err := report.GenerateHealthReport(healthInsight, events, audit)
	if err != nil {
		h.logger.Error("Failed to generate report",
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	filename := fmt.Sprintf("health-report-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
