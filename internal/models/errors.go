package models

import (
	"errors"
)

// 组件边界错误分类
// 采样循环根据错误类型决定：跳过本轮（SensorUnavailable）还是永久停用该域（PermissionDenied）
var (
	// ErrSensorUnavailable 传感器暂时不可用，跳过本轮采样，其他域不受影响
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrPermissionDenied 权限被拒，永久停用该域的采样循环
	ErrPermissionDenied = errors.New("sensor permission denied")

	// ErrDispatchFailed 调度失败，降级为人工指引 + 联系人列表，告警不丢弃
	ErrDispatchFailed = errors.New("emergency dispatch failed")

	// ErrSessionNotCancellable 定时器已开始调度，取消被拒绝（fail-safe：按已升级处理）
	ErrSessionNotCancellable = errors.New("session no longer cancellable")

	// ErrNoActiveSession 当前没有活跃的升级会话
	ErrNoActiveSession = errors.New("no active escalation session")
)
