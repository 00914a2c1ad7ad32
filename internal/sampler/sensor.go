package sampler

import (
	"context"

	"vital-guardian/internal/models"
)

// Sensor 传感器适配器（每个信号域注入一个）
// 引擎不关心数据来自真实硬件、模拟生成器还是远程数据源
//
// 错误约定：
// - models.ErrSensorUnavailable：本轮跳过，下一轮继续
// - models.ErrPermissionDenied：该域的采样循环被永久停用
type Sensor interface {
	Poll(ctx context.Context) (models.Reading, error)
}
