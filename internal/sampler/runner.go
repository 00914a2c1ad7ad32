// Package sampler 提供各信号域的独立采样循环
//
// 每个域一个 goroutine，互不阻塞：慢采样（如位置获取）受超时约束，
// 超时后本轮跳过，不阻塞检测。错误按分类处理：
// SensorUnavailable 跳过本轮；PermissionDenied 永久停用该域，其他域继续
package sampler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vital-guardian/internal/metrics"
	"vital-guardian/internal/models"
)

// Loop 单个信号域的采样循环配置
type Loop struct {
	Domain   models.SignalDomain
	Sensor   Sensor
	Interval time.Duration
	// Timeout > 0 时每次 Poll 受该超时约束（位置域必须设置）
	Timeout time.Duration
}

// Runner 采样循环运行器
type Runner struct {
	loops  []Loop
	store  *metrics.Store
	logger *zap.Logger
}

// NewRunner 创建运行器
func NewRunner(loops []Loop, store *metrics.Store, logger *zap.Logger) *Runner {
	return &Runner{
		loops:  loops,
		store:  store,
		logger: logger,
	}
}

// Run 启动所有采样循环（每个域一个 goroutine），阻塞直到 ctx 取消
func (r *Runner) Run(ctx context.Context) {
	done := make(chan struct{})
	for _, loop := range r.loops {
		go func(loop Loop) {
			r.runLoop(ctx, loop)
			done <- struct{}{}
		}(loop)
	}

	for range r.loops {
		<-done
	}
}

// runLoop 单个域的采样循环
func (r *Runner) runLoop(ctx context.Context, loop Loop) {
	r.logger.Info("Sampling loop started",
		zap.String("domain", string(loop.Domain)),
		zap.Duration("interval", loop.Interval),
	)

	ticker := time.NewTicker(loop.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Sampling loop stopped",
				zap.String("domain", string(loop.Domain)),
			)
			return
		case <-ticker.C:
			if !r.pollOnce(ctx, loop) {
				// 权限被拒：永久停用该域，其他域继续
				return
			}
		}
	}
}

// pollOnce 执行一次采样，返回 false 表示该域被永久停用
func (r *Runner) pollOnce(ctx context.Context, loop Loop) bool {
	pollCtx := ctx
	if loop.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, loop.Timeout)
		defer cancel()
	}

	reading, err := loop.Sensor.Poll(pollCtx)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPermissionDenied):
			r.logger.Warn("Sensor permission denied, disabling domain",
				zap.String("domain", string(loop.Domain)),
			)
			return false
		case errors.Is(err, models.ErrSensorUnavailable):
			r.logger.Debug("Sensor unavailable, skipping cycle",
				zap.String("domain", string(loop.Domain)),
			)
		case errors.Is(err, context.DeadlineExceeded):
			// 超时：本轮该域无数据，不阻塞其他域
			r.logger.Warn("Sensor poll timed out, skipping cycle",
				zap.String("domain", string(loop.Domain)),
			)
		case errors.Is(err, context.Canceled):
			// 正常关闭
		default:
			r.logger.Error("Sensor poll failed, skipping cycle",
				zap.String("domain", string(loop.Domain)),
				zap.Error(err),
			)
		}
		return true
	}

	r.store.Ingest(reading)
	return true
}
