package sampler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"vital-guardian/internal/metrics"
	"vital-guardian/internal/models"
)

// fakeSensor 可编程的假传感器
type fakeSensor struct {
	domain models.SignalDomain
	err    error
	// errUntil > 0 时前 errUntil 次 Poll 返回 err，之后返回正常读数
	errUntil int64
	polls    int64
}

func (f *fakeSensor) Poll(ctx context.Context) (models.Reading, error) {
	n := atomic.AddInt64(&f.polls, 1)
	if f.err != nil && (f.errUntil == 0 || n <= f.errUntil) {
		return models.Reading{}, f.err
	}
	hr := 72
	return models.Reading{
		Domain:    f.domain,
		Cardiac:   &models.CardiacSample{HeartRate: &hr},
		Timestamp: time.Now(),
	}, nil
}

// blockingSensor Poll 阻塞直到 ctx 取消（模拟慢位置获取）
type blockingSensor struct {
	polls int64
}

func (b *blockingSensor) Poll(ctx context.Context) (models.Reading, error) {
	atomic.AddInt64(&b.polls, 1)
	<-ctx.Done()
	return models.Reading{}, ctx.Err()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRunnerIngestsReadings(t *testing.T) {
	store := metrics.NewStore(10, zap.NewNop())
	sensor := &fakeSensor{domain: models.DomainCardiac}
	runner := NewRunner([]Loop{
		{Domain: models.DomainCardiac, Sensor: sensor, Interval: 10 * time.Millisecond},
	}, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool {
		return store.Len(models.DomainCardiac) >= 3
	})

	cancel()
	<-done
}

func TestRunnerSkipsCycleWhenSensorUnavailable(t *testing.T) {
	store := metrics.NewStore(10, zap.NewNop())
	// 前 2 次不可用，之后恢复
	sensor := &fakeSensor{
		domain:   models.DomainCardiac,
		err:      models.ErrSensorUnavailable,
		errUntil: 2,
	}
	runner := NewRunner([]Loop{
		{Domain: models.DomainCardiac, Sensor: sensor, Interval: 10 * time.Millisecond},
	}, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// 不可用周期被跳过后循环继续，恢复后正常写入
	waitFor(t, 2*time.Second, func() bool {
		return store.Len(models.DomainCardiac) >= 1
	})
	assert.GreaterOrEqual(t, atomic.LoadInt64(&sensor.polls), int64(3))

	cancel()
	<-done
}

func TestRunnerDisablesDomainOnPermissionDenied(t *testing.T) {
	store := metrics.NewStore(10, zap.NewNop())
	denied := &fakeSensor{domain: models.DomainLocation, err: models.ErrPermissionDenied}
	healthy := &fakeSensor{domain: models.DomainCardiac}
	runner := NewRunner([]Loop{
		{Domain: models.DomainLocation, Sensor: denied, Interval: 10 * time.Millisecond},
		{Domain: models.DomainCardiac, Sensor: healthy, Interval: 10 * time.Millisecond},
	}, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// 被拒域停用后不再轮询，健康域不受影响继续采样
	waitFor(t, 2*time.Second, func() bool {
		return store.Len(models.DomainCardiac) >= 3
	})
	assert.Equal(t, int64(1), atomic.LoadInt64(&denied.polls))
	assert.Equal(t, 0, store.Len(models.DomainLocation))

	cancel()
	<-done
}

func TestRunnerTimesOutSlowPoll(t *testing.T) {
	store := metrics.NewStore(10, zap.NewNop())
	slow := &blockingSensor{}
	healthy := &fakeSensor{domain: models.DomainCardiac}
	runner := NewRunner([]Loop{
		{Domain: models.DomainLocation, Sensor: slow, Interval: 10 * time.Millisecond, Timeout: 20 * time.Millisecond},
		{Domain: models.DomainCardiac, Sensor: healthy, Interval: 10 * time.Millisecond},
	}, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// 慢轮询超时后循环继续（至少第二次轮询发生），且不阻塞其他域
	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadInt64(&slow.polls) >= 2 && store.Len(models.DomainCardiac) >= 2
	})
	assert.Equal(t, 0, store.Len(models.DomainLocation))

	cancel()
	<-done
}
