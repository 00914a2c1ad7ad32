package escalation

import (
	"sync"
	"time"
)

// graceTimer 可取消的一次性宽限期定时器
//
// 取消与触发互斥：二者竞争同一把锁，取消成功则回调变为空操作；
// 回调已经开始执行则取消被拒绝（会话不再可取消）
type graceTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	cancelled bool
}

// startGraceTimer 启动定时器，到期执行 fn（除非先被取消）
func startGraceTimer(d time.Duration, fn func()) *graceTimer {
	g := &graceTimer{}
	g.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		if g.cancelled {
			g.mu.Unlock()
			return
		}
		g.fired = true
		g.mu.Unlock()
		fn()
	})
	return g
}

// Cancel 尝试取消定时器
// 返回 false 表示回调已开始执行，取消被拒绝；重复取消是幂等的
func (g *graceTimer) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fired {
		return false
	}
	if g.cancelled {
		return true
	}
	g.cancelled = true
	g.timer.Stop()
	return true
}
