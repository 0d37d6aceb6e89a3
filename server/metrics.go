package server

import (
	"sync/atomic"
)

// SessionMetrics 记录会话运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	CommandsAccepted  int64 // 被接受的移动命令
	CommandsRejected  int64 // 当前阶段不允许移动而被拒绝
	Malformed         int64 // 格式错误的命令
	ChanFullDiscarded int64 // 因入站通道满被丢弃
	SendFailures      int64 // 发送到连接失败（队列满或已关闭）
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncAccepted()          { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *SessionMetrics) IncRejected()          { atomic.AddInt64(&m.CommandsRejected, 1) }
func (m *SessionMetrics) IncMalformed()         { atomic.AddInt64(&m.Malformed, 1) }
func (m *SessionMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *SessionMetrics) IncSendFailures()      { atomic.AddInt64(&m.SendFailures, 1) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"commands_accepted":   atomic.LoadInt64(&m.CommandsAccepted),
		"commands_rejected":   atomic.LoadInt64(&m.CommandsRejected),
		"malformed":           atomic.LoadInt64(&m.Malformed),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"send_failures":       atomic.LoadInt64(&m.SendFailures),
		"avg_tick_ms":         avgMs,
	}
}
