package game

import (
	"sort"
	"time"
)

// EventKind 计划事件类型
type EventKind int

const (
	EventGo         EventKind = iota // dynamic 倒计时结束，回合开始
	EventRoundReset                  // 回合结束停顿后进入下一回合
)

type scheduled struct {
	at   time.Duration
	kind EventKind
}

// Scheduler 基于会话单调时钟的计划事件表，取代全局定时器；会话结束时整体丢弃
type Scheduler struct {
	events []scheduled
}

// Schedule 在会话时间 at 触发 kind
func (s *Scheduler) Schedule(at time.Duration, kind EventKind) {
	s.events = append(s.events, scheduled{at: at, kind: kind})
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].at < s.events[j].at })
}

// Due 取出所有 at <= now 的事件，按时间顺序
func (s *Scheduler) Due(now time.Duration) []EventKind {
	n := 0
	for n < len(s.events) && s.events[n].at <= now {
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]EventKind, n)
	for i := range n {
		out[i] = s.events[i].kind
	}
	s.events = s.events[n:]
	return out
}

// Next 最近一个待触发事件的时间
func (s *Scheduler) Next() (time.Duration, bool) {
	if len(s.events) == 0 {
		return 0, false
	}
	return s.events[0].at, true
}

func (s *Scheduler) Pending() int { return len(s.events) }

// Clear 取消全部事件
func (s *Scheduler) Clear() { s.events = nil }
