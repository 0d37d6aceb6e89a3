package server

import (
	"sync"
	"sync/atomic"
	"time"

	"pairarena/game"
	"pairarena/protocol"
)

// SessionState 会话生命周期
type SessionState int

const (
	SessionOpen   SessionState = iota // 只有主机
	SessionActive                     // 两人到齐
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionActive:
		return "active"
	}
	return "closed"
}

// Session 两名参与者共享一个模拟；模拟状态只由会话循环协程读写
type Session struct {
	ID        string
	Condition game.Condition
	CreatedAt time.Time

	// 以下由 Registry.mu 保护
	host   *Participant
	joiner *Participant
	count  int
	state  SessionState

	sim      *game.Simulation
	period   time.Duration
	inbox    chan command
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	finished atomic.Bool

	metrics    *SessionMetrics
	recorder   *Recorder
	onFinished func(id string)

	// 仅会话循环使用
	conns [2]*Participant
}

func newSession(id string, host *Participant, sim *game.Simulation, period time.Duration, rec *Recorder) *Session {
	s := &Session{
		ID:        id,
		Condition: sim.Condition(),
		CreatedAt: time.Now(),
		host:      host,
		count:     1,
		state:     SessionOpen,
		sim:       sim,
		period:    period,
		inbox:     make(chan command, 256), // 足够缓冲，避免网络读阻塞
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		metrics:   &SessionMetrics{},
		recorder:  rec,
	}
	s.conns[game.Host] = host
	return s
}

// Submit 入站移动意图（不阻塞），在会话循环中应用
func (s *Session) Submit(role game.Role, m protocol.Move) {
	select {
	case s.inbox <- moveCmd{role: role, move: m}:
	default:
		// 丢弃：为了实时性，避免背压影响世界推进
		s.metrics.IncChanFullDiscarded()
	}
}

// join 加入必须送达，除非会话已停止
func (s *Session) join(p *Participant) {
	select {
	case s.inbox <- joinCmd{p: p}:
	case <-s.quit:
	}
}

// stop 关闭循环并等待其退出；返回后不会再有 Tick
func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

// run 会话循环：入站命令随到随处理，Tick 按固定周期推进，计划事件由定时器按会话时钟触发
func (s *Session) run() {
	defer close(s.done)
	start := time.Now()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-s.quit:
			s.sim.Stop()
			return
		case cmd := <-s.inbox:
			s.handle(cmd, time.Since(start))
		case <-ticker.C:
			t0 := time.Now()
			s.tick(time.Since(start))
			s.metrics.AddTick(time.Since(t0).Nanoseconds())
		case <-timer.C:
			s.sim.Advance(time.Since(start))
			s.dispatch()
		}
		if next, ok := s.sim.NextEvent(); ok {
			timer.Reset(max(next-time.Since(start), 0))
		} else {
			timer.Stop()
		}
	}
}

func (s *Session) handle(cmd command, now time.Duration) {
	switch c := cmd.(type) {
	case joinCmd:
		s.conns[game.Joiner] = c.p
		s.send(c.p, []byte(protocol.Joined(s.conns[game.Host].ID)))
		s.sim.Join(now)
	case moveCmd:
		if s.sim.ApplyMove(c.role, c.move.Angle, c.move.Dest) {
			s.metrics.IncAccepted()
		} else {
			s.metrics.IncRejected()
		}
	}
	s.dispatch()
}

// tick 推进一步并广播快照
func (s *Session) tick(now time.Duration) {
	if s.sim.Phase() == game.PhaseTerminated {
		return
	}
	s.sim.Step(now)
	s.dispatch()
	b, err := protocol.EncodeSnapshot(s.sim.View())
	if err != nil {
		Log.Errorw("encode snapshot", "session", s.ID, "error", err)
		return
	}
	for _, p := range s.conns {
		s.send(p, b)
	}
}

// dispatch 取走模拟输出：通知发给对应参与者，收益与遥测交给持久化协程
func (s *Session) dispatch() {
	out := s.sim.Flush()
	for _, n := range out.Notices {
		s.send(s.conns[n.To], []byte(protocol.EncodeNotice(n)))
	}
	for _, res := range out.Rounds {
		for role, p := range s.conns {
			if p != nil {
				s.recorder.RecordEarnings(p.ID, res.Points[role])
			}
		}
		Log.Infow("round complete", "session", s.ID, "round", res.Round,
			"host_points", res.Points[game.Host], "joiner_points", res.Points[game.Joiner])
	}
	s.recorder.RecordTelemetry(s.ID, s.Condition, out.Telemetry)
	if out.Finished && s.finished.CompareAndSwap(false, true) {
		Log.Infow("round budget exhausted", "session", s.ID)
		if s.onFinished != nil {
			go s.onFinished(s.ID)
		}
	}
}

func (s *Session) send(p *Participant, b []byte) {
	if p == nil || p.Conn == nil {
		return
	}
	if err := p.Conn.Send(b); err != nil {
		s.metrics.IncSendFailures()
	}
}
