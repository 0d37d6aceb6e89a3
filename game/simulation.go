package game

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Condition 会话条件，创建时确定
type Condition string

const (
	Dynamic   Condition = "dynamic"
	Ballistic Condition = "ballistic"
)

// ParseCondition 解析查询参数中的条件
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case Dynamic, Ballistic:
		return Condition(s), nil
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

// Phase 回合状态机
type Phase int

const (
	PhaseWaiting    Phase = iota // 只有主机，等待加入者
	PhasePreRound                // 倒计时 / 选择目标
	PhaseActive                  // 回合进行中（可计分、写数据）
	PhaseRoundEnd                // 两个目标都已访问，停顿展示结果
	PhaseTerminated              // 回合数用尽
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePreRound:
		return "pre_round"
	case PhaseActive:
		return "active"
	case PhaseRoundEnd:
		return "round_end"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// Config 单个会话的模拟参数
type Config struct {
	Condition     Condition
	Speed         float64
	NoiseEnabled  bool
	NoiseSigma    float64
	Rounds        int
	Countdown     time.Duration
	RoundEndPause time.Duration
	BigPayoff     int
	LittlePayoff  int
}

func DefaultConfig() Config {
	return Config{
		Condition:     Dynamic,
		Speed:         DefaultSpeed,
		NoiseSigma:    DefaultNoiseSigma,
		Rounds:        DefaultRounds,
		Countdown:     DefaultCountdown,
		RoundEndPause: DefaultRoundEndPause,
		BigPayoff:     BigPayoff,
		LittlePayoff:  LittlePayoff,
	}
}

// Validate 检查参数组合；大小收益必须不同，否则每回合不再有唯一的大收益目标
func (c Config) Validate() error {
	var errs error
	if _, err := ParseCondition(string(c.Condition)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Speed < 0 {
		errs = multierr.Append(errs, fmt.Errorf("speed must not be negative, got %g", c.Speed))
	}
	if c.NoiseSigma < 0 {
		errs = multierr.Append(errs, fmt.Errorf("noise sigma must not be negative, got %g", c.NoiseSigma))
	}
	if c.Rounds <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rounds must be positive, got %d", c.Rounds))
	}
	if c.Countdown < 0 || c.RoundEndPause < 0 {
		errs = multierr.Append(errs, fmt.Errorf("countdown and round end pause must not be negative, got %s/%s", c.Countdown, c.RoundEndPause))
	}
	if c.BigPayoff == c.LittlePayoff {
		errs = multierr.Append(errs, fmt.Errorf("big and little payoff must differ, both %d", c.BigPayoff))
	}
	return errs
}

// NoticeKind 离散消息类型，由协议层编码
type NoticeKind int

const (
	NoticeRoundReset NoticeKind = iota
	NoticeStatus                // 持久状态文本
	NoticeFlash                 // 临时状态文本
	NoticeAngle                 // 对方朝向变化
	NoticeEnded                 // 会话结束
)

type Notice struct {
	To    Role
	Kind  NoticeKind
	Text  string
	Angle float64
}

// RoundResult 回合结束时双方累计得分（分），用于持久化收益
type RoundResult struct {
	Round  int
	Points [2]int
}

// TelemetryRow 回合进行中每 tick 每名玩家一行
type TelemetryRow struct {
	Round  int
	Tick   int
	Best   TargetID
	Role   Role
	X, Y   float64
	Angle  float64
	Points int
	Noise  float64
}

// Output 一次推进产生的全部外发结果，由会话循环取走
type Output struct {
	Notices   []Notice
	Rounds    []RoundResult
	Telemetry []TelemetryRow
	Finished  bool
}

// Kinematics 服务端模拟与客户端预测共享的只读接口
type Kinematics interface {
	Position(r Role) Vec2
	Heading(r Role) float64
}

// Simulation 单个会话的权威模拟；非并发安全，只由会话循环驱动
type Simulation struct {
	cfg     Config
	bounds  Bounds
	players [2]*PlayerState
	joined  bool
	targets *TargetSet
	src     Source
	noise   Sampler
	sched   Scheduler

	phase         Phase
	anglesVisible bool
	round         int
	tick          int
	roundEndArmed bool

	out Output
}

// NewSimulation noise 为 nil 时使用基于 src 的高斯采样
func NewSimulation(cfg Config, src Source, noise Sampler) *Simulation {
	if noise == nil {
		noise = NewGaussian(src, cfg.NoiseSigma, 0)
	}
	s := &Simulation{
		cfg:           cfg,
		bounds:        ArenaBounds(WorldWidth, WorldHeight, PlayerHalfExtent),
		players:       [2]*PlayerState{newPlayer(Host), newPlayer(Joiner)},
		targets:       NewTargetSet(),
		src:           src,
		noise:         noise,
		phase:         PhaseWaiting,
		anglesVisible: true,
		round:         1,
	}
	// 主机在等待期间即可自由移动
	s.players[Host].Speed = cfg.Speed
	return s
}

func (s *Simulation) Phase() Phase              { return s.phase }
func (s *Simulation) Round() int                { return s.round }
func (s *Simulation) Condition() Condition      { return s.cfg.Condition }
func (s *Simulation) Targets() *TargetSet       { return s.targets }
func (s *Simulation) Bounds() Bounds            { return s.bounds }
func (s *Simulation) Player(r Role) PlayerState { return *s.players[r] }
func (s *Simulation) Position(r Role) Vec2      { return s.players[r].Position }
func (s *Simulation) Heading(r Role) float64    { return s.players[r].Angle }

// NextEvent 下一个计划事件的会话时间
func (s *Simulation) NextEvent() (time.Duration, bool) { return s.sched.Next() }

// Flush 取走并清空累积的外发结果
func (s *Simulation) Flush() Output {
	out := s.out
	s.out = Output{}
	return out
}

// Join 第二名参与者加入，立即重置回合
func (s *Simulation) Join(now time.Duration) {
	if s.joined || s.phase == PhaseTerminated {
		return
	}
	s.joined = true
	s.startRound(now)
}

// Stop 取消所有计划事件
func (s *Simulation) Stop() { s.sched.Clear() }

// CanMove 该条件/阶段下是否接受移动命令
func (s *Simulation) CanMove() bool {
	switch {
	case s.phase == PhaseTerminated:
		return false
	case s.cfg.Condition == Ballistic:
		return s.phase == PhaseWaiting || s.phase == PhasePreRound
	}
	return true
}

// ApplyMove 只记录意图（朝向、目的地），位置与速度留给下一 tick
func (s *Simulation) ApplyMove(r Role, angle float64, dest Vec2) bool {
	if !s.present(r) || !s.CanMove() {
		return false
	}
	p := s.players[r]
	p.Angle = angle
	p.Destination = &dest
	p.rearm = true
	s.notify(r.Other(), Notice{Kind: NoticeAngle, Angle: angle})
	return true
}

// Advance 触发到期的计划事件
func (s *Simulation) Advance(now time.Duration) {
	for _, ev := range s.sched.Due(now) {
		switch ev {
		case EventGo:
			if s.phase == PhasePreRound {
				s.goActive()
			}
		case EventRoundReset:
			s.finishRound(now)
		}
	}
}

// Step 固定周期的权威更新
func (s *Simulation) Step(now time.Duration) {
	s.Advance(now)
	if s.phase == PhaseTerminated {
		return
	}
	wasActive := s.phase == PhaseActive

	for _, p := range s.activePlayers() {
		if p.rearm {
			p.rearm = false
			if s.phase == PhaseWaiting || s.phase == PhaseActive {
				p.Speed = s.cfg.Speed
			}
		}
		if p.Arrived() {
			p.Speed = 0
		}
	}

	for _, p := range s.activePlayers() {
		p.Noise = 0
		if s.cfg.NoiseEnabled && p.Speed != 0 && s.phase == PhaseActive {
			p.Noise = s.noise.Sample()
		}
	}

	for _, p := range s.activePlayers() {
		p.LastMove = p.Speed + p.Noise
		p.OldPosition = p.Position
		p.Position = s.bounds.Clamp(Step(p.Position, p.Angle, p.LastMove))
	}

	if s.phase == PhaseActive {
		s.checkForPayoff(Host, now)
		s.checkForPayoff(Joiner, now)
	}
	if s.phase == PhasePreRound && s.cfg.Condition == Ballistic && s.joined {
		s.checkChoices()
	}

	s.tick++
	if wasActive || s.phase == PhaseActive {
		s.recordTelemetry()
	}
}

// View 当前状态快照
func (s *Simulation) View() View {
	h, j := s.players[Host], s.players[Joiner]
	top, bottom := s.targets.Get(Top), s.targets.Get(Bottom)
	return View{
		HostPos:       h.Position,
		JoinerPos:     j.Position,
		HostPoints:    h.Points,
		JoinerPoints:  j.Points,
		HostMove:      h.LastMove,
		JoinerMove:    j.LastMove,
		TopColor:      top.Color,
		BottomColor:   bottom.Color,
		TopPayoff:     top.Payoff,
		BottomPayoff:  bottom.Payoff,
		Condition:     s.cfg.Condition,
		AnglesVisible: s.anglesVisible,
		Active:        s.phase == PhaseActive,
	}
}

// View 每 tick 广播给双方的权威状态
type View struct {
	HostPos       Vec2
	JoinerPos     Vec2
	HostPoints    int
	JoinerPoints  int
	HostMove      float64
	JoinerMove    float64
	TopColor      string
	BottomColor   string
	TopPayoff     int
	BottomPayoff  int
	Condition     Condition
	AnglesVisible bool
	Active        bool
}

func (s *Simulation) present(r Role) bool { return r == Host || s.joined }

func (s *Simulation) activePlayers() []*PlayerState {
	if s.joined {
		return s.players[:]
	}
	return s.players[:1]
}

func (s *Simulation) notify(to Role, n Notice) {
	if !s.present(to) {
		return
	}
	n.To = to
	s.out.Notices = append(s.out.Notices, n)
}

func (s *Simulation) notifyBoth(kind NoticeKind, text string) {
	s.notify(Host, Notice{Kind: kind, Text: text})
	s.notify(Joiner, Notice{Kind: kind, Text: text})
}

func (s *Simulation) setSpeeds(v float64) {
	for _, p := range s.players {
		p.Speed = v
	}
}

// startRound 回合重置：停下、清目的地、复位、随机收益，通知客户端开始倒计时
func (s *Simulation) startRound(now time.Duration) {
	s.phase = PhasePreRound
	s.anglesVisible = false
	s.setSpeeds(0)
	for _, p := range s.players {
		p.Destination = nil
		p.rearm = false
		p.resetPosition()
	}
	s.targets.Reset(s.src, s.cfg.BigPayoff, s.cfg.LittlePayoff)
	s.notifyBoth(NoticeRoundReset, "")
	if s.cfg.Condition == Dynamic {
		s.sched.Schedule(now+s.cfg.Countdown, EventGo)
	}
}

func (s *Simulation) goActive() {
	s.phase = PhaseActive
	s.anglesVisible = true
	s.setSpeeds(s.cfg.Speed)
	s.tick = 0
}

// finishRound 停顿结束：回合数用尽则终止，否则进入下一回合
func (s *Simulation) finishRound(now time.Duration) {
	if s.phase != PhaseRoundEnd {
		return
	}
	s.roundEndArmed = false
	if s.round >= s.cfg.Rounds {
		s.terminate()
		return
	}
	s.round++
	s.startRound(now)
}

func (s *Simulation) terminate() {
	s.phase = PhaseTerminated
	s.sched.Clear()
	s.setSpeeds(0)
	s.notifyBoth(NoticeEnded, "")
	s.out.Finished = true
}

func (s *Simulation) recordTelemetry() {
	for _, p := range s.activePlayers() {
		s.out.Telemetry = append(s.out.Telemetry, TelemetryRow{
			Round:  s.round,
			Tick:   s.tick,
			Best:   s.targets.Best(),
			Role:   p.Role,
			X:      p.Position.X,
			Y:      p.Position.Y,
			Angle:  NormalizeAngle(p.Angle),
			Points: p.Points,
			Noise:  Round(p.Noise, 2),
		})
	}
}
