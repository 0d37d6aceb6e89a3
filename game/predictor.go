package game

import "time"

// Predictor 客户端侧的运动预测：两次快照之间按上次位移量沿朝向插值。
// 结果只用于显示，下一次快照到达后全部被覆盖。
type Predictor struct {
	bounds  Bounds
	period  time.Duration
	base    [2]Vec2
	pos     [2]Vec2
	heading [2]float64
	move    [2]float64
}

func NewPredictor(period time.Duration) *Predictor {
	p := &Predictor{
		bounds: ArenaBounds(WorldWidth, WorldHeight, PlayerHalfExtent),
		period: period,
	}
	p.base = [2]Vec2{HostStart, JoinerStart}
	p.pos = p.base
	p.heading = [2]float64{HostStartAngle, JoinerStartAngle}
	return p
}

// Apply 用权威快照覆盖本地状态
func (p *Predictor) Apply(v View) {
	p.base = [2]Vec2{v.HostPos, v.JoinerPos}
	p.pos = p.base
	p.move = [2]float64{v.HostMove, v.JoinerMove}
}

// SetHeading 本地点击或收到对方朝向通知
func (p *Predictor) SetHeading(r Role, deg float64) { p.heading[r] = deg }

// Advance 以距上次快照的时间推算位置，超过一个 tick 不再外推
func (p *Predictor) Advance(elapsed time.Duration) {
	frac := 1.0
	if p.period > 0 && elapsed < p.period {
		frac = float64(elapsed) / float64(p.period)
	}
	for r := range p.pos {
		p.pos[r] = p.bounds.Clamp(Step(p.base[r], p.heading[r], p.move[r]*frac))
	}
}

func (p *Predictor) Position(r Role) Vec2   { return p.pos[r] }
func (p *Predictor) Heading(r Role) float64 { return p.heading[r] }

var (
	_ Kinematics = (*Simulation)(nil)
	_ Kinematics = (*Predictor)(nil)
)
