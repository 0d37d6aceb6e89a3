package game

// Role 会话内的固定角色
type Role int

const (
	Host Role = iota
	Joiner
)

// String 与数据文件中的角色列一致
func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "other"
}

func (r Role) Other() Role { return 1 - r }

// PlayerState 单个参与者的运动与得分状态。
// Position/Points/Speed/Noise 只由 tick 写入；命令只写 Angle/Destination/rearm。
type PlayerState struct {
	Role        Role
	Position    Vec2
	OldPosition Vec2
	Angle       float64
	Destination *Vec2
	Speed       float64
	Noise       float64
	LastMove    float64 // 本 tick 的位移量（speed+noise）
	Points      int
	Color       string

	rearm bool // 有新的移动意图，下一 tick 决定是否恢复速度
}

func newPlayer(role Role) *PlayerState {
	p := &PlayerState{Role: role}
	p.resetPosition()
	if role == Host {
		p.Color = HostColor
	} else {
		p.Color = JoinerColor
	}
	return p
}

// resetPosition 主机在左侧朝右，加入者在右侧朝左
func (p *PlayerState) resetPosition() {
	if p.Role == Host {
		p.Position, p.Angle = HostStart, HostStartAngle
	} else {
		p.Position, p.Angle = JoinerStart, JoinerStartAngle
	}
}

// Arrived 已有目的地且距离小于停止阈值
func (p *PlayerState) Arrived() bool {
	return p.Destination != nil && Distance(p.Position, *p.Destination) < ArriveDistance
}
