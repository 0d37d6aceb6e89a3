package game

// TargetID 目标标识
type TargetID int

const (
	Top TargetID = iota
	Bottom
)

func (t TargetID) String() string {
	if t == Top {
		return "top"
	}
	return "bottom"
}

func (t TargetID) Other() TargetID { return 1 - t }

// Target 带收益的目标区域：内圈计分，外圈判定争夺
type Target struct {
	Location    Vec2
	Radius      float64
	OuterRadius float64
	Payoff      int
	Visited     bool
	Color       string
}

func newTarget(loc Vec2) *Target {
	return &Target{
		Location:    loc,
		Radius:      TargetRadius,
		OuterRadius: TargetRadius + TargetOuterPad,
		Payoff:      LittlePayoff,
		Color:       TargetIdle,
	}
}

// TargetSet 上下两个目标；每回合重置
type TargetSet struct {
	targets [2]*Target
	best    TargetID
}

// NewTargetSet 固定位置：上 (360,120)，下 (360,360)
func NewTargetSet() *TargetSet {
	return &TargetSet{targets: [2]*Target{
		Top:    newTarget(Vec2{X: 360, Y: 120}),
		Bottom: newTarget(Vec2{X: 360, Y: 360}),
	}}
}

func (ts *TargetSet) Get(id TargetID) *Target { return ts.targets[id] }

// Best 本回合收益较大的目标
func (ts *TargetSet) Best() TargetID { return ts.best }

// AllVisited 两个目标都已被访问
func (ts *TargetSet) AllVisited() bool {
	return ts.targets[Top].Visited && ts.targets[Bottom].Visited
}

// Reset 清除访问标记与颜色，并均匀随机地把大/小收益分配给上/下
func (ts *TargetSet) Reset(src Source, big, little int) {
	for _, t := range ts.targets {
		t.Visited = false
		t.Color = TargetIdle
	}
	if src.Float64() < 0.5 {
		ts.targets[Top].Payoff, ts.targets[Bottom].Payoff = little, big
		ts.best = Bottom
	} else {
		ts.targets[Top].Payoff, ts.targets[Bottom].Payoff = big, little
		ts.best = Top
	}
}

// ValidChoice 目的地是否落在任一目标中心附近（ballistic 模式的“已选定”）
func (ts *TargetSet) ValidChoice(dest *Vec2) bool {
	if dest == nil {
		return false
	}
	for _, t := range ts.targets {
		if Distance(*dest, t.Location) < ChoiceDistance {
			return true
		}
	}
	return false
}
