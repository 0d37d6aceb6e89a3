package game

import "time"

// 世界与玩法常量（未被 Config 覆盖时使用）
const (
	WorldWidth  = 720.0
	WorldHeight = 480.0

	PlayerHalfExtent = 8.0 // 玩家方块半边长，用于边界与命中判定
	ArriveDistance   = 8.0 // 距目的地小于该值即停下
	ChoiceDistance   = 10.0

	TargetRadius     = 10.0
	TargetOuterPad   = 35.0 // outer_radius = radius + pad
	BigPayoff        = 4
	LittlePayoff     = 1
	PositionDecimals = 4

	DefaultSpeed      = 10.0
	DefaultNoiseSigma = 4.0
	DefaultRounds     = 50

	DefaultTickPeriod    = 666 * time.Millisecond
	DefaultCountdown     = 3000 * time.Millisecond
	DefaultRoundEndPause = 1500 * time.Millisecond
)

// 颜色仅供渲染使用
const (
	HostColor    = "#2288cc"
	JoinerColor  = "#cc0000"
	TargetIdle   = "white"
	TargetTieRef = "black"
)

var (
	HostStart   = Vec2{X: 180, Y: 240}
	JoinerStart = Vec2{X: 540, Y: 240}
)

const (
	HostStartAngle   = 90.0
	JoinerStartAngle = 270.0
)
