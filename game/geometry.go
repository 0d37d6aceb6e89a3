package game

import "math"

// Vec2 二维坐标/向量
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Distance 两点欧氏距离
func Distance(a, b Vec2) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Polar 以极坐标构造位移：r 为长度，theta 为弧度
func Polar(r, theta float64) Vec2 {
	return Vec2{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// HeadingRadians 将朝向角（度，0 表示朝上，顺时针）转换为弧度
func HeadingRadians(deg float64) float64 {
	return (deg - 90) * math.Pi / 180
}

// HeadingTo 计算从 from 指向 to 的朝向角（度），与客户端点击时的算法一致
func HeadingTo(from, to Vec2) float64 {
	return math.Round(math.Atan2(to.Y-from.Y, to.X-from.X)*180/math.Pi + 90)
}

// Round 四舍五入到 n 位小数
func Round(x float64, n int) float64 {
	p := math.Pow(10, float64(n))
	return math.Round(x*p) / p
}

// Bounds 玩家可活动的矩形区域
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// ArenaBounds 由世界尺寸与玩家半边长得到内部矩形
func ArenaBounds(width, height, half float64) Bounds {
	return Bounds{MinX: half, MaxX: width - half, MinY: half, MaxY: height - half}
}

// Clamp 越界即钉在边界上（不反弹），并固定小数位
func (b Bounds) Clamp(p Vec2) Vec2 {
	p.X = math.Min(math.Max(p.X, b.MinX), b.MaxX)
	p.Y = math.Min(math.Max(p.Y, b.MinY), b.MaxY)
	return Vec2{X: Round(p.X, PositionDecimals), Y: Round(p.Y, PositionDecimals)}
}

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Step 沿朝向移动 dist，返回新位置（未裁剪）
func Step(pos Vec2, headingDeg, dist float64) Vec2 {
	return pos.Add(Polar(dist, HeadingRadians(headingDeg)))
}

// NormalizeAngle 负角度按整数部分加 360 修正，用于数据记录
func NormalizeAngle(deg float64) float64 {
	if deg < 0 {
		return math.Trunc(deg) + 360
	}
	return deg
}
