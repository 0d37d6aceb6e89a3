package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pairarena/game"
)

// 文本帧：点分隔的 ASCII 令牌
//
//	s.h.        你是主机
//	s.j.<id>    已加入，携带主机 id
//	s.n.        回合重置
//	s.e         会话结束
//	s.p.<text>  持久状态文本
//	s.m.<text>  临时状态文本（客户端 1s 后清除）
//	s.a.<deg>   对方朝向变化
//	s.alert     身份未被识别
//	c.<deg>.<x>.<y>  客户端移动意图
const (
	MsgHost      = "s.h."
	MsgRound     = "s.n."
	MsgEnded     = "s.e"
	MsgAlert     = "s.alert"
	prefixJoin   = "s.j."
	prefixStatus = "s.p."
	prefixFlash  = "s.m."
	prefixAngle  = "s.a."
	prefixMove   = "c"
)

// ErrMalformedCommand 入站命令格式不正确
var ErrMalformedCommand = errors.New("protocol: malformed command")

func Joined(hostID string) string { return prefixJoin + hostID }
func Status(text string) string   { return prefixStatus + text }
func Flash(text string) string    { return prefixFlash + text }
func Angle(deg float64) string    { return prefixAngle + formatNum(deg) }

// EncodeNotice 将模拟产生的离散通知编码为文本帧
func EncodeNotice(n game.Notice) string {
	switch n.Kind {
	case game.NoticeRoundReset:
		return MsgRound
	case game.NoticeStatus:
		return Status(n.Text)
	case game.NoticeFlash:
		return Flash(n.Text)
	case game.NoticeAngle:
		return Angle(n.Angle)
	case game.NoticeEnded:
		return MsgEnded
	}
	return ""
}

// Move 客户端点击产生的移动意图
type Move struct {
	Angle float64
	Dest  game.Vec2
}

// Encode c.<angle>.<x>.<y>；坐标与角度应为整数，否则会与分隔符冲突
func (m Move) Encode() string {
	return strings.Join([]string{prefixMove, formatNum(m.Angle), formatNum(m.Dest.X), formatNum(m.Dest.Y)}, ".")
}

// ParseMove 解析 c.<angle>.<x>.<y>。数值按原样接受（不裁剪），非数值或非有限值视为格式错误
func ParseMove(s string) (Move, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 || parts[0] != prefixMove {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedCommand, s)
	}
	var nums [3]float64
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Move{}, fmt.Errorf("%w: %q", ErrMalformedCommand, s)
		}
		nums[i] = v
	}
	return Move{Angle: nums[0], Dest: game.Vec2{X: nums[1], Y: nums[2]}}, nil
}

// ServerKind 客户端解析服务端文本帧后的类型
type ServerKind int

const (
	KindUnknown ServerKind = iota
	KindHost
	KindJoined
	KindRound
	KindEnded
	KindStatus
	KindFlash
	KindAngle
	KindAlert
)

// ServerMessage 解析后的服务端消息；Arg 为令牌之后的全部内容
type ServerMessage struct {
	Kind ServerKind
	Arg  string
}

// ParseServer 供客户端使用
func ParseServer(s string) ServerMessage {
	switch {
	case s == MsgHost:
		return ServerMessage{Kind: KindHost}
	case s == MsgRound:
		return ServerMessage{Kind: KindRound}
	case s == MsgEnded:
		return ServerMessage{Kind: KindEnded}
	case s == MsgAlert:
		return ServerMessage{Kind: KindAlert}
	case strings.HasPrefix(s, prefixJoin):
		return ServerMessage{Kind: KindJoined, Arg: s[len(prefixJoin):]}
	case strings.HasPrefix(s, prefixStatus):
		return ServerMessage{Kind: KindStatus, Arg: s[len(prefixStatus):]}
	case strings.HasPrefix(s, prefixFlash):
		return ServerMessage{Kind: KindFlash, Arg: s[len(prefixFlash):]}
	case strings.HasPrefix(s, prefixAngle):
		return ServerMessage{Kind: KindAngle, Arg: s[len(prefixAngle):]}
	}
	return ServerMessage{Kind: KindUnknown, Arg: s}
}

func formatNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
