package protocol

import (
	"encoding/json"

	"pairarena/game"
)

const (
	TypeState     = "state"
	TypeConnected = "connected"
)

// Snapshot 每 tick 发给双方的结构化状态（JSON 文本帧）
type Snapshot struct {
	Type string    `json:"type"`
	HPos game.Vec2 `json:"hpos"` // 主机位置
	CPos game.Vec2 `json:"cpos"` // 加入者位置
	HPoi int       `json:"hpoi"`
	CPoi int       `json:"cpoi"`
	HCdm float64   `json:"hcdm"` // 本 tick 位移量
	CCdm float64   `json:"ccdm"`
	TCC  string    `json:"tcc"` // 上目标颜色
	BCC  string    `json:"bcc"`
	TCP  int       `json:"tcp"` // 上目标收益
	BCP  int       `json:"bcp"`
	Cond string    `json:"cond"`
	DE   bool      `json:"de"`  // 是否显示朝向
	G2W  bool      `json:"g2w"` // 回合进行中
}

// Connected 连接被接受后的第一帧
type Connected struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func NewSnapshot(v game.View) Snapshot {
	return Snapshot{
		Type: TypeState,
		HPos: v.HostPos,
		CPos: v.JoinerPos,
		HPoi: v.HostPoints,
		CPoi: v.JoinerPoints,
		HCdm: v.HostMove,
		CCdm: v.JoinerMove,
		TCC:  v.TopColor,
		BCC:  v.BottomColor,
		TCP:  v.TopPayoff,
		BCP:  v.BottomPayoff,
		Cond: string(v.Condition),
		DE:   v.AnglesVisible,
		G2W:  v.Active,
	}
}

// View 客户端侧还原为模拟视图
func (s Snapshot) View() game.View {
	return game.View{
		HostPos:       s.HPos,
		JoinerPos:     s.CPos,
		HostPoints:    s.HPoi,
		JoinerPoints:  s.CPoi,
		HostMove:      s.HCdm,
		JoinerMove:    s.CCdm,
		TopColor:      s.TCC,
		BottomColor:   s.BCC,
		TopPayoff:     s.TCP,
		BottomPayoff:  s.BCP,
		Condition:     game.Condition(s.Cond),
		AnglesVisible: s.DE,
		Active:        s.G2W,
	}
}

func EncodeSnapshot(v game.View) ([]byte, error) {
	return json.Marshal(NewSnapshot(v))
}

func EncodeConnected(id string) ([]byte, error) {
	return json.Marshal(Connected{Type: TypeConnected, ID: id})
}

// IsJSON 区分结构化帧与点分隔文本帧
func IsJSON(b []byte) bool { return len(b) > 0 && b[0] == '{' }

// DecodeSnapshot 非 state 类型返回 ok=false
func DecodeSnapshot(b []byte) (Snapshot, bool, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, false, err
	}
	return s, s.Type == TypeState, nil
}
