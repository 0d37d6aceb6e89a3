package server

import (
	"errors"

	"pairarena/game"
)

var (
	ErrConnClosed    = errors.New("server: connection closed")
	ErrSendQueueFull = errors.New("server: send queue full")
)

// Conn 参与者连接的发送端；测试中用假连接替换
type Conn interface {
	Send([]byte) error
	Close() error
}

// Participant 参与者身份与连接，由 Registry 持有，不在连接对象上附加字段
type Participant struct {
	ID        string
	Conn      Conn
	Condition game.Condition
}

func (p *Participant) sendText(s string) error {
	if p == nil || p.Conn == nil {
		return ErrConnClosed
	}
	return p.Conn.Send([]byte(s))
}
