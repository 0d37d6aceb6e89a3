package server

import (
	"pairarena/game"
	"pairarena/protocol"
)

// command 投递到会话循环的入站消息，到达时间与处理时间解耦
type command interface{ isCommand() }

// joinCmd 第二名参与者加入
type joinCmd struct {
	p *Participant
}

// moveCmd 客户端移动意图
type moveCmd struct {
	role game.Role
	move protocol.Move
}

func (joinCmd) isCommand() {}
func (moveCmd) isCommand() {}
