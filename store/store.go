package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrParticipantNotFound 参与者未登记
var ErrParticipantNotFound = errors.New("store: participant not found")

// Participants 身份校验：只有已登记的 worker 可以进入匹配
type Participants interface {
	ParticipantExists(ctx context.Context, workerID string) (bool, error)
}

// Earnings 每回合结束写入累计奖金
type Earnings interface {
	UpdateBonus(ctx context.Context, workerID string, bonus decimal.Decimal) error
}

// TelemetrySink 回合进行中的逐 tick 数据
type TelemetrySink interface {
	AppendTelemetry(ctx context.Context, batch TelemetryBatch) error
	Close() error
}

// TelemetryRow 一名玩家在一个 tick 的记录
type TelemetryRow struct {
	Round      int
	Tick       int
	BestTarget string
	Role       string
	X, Y       float64
	Angle      float64
	Points     int
	Noise      float64
}

// TelemetryBatch 同一会话同一 tick 的若干行
type TelemetryBatch struct {
	GameID    string
	Condition string
	Rows      []TelemetryRow
}

// Bonus 得分（分）换算为金额：points/100
func Bonus(points int) decimal.Decimal {
	return decimal.New(int64(points), -2)
}

// FormatBonus 保留两位小数，与 bonus_pay 列一致
func FormatBonus(bonus decimal.Decimal) string {
	return bonus.StringFixed(2)
}
