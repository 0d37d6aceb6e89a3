package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pairarena/game"
	"pairarena/store"
)

const persistTimeout = 5 * time.Second

type persistJob struct {
	workerID string
	points   int
	batch    *store.TelemetryBatch
}

// Recorder 持久化工作协程：入队不阻塞（满则丢弃），失败只记日志，不影响 Tick
type Recorder struct {
	earnings  store.Earnings
	telemetry store.TelemetrySink

	mu      sync.RWMutex
	closed  bool
	jobs    chan persistJob
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder earnings/telemetry 可为 nil，表示不写该类数据
func NewRecorder(earnings store.Earnings, telemetry store.TelemetrySink, queue int) *Recorder {
	r := &Recorder{
		earnings:  earnings,
		telemetry: telemetry,
		jobs:      make(chan persistJob, queue),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// RecordEarnings 回合结束写入累计奖金
func (r *Recorder) RecordEarnings(workerID string, points int) {
	if r == nil || r.earnings == nil {
		return
	}
	r.enqueue(persistJob{workerID: workerID, points: points})
}

// RecordTelemetry 写入一个 tick 的遥测行
func (r *Recorder) RecordTelemetry(gameID string, cond game.Condition, rows []game.TelemetryRow) {
	if r == nil || r.telemetry == nil || len(rows) == 0 {
		return
	}
	batch := &store.TelemetryBatch{GameID: gameID, Condition: string(cond), Rows: make([]store.TelemetryRow, 0, len(rows))}
	for _, row := range rows {
		batch.Rows = append(batch.Rows, store.TelemetryRow{
			Round:      row.Round,
			Tick:       row.Tick,
			BestTarget: row.Best.String(),
			Role:       row.Role.String(),
			X:          row.X,
			Y:          row.Y,
			Angle:      row.Angle,
			Points:     row.Points,
			Noise:      row.Noise,
		})
	}
	r.enqueue(persistJob{batch: batch})
}

func (r *Recorder) enqueue(j persistJob) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.jobs <- j:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for j := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := r.write(ctx, j); err != nil {
			r.failed.Add(1)
			Log.Errorw("persistence write failed", "worker", j.workerID, "error", err)
		}
		cancel()
	}
}

func (r *Recorder) write(ctx context.Context, j persistJob) error {
	if j.batch != nil {
		return r.telemetry.AppendTelemetry(ctx, *j.batch)
	}
	return r.earnings.UpdateBonus(ctx, j.workerID, store.Bonus(j.points))
}

// Close 停止接收并写完已入队的数据
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Stats 丢弃与失败次数
func (r *Recorder) Stats() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	return map[string]any{
		"persist_dropped": r.dropped.Load(),
		"persist_failed":  r.failed.Load(),
	}
}
