package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// CSVSink 按 <dir>/<condition>/game_<id>.csv 追加遥测行
type CSVSink struct {
	dir string
	mu  sync.Mutex
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path 某会话的数据文件路径
func (c *CSVSink) Path(condition, gameID string) string {
	return filepath.Join(c.dir, condition, "game_"+gameID+".csv")
}

func (c *CSVSink) AppendTelemetry(_ context.Context, batch TelemetryBatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(batch.Condition, batch.GameID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	for _, r := range batch.Rows {
		_ = w.Write([]string{
			strconv.Itoa(r.Round),
			strconv.Itoa(r.Tick),
			r.BestTarget,
			r.Role,
			strconv.FormatFloat(r.X, 'f', -1, 64),
			strconv.FormatFloat(r.Y, 'f', -1, 64),
			strconv.FormatFloat(r.Angle, 'f', -1, 64),
			strconv.Itoa(r.Points),
			strconv.FormatFloat(r.Noise, 'f', 2, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (c *CSVSink) Close() error { return nil }
