package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestCSVSinkAppends(t *testing.T) {
	sink := NewCSVSink(t.TempDir())
	batch := TelemetryBatch{
		GameID:    "abc",
		Condition: "ballistic",
		Rows:      []TelemetryRow{{Round: 2, Tick: 7, BestTarget: "bottom", Role: "host", X: 1.5, Y: 2, Angle: 315, Points: 4, Noise: -1.234}},
	}
	for range 2 {
		if err := sink.AppendTelemetry(context.Background(), batch); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	b, err := os.ReadFile(sink.Path("ballistic", "abc"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0] != "2,7,bottom,host,1.5,2,315,4,-1.23" {
		t.Fatalf("line = %q", lines[0])
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) AppendTelemetry(context.Context, TelemetryBatch) error {
	return errors.New("disk full")
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestMultiSinkContinuesPastFailure(t *testing.T) {
	dir := t.TempDir()
	csvSink := NewCSVSink(dir)
	bad := &failingSink{}
	m := MultiSink{bad, csvSink}

	err := m.AppendTelemetry(context.Background(), TelemetryBatch{GameID: "g", Condition: "dynamic", Rows: []TelemetryRow{{Role: "host"}}})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(csvSink.Path("dynamic", "g")); statErr != nil {
		t.Fatalf("healthy sink should still be written: %v", statErr)
	}
	if err := m.Close(); err != nil || !bad.closed {
		t.Fatalf("close: err=%v closed=%v", err, bad.closed)
	}
}
