package server

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pairarena/game"
	"pairarena/protocol"
)

const testPeriod = 10 * time.Millisecond

type fakeConn struct {
	mu     sync.Mutex
	frames []string
	closed bool
}

func (c *fakeConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	c.frames = append(c.frames, string(b))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// texts 点分隔文本帧（不含 JSON 快照）
func (c *fakeConn) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		if !protocol.IsJSON([]byte(f)) {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) has(msg string) bool {
	for _, f := range c.texts() {
		if f == msg {
			return true
		}
	}
	return false
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = prev })
	return logs
}

func newTestRegistry(t *testing.T, mutate func(*game.Config)) *Registry {
	t.Helper()
	return newRecordingRegistry(t, mutate, nil)
}

func newRecordingRegistry(t *testing.T, mutate func(*game.Config), rec *Recorder) *Registry {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.Countdown = 30 * time.Millisecond
	cfg.RoundEndPause = 20 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	reg := NewRegistry(Options{
		Settings: Settings{Game: cfg, TickPeriod: testPeriod},
		Seed:     7,
		Recorder: rec,
	})
	t.Cleanup(reg.Shutdown)
	return reg
}

func newParticipant(id string) (*Participant, *fakeConn) {
	fc := &fakeConn{}
	return &Participant{ID: id, Conn: fc}, fc
}

func TestMatchmakingPairsTwoParticipants(t *testing.T) {
	reg := newTestRegistry(t, nil)

	alice, ac := newParticipant("alice")
	s1, role := reg.FindOrCreateSession(alice)
	if role != game.Host {
		t.Fatalf("first participant role = %v, want host", role)
	}
	if got := ac.texts(); len(got) == 0 || got[0] != protocol.MsgHost {
		t.Fatalf("host first message = %v, want %q", got, protocol.MsgHost)
	}

	bob, bc := newParticipant("bob")
	s2, role := reg.FindOrCreateSession(bob)
	if role != game.Joiner || s2 != s1 {
		t.Fatalf("second participant should join the open session, role=%v", role)
	}
	if reg.Count() != 1 {
		t.Fatalf("sessions = %d, want 1", reg.Count())
	}

	waitUntil(t, "join notice", func() bool { return bc.has("s.j.alice") })
	waitUntil(t, "round reset on both", func() bool { return ac.has(protocol.MsgRound) && bc.has(protocol.MsgRound) })

	info := reg.List()
	if len(info) != 1 || info[0].Participants != 2 || info[0].State != "active" {
		t.Fatalf("unexpected session info %+v", info)
	}

	carol, _ := newParticipant("carol")
	s3, role := reg.FindOrCreateSession(carol)
	if role != game.Host || s3 == s1 {
		t.Fatal("third participant should host a new session")
	}
	if reg.Count() != 2 {
		t.Fatalf("sessions = %d, want 2", reg.Count())
	}
}

func TestSnapshotsBroadcastEachTick(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, ac := newParticipant("alice")
	reg.FindOrCreateSession(alice)

	waitUntil(t, "snapshots", func() bool {
		ac.mu.Lock()
		defer ac.mu.Unlock()
		n := 0
		for _, f := range ac.frames {
			if _, ok, err := protocol.DecodeSnapshot([]byte(f)); protocol.IsJSON([]byte(f)) && err == nil && ok {
				n++
			}
		}
		return n >= 3
	})
}

func TestEndSessionNotifiesPeer(t *testing.T) {
	logs := observeLogs(t)
	reg := newTestRegistry(t, nil)

	alice, ac := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	waitUntil(t, "join notice", func() bool { return bc.has("s.j.alice") })

	reg.EndSession(s.ID, "bob")

	if !ac.has(protocol.MsgEnded) {
		t.Fatalf("remaining participant should get %q, got %v", protocol.MsgEnded, ac.texts())
	}
	if bc.has(protocol.MsgEnded) {
		t.Fatal("leaving participant should not get the end notice")
	}
	if reg.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", reg.Count())
	}
	if !ac.isClosed() || !bc.isClosed() {
		t.Fatal("both connections should be closed")
	}

	reg.EndSession(s.ID, "bob")
	if logs.FilterMessage("session not found").Len() != 1 {
		t.Fatalf("second teardown should log not found, got %v", logs.All())
	}
}

func TestEndSessionStopsTicks(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, _ := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	waitUntil(t, "first ticks", func() bool { return atomic.LoadInt64(&s.metrics.TickCount) >= 2 })

	reg.EndSession(s.ID, "alice")
	select {
	case <-s.done:
	default:
		t.Fatal("session loop still running after EndSession returned")
	}
	ticks := atomic.LoadInt64(&s.metrics.TickCount)
	time.Sleep(5 * testPeriod)
	if got := atomic.LoadInt64(&s.metrics.TickCount); got != ticks {
		t.Fatalf("ticks advanced after teardown: %d -> %d", ticks, got)
	}
}

func TestHostLeavingOpenSessionSendsNothing(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, ac := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)

	reg.EndSession(s.ID, "alice")
	if ac.has(protocol.MsgEnded) {
		t.Fatal("a lone host has no peer to notify")
	}
	if reg.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", reg.Count())
	}

	bob, _ := newParticipant("bob")
	if _, role := reg.FindOrCreateSession(bob); role != game.Host {
		t.Fatal("closed sessions must not be matched")
	}
}

func TestJoinerTakesHostCondition(t *testing.T) {
	logs := observeLogs(t)
	reg := newTestRegistry(t, nil)

	host, _ := newParticipant("alice")
	host.Condition = game.Ballistic
	s, _ := reg.FindOrCreateSession(host)
	if s.Condition != game.Ballistic {
		t.Fatalf("session condition = %q, want ballistic", s.Condition)
	}

	joiner, _ := newParticipant("bob")
	joiner.Condition = game.Dynamic
	if got, role := reg.FindOrCreateSession(joiner); got != s || role != game.Joiner {
		t.Fatal("mismatched condition should still pair with the first open session")
	}
	if logs.FilterMessageSnippet("condition mismatch").Len() != 1 {
		t.Fatal("expected a condition mismatch warning")
	}
}

func TestMovesAreCountedAndForwarded(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, _ := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	waitUntil(t, "round reset", func() bool { return bc.has(protocol.MsgRound) })

	s.Submit(game.Host, protocol.Move{Angle: 45, Dest: game.Vec2{X: 300, Y: 100}})
	waitUntil(t, "angle notice", func() bool { return bc.has("s.a.45") })
	waitUntil(t, "accepted count", func() bool { return atomic.LoadInt64(&s.metrics.CommandsAccepted) == 1 })
}

func TestRoundBudgetEndsSession(t *testing.T) {
	reg := newTestRegistry(t, func(c *game.Config) {
		c.Rounds = 1
		c.Speed = 200
	})
	alice, ac := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	waitUntil(t, "round reset", func() bool { return ac.has(protocol.MsgRound) })

	top := game.Vec2{X: 360, Y: 120}
	s.Submit(game.Host, protocol.Move{Angle: game.HeadingTo(game.HostStart, top), Dest: top})

	waitUntil(t, "session removed", func() bool { return reg.Count() == 0 })
	for name, c := range map[string]*fakeConn{"host": ac, "joiner": bc} {
		if !c.has(protocol.MsgEnded) {
			t.Fatalf("%s should be told the session ended, got %v", name, c.texts())
		}
		found := false
		for _, f := range c.texts() {
			if strings.HasPrefix(f, "s.m.You earned") {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s should see an earnings flash, got %v", name, c.texts())
		}
	}
}

func TestHostLeavingNotifiesJoiner(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, ac := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	carol, cc := newParticipant("carol")
	reg.FindOrCreateSession(carol)
	waitUntil(t, "join notice", func() bool { return bc.has("s.j.alice") })
	if reg.Count() != 2 {
		t.Fatalf("sessions = %d, want 2", reg.Count())
	}

	reg.EndSession(s.ID, "alice")

	if !bc.has(protocol.MsgEnded) {
		t.Fatalf("joiner should get %q, got %v", protocol.MsgEnded, bc.texts())
	}
	if ac.has(protocol.MsgEnded) {
		t.Fatal("leaving host should not get the end notice")
	}
	if reg.Count() != 1 {
		t.Fatalf("sessions = %d, want 1", reg.Count())
	}
	if cc.isClosed() || cc.has(protocol.MsgEnded) {
		t.Fatal("other sessions must be untouched")
	}
}

func TestShutdownNotifiesEveryone(t *testing.T) {
	reg := newTestRegistry(t, nil)
	alice, ac := newParticipant("alice")
	reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	carol, cc := newParticipant("carol")
	reg.FindOrCreateSession(carol)
	waitUntil(t, "join notice", func() bool { return bc.has("s.j.alice") })

	reg.Shutdown()

	for name, c := range map[string]*fakeConn{"host": ac, "joiner": bc, "lone host": cc} {
		if !c.has(protocol.MsgEnded) || !c.isClosed() {
			t.Fatalf("%s should be told the session ended before close, got %v", name, c.texts())
		}
	}
	if reg.Count() != 0 {
		t.Fatalf("sessions = %d, want 0", reg.Count())
	}
}

// winTopRound 主机直奔上目标，返回会话与双方连接
func winTopRound(t *testing.T, reg *Registry) (*Session, *fakeConn, *fakeConn) {
	t.Helper()
	alice, ac := newParticipant("alice")
	s, _ := reg.FindOrCreateSession(alice)
	bob, bc := newParticipant("bob")
	reg.FindOrCreateSession(bob)
	waitUntil(t, "round reset", func() bool { return ac.has(protocol.MsgRound) })

	top := game.Vec2{X: 360, Y: 120}
	s.Submit(game.Host, protocol.Move{Angle: game.HeadingTo(game.HostStart, top), Dest: top})
	waitUntil(t, "earnings flash", func() bool {
		for _, f := range ac.texts() {
			if strings.HasPrefix(f, "s.m.You earned") {
				return true
			}
		}
		return false
	})
	return s, ac, bc
}

func TestEarningsPersistedWhenPeerLeavesDuringPause(t *testing.T) {
	earn := &fakeEarnings{}
	rec := NewRecorder(earn, nil, 16)
	reg := newRecordingRegistry(t, func(c *game.Config) {
		c.Speed = 200
		c.RoundEndPause = time.Minute
	}, rec)

	s, _, _ := winTopRound(t, reg)
	reg.EndSession(s.ID, "bob")
	rec.Close()

	if earn.calls["alice"] != 1 || earn.calls["bob"] != 1 {
		t.Fatalf("bonus writes = %v, want one per participant", earn.calls)
	}
	if earn.bonuses["alice"].IsZero() {
		t.Fatal("winner's bonus should be written")
	}
}

func TestEarningsWrittenOncePerRound(t *testing.T) {
	earn := &fakeEarnings{}
	rec := NewRecorder(earn, nil, 16)
	reg := newRecordingRegistry(t, func(c *game.Config) {
		c.Speed = 200
		c.Rounds = 1
	}, rec)

	winTopRound(t, reg)
	waitUntil(t, "session removed", func() bool { return reg.Count() == 0 })
	rec.Close()

	if earn.calls["alice"] != 1 || earn.calls["bob"] != 1 {
		t.Fatalf("bonus writes = %v, want exactly one per participant for one round", earn.calls)
	}
	total := earn.bonuses["alice"].Add(earn.bonuses["bob"])
	if !total.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("bonuses = %v, want big+little = 0.05", earn.bonuses)
	}
}
