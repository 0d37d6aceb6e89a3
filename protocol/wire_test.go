package protocol

import (
	"errors"
	"testing"

	"pairarena/game"
)

func TestParseMove(t *testing.T) {
	m, err := ParseMove("c.-45.360.120")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Angle != -45 || m.Dest != (game.Vec2{X: 360, Y: 120}) {
		t.Fatalf("move = %+v", m)
	}
	if m.Encode() != "c.-45.360.120" {
		t.Fatalf("encode = %q", m.Encode())
	}
}

func TestParseMoveAcceptsOutOfArena(t *testing.T) {
	m, err := ParseMove("c.90.-500.9000")
	if err != nil {
		t.Fatalf("out-of-arena destinations are accepted as sent: %v", err)
	}
	if m.Dest.X != -500 || m.Dest.Y != 9000 {
		t.Fatalf("dest = %v", m.Dest)
	}
}

func TestParseMoveMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"c",
		"c.90.1",
		"c.90.1.2.3",
		"x.90.1.2",
		"c.ninety.1.2",
		"c.NaN.1.2",
		"c.90.Inf.2",
	} {
		if _, err := ParseMove(in); !errors.Is(err, ErrMalformedCommand) {
			t.Fatalf("ParseMove(%q) err = %v, want ErrMalformedCommand", in, err)
		}
	}
}

func TestEncodeNotice(t *testing.T) {
	cases := []struct {
		n    game.Notice
		want string
	}{
		{game.Notice{Kind: game.NoticeRoundReset}, "s.n."},
		{game.Notice{Kind: game.NoticeEnded}, "s.e"},
		{game.Notice{Kind: game.NoticeStatus, Text: "Choose a target."}, "s.p.Choose a target."},
		{game.Notice{Kind: game.NoticeFlash, Text: "GO!"}, "s.m.GO!"},
		{game.Notice{Kind: game.NoticeAngle, Angle: 270}, "s.a.270"},
	}
	for _, c := range cases {
		if got := EncodeNotice(c.n); got != c.want {
			t.Fatalf("EncodeNotice(%+v) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestParseServer(t *testing.T) {
	cases := []struct {
		in   string
		kind ServerKind
		arg  string
	}{
		{"s.h.", KindHost, ""},
		{"s.j.worker-1", KindJoined, "worker-1"},
		{"s.n.", KindRound, ""},
		{"s.e", KindEnded, ""},
		{"s.alert", KindAlert, ""},
		{"s.m.You earned 4¢", KindFlash, "You earned 4¢"},
		{"s.p.Waiting for other player", KindStatus, "Waiting for other player"},
		{"s.a.45", KindAngle, "45"},
		{"s.x", KindUnknown, "s.x"},
	}
	for _, c := range cases {
		got := ParseServer(c.in)
		if got.Kind != c.kind || got.Arg != c.arg {
			t.Fatalf("ParseServer(%q) = %+v, want kind=%v arg=%q", c.in, got, c.kind, c.arg)
		}
	}
}
