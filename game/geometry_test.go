package game

import (
	"math"
	"testing"
)

func TestClampPinsToBounds(t *testing.T) {
	b := ArenaBounds(WorldWidth, WorldHeight, PlayerHalfExtent)
	cases := []struct {
		in, want Vec2
	}{
		{Vec2{-20, 100}, Vec2{8, 100}},
		{Vec2{900, 100}, Vec2{712, 100}},
		{Vec2{100, -1}, Vec2{100, 8}},
		{Vec2{100, 1000}, Vec2{100, 472}},
		{Vec2{100.123456, 200.987654}, Vec2{100.1235, 200.9877}},
	}
	for _, c := range cases {
		if got := b.Clamp(c.in); got != c.want {
			t.Fatalf("Clamp(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStepFollowsHeading(t *testing.T) {
	start := Vec2{100, 100}
	got := Step(start, 90, 10) // 90° 朝右
	if math.Abs(got.X-110) > 1e-9 || math.Abs(got.Y-100) > 1e-9 {
		t.Fatalf("heading 90: got %v", got)
	}
	got = Step(start, 180, 10) // 180° 朝下（画布 y 向下）
	if math.Abs(got.X-100) > 1e-9 || math.Abs(got.Y-110) > 1e-9 {
		t.Fatalf("heading 180: got %v", got)
	}
}

func TestHeadingToRoundTrip(t *testing.T) {
	from, to := Vec2{180, 240}, Vec2{360, 120}
	h := HeadingTo(from, to)
	p := Step(from, h, Distance(from, to))
	if Distance(p, to) > 2 {
		t.Fatalf("heading %v lands at %v, want near %v", h, p, to)
	}
}

func TestNormalizeAngle(t *testing.T) {
	if got := NormalizeAngle(-45.7); got != 315 {
		t.Fatalf("NormalizeAngle(-45.7) = %v, want 315", got)
	}
	if got := NormalizeAngle(90.5); got != 90.5 {
		t.Fatalf("NormalizeAngle(90.5) = %v", got)
	}
}
