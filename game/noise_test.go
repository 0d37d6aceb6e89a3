package game

import (
	"math"
	"testing"
)

type countingSource struct {
	n   int
	src Source
}

func (c *countingSource) Float64() float64 {
	c.n++
	return c.src.Float64()
}

func TestGaussianCachesSecondDeviate(t *testing.T) {
	src := &countingSource{src: NewSource(7)}
	g := NewGaussian(src, 4, 0)
	g.Sample()
	if src.n != 2 {
		t.Fatalf("first sample used %d uniforms, want 2", src.n)
	}
	g.Sample()
	if src.n != 2 {
		t.Fatalf("second sample should come from cache, used %d uniforms", src.n)
	}
	g.Sample()
	if src.n != 4 {
		t.Fatalf("third sample used %d uniforms total, want 4", src.n)
	}
}

func TestGaussianMoments(t *testing.T) {
	g := NewGaussian(NewSource(42), 4, 0)
	const n = 20000
	var sum, sq float64
	for range n {
		v := g.Sample()
		sum += v
		sq += v * v
	}
	mean := sum / n
	sd := math.Sqrt(sq/n - mean*mean)
	if math.Abs(mean) > 0.15 {
		t.Fatalf("mean = %f, want ≈0", mean)
	}
	if math.Abs(sd-4) > 0.15 {
		t.Fatalf("sd = %f, want ≈4", sd)
	}
}

func TestNewSourceDeterministic(t *testing.T) {
	a, b := NewSource(3), NewSource(3)
	for range 10 {
		if a.Float64() != b.Float64() {
			t.Fatal("same seed produced different sequences")
		}
	}
}
