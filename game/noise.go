package game

import (
	"math"
	"math/rand/v2"
)

// Source 均匀分布随机源，返回 [0,1)
type Source interface {
	Float64() float64
}

// NewSource 创建可复现的随机源；seed 相同则序列相同
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sampler 噪声采样接口，测试中可注入确定序列
type Sampler interface {
	Sample() float64
}

// SamplerFunc 适配普通函数
type SamplerFunc func() float64

func (f SamplerFunc) Sample() float64 { return f() }

// Gaussian Box–Muller 正态采样，一次变换得到两个偏差，第二个缓存到下次使用
type Gaussian struct {
	src      Source
	sigma    float64
	mu       float64
	spare    float64
	hasSpare bool
}

func NewGaussian(src Source, sigma, mu float64) *Gaussian {
	return &Gaussian{src: src, sigma: sigma, mu: mu}
}

func (g *Gaussian) Sample() float64 {
	if g.hasSpare {
		g.hasSpare = false
		return g.spare*g.sigma + g.mu
	}
	u1 := 1 - g.src.Float64() // (0,1]，避免 log(0)
	u2 := g.src.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	g.spare = r * math.Cos(theta)
	g.hasSpare = true
	return r*math.Sin(theta)*g.sigma + g.mu
}
