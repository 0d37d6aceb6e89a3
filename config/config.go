package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"

	"pairarena/game"
)

// Config 进程级配置，全部来自环境变量
type Config struct {
	Addr        string `env:"PAIRARENA_ADDR" envDefault:":8000"`
	LogFile     string `env:"PAIRARENA_LOG_FILE" envDefault:"app.log"`
	LogLevel    string `env:"PAIRARENA_LOG_LEVEL" envDefault:"debug"`
	LogToStderr bool   `env:"PAIRARENA_LOG_STDERR" envDefault:"true"`
	StaticDir   string `env:"PAIRARENA_STATIC_DIR" envDefault:"web"`

	// 持久化：留空即关闭对应存储
	DBPath            string `env:"PAIRARENA_DB_PATH" envDefault:"pairarena.db"`
	DataDir           string `env:"PAIRARENA_DATA_DIR" envDefault:"data"`
	RequireRegistered bool   `env:"PAIRARENA_REQUIRE_REGISTERED" envDefault:"true"`
	PersistQueue      int    `env:"PAIRARENA_PERSIST_QUEUE" envDefault:"1024"`

	Condition     string        `env:"PAIRARENA_CONDITION" envDefault:"dynamic"`
	TickPeriod    time.Duration `env:"PAIRARENA_TICK_PERIOD" envDefault:"666ms"`
	Speed         float64       `env:"PAIRARENA_SPEED" envDefault:"10"`
	NoiseEnabled  bool          `env:"PAIRARENA_NOISE" envDefault:"false"`
	NoiseSigma    float64       `env:"PAIRARENA_NOISE_SIGMA" envDefault:"4"`
	Rounds        int           `env:"PAIRARENA_ROUNDS" envDefault:"50"`
	Countdown     time.Duration `env:"PAIRARENA_COUNTDOWN" envDefault:"3s"`
	RoundEndPause time.Duration `env:"PAIRARENA_ROUND_END_PAUSE" envDefault:"1500ms"`
	BigPayoff     int           `env:"PAIRARENA_BIG_PAYOFF" envDefault:"4"`
	LittlePayoff  int           `env:"PAIRARENA_LITTLE_PAYOFF" envDefault:"1"`
	Seed          uint64        `env:"PAIRARENA_SEED" envDefault:"0"`
}

// ParseEnv 从环境变量加载到任意带 env 标签的结构体
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load 解析并校验
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs error
	if _, err := game.ParseCondition(c.Condition); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.TickPeriod <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("tick period must be positive, got %s", c.TickPeriod))
	}
	if err := c.Game().Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.PersistQueue <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("persist queue must be positive, got %d", c.PersistQueue))
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

// Game 转换为单个会话的模拟参数
func (c Config) Game() game.Config {
	cond, err := game.ParseCondition(c.Condition)
	if err != nil {
		cond = game.Dynamic
	}
	return game.Config{
		Condition:     cond,
		Speed:         c.Speed,
		NoiseEnabled:  c.NoiseEnabled,
		NoiseSigma:    c.NoiseSigma,
		Rounds:        c.Rounds,
		Countdown:     c.Countdown,
		RoundEndPause: c.RoundEndPause,
		BigPayoff:     c.BigPayoff,
		LittlePayoff:  c.LittlePayoff,
	}
}
