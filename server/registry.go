package server

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"pairarena/game"
	"pairarena/protocol"
)

// Settings 新建会话使用的参数，可通过管理接口热更新（不影响已运行的会话）
type Settings struct {
	Game       game.Config
	TickPeriod time.Duration
}

// Validate 与启动配置相同的规则
func (s Settings) Validate() error {
	err := s.Game.Validate()
	if s.TickPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("tick period must be positive, got %s", s.TickPeriod))
	}
	return err
}

// Options 构造 Registry
type Options struct {
	Settings Settings
	Seed     uint64 // 0 表示随机；否则第 n 个会话使用 Seed+n
	Recorder *Recorder
}

// Registry 匹配与会话生命周期；独占所有 Session
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []*Session // 创建顺序，匹配时按此遍历
	settings Settings
	seed     uint64
	created  uint64
	recorder *Recorder
}

func NewRegistry(opts Options) *Registry {
	if opts.Settings.TickPeriod <= 0 {
		opts.Settings.TickPeriod = game.DefaultTickPeriod
	}
	return &Registry{
		sessions: make(map[string]*Session),
		settings: opts.Settings,
		seed:     opts.Seed,
		recorder: opts.Recorder,
	}
}

// FindOrCreateSession 加入第一个未满的会话；没有则以该参与者为主机新建
func (r *Registry) FindOrCreateSession(p *Participant) (*Session, game.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	Log.Infow("looking for a session", "user", p.ID, "sessions", len(r.sessions))
	for _, s := range r.order {
		if s.state != SessionOpen || s.count >= 2 {
			continue
		}
		if p.Condition != "" && p.Condition != s.Condition {
			Log.Warnw("condition mismatch, joining host condition",
				"session", s.ID, "user", p.ID, "wanted", p.Condition, "got", s.Condition)
		}
		r.startSession(s, p)
		return s, game.Joiner
	}
	return r.createSession(p), game.Host
}

func (r *Registry) createSession(host *Participant) *Session {
	cfg := r.settings.Game
	if host.Condition != "" {
		cfg.Condition = host.Condition
	}
	r.created++
	seed := rand.Uint64()
	if r.seed != 0 {
		seed = r.seed + r.created
	}
	src := game.NewSource(seed)
	sim := game.NewSimulation(cfg, src, nil)

	s := newSession(uuid.NewString(), host, sim, r.settings.TickPeriod, r.recorder)
	s.onFinished = func(id string) { r.EndSession(id, "") }
	r.sessions[s.ID] = s
	r.order = append(r.order, s)

	s.send(host, []byte(protocol.MsgHost))
	go s.run()
	Log.Infow("session created", "session", s.ID, "host", host.ID, "condition", s.Condition)
	return s
}

// startSession 第二名参与者到齐：通知角色并重置回合（在会话循环中完成）
func (r *Registry) startSession(s *Session, joiner *Participant) {
	s.joiner = joiner
	s.count = 2
	s.state = SessionActive
	s.join(joiner)
	Log.Infow("session joined", "session", s.ID, "host", s.host.ID, "joiner", joiner.ID)
}

// EndSession 停止 Tick、通知留下的参与者并移除会话。leavingUserID 为空表示服务端关闭。重复调用只记录日志
func (r *Registry) EndSession(sessionID, leavingUserID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		Log.Infow("session not found", "session", sessionID, "user", leavingUserID)
		return
	}
	delete(r.sessions, sessionID)
	r.order = slices.DeleteFunc(r.order, func(x *Session) bool { return x == s })
	s.state = SessionClosed
	host, joiner, count := s.host, s.joiner, s.count
	remaining := len(r.sessions)
	r.mu.Unlock()

	s.stop()

	if !s.finished.Load() {
		switch {
		case leavingUserID == "":
			// 服务端关闭：双方都收到结束通知
			_ = host.sendText(protocol.MsgEnded)
			if joiner != nil {
				_ = joiner.sendText(protocol.MsgEnded)
			}
		case count < 2:
			// 没有对方可通知
		case leavingUserID == host.ID:
			_ = joiner.sendText(protocol.MsgEnded)
		case leavingUserID == joiner.ID:
			_ = host.sendText(protocol.MsgEnded)
		}
	}
	for _, p := range []*Participant{host, joiner} {
		if p != nil && p.Conn != nil {
			_ = p.Conn.Close()
		}
	}
	Log.Infow("session removed", "session", sessionID, "user", leavingUserID, "sessions", remaining)
}

// Count 当前会话数
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SessionInfo 供监控接口输出
type SessionInfo struct {
	ID           string         `json:"id"`
	State        string         `json:"state"`
	Participants int            `json:"participants"`
	Condition    string         `json:"condition"`
	Host         string         `json:"host"`
	Joiner       string         `json:"joiner,omitempty"`
	AgeSeconds   float64        `json:"age_seconds"`
	Metrics      map[string]any `json:"metrics"`
}

func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionInfo, 0, len(r.order))
	for _, s := range r.order {
		info := SessionInfo{
			ID:           s.ID,
			State:        s.state.String(),
			Participants: s.count,
			Condition:    string(s.Condition),
			Host:         s.host.ID,
			AgeSeconds:   time.Since(s.CreatedAt).Seconds(),
			Metrics:      s.metrics.Snapshot(),
		}
		if s.joiner != nil {
			info.Joiner = s.joiner.ID
		}
		out = append(out, info)
	}
	return out
}

func (r *Registry) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings 在副本上修改新会话参数，校验通过才生效
func (r *Registry) UpdateSettings(fn func(*Settings)) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return r.settings, err
	}
	r.settings = next
	return next, nil
}

// Shutdown 结束全部会话
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.order))
	for _, s := range r.order {
		ids = append(ids, s.ID)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.EndSession(id, "")
	}
}
