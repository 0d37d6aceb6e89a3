package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pairarena/game"
	"pairarena/store"
)

// ParticipantAdmin 登记参与者与查询奖金
type ParticipantAdmin interface {
	RegisterParticipant(ctx context.Context, workerID string) error
	GetBonus(ctx context.Context, workerID string) (decimal.Decimal, error)
}

// Admin 管理与监控接口
type Admin struct {
	reg          *Registry
	participants ParticipantAdmin
	recorder     *Recorder
}

// NewAdmin participants 为 nil 时参与者接口返回 503
func NewAdmin(reg *Registry, participants ParticipantAdmin, rec *Recorder) *Admin {
	return &Admin{reg: reg, participants: participants, recorder: rec}
}

// HandleAdminConfig 新会话参数的读取与更新（不影响已运行的会话）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (a *Admin) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		Condition       *string  `json:"condition,omitempty"`
		TickPeriodMs    *int64   `json:"tickPeriodMs,omitempty"`
		Speed           *float64 `json:"speed,omitempty"`
		Noise           *bool    `json:"noise,omitempty"`
		NoiseSigma      *float64 `json:"noiseSigma,omitempty"`
		Rounds          *int     `json:"rounds,omitempty"`
		CountdownMs     *int64   `json:"countdownMs,omitempty"`
		RoundEndPauseMs *int64   `json:"roundEndPauseMs,omitempty"`
		BigPayoff       *int     `json:"bigPayoff,omitempty"`
		LittlePayoff    *int     `json:"littlePayoff,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		cur := a.reg.Settings()
		cond := string(cur.Game.Condition)
		tick := cur.TickPeriod.Milliseconds()
		countdown := cur.Game.Countdown.Milliseconds()
		pause := cur.Game.RoundEndPause.Milliseconds()
		writeJSON(w, http.StatusOK, cfg{
			Condition:       &cond,
			TickPeriodMs:    &tick,
			Speed:           &cur.Game.Speed,
			Noise:           &cur.Game.NoiseEnabled,
			NoiseSigma:      &cur.Game.NoiseSigma,
			Rounds:          &cur.Game.Rounds,
			CountdownMs:     &countdown,
			RoundEndPauseMs: &pause,
			BigPayoff:       &cur.Game.BigPayoff,
			LittlePayoff:    &cur.Game.LittlePayoff,
		})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		var cond game.Condition
		if body.Condition != nil {
			c, err := game.ParseCondition(*body.Condition)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			cond = c
		}
		next, err := a.reg.UpdateSettings(func(s *Settings) {
			if body.Condition != nil {
				s.Game.Condition = cond
			}
			if body.TickPeriodMs != nil {
				s.TickPeriod = time.Duration(*body.TickPeriodMs) * time.Millisecond
			}
			if body.Speed != nil {
				s.Game.Speed = *body.Speed
			}
			if body.Noise != nil {
				s.Game.NoiseEnabled = *body.Noise
			}
			if body.NoiseSigma != nil {
				s.Game.NoiseSigma = *body.NoiseSigma
			}
			if body.Rounds != nil {
				s.Game.Rounds = *body.Rounds
			}
			if body.CountdownMs != nil {
				s.Game.Countdown = time.Duration(*body.CountdownMs) * time.Millisecond
			}
			if body.RoundEndPauseMs != nil {
				s.Game.RoundEndPause = time.Duration(*body.RoundEndPauseMs) * time.Millisecond
			}
			if body.BigPayoff != nil {
				s.Game.BigPayoff = *body.BigPayoff
			}
			if body.LittlePayoff != nil {
				s.Game.LittlePayoff = *body.LittlePayoff
			}
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		Log.Infof("config updated: condition=%s tick=%s speed=%.2f noise=%t sigma=%.2f rounds=%d payoff=%d/%d",
			next.Game.Condition, next.TickPeriod, next.Game.Speed, next.Game.NoiseEnabled, next.Game.NoiseSigma,
			next.Game.Rounds, next.Game.BigPayoff, next.Game.LittlePayoff)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleMetrics 输出全部会话的运行指标
// GET /metrics
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	sessions := a.reg.List()
	payload := map[string]any{
		"sessions":    sessions,
		"count":       len(sessions),
		"persistence": a.recorder.Stats(),
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleRegisterParticipant POST /admin/participants {"id":"worker-1"}
func (a *Admin) HandleRegisterParticipant(w http.ResponseWriter, r *http.Request) {
	if a.participants == nil {
		writeError(w, http.StatusServiceUnavailable, "participant store disabled")
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if err := a.participants.RegisterParticipant(r.Context(), body.ID); err != nil {
		Log.Errorw("register participant", "id", body.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "register failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": body.ID})
}

// HandleGetParticipant GET /admin/participants/{id}
func (a *Admin) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	if a.participants == nil {
		writeError(w, http.StatusServiceUnavailable, "participant store disabled")
		return
	}
	id := chi.URLParam(r, "id")
	bonus, err := a.participants.GetBonus(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, "participant not found")
	case err != nil:
		Log.Errorw("get participant", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "bonusPay": store.FormatBonus(bonus)})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
