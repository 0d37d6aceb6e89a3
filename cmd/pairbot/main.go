// pairbot 无界面的测试客户端：进入匹配，每回合朝收益较大的目标移动
package main

import (
	"context"
	"flag"
	"math"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairarena/game"
	"pairarena/protocol"
)

type bot struct {
	log       *zap.SugaredLogger
	ws        *websocket.Conn
	role      game.Role
	targets   *game.TargetSet
	predictor *game.Predictor
	lastSnap  time.Time
	choose    bool // 回合重置后等待下一帧快照再选目标
}

func main() {
	var (
		addr      = flag.String("addr", "localhost:8000", "server address")
		id        = flag.String("id", "", "participant id (empty for anonymous)")
		condition = flag.String("condition", "", "dynamic or ballistic")
		period    = flag.Duration("tick", game.DefaultTickPeriod, "server tick period, for prediction")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	q := url.Values{}
	if *id != "" {
		q.Set("id", *id)
	}
	if *condition != "" {
		q.Set("condition", *condition)
	}
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: q.Encode()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", u.String(), err)
	}
	defer ws.Close()
	log.Infow("connected", "url", u.String())

	b := &bot{
		log:       log,
		ws:        ws,
		targets:   game.NewTargetSet(),
		predictor: game.NewPredictor(*period),
	}
	if err := b.run(ctx); err != nil {
		log.Errorw("bot stopped", "error", err)
	}
}

func (b *bot) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // 返回后读协程不再阻塞在 frames
	frames := make(chan []byte, 16)
	errc := make(chan error, 1)
	go readFrames(ctx, b.ws, frames, errc)

	render := time.NewTicker(100 * time.Millisecond)
	defer render.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = b.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case err := <-errc:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		case msg := <-frames:
			done, err := b.handle(msg)
			if err != nil || done {
				return err
			}
		case <-render.C:
			if !b.lastSnap.IsZero() {
				b.predictor.Advance(time.Since(b.lastSnap))
			}
		}
	}
}

func (b *bot) handle(msg []byte) (bool, error) {
	if protocol.IsJSON(msg) {
		snap, ok, err := protocol.DecodeSnapshot(msg)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		view := snap.View()
		b.predictor.Apply(view)
		b.lastSnap = time.Now()
		if b.choose {
			b.choose = false
			return false, b.moveToBest(view)
		}
		return false, nil
	}

	m := protocol.ParseServer(string(msg))
	switch m.Kind {
	case protocol.KindHost:
		b.role = game.Host
		b.log.Info("hosting session")
	case protocol.KindJoined:
		b.role = game.Joiner
		b.log.Infow("joined session", "host", m.Arg)
	case protocol.KindRound:
		b.choose = true
	case protocol.KindAngle:
		if deg, err := strconv.ParseFloat(m.Arg, 64); err == nil {
			b.predictor.SetHeading(b.role.Other(), deg)
		}
	case protocol.KindStatus, protocol.KindFlash:
		b.log.Infow("status", "text", m.Arg)
	case protocol.KindEnded:
		b.log.Info("session ended")
		return true, nil
	case protocol.KindAlert:
		b.log.Warn("identity rejected")
		return true, nil
	}
	return false, nil
}

// moveToBest 朝收益较大的目标中心移动
func (b *bot) moveToBest(v game.View) error {
	id := game.Top
	if v.BottomPayoff > v.TopPayoff {
		id = game.Bottom
	}
	dest := b.targets.Get(id).Location
	from := v.HostPos
	if b.role == game.Joiner {
		from = v.JoinerPos
	}
	// 协议以点号分隔，数值取整
	mv := protocol.Move{
		Angle: game.HeadingTo(from, dest),
		Dest:  game.Vec2{X: math.Round(dest.X), Y: math.Round(dest.Y)},
	}
	b.predictor.SetHeading(b.role, mv.Angle)
	b.log.Infow("moving", "target", id, "payoff", max(v.TopPayoff, v.BottomPayoff), "angle", mv.Angle)
	return b.ws.WriteMessage(websocket.TextMessage, []byte(mv.Encode()))
}

// readFrames 读协程；ctx 结束后不再阻塞在 frames 上
func readFrames(ctx context.Context, ws *websocket.Conn, frames chan<- []byte, errc chan<- error) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		select {
		case frames <- msg:
		case <-ctx.Done():
			return
		}
	}
}
