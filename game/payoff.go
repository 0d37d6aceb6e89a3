package game

import (
	"fmt"
	"time"
)

const (
	textTie     = "Tie! No money awarded!"
	textGo      = "GO!"
	textWaiting = "Waiting for other player"
	textChoose  = "Choose a target."
)

func earnedText(cents int) string { return fmt.Sprintf("You earned %d¢", cents) }

// checkForPayoff 以 a 为先手检查上、下两个目标；两者都被访问后只记录一次得分并安排一次回合结束
func (s *Simulation) checkForPayoff(a Role, now time.Duration) {
	s.checkTarget(Top, a)
	s.checkTarget(Bottom, a)

	if s.targets.AllVisited() && !s.roundEndArmed {
		s.roundEndArmed = true
		// 得分此时已确定，立即交给持久化，不等停顿结束
		s.out.Rounds = append(s.out.Rounds, RoundResult{
			Round:  s.round,
			Points: [2]int{s.players[Host].Points, s.players[Joiner].Points},
		})
		s.setSpeeds(0)
		s.phase = PhaseRoundEnd
		s.sched.Schedule(now+s.cfg.RoundEndPause, EventRoundReset)
	}
}

// checkTarget a 进入 id 的内圈：
//   - b 在外圈之外：a 获得该目标收益，b 获得另一目标收益，两个目标都标记已访问
//   - b 也在外圈之内：平局，双方都不得分，两个目标都标记已访问
func (s *Simulation) checkTarget(id TargetID, a Role) {
	t, other := s.targets.Get(id), s.targets.Get(id.Other())
	pa, pb := s.players[a], s.players[a.Other()]
	if t.Visited || Distance(pa.Position, t.Location) >= t.Radius+PlayerHalfExtent {
		return
	}
	db := Distance(pb.Position, t.Location)
	switch {
	case db > t.OuterRadius+PlayerHalfExtent:
		t.Visited, t.Color = true, pa.Color
		pa.Points += t.Payoff
		other.Visited, other.Color = true, pb.Color
		pb.Points += other.Payoff
		s.notify(pa.Role, Notice{Kind: NoticeFlash, Text: earnedText(t.Payoff)})
		s.notify(pb.Role, Notice{Kind: NoticeFlash, Text: earnedText(other.Payoff)})
	case db < t.OuterRadius+PlayerHalfExtent:
		s.notifyBoth(NoticeFlash, textTie)
		t.Visited, t.Color = true, TargetTieRef
		other.Visited = true
	}
}

// checkChoices ballistic 预备阶段：双方目的地都落在目标上才开始
func (s *Simulation) checkChoices() {
	hostOK := s.targets.ValidChoice(s.players[Host].Destination)
	joinerOK := s.targets.ValidChoice(s.players[Joiner].Destination)
	switch {
	case hostOK && joinerOK:
		s.notifyBoth(NoticeFlash, textGo)
		s.goActive()
	case hostOK:
		s.notify(Host, Notice{Kind: NoticeStatus, Text: textWaiting})
		s.notify(Joiner, Notice{Kind: NoticeStatus, Text: textChoose})
	case joinerOK:
		s.notify(Joiner, Notice{Kind: NoticeStatus, Text: textWaiting})
		s.notify(Host, Notice{Kind: NoticeStatus, Text: textChoose})
	default:
		s.notifyBoth(NoticeStatus, textChoose)
	}
}
