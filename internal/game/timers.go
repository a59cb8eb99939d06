// internal/game/timers.go
package game

import (
	"log"
	"time"
)

// startSetupTimer arms the pre-game countdown. If the match has not started
// when it expires, the game aborts. Assumes lock is held.
func (g *BastionGame) startSetupTimer() {
	deadline := time.Now().Add(g.SetupDuration)
	stop := make(chan struct{})
	g.tickerStop = stop
	g.setupTimer = time.AfterFunc(g.SetupDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.Started || g.GameOver {
			return
		}
		log.Printf("game %s: setup timer expired, aborting", g.ID)
		g.finalize(nil, "setup timed out")
	})
	go g.runSetupTicker(deadline, stop)
}

// runSetupTicker broadcasts the remaining setup time every second until the
// match starts, ends, or the deadline passes.
func (g *BastionGame) runSetupTicker(deadline time.Time, stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.Mu.Lock()
			if g.Started || g.GameOver {
				g.Mu.Unlock()
				return
			}
			remaining := int(time.Until(deadline).Seconds())
			if remaining < 0 {
				g.Mu.Unlock()
				return
			}
			g.fireEvent(GameEvent{
				Type:               EventStartSetupTimer,
				TimerType:          "setup",
				SetupTimeRemaining: remaining,
			})
			g.Mu.Unlock()
		}
	}
}

// cancelSetupTimer stops the setup countdown. Assumes lock is held.
func (g *BastionGame) cancelSetupTimer() {
	if g.setupTimer != nil {
		g.setupTimer.Stop()
		g.setupTimer = nil
	}
	if g.tickerStop != nil {
		close(g.tickerStop)
		g.tickerStop = nil
	}
}

// scheduleTurnTimer arms the per-turn countdown for the acting player.
// Expiry forces a default resolution; any rearm bumps the generation so a
// stale expiry racing the lock is ignored. Assumes lock is held.
func (g *BastionGame) scheduleTurnTimer() {
	g.timerGen++
	gen := g.timerGen
	if g.turnTimer != nil {
		g.turnTimer.Stop()
	}
	cur := g.currentPlayer()
	if cur == nil {
		return
	}
	deadline := time.Now().Add(g.TurnDuration)
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if gen != g.timerGen || g.GameOver || !g.Started {
			log.Printf("game %s: stale turn timer (gen %d, current %d), ignoring", g.ID, gen, g.timerGen)
			return
		}
		log.Printf("game %s: turn timer expired for player %s", g.ID, g.currentPlayer().ID)
		g.forceTurnResolution()
	})
	go g.runTurnTicker(deadline, gen)
}

// runTurnTicker broadcasts the remaining turn time to each player every
// second until the turn changes or the game ends.
func (g *BastionGame) runTurnTicker(deadline time.Time, gen int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		g.Mu.Lock()
		if gen != g.timerGen || g.GameOver {
			g.Mu.Unlock()
			return
		}
		remaining := int(time.Until(deadline).Seconds())
		if remaining < 0 {
			g.Mu.Unlock()
			return
		}
		cur := g.currentPlayer()
		for _, p := range g.Players {
			if !p.Connected {
				continue
			}
			mine := cur != nil && p.ID == cur.ID
			g.fireEventToPlayer(p.ID, GameEvent{
				Type:             EventTurnTimer,
				TimerType:        "turn",
				RemainingSeconds: remaining,
				CurrentPlayerID:  cur.ID.String(),
				IsPlayerTurn:     &mine,
			})
		}
		g.Mu.Unlock()
	}
}

// cancelTurnTimer invalidates any armed turn timer. Assumes lock is held.
func (g *BastionGame) cancelTurnTimer() {
	g.timerGen++
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

// forceTurnResolution applies the timeout defaults: an unanswered
// negotiation resolves against the defender, outstanding turn obligations
// are satisfied with defaults, and the turn passes. Assumes lock is held.
func (g *BastionGame) forceTurnResolution() {
	if g.Negotiation != nil {
		switch g.Negotiation.Kind {
		case NegotiationAttack:
			g.resolveAttackDecline()
		case NegotiationQueen:
			g.resolveQueenDecline()
		}
		if g.GameOver {
			return
		}
	}
	p := g.currentPlayer()
	if p == nil {
		return
	}
	// Outstanding discard obligation defaults to the first held card.
	if !g.turn.DiscardResolved {
		if c := firstHeld(p); c != nil {
			p.RemoveHeld(c.ID)
			p.Discard = append(p.Discard, c)
		}
	}
	g.advanceTurn()
}
