// internal/game/lifecycle.go
package game

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// checkLifecycle re-evaluates terminal conditions after any state mutation
// that could have dropped a player's health. Assumes lock is held.
func (g *BastionGame) checkLifecycle() {
	if g.GameOver {
		return
	}
	for _, p := range g.Players {
		if p.Health <= 0 {
			g.finalize(g.opponentOf(p.ID), "health depleted")
			return
		}
	}
}

// endByExhaustion ends the match when deck and discard piles are all empty:
// the higher health wins, equal health is a draw. Assumes lock is held.
func (g *BastionGame) endByExhaustion() {
	if g.GameOver || len(g.Players) < 2 {
		return
	}
	a, b := g.Players[0], g.Players[1]
	switch {
	case a.Health > b.Health:
		g.finalize(a, "deck exhausted")
	case b.Health > a.Health:
		g.finalize(b, "deck exhausted")
	default:
		g.finalize(nil, "deck exhausted")
	}
}

// finalize ends the match exactly once: timers stop, the gameOver event is
// broadcast, and the end callback fires. A nil winner means a draw or abort.
// Assumes lock is held.
func (g *BastionGame) finalize(winner *models.Player, reason string) {
	if g.GameOver {
		return
	}
	g.GameOver = true
	g.Phase = PhaseEnd
	g.cancelSetupTimer()
	g.cancelTurnTimer()

	winnerID := uuid.Nil
	msg := fmt.Sprintf("game over: %s", reason)
	if winner != nil {
		winnerID = winner.ID
		msg = fmt.Sprintf("%s wins: %s", winner.Name, reason)
	}
	log.Printf("game %s: %s", g.ID, msg)
	g.logAction(winnerID, "game_end", map[string]interface{}{"reason": reason})
	g.fireEvent(GameEvent{
		Type:     EventGameOver,
		PlayerID: winnerID,
		Message:  msg,
	})
	if g.OnGameEnd != nil {
		// Callback runs off the lock; it may call back into the store.
		go g.OnGameEnd(g.ID, winnerID, reason)
	}
}
