// internal/game/queen.go
package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// QueenChallenge is the suspended mini-game between a Queen combo being
// offered and the defender's counter or decline. The offered cards stay in
// the challenger's hand until resolution.
type QueenChallenge struct {
	QueenCard          *models.Card `json:"queenCard"`
	Activator          *models.Card `json:"activator,omitempty"`
	ChallengerID       uuid.UUID    `json:"challengerId"`
	DefenderID         uuid.UUID    `json:"defenderId"`
	WaitingForResponse bool         `json:"waitingForResponse"`
}

// handleQueenChallenge offers a Queen heal combo. The defender may answer
// with a Queen of their own to void it; otherwise the combo resolves.
func (g *BastionGame) handleQueenChallenge(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	ids, ok := payloadCardIDs(payload, "selectedCards")
	if !ok || len(ids) == 0 || len(ids) > 2 {
		g.reject(p.ID, "invalid queen challenge selection")
		return
	}
	var queen, activator *models.Card
	for _, id := range ids {
		c := p.FindHeld(id)
		if c == nil {
			g.reject(p.ID, "selected card not in hand or reserve")
			return
		}
		switch {
		case c.Value == models.ValueQueen:
			queen = c
		case c.IsActivator():
			activator = c
		}
	}
	if queen == nil {
		g.reject(p.ID, "a Queen is required")
		return
	}
	col := g.columnsOf(p.ID)[queen.Suit]
	if col == nil {
		g.reject(p.ID, "no column for that suit")
		return
	}
	if err := col.CanInstallFaceCard(queen, activator); err != nil {
		g.reject(p.ID, err.Error())
		return
	}

	defender := g.opponentOf(p.ID)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true
	g.Negotiation = &Negotiation{
		Kind: NegotiationQueen,
		Queen: &QueenChallenge{
			QueenCard:          queen,
			Activator:          activator,
			ChallengerID:       p.ID,
			DefenderID:         defender.ID,
			WaitingForResponse: true,
		},
	}
	log.Printf("game %s: %s offers a queen challenge in %s", g.ID, p.ID, queen.Suit)
	g.fireEventToPlayer(defender.ID, GameEvent{
		Type:            EventQueenChallenge,
		Card:            eventCard(queen),
		CurrentPlayerID: p.ID.String(),
	})
	g.broadcastState()
}

// handleQueenChallengeResponse resolves the challenge: a counter-Queen voids
// the combo and both Queens are discarded; anything else lets it resolve.
func (g *BastionGame) handleQueenChallengeResponse(p *models.Player, payload map[string]interface{}) {
	challenge := g.pendingQueenChallenge()
	if challenge == nil {
		g.reject(p.ID, "no queen challenge is pending")
		return
	}
	if p.ID != challenge.DefenderID {
		g.reject(p.ID, "only the defender may respond")
		return
	}
	counterID, ok := payloadCardID(payload, "selectedQueen")
	if !ok {
		g.resolveQueenDecline()
		return
	}
	counter := p.FindHeld(counterID)
	if counter == nil || counter.Value != models.ValueQueen {
		g.reject(p.ID, "counter card must be a Queen from hand or reserve")
		return
	}

	// Both Queens are spent; the challenger keeps the offered activator.
	challenger := g.getPlayerByID(challenge.ChallengerID)
	challenger.RemoveHeld(challenge.QueenCard.ID)
	challenger.Discard = append(challenger.Discard, challenge.QueenCard)
	p.RemoveHeld(counter.ID)
	p.Discard = append(p.Discard, counter)
	challenge.WaitingForResponse = false
	g.Negotiation = nil
	log.Printf("game %s: queen challenge countered by %s", g.ID, p.ID)
	g.broadcastState()
}

// resolveQueenDecline lets the offered combo resolve: the Queen is spent,
// the heal applies, and the activator binds to the column. Also invoked by
// the turn timer when the defender never answers. Assumes lock is held.
func (g *BastionGame) resolveQueenDecline() {
	challenge := g.pendingQueenChallenge()
	if challenge == nil {
		return
	}
	challenger := g.getPlayerByID(challenge.ChallengerID)
	col := g.columnsOf(challenger.ID)[challenge.QueenCard.Suit]
	res, err := col.InstallFaceCard(challenge.QueenCard, challenge.Activator, activationSource(challenge.Activator))
	challenge.WaitingForResponse = false
	g.Negotiation = nil
	if err != nil {
		// The board changed underneath the offer; void it without effect.
		log.Printf("game %s: queen challenge voided: %v", g.ID, err)
		g.broadcastState()
		return
	}
	challenger.RemoveHeld(challenge.QueenCard.ID)
	if challenge.Activator != nil {
		challenger.RemoveHeld(challenge.Activator.ID)
	}
	g.applyPlaceResult(challenger, challenge.QueenCard.Suit, res)
	g.checkLifecycle()
	g.broadcastState()
}

// pendingQueenChallenge returns the active queen negotiation, or nil.
// Assumes lock is held.
func (g *BastionGame) pendingQueenChallenge() *QueenChallenge {
	if g.Negotiation == nil || g.Negotiation.Kind != NegotiationQueen {
		return nil
	}
	return g.Negotiation.Queen
}
