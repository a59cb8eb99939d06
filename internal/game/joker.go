// internal/game/joker.go
package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// JokerHealAmount is the health restored by spending a Joker on a heal.
const JokerHealAmount = 2

// findJoker locates the player's Joker by ID, in hand, reserve, or bound to
// one of their columns. Assumes lock is held.
func (g *BastionGame) findJoker(p *models.Player, cardID uuid.UUID) (*models.Card, *Column) {
	if c := p.FindHeld(cardID); c != nil && c.IsJoker() {
		return c, nil
	}
	for _, col := range g.columnsOf(p.ID) {
		if col.Activator != nil && col.Activator.ID == cardID && col.Activator.IsJoker() {
			return col.Activator, col
		}
	}
	return nil, nil
}

// handleJokerAction spends a Joker on its heal-or-attack choice. A bound
// Joker unbinds from its column when spent; a Joker never deals raw damage,
// so the attack variant destroys one opposing unit and is still blockable.
func (g *BastionGame) handleJokerAction(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	jokerID, ok := payloadCardID(payload, "jokerCard")
	if !ok {
		g.reject(p.ID, "missing joker card")
		return
	}
	joker, boundCol := g.findJoker(p, jokerID)
	if joker == nil {
		g.reject(p.ID, "joker not available")
		return
	}
	action, _ := payloadString(payload, "action")
	switch action {
	case "heal":
		g.spendJoker(p, joker, boundCol)
		p.Heal(JokerHealAmount)
		g.turn.ActionDone = true
		g.turn.ActedThisTurn = true
		log.Printf("game %s: %s spends a joker to heal %d", g.ID, p.ID, JokerHealAmount)
		g.broadcastState()
	case "attack":
		suit, ok1 := payloadSuit(payload, "targetSuit")
		value, ok2 := payloadInt(payload, "targetValue")
		if !ok1 || !ok2 {
			g.reject(p.ID, "missing joker attack target")
			return
		}
		declared := AttackTarget{Suit: suit, CardValue: value, AttackType: AttackTypeUnit}
		target, valid := g.validateTarget(p.ID, joker, declared)
		if !valid {
			g.reject(p.ID, target.Reason)
			return
		}
		g.spendJoker(p, joker, boundCol)
		g.turn.ActionDone = true
		g.turn.ActedThisTurn = true
		defender := g.opponentOf(p.ID)
		pending := &PendingAttack{
			AttackCard:         joker,
			Target:             target,
			AttackingPlayerID:  p.ID,
			DefendingPlayerID:  defender.ID,
			BlockingCards:      eligibleBlockers(defender, target),
			WaitingForResponse: true,
		}
		g.Negotiation = &Negotiation{Kind: NegotiationAttack, Attack: pending}
		g.fireEvent(GameEvent{
			Type:         EventAttackEvent,
			PlayerID:     p.ID,
			AttackCard:   eventCard(joker),
			AttackTarget: &target,
		})
		blockers := make([]*EventCard, 0, len(pending.BlockingCards))
		for _, b := range pending.BlockingCards {
			blockers = append(blockers, eventCard(b))
		}
		g.fireEventToPlayer(defender.ID, GameEvent{
			Type:            EventBlockRequest,
			AttackCard:      eventCard(joker),
			AttackTarget:    &target,
			CurrentPlayerID: p.ID.String(),
			BlockingCards:   blockers,
		})
		g.broadcastState()
	default:
		g.reject(p.ID, "joker action must be heal or attack")
	}
}

// spendJoker moves the joker to the player's discard pile, unbinding it from
// its column first when necessary. Assumes lock is held.
func (g *BastionGame) spendJoker(p *models.Player, joker *models.Card, boundCol *Column) {
	if boundCol != nil {
		boundCol.UnbindActivator()
	} else {
		p.RemoveHeld(joker.ID)
	}
	p.Discard = append(p.Discard, joker)
}
