// internal/game/attack.go
package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// Attack types.
const (
	AttackTypeUnit   = "unit"
	AttackTypeHealth = "health"
)

// AttackTarget describes one legal (or refused) target for an attack card.
// Suit is empty for a pure health attack.
type AttackTarget struct {
	Suit       models.Suit `json:"suit,omitempty"`
	CardValue  int         `json:"cardValue,omitempty"`
	AttackType string      `json:"attackType"`
	Valid      bool        `json:"valid"`
	Reason     string      `json:"reason,omitempty"`
}

// PendingAttack is the suspended negotiation between an attack declaration
// and the defender's block or decline.
type PendingAttack struct {
	AttackCard         *models.Card   `json:"attackCard"`
	AttackColumn       models.Suit    `json:"attackColumn"`
	Target             AttackTarget   `json:"attackTarget"`
	AttackingPlayerID  uuid.UUID      `json:"attackingPlayerId"`
	DefendingPlayerID  uuid.UUID      `json:"defendingPlayerId"`
	BlockingCards      []*models.Card `json:"blockingCards,omitempty"`
	WaitingForResponse bool           `json:"waitingForResponse"`
}

// ComputeValidTargets enumerates every target the attack card could declare
// against the opponent, marking each valid or refused with a reason.
// Assumes lock is held.
func (g *BastionGame) ComputeValidTargets(attackerID uuid.UUID, attackCard *models.Card) []AttackTarget {
	opp := g.opponentOf(attackerID)
	if opp == nil {
		return nil
	}
	targets := []AttackTarget{}

	health := AttackTarget{AttackType: AttackTypeHealth, Valid: true}
	switch {
	case attackCard.IsJoker():
		health.Valid = false
		health.Reason = "Jokers cannot target health directly"
	case attackCard.Value > 7:
		health.Valid = false
		health.Reason = "only cards of rank 7 or below may attack health"
	default:
		if kingCol := g.columnsOf(opp.ID)[attackCard.Suit]; kingCol != nil && kingCol.King() != nil {
			health.Valid = false
			health.Reason = "an opposing King guards health attacks in this suit"
		}
	}
	targets = append(targets, health)

	for _, suit := range models.StandardSuits {
		col := g.columnsOf(opp.ID)[suit]
		if col == nil {
			continue
		}
		if top := col.TopCard(); top != nil {
			targets = append(targets, AttackTarget{
				Suit: suit, CardValue: top.Value, AttackType: AttackTypeUnit, Valid: true,
			})
		}
		for _, f := range col.FaceCards {
			targets = append(targets, AttackTarget{
				Suit: suit, CardValue: f.Value, AttackType: AttackTypeUnit, Valid: true,
			})
		}
	}
	return targets
}

// validateTarget checks one declared target against ComputeValidTargets.
// Assumes lock is held.
func (g *BastionGame) validateTarget(attackerID uuid.UUID, attackCard *models.Card, target AttackTarget) (AttackTarget, bool) {
	for _, t := range g.ComputeValidTargets(attackerID, attackCard) {
		if t.AttackType != target.AttackType {
			continue
		}
		if target.AttackType == AttackTypeUnit && (t.Suit != target.Suit || t.CardValue != target.CardValue) {
			continue
		}
		return t, t.Valid
	}
	return AttackTarget{AttackType: target.AttackType, Valid: false, Reason: "no such target"}, false
}

// findAttackCard locates a card on one of the attacker's columns by ID,
// returning the card and its column. Assumes lock is held.
func (g *BastionGame) findAttackCard(playerID, cardID uuid.UUID) (*models.Card, *Column) {
	for _, col := range g.columnsOf(playerID) {
		for _, c := range col.Cards {
			if c.ID == cardID {
				return c, col
			}
		}
		for _, f := range col.FaceCards {
			if f.ID == cardID {
				return f, col
			}
		}
	}
	return nil, nil
}

// eligibleBlockers returns the defender's unspent 7s that may block this
// attack. Unit attacks demand a 7 of the attacked column's suit; health
// attacks accept any unspent 7 from hand or reserve.
func eligibleBlockers(defender *models.Player, target AttackTarget) []*models.Card {
	pool := []*models.Card{}
	held := append(append([]*models.Card{}, defender.Hand...), defender.Reserve...)
	for _, c := range held {
		if c.Value != 7 || c.IsJoker() || c.HasDefended {
			continue
		}
		if target.AttackType == AttackTypeUnit && c.Suit != target.Suit {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// handleAttack declares an attack from one of the player's armed column
// cards, suspending the game into block negotiation. The declaration itself
// consumes the turn's action whatever the outcome.
func (g *BastionGame) handleAttack(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	cardID, ok := payloadCardID(payload, "attackCard")
	if !ok {
		g.reject(p.ID, "missing attack card")
		return
	}
	attackCard, col := g.findAttackCard(p.ID, cardID)
	if attackCard == nil {
		g.reject(p.ID, "attack card is not on one of your columns")
		return
	}
	if !col.AttackButtons[attackCard.Value] {
		g.reject(p.ID, "that card cannot attack right now")
		return
	}
	rawTarget, ok := payload["attackTarget"].(map[string]interface{})
	if !ok {
		g.reject(p.ID, "missing attack target")
		return
	}
	declared := AttackTarget{}
	declared.AttackType, _ = payloadString(rawTarget, "attackType")
	if s, ok := payloadSuit(rawTarget, "suit"); ok {
		declared.Suit = s
	}
	if v, ok := payloadInt(rawTarget, "cardValue"); ok {
		declared.CardValue = v
	}
	target, valid := g.validateTarget(p.ID, attackCard, declared)
	if !valid {
		g.reject(p.ID, target.Reason)
		return
	}

	defender := g.opponentOf(p.ID)
	col.MarkAttacked(attackCard.Value)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true

	pending := &PendingAttack{
		AttackCard:         attackCard,
		AttackColumn:       col.Suit,
		Target:             target,
		AttackingPlayerID:  p.ID,
		DefendingPlayerID:  defender.ID,
		BlockingCards:      eligibleBlockers(defender, target),
		WaitingForResponse: true,
	}
	g.Negotiation = &Negotiation{Kind: NegotiationAttack, Attack: pending}
	log.Printf("game %s: %s declares %s attack with %s", g.ID, p.ID, target.AttackType, attackCard.ValueName())

	g.fireEvent(GameEvent{
		Type:         EventAttackEvent,
		PlayerID:     p.ID,
		AttackCard:   eventCard(attackCard),
		AttackTarget: &target,
	})
	blockers := make([]*EventCard, 0, len(pending.BlockingCards))
	for _, b := range pending.BlockingCards {
		blockers = append(blockers, eventCard(b))
	}
	g.fireEventToPlayer(defender.ID, GameEvent{
		Type:            EventBlockRequest,
		AttackCard:      eventCard(attackCard),
		AttackTarget:    &target,
		CurrentPlayerID: p.ID.String(),
		BlockingCards:   blockers,
	})
	g.broadcastState()
}

// handleBlockResponse resolves the pending attack with the defender's
// block or decline.
func (g *BastionGame) handleBlockResponse(p *models.Player, payload map[string]interface{}) {
	pending := g.pendingAttack()
	if pending == nil {
		g.reject(p.ID, "no attack is pending")
		return
	}
	if p.ID != pending.DefendingPlayerID {
		g.reject(p.ID, "only the defender may respond")
		return
	}
	willBlock, _ := payloadBool(payload, "willBlock")
	if !willBlock {
		g.resolveAttackDecline()
		return
	}
	blockID, ok := payloadCardID(payload, "blockingCard")
	if !ok {
		g.reject(p.ID, "missing blocking card")
		return
	}
	var blocker *models.Card
	for _, c := range eligibleBlockers(p, pending.Target) {
		if c.ID == blockID {
			blocker = c
			break
		}
	}
	if blocker == nil {
		g.reject(p.ID, "that card cannot block this attack")
		return
	}
	blocker.HasDefended = true
	p.RemoveHeld(blocker.ID)
	p.Discard = append(p.Discard, blocker)
	g.finishAttack(pending, true)
}

// resolveAttackDecline applies the attack unblocked: health loss or unit
// removal. Also invoked by the turn timer when the defender never answers.
// Assumes lock is held.
func (g *BastionGame) resolveAttackDecline() {
	pending := g.pendingAttack()
	if pending == nil {
		return
	}
	defender := g.getPlayerByID(pending.DefendingPlayerID)
	switch pending.Target.AttackType {
	case AttackTypeHealth:
		dmg := pending.AttackCard.AttackDamage()
		defender.Health -= dmg
		log.Printf("game %s: health attack lands for %d (player %s at %d)", g.ID, dmg, defender.ID, defender.Health)
	case AttackTypeUnit:
		if col := g.columnsOf(defender.ID)[pending.Target.Suit]; col != nil {
			if removed := col.RemoveCard(pending.Target.CardValue); removed != nil {
				defender.Discard = append(defender.Discard, removed)
			}
		}
	}
	g.finishAttack(pending, false)
}

// finishAttack emits the single attackResult, clears the negotiation, and
// re-checks terminal conditions. Assumes lock is held.
func (g *BastionGame) finishAttack(pending *PendingAttack, blocked bool) {
	pending.WaitingForResponse = false
	g.Negotiation = nil
	target := pending.Target
	g.fireEvent(GameEvent{
		Type:         EventAttackResult,
		AttackCard:   eventCard(pending.AttackCard),
		AttackTarget: &target,
		IsBlocked:    &blocked,
	})
	g.checkLifecycle()
	g.broadcastState()
}

// pendingAttack returns the active attack negotiation, or nil.
// Assumes lock is held.
func (g *BastionGame) pendingAttack() *PendingAttack {
	if g.Negotiation == nil || g.Negotiation.Kind != NegotiationAttack {
		return nil
	}
	return g.Negotiation.Attack
}
