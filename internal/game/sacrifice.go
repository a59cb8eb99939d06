// internal/game/sacrifice.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// sacrificeCost is the number of board cards a face card demands: a Jack
// costs one, a Queen or King two.
func sacrificeCost(face *models.Card) int {
	if face.Value == models.ValueJack {
		return 1
	}
	return 2
}

// EligibleSacrifices lists the player's board cards that may be given up to
// install the face card. Only a column's topmost run card can leave without
// breaking the rank run; 10s are never sacrificable, and a bound Joker
// shields the cards beneath it. A Jack demands rank 8 or 9; Queens and Kings
// refuse Aces, 7s and 10s. Assumes lock is held.
func (g *BastionGame) EligibleSacrifices(p *models.Player, face *models.Card) []*models.Card {
	eligible := []*models.Card{}
	for _, col := range g.columnsOf(p.ID) {
		top := col.TopCard()
		if top == nil {
			continue
		}
		if top.Value == MaxColumnSlots {
			continue
		}
		if col.Activator != nil && col.Activator.IsJoker() {
			continue
		}
		if face.Value == models.ValueJack {
			if top.Value != 8 && top.Value != 9 {
				continue
			}
		} else {
			if top.Value == models.ValueAce || top.Value == 7 {
				continue
			}
		}
		eligible = append(eligible, top)
	}
	return eligible
}

// handleSacrifice installs a held face card by giving up board cards instead
// of pairing an activator. The sacrificed cards move to the player's discard
// pile.
func (g *BastionGame) handleSacrifice(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	faceID, ok := payloadCardID(payload, "specialCard")
	if !ok {
		g.reject(p.ID, "missing face card")
		return
	}
	face := p.FindHeld(faceID)
	if face == nil || !face.IsFace() {
		g.reject(p.ID, "face card not in hand or reserve")
		return
	}
	ids, ok := payloadCardIDs(payload, "selectedCards")
	if !ok || len(ids) != sacrificeCost(face) {
		g.reject(p.ID, "wrong number of sacrifice cards")
		return
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			g.reject(p.ID, "each sacrifice card may be selected only once")
			return
		}
		seen[id] = true
	}

	// Resolve every selection to its column before touching the board, so an
	// invalid selection rejects without partial removal.
	eligible := g.EligibleSacrifices(p, face)
	type pick struct {
		col  *Column
		card *models.Card
	}
	picks := make([]pick, 0, len(ids))
	for _, id := range ids {
		var match *models.Card
		for _, c := range eligible {
			if c.ID == id {
				match = c
				break
			}
		}
		if match == nil {
			g.reject(p.ID, "selected card is not eligible for sacrifice")
			return
		}
		var from *Column
		for _, sacCol := range g.columnsOf(p.ID) {
			if top := sacCol.TopCard(); top != nil && top.ID == match.ID {
				from = sacCol
				break
			}
		}
		if from == nil {
			g.reject(p.ID, "selected card is no longer on top of its column")
			return
		}
		picks = append(picks, pick{col: from, card: match})
	}

	col := g.columnsOf(p.ID)[face.Suit]
	if col == nil {
		g.reject(p.ID, "no column for that suit")
		return
	}
	if err := col.CanInstallFaceCard(face, nil); err != nil {
		g.reject(p.ID, err.Error())
		return
	}

	for _, pk := range picks {
		p.Discard = append(p.Discard, pk.col.RemoveCard(pk.card.Value))
	}

	res, err := col.InstallFaceCard(face, nil, models.ActivatedBySacrifice)
	if err != nil {
		g.reject(p.ID, err.Error())
		return
	}
	p.RemoveHeld(face.ID)
	g.applyPlaceResult(p, face.Suit, res)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true
	g.checkLifecycle()
	g.broadcastState()
}
