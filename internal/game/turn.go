// internal/game/turn.go
package game

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// discardRequired reports whether the acting player owes a discard this turn:
// mandatory on each player's first turn, afterwards only when over the held
// limit. Assumes lock is held.
func (g *BastionGame) discardRequired(p *models.Player) bool {
	if g.Turn <= len(g.Players) {
		return true
	}
	return p.OverHeldLimit()
}

// beginTurn arms the new acting player's turn: DISCARD phase, fresh
// obligations, attack buttons re-armed, turn timer running.
// Assumes lock is held.
func (g *BastionGame) beginTurn() {
	p := g.currentPlayer()
	if p == nil {
		return
	}
	g.Phase = PhaseDiscard
	g.turn = turnState{
		DiscardResolved: !g.discardRequired(p),
	}
	for _, col := range g.columnsOf(p.ID) {
		col.ArmAttackButtons()
	}
	g.scheduleTurnTimer()
}

// advanceTurn hands the turn to the other player. Assumes lock is held.
func (g *BastionGame) advanceTurn() {
	if g.GameOver {
		return
	}
	prev := g.currentPlayer()
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	g.Turn++
	next := g.currentPlayer()
	g.beginTurn()
	g.fireEvent(GameEvent{
		Type:             EventTurnChanged,
		PreviousPlayerID: prev.ID.String(),
		CurrentPlayerID:  next.ID.String(),
		TurnNumber:       g.Turn,
	})
	g.broadcastState()
}

// --- SETUP ---

// handleMoveToReserve moves a hand card into the reserve. During SETUP both
// players do this to fill their reserves to exactly 2; during DRAW the acting
// player may stash a drawn card the same way.
func (g *BastionGame) handleMoveToReserve(p *models.Player, payload map[string]interface{}) {
	if g.Phase != PhaseSetup && g.Phase != PhaseDraw {
		g.reject(p.ID, "cannot move to reserve now")
		return
	}
	cardID, ok := payloadCardID(payload, "card")
	if !ok {
		g.reject(p.ID, "missing card id")
		return
	}
	if len(p.Reserve) >= models.MaxReserveSize {
		g.reject(p.ID, "reserve is full")
		return
	}
	c := p.RemoveFromHand(cardID)
	if c == nil {
		g.reject(p.ID, "card not in hand")
		return
	}
	p.Reserve = append(p.Reserve, c)
	g.broadcastState()
}

// handleStartGame begins the match once both reserves hold exactly 2 cards.
func (g *BastionGame) handleStartGame(p *models.Player) {
	if g.Started {
		g.reject(p.ID, "game already started")
		return
	}
	if len(g.Players) < 2 {
		g.reject(p.ID, "waiting for an opponent")
		return
	}
	for _, pl := range g.Players {
		if len(pl.Reserve) != models.MaxReserveSize {
			g.reject(p.ID, "both players must fill their reserve first")
			return
		}
	}
	g.cancelSetupTimer()
	g.Started = true
	g.StartAt = time.Now()
	g.Turn = 1
	g.CurrentPlayerIndex = 0
	log.Printf("game %s: started", g.ID)
	g.beginTurn()
	g.fireEvent(GameEvent{
		Type:            EventTurnChanged,
		CurrentPlayerID: g.currentPlayer().ID.String(),
		TurnNumber:      g.Turn,
	})
	g.broadcastState()
}

// handleAbortGame cancels an unstarted match.
func (g *BastionGame) handleAbortGame(p *models.Player) {
	if g.Started {
		g.reject(p.ID, "cannot abort a started game")
		return
	}
	g.finalize(nil, "aborted")
}

// --- DISCARD ---

// handleDiscardCard moves a held card to the player's discard pile and
// advances to DRAW once the obligation is satisfied.
func (g *BastionGame) handleDiscardCard(p *models.Player, payload map[string]interface{}) {
	if g.Phase != PhaseDiscard {
		g.reject(p.ID, "not in discard phase")
		return
	}
	cardID, ok := payloadCardID(payload, "card")
	if !ok {
		g.reject(p.ID, "missing card id")
		return
	}
	c := p.RemoveHeld(cardID)
	if c == nil {
		g.reject(p.ID, "card not in hand or reserve")
		return
	}
	p.Discard = append(p.Discard, c)
	g.turn.ActedThisTurn = true
	if !p.OverHeldLimit() {
		g.turn.DiscardResolved = true
		g.Phase = PhaseDraw
		g.maybeFinishDraw(p)
	}
	g.broadcastState()
}

// handleStrategicShuffle reshuffles the player's discard pile into the shared
// deck. Once per player per game, and only before anything else this turn;
// it substitutes for the turn's discard.
func (g *BastionGame) handleStrategicShuffle(p *models.Player) {
	if g.Phase != PhaseDiscard {
		g.reject(p.ID, "strategic shuffle is only available at the start of your discard phase")
		return
	}
	if g.turn.ActedThisTurn {
		g.reject(p.ID, "strategic shuffle must be your first act of the turn")
		return
	}
	if p.HasUsedStrategicShuffle {
		g.reject(p.ID, "strategic shuffle already used this game")
		return
	}
	p.HasUsedStrategicShuffle = true
	g.turn.ActedThisTurn = true
	g.Deck = append(g.Deck, p.Discard...)
	p.Discard = []*models.Card{}
	ShuffleDeck(g.Deck)
	g.turn.DiscardResolved = true
	g.Phase = PhaseDraw
	g.maybeFinishDraw(p)
	g.broadcastState()
}

// --- DRAW ---

// maybeFinishDraw advances past DRAW when the draw quota is already met: a
// full hand, or the held cap reached. Assumes lock is held.
func (g *BastionGame) maybeFinishDraw(p *models.Player) {
	if g.Phase != PhaseDraw {
		return
	}
	if len(p.Hand) >= models.MaxHandSize || p.HeldCount() >= models.MaxHeldCards {
		g.turn.DrawDone = true
		g.Phase = PhasePlay
	}
}

// handleDrawCard draws one card to hand. A draw arriving in DISCARD with no
// pending obligation advances the phase implicitly, which keeps the strategic
// shuffle window strictly before the first draw.
func (g *BastionGame) handleDrawCard(p *models.Player) {
	if g.Phase == PhaseDiscard && g.turn.DiscardResolved {
		g.Phase = PhaseDraw
	}
	if g.Phase != PhaseDraw {
		g.reject(p.ID, "not in draw phase")
		return
	}
	if len(p.Hand) >= models.MaxHandSize {
		// Quota already met; the phase moves on instead of stranding the turn.
		g.maybeFinishDraw(p)
		g.broadcastState()
		return
	}
	if len(g.Deck) == 0 {
		if g.discardPilesEmpty() {
			// Nothing left anywhere: the match cannot continue.
			g.endByExhaustion()
			return
		}
		g.reject(p.ID, "deck is empty; recycle the discard piles")
		return
	}
	c := g.drawFromDeck()
	p.Hand = append(p.Hand, c)
	g.turn.ActedThisTurn = true
	g.maybeFinishDraw(p)
	g.broadcastState()
}

// handleRecycleDiscardPile refills an exhausted shared deck from both
// players' discard piles.
func (g *BastionGame) handleRecycleDiscardPile(p *models.Player) {
	if g.Phase != PhaseDraw && g.Phase != PhaseDiscard {
		g.reject(p.ID, "cannot recycle now")
		return
	}
	if len(g.Deck) > 0 {
		g.reject(p.ID, "deck is not empty")
		return
	}
	if g.discardPilesEmpty() {
		g.reject(p.ID, "nothing to recycle")
		return
	}
	for _, pl := range g.Players {
		g.Deck = append(g.Deck, pl.Discard...)
		pl.Discard = []*models.Card{}
	}
	ShuffleDeck(g.Deck)
	log.Printf("game %s: discard piles recycled into deck (%d cards)", g.ID, len(g.Deck))
	g.broadcastState()
}

// handleExchangeCards swaps one hand card with one reserve card. The 1:1
// swap keeps both caps intact, so it costs nothing.
func (g *BastionGame) handleExchangeCards(p *models.Player, payload map[string]interface{}) {
	if g.Phase != PhaseDraw && g.Phase != PhasePlay {
		g.reject(p.ID, "cannot exchange cards now")
		return
	}
	id1, ok1 := payloadCardID(payload, "card1")
	id2, ok2 := payloadCardID(payload, "card2")
	if !ok1 || !ok2 {
		g.reject(p.ID, "missing card ids")
		return
	}
	handIdx, reserveIdx := -1, -1
	for i, c := range p.Hand {
		if c.ID == id1 || c.ID == id2 {
			handIdx = i
			break
		}
	}
	for i, c := range p.Reserve {
		if c.ID == id1 || c.ID == id2 {
			reserveIdx = i
			break
		}
	}
	if handIdx == -1 || reserveIdx == -1 {
		g.reject(p.ID, "one card must be in hand and one in reserve")
		return
	}
	p.Hand[handIdx], p.Reserve[reserveIdx] = p.Reserve[reserveIdx], p.Hand[handIdx]
	g.broadcastState()
}

// --- PLAY ---

// handleSkipAction advances exactly one phase: past a resolved DISCARD, past
// the rest of DRAW, or forgoing the turn's PLAY action.
func (g *BastionGame) handleSkipAction(p *models.Player) {
	switch g.Phase {
	case PhaseDiscard:
		if !g.turn.DiscardResolved {
			g.reject(p.ID, "you must discard first")
			return
		}
		g.Phase = PhaseDraw
		g.maybeFinishDraw(p)
	case PhaseDraw:
		g.turn.DrawDone = true
		g.Phase = PhasePlay
	case PhasePlay:
		g.turn.ActionDone = true
		g.turn.ActedThisTurn = true
	default:
		g.reject(p.ID, "nothing to skip")
		return
	}
	g.broadcastState()
}

// handlePlaceCard plays a selection onto one of the acting player's columns:
// a next-rank run card, an Ace+activator unlock, a face-card install, or a
// Queen heal combo. This is the turn's single action.
func (g *BastionGame) handlePlaceCard(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	suit, ok := payloadSuit(payload, "suit")
	if !ok {
		g.reject(p.ID, "missing suit")
		return
	}
	col := g.columnsOf(p.ID)[suit]
	if col == nil {
		g.reject(p.ID, "no such column")
		return
	}
	ids, ok := payloadCardIDs(payload, "selectedCards")
	if !ok || len(ids) == 0 {
		g.reject(p.ID, "missing card selection")
		return
	}
	selection := make([]*models.Card, 0, len(ids))
	for _, id := range ids {
		c := p.FindHeld(id)
		if c == nil {
			g.reject(p.ID, "selected card not in hand or reserve")
			return
		}
		selection = append(selection, c)
	}

	var res *PlaceResult
	var err error
	if face := pickFaceCard(selection); face != nil {
		activator := pickActivator(selection, face)
		if len(selection) > 2 || (len(selection) == 2 && activator == nil) {
			g.reject(p.ID, "invalid face-card selection")
			return
		}
		res, err = col.InstallFaceCard(face, activator, activationSource(activator))
	} else {
		res, err = col.Place(selection)
	}
	if err != nil {
		g.reject(p.ID, err.Error())
		return
	}

	for _, c := range selection {
		p.RemoveHeld(c.ID)
	}
	g.applyPlaceResult(p, suit, res)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true
	g.checkLifecycle()
	g.broadcastState()
}

// applyPlaceResult carries out the placement side effects the column engine
// surfaced but did not apply. Assumes lock is held.
func (g *BastionGame) applyPlaceResult(p *models.Player, suit models.Suit, res *PlaceResult) {
	if res.HealAmount > 0 {
		p.Heal(res.HealAmount)
	}
	if res.SpentQueen != nil {
		p.Discard = append(p.Discard, res.SpentQueen)
	}
	if res.Revolution {
		// Revolution: the opposing same-suit column loses its activator.
		opp := g.opponentOf(p.ID)
		if oppCol := g.columnsOf(opp.ID)[suit]; oppCol != nil {
			if freed := oppCol.UnbindActivator(); freed != nil {
				opp.Hand = append(opp.Hand, freed)
			}
		}
		log.Printf("game %s: revolution in %s for player %s", g.ID, suit, p.ID)
	}
}

// requirePlayAction gates the turn's single PLAY action. Assumes lock is
// held.
func (g *BastionGame) requirePlayAction(p *models.Player) bool {
	if g.Phase != PhasePlay {
		g.reject(p.ID, "not in play phase")
		return false
	}
	if g.turn.ActionDone {
		g.reject(p.ID, "you have already played your action this turn")
		return false
	}
	return true
}

// handleActivatorExchange swaps a column's bound activator for a held one;
// the displaced card returns to the player's hand.
func (g *BastionGame) handleActivatorExchange(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	columnCardID, ok1 := payloadCardID(payload, "columnCard")
	playerCardID, ok2 := payloadCardID(payload, "playerCard")
	if !ok1 || !ok2 {
		g.reject(p.ID, "missing card ids")
		return
	}
	col := g.findColumnByActivator(p.ID, columnCardID)
	if col == nil {
		g.reject(p.ID, "no column holds that activator")
		return
	}
	replacement := p.FindHeld(playerCardID)
	if replacement == nil {
		g.reject(p.ID, "replacement card not in hand or reserve")
		return
	}
	displaced, err := col.ExchangeActivator(replacement)
	if err != nil {
		g.reject(p.ID, err.Error())
		return
	}
	p.RemoveHeld(replacement.ID)
	p.Hand = append(p.Hand, displaced)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true
	g.broadcastState()
}

// handleJokerExchange swaps a column-bound Joker for a held 7 of the
// column's suit; the Joker returns to the player's hand.
func (g *BastionGame) handleJokerExchange(p *models.Player, payload map[string]interface{}) {
	if !g.requirePlayAction(p) {
		return
	}
	cardID, ok := payloadCardID(payload, "selectedCard")
	if !ok {
		g.reject(p.ID, "missing card id")
		return
	}
	seven := p.FindHeld(cardID)
	if seven == nil || seven.Value != 7 || seven.IsJoker() {
		g.reject(p.ID, "a 7 of the column suit is required")
		return
	}
	col := g.columnsOf(p.ID)[seven.Suit]
	if col == nil || col.Activator == nil || !col.Activator.IsJoker() {
		g.reject(p.ID, "no Joker is bound to that column")
		return
	}
	joker, err := col.ExchangeActivator(seven)
	if err != nil {
		g.reject(p.ID, err.Error())
		return
	}
	p.RemoveHeld(seven.ID)
	p.Hand = append(p.Hand, joker)
	g.turn.ActionDone = true
	g.turn.ActedThisTurn = true
	g.broadcastState()
}

// handleEndTurn finishes the turn once all obligations are met.
func (g *BastionGame) handleEndTurn(p *models.Player) {
	if g.Phase != PhasePlay || !g.turn.DiscardResolved || !g.turn.DrawDone || !g.turn.ActionDone {
		g.reject(p.ID, "turn obligations are not complete")
		return
	}
	if p.OverHeldLimit() {
		g.reject(p.ID, "you hold too many cards; discard first")
		return
	}
	g.advanceTurn()
}

// handleUpdateProfile applies cosmetic profile changes.
func (g *BastionGame) handleUpdateProfile(p *models.Player, payload map[string]interface{}) {
	if name, ok := payloadString(payload, "displayName"); ok {
		p.Profile.DisplayName = name
	}
	if avatar, ok := payloadString(payload, "avatarUrl"); ok {
		p.Profile.AvatarURL = avatar
	}
	g.broadcastState()
}

// handleSurrender concedes the match.
func (g *BastionGame) handleSurrender(p *models.Player) {
	if !g.Started {
		g.finalize(nil, "aborted")
		return
	}
	winner := g.opponentOf(p.ID)
	g.finalize(winner, "surrender")
}

// discardPilesEmpty reports whether neither player has discards to recycle.
// Assumes lock is held.
func (g *BastionGame) discardPilesEmpty() bool {
	for _, pl := range g.Players {
		if len(pl.Discard) > 0 {
			return false
		}
	}
	return true
}

// findColumnByActivator locates the player's column whose bound activator
// has the given ID. Assumes lock is held.
func (g *BastionGame) findColumnByActivator(playerID, cardID uuid.UUID) *Column {
	for _, col := range g.columnsOf(playerID) {
		if col.Activator != nil && col.Activator.ID == cardID {
			return col
		}
	}
	return nil
}
