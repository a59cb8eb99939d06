// internal/game/game_test.go
package game

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/bastion/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent               // Events sent to everyone
	playerEvents map[uuid.UUID][]GameEvent // Events sent to specific players
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []GameEvent{}
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) eventsOfType(t GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := []GameEvent{}
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastPlayerEvent(playerID uuid.UUID) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

// mkCard builds a standard card for test surgery.
func mkCard(suit models.Suit, value int) *models.Card {
	color := models.ColorBlack
	if suit == models.SuitHearts || suit == models.SuitDiamonds {
		color = models.ColorRed
	}
	return &models.Card{ID: uuid.New(), Suit: suit, Value: value, Color: color, Type: models.TypeStandard}
}

func mkJoker() *models.Card {
	return &models.Card{ID: uuid.New(), Suit: models.SuitSpecial, Value: models.JokerValue, Color: models.ColorRed, Type: models.TypeJoker, IsRedJoker: true}
}

// setupStartedGame seats two players, fills both reserves, and starts the
// match. Player A (index 0) is the acting player.
func setupStartedGame(t *testing.T) (*BastionGame, *models.Player, *models.Player, *mockBroadcaster) {
	g := NewBastionGame()
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	playerA := &models.Player{ID: uuid.New(), Name: "A", Connected: true}
	playerB := &models.Player{ID: uuid.New(), Name: "B", Connected: true}
	g.AddPlayer(playerA)
	g.AddPlayer(playerB)

	require.Len(t, playerA.Hand, 7, "initial deal should be 7 cards")
	require.Len(t, playerB.Hand, 7)

	for _, p := range []*models.Player{playerA, playerB} {
		for i := 0; i < models.MaxReserveSize; i++ {
			g.HandlePlayerAction(p.ID, models.GameAction{
				ActionType: "moveToReserve",
				Payload:    map[string]interface{}{"card": p.Hand[0].ID.String()},
			})
		}
		require.Len(t, p.Reserve, 2)
	}

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "startGame"})
	require.True(t, g.Started, "game should start once both reserves are full")
	require.Equal(t, PhaseDiscard, g.Phase)
	require.Equal(t, playerA.ID, g.currentPlayer().ID)

	mb.clear()
	return g, playerA, playerB, mb
}

// enterPlayPhase force-settles the turn obligations so the next action is a
// legal PLAY action.
func enterPlayPhase(g *BastionGame) {
	g.Phase = PhasePlay
	g.turn = turnState{DiscardResolved: true, DrawDone: true}
}

func TestMandatoryFirstTurnDiscard(t *testing.T) {
	g, playerA, _, _ := setupStartedGame(t)

	// Drawing before the mandatory discard must be refused.
	handBefore := len(playerA.Hand)
	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "drawCard"})
	assert.Equal(t, PhaseDiscard, g.Phase)
	assert.Len(t, playerA.Hand, handBefore)

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "discardCard",
		Payload:    map[string]interface{}{"card": playerA.Hand[0].ID.String()},
	})
	assert.Equal(t, PhaseDraw, g.Phase, "phase should advance to DRAW after the mandatory discard")
	assert.Len(t, playerA.Discard, 1)
}

func TestEndTurnBeforeDrawRejected(t *testing.T) {
	g, playerA, _, mb := setupStartedGame(t)

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "discardCard",
		Payload:    map[string]interface{}{"card": playerA.Hand[0].ID.String()},
	})
	require.Equal(t, PhaseDraw, g.Phase)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "endTurn"})
	assert.Equal(t, playerA.ID, g.currentPlayer().ID, "turn must not advance before draw completes")

	rejection := mb.lastPlayerEvent(playerA.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
}

func TestWrongTurnRejected(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)

	g.HandlePlayerAction(playerB.ID, models.GameAction{ActionType: "drawCard"})
	assert.Equal(t, playerA.ID, g.currentPlayer().ID)

	rejection := mb.lastPlayerEvent(playerB.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
	assert.Equal(t, "it's not your turn", rejection.Message)
}

func TestAceActivatorUnlocksColumn(t *testing.T) {
	g, playerA, _, _ := setupStartedGame(t)
	enterPlayPhase(g)

	ace := mkCard(models.SuitClubs, models.ValueAce)
	seven := mkCard(models.SuitClubs, 7)
	playerA.Hand = append(playerA.Hand, ace, seven)

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "placeCard",
		Payload: map[string]interface{}{
			"suit":          string(models.SuitClubs),
			"selectedCards": []interface{}{ace.ID.String(), seven.ID.String()},
		},
	})

	col := g.Columns[playerA.ID][models.SuitClubs]
	assert.True(t, col.HasLuckyCard, "Ace + 7 pair should unlock the column")
	require.Len(t, col.Cards, 1)
	assert.Equal(t, ace.ID, col.Cards[0].ID)
	require.NotNil(t, col.Activator)
	assert.Equal(t, seven.ID, col.Activator.ID)
	assert.Nil(t, playerA.FindHeld(ace.ID), "placed cards must leave the hand")
	assert.True(t, g.turn.ActionDone)
}

func TestUnblockedHealthAttack(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	// Board surgery: a diamonds run up to 5 with an armed button.
	col := g.Columns[playerA.ID][models.SuitDiamonds]
	col.HasLuckyCard = true
	var five *models.Card
	for v := 1; v <= 5; v++ {
		c := mkCard(models.SuitDiamonds, v)
		col.Cards = append(col.Cards, c)
		col.AttackButtons[v] = true
		if v == 5 {
			five = c
		}
	}
	// Defender holds no sevens, so the attack cannot be blocked.
	playerB.Hand = []*models.Card{mkCard(models.SuitSpades, 3)}
	playerB.Reserve = []*models.Card{}
	healthBefore := playerB.Health

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   five.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	require.NotNil(t, g.Negotiation, "attack declaration must open a negotiation")
	require.Equal(t, NegotiationAttack, g.Negotiation.Kind)
	assert.Empty(t, g.Negotiation.Attack.BlockingCards)
	assert.False(t, col.AttackButtons[5], "the attacking rank disarms on declaration")

	g.HandlePlayerAction(playerB.ID, models.GameAction{
		ActionType: "blockResponse",
		Payload:    map[string]interface{}{"willBlock": false},
	})

	assert.Equal(t, healthBefore-5, playerB.Health, "unblocked 5 should deal 5 damage")
	assert.Nil(t, g.Negotiation, "negotiation must clear after resolution")

	results := mb.eventsOfType(EventAttackResult)
	require.Len(t, results, 1, "exactly one attackResult per attack")
	require.NotNil(t, results[0].IsBlocked)
	assert.False(t, *results[0].IsBlocked)
}

func TestKingBlocksHealthAttackInItsSuit(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitHearts]
	col.HasLuckyCard = true
	four := mkCard(models.SuitHearts, 4)
	col.Cards = []*models.Card{mkCard(models.SuitHearts, 1), mkCard(models.SuitHearts, 2), mkCard(models.SuitHearts, 3), four}
	col.AttackButtons[4] = true

	defCol := g.Columns[playerB.ID][models.SuitHearts]
	defCol.HasLuckyCard = true
	defCol.FaceCards[models.ValueKing] = mkCard(models.SuitHearts, models.ValueKing)

	healthBefore := playerB.Health
	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   four.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})

	assert.Nil(t, g.Negotiation, "invalid target must not open a negotiation")
	assert.Equal(t, healthBefore, playerB.Health)
	rejection := mb.lastPlayerEvent(playerA.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
}

func TestBlockEligibilityPool(t *testing.T) {
	defender := &models.Player{ID: uuid.New()}
	heartsSeven := mkCard(models.SuitHearts, 7)
	spadesSeven := mkCard(models.SuitSpades, 7)
	spentSeven := mkCard(models.SuitHearts, 7)
	spentSeven.HasDefended = true
	defender.Hand = []*models.Card{heartsSeven, spentSeven, mkCard(models.SuitHearts, 4)}
	defender.Reserve = []*models.Card{spadesSeven}

	// A health attack accepts any unspent 7 from hand or reserve.
	pool := eligibleBlockers(defender, AttackTarget{AttackType: AttackTypeHealth})
	require.Len(t, pool, 2)

	// A unit attack demands a 7 of the attacked column's suit.
	pool = eligibleBlockers(defender, AttackTarget{AttackType: AttackTypeUnit, Suit: models.SuitSpades, CardValue: 3})
	require.Len(t, pool, 1)
	assert.Equal(t, spadesSeven.ID, pool[0].ID)
}

func TestBlockedAttackConsumesSeven(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitClubs]
	col.HasLuckyCard = true
	three := mkCard(models.SuitClubs, 3)
	col.Cards = []*models.Card{mkCard(models.SuitClubs, 1), mkCard(models.SuitClubs, 2), three}
	col.AttackButtons[3] = true

	blocker := mkCard(models.SuitDiamonds, 7)
	playerB.Hand = []*models.Card{blocker}
	playerB.Reserve = []*models.Card{}
	healthBefore := playerB.Health

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   three.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	require.NotNil(t, g.Negotiation)

	g.HandlePlayerAction(playerB.ID, models.GameAction{
		ActionType: "blockResponse",
		Payload:    map[string]interface{}{"willBlock": true, "blockingCard": blocker.ID.String()},
	})

	assert.Equal(t, healthBefore, playerB.Health, "a block cancels all damage")
	assert.Nil(t, g.Negotiation)
	assert.True(t, blocker.HasDefended)
	assert.Nil(t, playerB.FindHeld(blocker.ID), "the blocking 7 leaves the hand")
	require.NotEmpty(t, playerB.Discard)
	assert.Equal(t, blocker.ID, playerB.Discard[len(playerB.Discard)-1].ID)

	results := mb.eventsOfType(EventAttackResult)
	require.Len(t, results, 1)
	assert.True(t, *results[0].IsBlocked)
}

func TestNegotiationSuspendsOrdinaryActions(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitSpades]
	col.HasLuckyCard = true
	ace := mkCard(models.SuitSpades, 1)
	col.Cards = []*models.Card{ace}
	col.AttackButtons[1] = true
	playerB.Hand = []*models.Card{}
	playerB.Reserve = []*models.Card{}

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   ace.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	require.NotNil(t, g.Negotiation)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "drawCard"})
	rejection := mb.lastPlayerEvent(playerA.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
	assert.Contains(t, rejection.Message, "negotiation")
	require.NotNil(t, g.Negotiation, "the pending attack must survive the rejected action")
}

func TestStaleBlockResponseRejected(t *testing.T) {
	g, _, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	// No negotiation is pending; a late response must be refused untouched.
	g.HandlePlayerAction(playerB.ID, models.GameAction{
		ActionType: "blockResponse",
		Payload:    map[string]interface{}{"willBlock": false},
	})
	rejection := mb.lastPlayerEvent(playerB.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
	assert.Equal(t, "no negotiation is pending", rejection.Message)
}

func TestStrategicShuffleOncePerGame(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)

	playerA.Discard = []*models.Card{mkCard(models.SuitHearts, 9), mkCard(models.SuitClubs, 2)}
	playerA.Hand = playerA.Hand[:3] // leave draw quota open so the phase holds at DRAW
	deckBefore := len(g.Deck)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "strategicShuffle"})
	assert.True(t, playerA.HasUsedStrategicShuffle)
	assert.Empty(t, playerA.Discard)
	assert.Equal(t, deckBefore+2, len(g.Deck))
	assert.Equal(t, PhaseDraw, g.Phase, "the shuffle satisfies the turn's discard")

	// Hand the turn over and back, then try again.
	g.advanceTurn()
	require.Equal(t, playerB.ID, g.currentPlayer().ID)
	g.advanceTurn()
	require.Equal(t, playerA.ID, g.currentPlayer().ID)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "strategicShuffle"})
	rejection := mb.lastPlayerEvent(playerA.ID)
	require.NotNil(t, rejection)
	assert.Equal(t, EventActionRejected, rejection.Type)
}

func TestFullHandAutoAdvancesDrawPhase(t *testing.T) {
	g, playerA, _, _ := setupStartedGame(t)
	require.Len(t, playerA.Hand, 5)

	// Discarding from the reserve leaves the hand full; with the draw quota
	// already met the turn moves straight to PLAY.
	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "discardCard",
		Payload:    map[string]interface{}{"card": playerA.Reserve[0].ID.String()},
	})

	assert.Equal(t, PhasePlay, g.Phase)
	assert.True(t, g.turn.DrawDone)
}

func TestSkipAdvancesOnePhase(t *testing.T) {
	g, playerA, _, _ := setupStartedGame(t)
	g.Phase = PhaseDiscard
	g.turn = turnState{DiscardResolved: true}
	playerA.Hand = playerA.Hand[:3]

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "skipAction"})
	assert.Equal(t, PhaseDraw, g.Phase, "a discard skip must not also skip the draw")
	assert.False(t, g.turn.DrawDone)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "skipAction"})
	assert.Equal(t, PhasePlay, g.Phase)
	assert.True(t, g.turn.DrawDone)
	assert.False(t, g.turn.ActionDone)

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "skipAction"})
	assert.True(t, g.turn.ActionDone)
}

func TestDeckExhaustionEndsGame(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	g.Phase = PhaseDraw
	g.turn = turnState{DiscardResolved: true}

	g.Deck = []*models.Card{}
	playerA.Discard = []*models.Card{}
	playerB.Discard = []*models.Card{}
	playerA.Hand = playerA.Hand[:2]
	playerA.Health = 12
	playerB.Health = 8

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "drawCard"})

	assert.True(t, g.GameOver, "an empty deck with empty discards ends the match")
	overs := mb.eventsOfType(EventGameOver)
	require.Len(t, overs, 1)
	assert.Equal(t, playerA.ID, overs[0].PlayerID, "higher health wins on exhaustion")
}

func TestRecycleDiscardPiles(t *testing.T) {
	g, playerA, playerB, _ := setupStartedGame(t)
	g.Phase = PhaseDraw
	g.turn = turnState{DiscardResolved: true}

	g.Deck = []*models.Card{}
	playerA.Discard = []*models.Card{mkCard(models.SuitHearts, 2)}
	playerB.Discard = []*models.Card{mkCard(models.SuitSpades, 9), mkCard(models.SuitClubs, 4)}

	g.HandlePlayerAction(playerA.ID, models.GameAction{ActionType: "recycleDiscardPile"})

	assert.Len(t, g.Deck, 3)
	assert.Empty(t, playerA.Discard)
	assert.Empty(t, playerB.Discard)
	assert.False(t, g.GameOver)
}

func TestSurrenderEndsGame(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)

	g.HandlePlayerAction(playerB.ID, models.GameAction{ActionType: "surrender"})

	assert.True(t, g.GameOver)
	overs := mb.eventsOfType(EventGameOver)
	require.Len(t, overs, 1)
	assert.Equal(t, playerA.ID, overs[0].PlayerID, "the opponent of the conceding player wins")
}

func TestForcedTurnResolutionOnTimeout(t *testing.T) {
	g, playerA, playerB, _ := setupStartedGame(t)
	require.Equal(t, playerA.ID, g.currentPlayer().ID)

	// Simulate the turn timer firing before the mandatory discard.
	handBefore := playerA.HeldCount()
	g.forceTurnResolution()

	assert.Equal(t, playerB.ID, g.currentPlayer().ID, "timeout forces the turn over")
	assert.Equal(t, handBefore-1, playerA.HeldCount(), "the outstanding discard defaults to one held card")
	assert.Len(t, playerA.Discard, 1)
}

func TestTimeoutAutoDeclinesPendingAttack(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitDiamonds]
	col.HasLuckyCard = true
	two := mkCard(models.SuitDiamonds, 2)
	col.Cards = []*models.Card{mkCard(models.SuitDiamonds, 1), two}
	col.AttackButtons[2] = true
	playerB.Hand = []*models.Card{}
	playerB.Reserve = []*models.Card{}
	healthBefore := playerB.Health

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   two.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	require.NotNil(t, g.Negotiation)

	g.forceTurnResolution()

	assert.Nil(t, g.Negotiation)
	assert.Equal(t, healthBefore-2, playerB.Health, "timeout resolves the attack unblocked")
	require.Len(t, mb.eventsOfType(EventAttackResult), 1)
	assert.Equal(t, playerB.ID, g.currentPlayer().ID, "the turn passes after forced resolution")
}

func TestHealthDepletionEndsGame(t *testing.T) {
	g, playerA, playerB, mb := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitSpades]
	col.HasLuckyCard = true
	five := mkCard(models.SuitSpades, 5)
	col.Cards = []*models.Card{mkCard(models.SuitSpades, 1), mkCard(models.SuitSpades, 2), mkCard(models.SuitSpades, 3), mkCard(models.SuitSpades, 4), five}
	col.AttackButtons[5] = true
	playerB.Hand = []*models.Card{}
	playerB.Reserve = []*models.Card{}
	playerB.Health = 4

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   five.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	g.HandlePlayerAction(playerB.ID, models.GameAction{
		ActionType: "blockResponse",
		Payload:    map[string]interface{}{"willBlock": false},
	})

	assert.True(t, g.GameOver)
	overs := mb.eventsOfType(EventGameOver)
	require.Len(t, overs, 1)
	assert.Equal(t, playerA.ID, overs[0].PlayerID)
}
