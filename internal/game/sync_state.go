// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/bastion/internal/models"
)

// ColumnState is the fully-visible wire form of one column. Columns are
// public board state for both players.
type ColumnState struct {
	Suit          models.Suit  `json:"suit"`
	Cards         []*EventCard `json:"cards"`
	FaceCards     []*EventCard `json:"faceCards,omitempty"`
	Activator     *EventCard   `json:"reserveSuit,omitempty"`
	HasLuckyCard  bool         `json:"hasLuckyCard"`
	AttackButtons map[int]bool `json:"attackButtons"`
	LastAttack    int          `json:"lastAttackCard,omitempty"`
}

// RelativePlayerState is one player's state as seen by the requesting
// player: own hand and reserve revealed, the opponent's reduced to counts.
type RelativePlayerState struct {
	PlayerID      uuid.UUID      `json:"playerId"`
	Name          string         `json:"name,omitempty"`
	Profile       models.Profile `json:"profile"`
	Health        int            `json:"health"`
	MaxHealth     int            `json:"maxHealth"`
	Connected     bool           `json:"connected"`
	IsCurrentTurn bool           `json:"isCurrentTurn"`

	HandSize    int `json:"handSize"`
	ReserveSize int `json:"reserveSize"`
	DiscardSize int `json:"discardSize"`

	// Revealed zones, self only. The discard top is public.
	Hand       []*EventCard `json:"hand,omitempty"`
	Reserve    []*EventCard `json:"reserve,omitempty"`
	DiscardTop *EventCard   `json:"discardTop,omitempty"`

	Columns []ColumnState `json:"columns"`

	HasUsedStrategicShuffle bool `json:"hasUsedStrategicShuffle"`
}

// PlayerGameState is the full relative snapshot pushed on every gameState
// event.
type PlayerGameState struct {
	GameID          uuid.UUID       `json:"gameId"`
	Phase           Phase           `json:"phase"`
	Turn            int             `json:"turn"`
	Started         bool            `json:"started"`
	GameOver        bool            `json:"gameOver"`
	CurrentPlayerID uuid.UUID       `json:"currentPlayerId"`
	DeckSize        int             `json:"deckSize"`
	NegotiationKind NegotiationKind `json:"negotiationKind,omitempty"`
	PendingAttack   *PendingAttack  `json:"pendingAttack,omitempty"`
	QueenChallenge  *QueenChallenge `json:"queenChallenge,omitempty"`

	Players []RelativePlayerState `json:"players"`
}

// relativeStateFor derives the snapshot visible to one player: the shared
// board in full, the opponent's concealed zones as sizes only.
// Assumes lock is held.
func (g *BastionGame) relativeStateFor(forPlayer uuid.UUID) PlayerGameState {
	state := PlayerGameState{
		GameID:   g.ID,
		Phase:    g.Phase,
		Turn:     g.Turn,
		Started:  g.Started,
		GameOver: g.GameOver,
		DeckSize: len(g.Deck),
	}
	if cur := g.currentPlayer(); cur != nil {
		state.CurrentPlayerID = cur.ID
	}
	if g.Negotiation != nil {
		state.NegotiationKind = g.Negotiation.Kind
	}
	if pending := g.pendingAttack(); pending != nil {
		// The block options enumerate the defender's held 7s; only the
		// defender's own view may carry them.
		masked := *pending
		if forPlayer != masked.DefendingPlayerID {
			masked.BlockingCards = nil
		}
		state.PendingAttack = &masked
	}
	if challenge := g.pendingQueenChallenge(); challenge != nil {
		// The offered activator is still hidden in the challenger's hand.
		masked := *challenge
		if forPlayer != masked.ChallengerID {
			masked.Activator = nil
		}
		state.QueenChallenge = &masked
	}

	for i, pl := range g.Players {
		ps := RelativePlayerState{
			PlayerID:                pl.ID,
			Name:                    pl.Name,
			Profile:                 pl.Profile,
			Health:                  pl.Health,
			MaxHealth:               pl.MaxHealth,
			Connected:               pl.Connected,
			IsCurrentTurn:           g.Started && i == g.CurrentPlayerIndex,
			HandSize:                len(pl.Hand),
			ReserveSize:             len(pl.Reserve),
			DiscardSize:             len(pl.Discard),
			HasUsedStrategicShuffle: pl.HasUsedStrategicShuffle,
		}
		if len(pl.Discard) > 0 {
			ps.DiscardTop = eventCard(pl.Discard[len(pl.Discard)-1])
		}
		if pl.ID == forPlayer {
			ps.Hand = eventCards(pl.Hand)
			ps.Reserve = eventCards(pl.Reserve)
		}
		for _, suit := range models.StandardSuits {
			col := g.columnsOf(pl.ID)[suit]
			if col == nil {
				continue
			}
			cs := ColumnState{
				Suit:          suit,
				Cards:         eventCards(col.Cards),
				Activator:     eventCard(col.Activator),
				HasLuckyCard:  col.HasLuckyCard,
				AttackButtons: col.AttackButtons,
				LastAttack:    col.LastAttackValue,
			}
			for _, f := range col.FaceCards {
				cs.FaceCards = append(cs.FaceCards, eventCard(f))
			}
			ps.Columns = append(ps.Columns, cs)
		}
		state.Players = append(state.Players, ps)
	}
	return state
}

// GetSnapshot returns the relative snapshot for one player, taking the game
// lock. Used by the HTTP snapshot endpoint and end-of-game persistence.
func (g *BastionGame) GetSnapshot(forPlayer uuid.UUID) PlayerGameState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.relativeStateFor(forPlayer)
}

// FullSnapshot dumps the unmasked game for persistence: deck order and both
// players' zones. Never sent to clients.
func (g *BastionGame) FullSnapshot() map[string]interface{} {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	players := make([]map[string]interface{}, 0, len(g.Players))
	for _, pl := range g.Players {
		players = append(players, map[string]interface{}{
			"playerId": pl.ID,
			"health":   pl.Health,
			"hand":     eventCards(pl.Hand),
			"reserve":  eventCards(pl.Reserve),
			"discard":  eventCards(pl.Discard),
		})
	}
	return map[string]interface{}{
		"gameId":  g.ID,
		"phase":   g.Phase,
		"turn":    g.Turn,
		"deck":    eventCards(g.Deck),
		"players": players,
	}
}

// eventCards maps a zone to its wire form.
func eventCards(cards []*models.Card) []*EventCard {
	out := make([]*EventCard, len(cards))
	for i, c := range cards {
		out[i] = eventCard(c)
	}
	return out
}
