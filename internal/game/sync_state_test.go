// internal/game/sync_state_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/bastion/internal/models"
)

func TestSnapshotHidesOpponentZones(t *testing.T) {
	g, playerA, playerB, _ := setupStartedGame(t)

	view := g.relativeStateFor(playerA.ID)
	require.Len(t, view.Players, 2)
	for _, ps := range view.Players {
		if ps.PlayerID == playerA.ID {
			assert.Len(t, ps.Hand, len(playerA.Hand))
			assert.Len(t, ps.Reserve, len(playerA.Reserve))
		} else {
			assert.Nil(t, ps.Hand, "opponent hand contents stay hidden")
			assert.Nil(t, ps.Reserve)
			assert.Equal(t, len(playerB.Hand), ps.HandSize)
		}
	}
}

func TestSnapshotHidesBlockersFromAttacker(t *testing.T) {
	g, playerA, playerB, _ := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitClubs]
	col.HasLuckyCard = true
	three := mkCard(models.SuitClubs, 3)
	col.Cards = []*models.Card{mkCard(models.SuitClubs, 1), mkCard(models.SuitClubs, 2), three}
	col.AttackButtons[3] = true

	// The defender's only 7 is hidden in hand.
	blocker := mkCard(models.SuitHearts, 7)
	playerB.Hand = []*models.Card{blocker}
	playerB.Reserve = []*models.Card{}

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "attack",
		Payload: map[string]interface{}{
			"attackCard":   three.ID.String(),
			"attackTarget": map[string]interface{}{"attackType": AttackTypeHealth},
		},
	})
	require.NotNil(t, g.Negotiation)
	require.Len(t, g.Negotiation.Attack.BlockingCards, 1)

	attackerView := g.relativeStateFor(playerA.ID)
	assert.Equal(t, NegotiationAttack, attackerView.NegotiationKind)
	require.NotNil(t, attackerView.PendingAttack)
	assert.Empty(t, attackerView.PendingAttack.BlockingCards, "block options reveal the defender's hand")

	defenderView := g.relativeStateFor(playerB.ID)
	require.NotNil(t, defenderView.PendingAttack)
	require.Len(t, defenderView.PendingAttack.BlockingCards, 1)
	assert.Equal(t, blocker.ID, defenderView.PendingAttack.BlockingCards[0].ID)

	// Masking must not disturb the live negotiation state.
	require.Len(t, g.Negotiation.Attack.BlockingCards, 1)
}

func TestSnapshotSurfacesQueenChallenge(t *testing.T) {
	g, playerA, playerB, _ := setupStartedGame(t)
	enterPlayPhase(g)

	col := g.Columns[playerA.ID][models.SuitHearts]
	col.HasLuckyCard = true
	queen := mkCard(models.SuitHearts, models.ValueQueen)
	seven := mkCard(models.SuitHearts, 7)
	playerA.Hand = append(playerA.Hand, queen, seven)

	g.HandlePlayerAction(playerA.ID, models.GameAction{
		ActionType: "queenChallenge",
		Payload:    map[string]interface{}{"selectedCards": []interface{}{queen.ID.String(), seven.ID.String()}},
	})
	require.NotNil(t, g.Negotiation)

	// A defender reconnecting mid-challenge must see what is pending.
	defenderView := g.relativeStateFor(playerB.ID)
	assert.Equal(t, NegotiationQueen, defenderView.NegotiationKind)
	require.NotNil(t, defenderView.QueenChallenge)
	require.NotNil(t, defenderView.QueenChallenge.QueenCard)
	assert.Equal(t, queen.ID, defenderView.QueenChallenge.QueenCard.ID)
	assert.Nil(t, defenderView.QueenChallenge.Activator, "the offered activator stays hidden from the defender")

	challengerView := g.relativeStateFor(playerA.ID)
	require.NotNil(t, challengerView.QueenChallenge)
	require.NotNil(t, challengerView.QueenChallenge.Activator)
	assert.Equal(t, seven.ID, challengerView.QueenChallenge.Activator.ID)
}
