// internal/game/column_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/bastion/internal/models"
)

// unlockColumn unlocks a fresh column with an Ace + 7 pair.
func unlockColumn(t *testing.T, suit models.Suit) *Column {
	col := NewColumn(suit)
	res, err := col.Place([]*models.Card{mkCard(suit, models.ValueAce), mkCard(suit, 7)})
	require.NoError(t, err)
	require.True(t, res.Unlocked)
	return col
}

func TestColumnLockedRejectsSingles(t *testing.T) {
	col := NewColumn(models.SuitHearts)
	_, err := col.Place([]*models.Card{mkCard(models.SuitHearts, models.ValueAce)})
	assert.ErrorIs(t, err, ErrColumnLocked)
}

func TestColumnUnlockRequiresEmptyColumn(t *testing.T) {
	col := unlockColumn(t, models.SuitHearts)
	_, err := col.Place([]*models.Card{mkCard(models.SuitHearts, models.ValueAce), mkCard(models.SuitHearts, 7)})
	assert.ErrorIs(t, err, ErrSlotOccupied)
}

func TestColumnUnlockWithJoker(t *testing.T) {
	col := NewColumn(models.SuitSpades)
	res, err := col.Place([]*models.Card{mkCard(models.SuitSpades, models.ValueAce), mkJoker()})
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
	require.NotNil(t, col.Activator)
	assert.True(t, col.Activator.IsJoker())
}

func TestColumnRunSequencing(t *testing.T) {
	col := unlockColumn(t, models.SuitClubs)

	// 3 before 2 is out of sequence.
	_, err := col.Place([]*models.Card{mkCard(models.SuitClubs, 3)})
	assert.ErrorIs(t, err, ErrOutOfSequence)

	_, err = col.Place([]*models.Card{mkCard(models.SuitClubs, 2)})
	require.NoError(t, err)

	// A second 2 lands on an occupied slot.
	_, err = col.Place([]*models.Card{mkCard(models.SuitClubs, 2)})
	assert.ErrorIs(t, err, ErrSlotOccupied)

	// Wrong suit never enters.
	_, err = col.Place([]*models.Card{mkCard(models.SuitHearts, 3)})
	assert.ErrorIs(t, err, ErrSuitMismatch)
}

func TestColumnPlacedCardStartsDisarmed(t *testing.T) {
	col := unlockColumn(t, models.SuitDiamonds)
	_, err := col.Place([]*models.Card{mkCard(models.SuitDiamonds, 2)})
	require.NoError(t, err)
	assert.False(t, col.AttackButtons[2], "a freshly placed card may not attack until next turn")

	col.ArmAttackButtons()
	assert.True(t, col.AttackButtons[2])
}

func TestColumnRevolutionOnCompletedRun(t *testing.T) {
	col := unlockColumn(t, models.SuitHearts)
	for v := 2; v < MaxColumnSlots; v++ {
		_, err := col.Place([]*models.Card{mkCard(models.SuitHearts, v)})
		require.NoError(t, err)
	}
	res, err := col.Place([]*models.Card{mkCard(models.SuitHearts, MaxColumnSlots)})
	require.NoError(t, err)
	assert.True(t, res.Revolution, "completing A..10 triggers a revolution")
	for v := 1; v <= MaxColumnSlots; v++ {
		assert.True(t, col.AttackButtons[v], "revolution arms every placed rank at once")
	}

	_, err = col.Place([]*models.Card{mkCard(models.SuitHearts, 11)})
	assert.Error(t, err, "the run stops at 10")
}

func TestInstallFaceCardNeedsUnlockedColumn(t *testing.T) {
	col := NewColumn(models.SuitSpades)
	_, err := col.InstallFaceCard(mkCard(models.SuitSpades, models.ValueKing), mkCard(models.SuitSpades, 7), models.ActivatedByJoker)
	assert.ErrorIs(t, err, ErrColumnLocked)
}

func TestInstallKingOccupiesSlot(t *testing.T) {
	col := unlockColumn(t, models.SuitSpades)
	king := mkCard(models.SuitSpades, models.ValueKing)
	res, err := col.InstallFaceCard(king, nil, models.ActivatedBySacrifice)
	require.NoError(t, err)
	assert.Equal(t, king, res.InstalledFace)
	assert.Equal(t, king, col.King())
	assert.False(t, col.AttackButtons[models.ValueKing], "a new King waits a turn to attack")

	_, err = col.InstallFaceCard(mkCard(models.SuitSpades, models.ValueKing), nil, models.ActivatedBySacrifice)
	assert.ErrorIs(t, err, ErrSlotOccupied)
}

func TestInstallJackAttacksImmediately(t *testing.T) {
	col := unlockColumn(t, models.SuitHearts)
	jack := mkCard(models.SuitHearts, models.ValueJack)
	res, err := col.InstallFaceCard(jack, nil, models.ActivatedBySacrifice)
	require.NoError(t, err)
	assert.Equal(t, jack, res.InstalledFace)
	assert.Equal(t, models.JackActive, jack.State)
	assert.True(t, col.AttackButtons[models.ValueJack])

	col.MarkAttacked(models.ValueJack)
	assert.Equal(t, models.JackPassive, jack.State)
	assert.False(t, col.AttackButtons[models.ValueJack])
}

func TestQueenHealAmounts(t *testing.T) {
	// Riding a bound 7 heals 2.
	col := unlockColumn(t, models.SuitClubs)
	queen := mkCard(models.SuitClubs, models.ValueQueen)
	res, err := col.InstallFaceCard(queen, nil, models.ActivatedByJoker)
	require.NoError(t, err)
	assert.Equal(t, QueenHealSeven, res.HealAmount)
	assert.Equal(t, queen, res.SpentQueen)
	assert.Nil(t, col.FaceCards[models.ValueQueen], "Queens never occupy a slot")

	// Riding a bound Joker heals 4.
	jcol := NewColumn(models.SuitClubs)
	_, err = jcol.Place([]*models.Card{mkCard(models.SuitClubs, models.ValueAce), mkJoker()})
	require.NoError(t, err)
	res, err = jcol.InstallFaceCard(mkCard(models.SuitClubs, models.ValueQueen), nil, models.ActivatedByJoker)
	require.NoError(t, err)
	assert.Equal(t, QueenHealJoker, res.HealAmount)

	// A Queen with no activator anywhere has nothing to ride.
	bare := NewColumn(models.SuitClubs)
	bare.HasLuckyCard = true
	_, err = bare.InstallFaceCard(mkCard(models.SuitClubs, models.ValueQueen), nil, models.ActivatedByJoker)
	assert.ErrorIs(t, err, ErrColumnLocked)
}

func TestExchangeActivator(t *testing.T) {
	col := unlockColumn(t, models.SuitDiamonds)
	original := col.Activator

	_, err := col.ExchangeActivator(mkCard(models.SuitDiamonds, 5))
	assert.ErrorIs(t, err, ErrNotActivator)

	_, err = col.ExchangeActivator(mkCard(models.SuitHearts, 7))
	assert.ErrorIs(t, err, ErrSuitMismatch)

	replacement := mkCard(models.SuitDiamonds, 7)
	displaced, err := col.ExchangeActivator(replacement)
	require.NoError(t, err)
	assert.Equal(t, original, displaced)
	assert.Equal(t, replacement, col.Activator)
}

func TestRemoveCardTopOnly(t *testing.T) {
	col := unlockColumn(t, models.SuitSpades)
	_, err := col.Place([]*models.Card{mkCard(models.SuitSpades, 2)})
	require.NoError(t, err)

	assert.Nil(t, col.RemoveCard(1), "only the topmost run card may be removed")
	removed := col.RemoveCard(2)
	require.NotNil(t, removed)
	assert.Equal(t, 2, removed.Value)
	require.NotNil(t, col.TopCard())
	assert.Equal(t, models.ValueAce, col.TopCard().Value)
}
