// internal/game/column.go
package game

import (
	"errors"

	"github.com/jason-s-yu/bastion/internal/models"
)

// Column placement errors. All are rejections: the column is never mutated
// when one of these is returned.
var (
	ErrSuitMismatch  = errors.New("card suit does not match column")
	ErrColumnLocked  = errors.New("column has no lucky card yet")
	ErrSlotOccupied  = errors.New("slot is already occupied")
	ErrOutOfSequence = errors.New("card is not the next rank in the column")
	ErrNotActivator  = errors.New("card is not a 7 or Joker")
)

// MaxColumnSlots caps a column's rank run at A..10.
const MaxColumnSlots = 10

// Queen heal amounts by activator type.
const (
	QueenHealJoker = 4
	QueenHealSeven = 2
)

// Column is one suit's stack: the A..10 rank run, the J/K face slots, and the
// bound activator card.
type Column struct {
	Suit      models.Suit           `json:"suit"`
	Cards     []*models.Card        `json:"cards"`
	FaceCards map[int]*models.Card  `json:"faceCards"` // keyed by ValueJack / ValueKing
	Activator *models.Card          `json:"reserveSuit,omitempty"`

	HasLuckyCard bool `json:"hasLuckyCard"`

	// AttackButtons marks which placed ranks may currently initiate an
	// attack. Keyed by card value, including the face slots.
	AttackButtons map[int]bool `json:"attackButtons"`

	// LastAttackValue is the rank that most recently attacked from this
	// column, 0 if none.
	LastAttackValue int `json:"lastAttackCard,omitempty"`
}

// NewColumn returns an empty, locked column for the suit.
func NewColumn(suit models.Suit) *Column {
	return &Column{
		Suit:          suit,
		Cards:         []*models.Card{},
		FaceCards:     make(map[int]*models.Card),
		AttackButtons: make(map[int]bool),
	}
}

// PlaceResult reports the side effects of a successful placement for the
// session layer to apply (heals are never applied by the column itself).
type PlaceResult struct {
	Unlocked      bool
	Revolution    bool
	HealAmount    int
	InstalledFace *models.Card
	SpentQueen    *models.Card
}

// nextRank is the value the run needs next (1 when empty).
func (col *Column) nextRank() int {
	return len(col.Cards) + 1
}

// King returns the installed King, or nil.
func (col *Column) King() *models.Card { return col.FaceCards[models.ValueKing] }

// Jack returns the installed Jack, or nil.
func (col *Column) Jack() *models.Card { return col.FaceCards[models.ValueJack] }

// CardAt returns the placed run card with the given value, or nil.
func (col *Column) CardAt(value int) *models.Card {
	if value < models.ValueAce || value > len(col.Cards) {
		return nil
	}
	return col.Cards[value-1]
}

// TopCard returns the highest placed run card, or nil for an empty column.
func (col *Column) TopCard() *models.Card {
	if len(col.Cards) == 0 {
		return nil
	}
	return col.Cards[len(col.Cards)-1]
}

// activatorMatches reports whether the card can bind to this column as its
// activator: any Joker, or a 7 of the column's suit.
func (col *Column) activatorMatches(c *models.Card) bool {
	if c.IsJoker() {
		return true
	}
	return c.Value == 7 && c.Suit == col.Suit
}

// CanPlace validates a placement selection without applying it. Valid
// selections are a single next-rank card on an unlocked column, or an
// Ace + activator pair that unlocks an empty column.
func (col *Column) CanPlace(selection []*models.Card) error {
	switch len(selection) {
	case 1:
		c := selection[0]
		if c.IsJoker() {
			return ErrNotActivator
		}
		if c.Suit != col.Suit {
			return ErrSuitMismatch
		}
		if !col.HasLuckyCard {
			return ErrColumnLocked
		}
		if c.IsFace() {
			// Face cards enter via InstallFaceCard, never the run.
			return ErrOutOfSequence
		}
		if c.Value < col.nextRank() {
			return ErrSlotOccupied
		}
		if c.Value > col.nextRank() || c.Value > MaxColumnSlots {
			return ErrOutOfSequence
		}
		return nil
	case 2:
		ace, activator := splitAcePair(selection)
		if ace == nil || activator == nil {
			return ErrOutOfSequence
		}
		if ace.Suit != col.Suit {
			return ErrSuitMismatch
		}
		if !col.activatorMatches(activator) {
			return ErrSuitMismatch
		}
		if col.HasLuckyCard || len(col.Cards) > 0 {
			return ErrSlotOccupied
		}
		return nil
	default:
		return ErrOutOfSequence
	}
}

// Place applies a selection previously validated by CanPlace. The placed
// card's attack button starts inactive; it arms at the start of the owner's
// next turn. Completing the A..10 run triggers a revolution.
func (col *Column) Place(selection []*models.Card) (*PlaceResult, error) {
	if err := col.CanPlace(selection); err != nil {
		return nil, err
	}
	res := &PlaceResult{}
	if len(selection) == 2 {
		ace, activator := splitAcePair(selection)
		col.Cards = append(col.Cards, ace)
		col.Activator = activator
		col.HasLuckyCard = true
		col.AttackButtons[ace.Value] = false
		res.Unlocked = true
		return res, nil
	}
	c := selection[0]
	col.Cards = append(col.Cards, c)
	col.AttackButtons[c.Value] = false
	if len(col.Cards) == MaxColumnSlots {
		res.Revolution = true
		for v := range col.AttackButtons {
			col.AttackButtons[v] = true
		}
	}
	return res, nil
}

// CanInstallFaceCard validates installing a Jack or King with an activator
// pair, or a Queen heal combo. A nil activator is allowed only for sacrifice
// installs, which pay their cost elsewhere.
func (col *Column) CanInstallFaceCard(face *models.Card, activator *models.Card) error {
	if !face.IsFace() {
		return ErrOutOfSequence
	}
	if face.Suit != col.Suit {
		return ErrSuitMismatch
	}
	if !col.HasLuckyCard {
		return ErrColumnLocked
	}
	if face.Value != models.ValueQueen {
		if col.FaceCards[face.Value] != nil {
			return ErrSlotOccupied
		}
	}
	if activator != nil {
		if !activator.IsActivator() {
			return ErrNotActivator
		}
		if !col.activatorMatches(activator) {
			return ErrSuitMismatch
		}
		if col.Activator != nil {
			return ErrSlotOccupied
		}
	} else if face.Value == models.ValueQueen && col.Activator == nil {
		// A Queen combo may ride the already-bound activator, but needs one.
		return ErrColumnLocked
	}
	return nil
}

// InstallFaceCard installs a Jack or King (occupying its face slot), or
// resolves a Queen combo (heal surfaced in the result, Queen spent to the
// owner's discard by the caller). The activator, when given, binds to the
// column.
func (col *Column) InstallFaceCard(face *models.Card, activator *models.Card, source models.ActivationSource) (*PlaceResult, error) {
	if err := col.CanInstallFaceCard(face, activator); err != nil {
		return nil, err
	}
	res := &PlaceResult{}
	if activator != nil {
		col.Activator = activator
	}
	if face.Value == models.ValueQueen {
		res.SpentQueen = face
		res.HealAmount = QueenHealSeven
		if col.Activator != nil && col.Activator.IsJoker() {
			res.HealAmount = QueenHealJoker
		}
		return res, nil
	}
	face.ActivatedBy = source
	col.FaceCards[face.Value] = face
	res.InstalledFace = face
	if face.Value == models.ValueJack {
		// A Jack activated this turn may attack immediately.
		face.State = models.JackActive
		col.AttackButtons[face.Value] = true
	} else {
		col.AttackButtons[face.Value] = false
	}
	return res, nil
}

// ExchangeActivator swaps the bound activator for a new one, returning the
// displaced card. Exactly one activator stays bound throughout.
func (col *Column) ExchangeActivator(newActivator *models.Card) (*models.Card, error) {
	if !newActivator.IsActivator() {
		return nil, ErrNotActivator
	}
	if !col.activatorMatches(newActivator) {
		return nil, ErrSuitMismatch
	}
	if col.Activator == nil {
		return nil, ErrColumnLocked
	}
	displaced := col.Activator
	col.Activator = newActivator
	return displaced, nil
}

// ArmAttackButtons activates every placed rank's button at the start of the
// owner's turn. An installed passive Jack flips active.
func (col *Column) ArmAttackButtons() {
	for _, c := range col.Cards {
		col.AttackButtons[c.Value] = true
	}
	for v, f := range col.FaceCards {
		col.AttackButtons[v] = true
		if f.Value == models.ValueJack {
			f.State = models.JackActive
		}
	}
}

// MarkAttacked disarms the attacking rank and records it.
func (col *Column) MarkAttacked(value int) {
	col.AttackButtons[value] = false
	col.LastAttackValue = value
	if f := col.FaceCards[value]; f != nil && f.Value == models.ValueJack {
		f.State = models.JackPassive
	}
}

// RemoveCard detaches a run or face card by value, closing the run invariant
// concern for callers: only the topmost run card may be removed.
func (col *Column) RemoveCard(value int) *models.Card {
	if f, ok := col.FaceCards[value]; ok && f != nil {
		delete(col.FaceCards, value)
		delete(col.AttackButtons, value)
		return f
	}
	if top := col.TopCard(); top != nil && top.Value == value {
		col.Cards = col.Cards[:len(col.Cards)-1]
		delete(col.AttackButtons, value)
		return top
	}
	return nil
}

// UnbindActivator removes and returns the bound activator, if any.
func (col *Column) UnbindActivator() *models.Card {
	a := col.Activator
	col.Activator = nil
	return a
}

// splitAcePair picks the Ace and the activator out of a 2-card selection.
func splitAcePair(selection []*models.Card) (ace, activator *models.Card) {
	for _, c := range selection {
		switch {
		case c.Type == models.TypeStandard && c.Value == models.ValueAce:
			ace = c
		case c.IsActivator():
			activator = c
		}
	}
	return ace, activator
}
