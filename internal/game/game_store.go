package game

import (
	"sync"

	"github.com/google/uuid"
)

type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*BastionGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*BastionGame),
	}
}

func (s *GameStore) AddGame(game *BastionGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

func (s *GameStore) GetGame(id uuid.UUID) (*BastionGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}
