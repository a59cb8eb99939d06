// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/bastion/internal/models"
)

// RecordMatchResult persists the final outcome of a match: the games row is
// marked completed and one game_results row per player records final health
// and whether they won. A nil-winner match (draw or abort) records no winner.
func RecordMatchResult(ctx context.Context, gameID uuid.UUID, players []*models.Player, winnerID uuid.UUID, reason string) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, end_reason, end_time)
			VALUES ($1, 'completed', $2, NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_reason = $2, end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID, reason); e != nil {
			return e
		}

		for _, pl := range players {
			q := `
				INSERT INTO game_results (game_id, player_id, final_health, did_win)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET final_health=$3, did_win=$4
			`
			if _, e := tx.Exec(ctx, q, gameID, pl.ID, pl.Health, pl.ID == winnerID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// StoreFinalGameStateInDB updates the games.final_game_state column with the
// closing snapshot (columns, health, remaining zones).
func StoreFinalGameStateInDB(ctx context.Context, gameID uuid.UUID, finalSnapshot interface{}) error {
	jsonData, err := json.Marshal(finalSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}
	query := `
		UPDATE games
		SET final_game_state = $1
		WHERE id = $2
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, query, jsonData, gameID)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing final game state in DB: %w", err)
	}
	return nil
}

// UpsertInitialGameState stores the deck order and dealt hands into
// games.initial_game_state so the match can be reconstructed from the log.
func UpsertInitialGameState(gameID uuid.UUID, initialData interface{}) {
	ctx := context.Background()
	dataBytes, err := json.Marshal(initialData)
	if err != nil {
		log.Printf("failed to marshal initial game state for game %v: %v", gameID, err)
		return
	}
	_ = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, initial_game_state, start_time)
			VALUES ($1, 'in_progress', $2, NOW())
			ON CONFLICT (id)
			DO UPDATE SET initial_game_state = EXCLUDED.initial_game_state, status='in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID, dataBytes)
		return e
	})
}
