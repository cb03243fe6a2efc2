package main

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

// GameUpdate is a creator-supplied wholesale replacement of a game's roster
// and vote state. It exists as a commit path for results computed elsewhere,
// such as a server-side role shuffle, and deliberately skips the normal
// transition checks.
type GameUpdate struct {
	Players        []PlayerUpdate `json:"players"`
	MafiaMembers   []string       `json:"mafia_members"`
	Votes          []VoteUpdate   `json:"votes"`
	Winner         string         `json:"winner,omitempty"`
	PhaseStartTime int64          `json:"phase_start_time"`
	PhaseEndTime   int64          `json:"phase_end_time"`
}

type PlayerUpdate struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	IsAlive bool   `json:"is_alive"`
}

type VoteUpdate struct {
	Voter  string `json:"voter"`
	Target string `json:"target"`
}

// updateGame replaces a game's players, votes, and phase timestamps in one
// transaction. Addresses listed in MafiaMembers are forced to the mafia
// role; everyone else keeps whatever role the player list gave them. A
// non-empty Winner finishes the game on the spot.
func updateGame(address, gameID string, update GameUpdate) error {
	if update.Winner != "" && update.Winner != WinnerMafia && update.Winner != WinnerTown {
		return ErrInvalidAction
	}

	err := applyTx(func(tx *sqlx.Tx) error {
		game, err := getGameTx(tx, gameID)
		if err != nil {
			return err
		}
		if game.Creator != address {
			return ErrNotCreator
		}
		if len(update.Players) > maxRosterSize {
			return ErrTooManyPlayers
		}

		mafia := make(map[string]bool, len(update.MafiaMembers))
		for _, m := range update.MafiaMembers {
			mafia[m] = true
		}

		_, err = tx.Exec(`DELETE FROM game_player WHERE game_id = ?`, gameID)
		if err != nil {
			return err
		}
		now := time.Now().Unix()
		for _, p := range update.Players {
			role := p.Role
			if role == "" {
				role = RoleUnknown
			}
			if mafia[p.Address] {
				role = RoleMafia
			}
			_, err = tx.Exec(`
				INSERT INTO game_player (game_id, address, role, is_alive, joined_at)
				VALUES (?, ?, ?, ?, ?)`, gameID, p.Address, role, p.IsAlive, now)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(`DELETE FROM game_vote WHERE game_id = ?`, gameID)
		if err != nil {
			return err
		}
		for _, v := range update.Votes {
			_, err = tx.Exec(`
				INSERT INTO game_vote (game_id, voter, target, cast_at)
				VALUES (?, ?, ?, ?)`, gameID, v.Voter, v.Target, now)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`
				UPDATE game_player SET vote_target = ?
				WHERE game_id = ? AND address = ?`, v.Target, gameID, v.Voter)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(`
			UPDATE game SET phase_start_time = ?, phase_end_time = ?
			WHERE game_id = ?`, update.PhaseStartTime, update.PhaseEndTime, gameID)
		if err != nil {
			return err
		}

		if update.Winner != "" {
			_, err = tx.Exec(`
				UPDATE game SET state = ?, winner = ?
				WHERE game_id = ?`, StateFinished, update.Winner, gameID)
			if err != nil {
				return err
			}
		}

		return emitEvent(tx, gameID, EventGameUpdated, map[string]any{
			"player_count": len(update.Players),
			"vote_count":   len(update.Votes),
			"winner":       update.Winner,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("Game %s bulk-updated by creator %s", gameID, address)
	LogDBState("after updateGame " + gameID)
	return nil
}
