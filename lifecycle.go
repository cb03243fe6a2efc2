package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// createGame registers a new session in the waiting state. The creator does
// not join automatically; they pay the entry fee like everyone else.
func createGame(creator string, maxPlayers int, entryFee int64) (string, error) {
	if maxPlayers < 4 {
		return "", ErrNotEnoughPlayers
	}
	if maxPlayers > maxRosterSize {
		return "", ErrTooManyPlayers
	}
	if entryFee < 0 {
		return "", ErrInvalidAction
	}

	gameID := uuid.NewString()
	now := time.Now().Unix()

	err := applyTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO game (game_id, creator, max_players, entry_fee, state, phase,
				day_count, escrow, created_at, phase_start_time)
			VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
			gameID, creator, maxPlayers, entryFee, StateWaiting, PhaseLobby, now, now)
		if err != nil {
			return err
		}
		return emitEvent(tx, gameID, EventGameCreated, map[string]any{
			"creator":     creator,
			"max_players": maxPlayers,
			"entry_fee":   entryFee,
		})
	})
	if err != nil {
		return "", err
	}

	log.Printf("Game %s created by %s (max %d, fee %d)", gameID, creator, maxPlayers, entryFee)
	LogDBState("after createGame " + gameID)
	return gameID, nil
}

// joinGame adds a player to a waiting game and moves the entry fee from
// their account into the game's escrow.
func joinGame(address, gameID string) error {
	err := applyTx(func(tx *sqlx.Tx) error {
		game, err := getGameTx(tx, gameID)
		if err != nil {
			return err
		}
		if game.State != StateWaiting {
			return ErrNotJoinable
		}

		players, err := getPlayersTx(tx, gameID)
		if err != nil {
			return err
		}
		if len(players) >= game.MaxPlayers {
			return ErrGameFull
		}
		for _, p := range players {
			if p.Address == address {
				return ErrAlreadyJoined
			}
		}

		if err := debitAccount(tx, address, game.EntryFee); err != nil {
			return err
		}
		if err := creditEscrow(tx, gameID, game.EntryFee); err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO game_player (game_id, address, role, is_alive, joined_at)
			VALUES (?, ?, ?, 1, ?)`, gameID, address, RoleUnknown, time.Now().Unix())
		if err != nil {
			return err
		}

		return emitEvent(tx, gameID, EventPlayerJoined, map[string]any{
			"address":      address,
			"player_count": len(players) + 1,
		})
	})
	if err != nil {
		return err
	}

	DebugLog("joinGame", "Address %s joined game %s", address, gameID)
	return nil
}

// assignRoles distributes roles by join order: the first quarter of the
// roster (at least one) is mafia, the next player is the detective, the one
// after that the doctor, everyone else a civilian.
func assignRoles(players []GamePlayer) []string {
	n := len(players)
	mafiaCount := n / 4
	if mafiaCount < 1 {
		mafiaCount = 1
	}

	roles := make([]string, n)
	for i := range players {
		switch {
		case i < mafiaCount:
			roles[i] = RoleMafia
		case i == mafiaCount:
			roles[i] = RoleDetective
		case i == mafiaCount+1:
			roles[i] = RoleDoctor
		default:
			roles[i] = RoleCivilian
		}
	}
	return roles
}

// startGame assigns roles and opens the first day. Only the creator may
// start, and only with a full enough roster.
func startGame(address, gameID string) error {
	err := applyTx(func(tx *sqlx.Tx) error {
		game, err := getGameTx(tx, gameID)
		if err != nil {
			return err
		}
		if game.Creator != address {
			return ErrNotCreator
		}
		if game.State != StateWaiting {
			return ErrNotStartable
		}

		players, err := getPlayersTx(tx, gameID)
		if err != nil {
			return err
		}
		if len(players) < 4 {
			return ErrNotEnoughPlayers
		}

		roles := assignRoles(players)
		for i, p := range players {
			_, err := tx.Exec(`UPDATE game_player SET role = ? WHERE rowid = ?`, roles[i], p.ID)
			if err != nil {
				return err
			}
		}

		now := time.Now().Unix()
		_, err = tx.Exec(`
			UPDATE game SET state = ?, phase = ?, day_count = 1, phase_start_time = ?
			WHERE game_id = ?`, StateActive, PhaseDay, now, gameID)
		if err != nil {
			return err
		}

		return emitEvent(tx, gameID, EventGameStarted, map[string]any{
			"player_count": len(players),
		})
	})
	if err != nil {
		return err
	}

	log.Printf("Game %s started by %s", gameID, address)
	LogDBState("after startGame " + gameID)
	return nil
}

// findPlayerTx locates a roster entry, distinguishing "no such player" from
// real database failures.
func findPlayerTx(tx *sqlx.Tx, gameID, address string) (GamePlayer, bool, error) {
	player, err := getGamePlayerTx(tx, gameID, address)
	if err == sql.ErrNoRows {
		return player, false, nil
	}
	if err != nil {
		return player, false, err
	}
	return player, true, nil
}
