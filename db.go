package main

import (
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
)

// Game is the authoritative record of one session. Everything a game ever
// was lives in this row plus its child tables; nothing is deleted mid-game.
type Game struct {
	ID             int64   `db:"id"`
	GameID         string  `db:"game_id"`
	Creator        string  `db:"creator"`
	MaxPlayers     int     `db:"max_players"`
	EntryFee       int64   `db:"entry_fee"`
	State          string  `db:"state"` // waiting_for_players, active, finished
	Phase          string  `db:"phase"` // lobby, day, night
	DayCount       int     `db:"day_count"`
	Escrow         int64   `db:"escrow"`
	Winner         *string `db:"winner"` // mafia or town; nil until finished
	CreatedAt      int64   `db:"created_at"`
	PhaseStartTime int64   `db:"phase_start_time"`
	PhaseEndTime   int64   `db:"phase_end_time"`
}

// GamePlayer is one participant of one game. Join order is rowid order.
type GamePlayer struct {
	ID         int64   `db:"id"`
	GameID     string  `db:"game_id"`
	Address    string  `db:"address"`
	Role       string  `db:"role"`
	IsAlive    bool    `db:"is_alive"`
	VoteTarget *string `db:"vote_target"`
	JoinedAt   int64   `db:"joined_at"`
	Claimed    bool    `db:"claimed"`
}

// Vote is a standing day ballot. At most one per voter per game; casting
// again replaces the previous row.
type Vote struct {
	ID     int64  `db:"id"`
	GameID string `db:"game_id"`
	Voter  string `db:"voter"`
	Target string `db:"target"`
	CastAt int64  `db:"cast_at"`
}

// Elimination is an append-only record of a player removed from play.
type Elimination struct {
	ID       int64  `db:"id"`
	GameID   string `db:"game_id"`
	Address  string `db:"address"`
	DayCount int    `db:"day_count"`
	Phase    string `db:"phase"`
}

// Account is an identity plus its balance. Entry fees are debited from here
// into game escrow, and payouts flow back.
type Account struct {
	ID         int64  `db:"id"`
	Address    string `db:"address"`
	Name       string `db:"name"`
	SecretCode string `db:"secret_code"`
	Balance    int64  `db:"balance"`
}

// Event is one row of the append-only notification log. The core never
// reads it back; it exists for off-chain observers.
type Event struct {
	ID        int64  `db:"id"`
	GameID    string `db:"game_id"`
	Kind      string `db:"kind"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// Game states
const (
	StateWaiting  = "waiting_for_players"
	StateActive   = "active"
	StateFinished = "finished"
)

// Phases
const (
	PhaseLobby = "lobby"
	PhaseDay   = "day"
	PhaseNight = "night"
)

// Roles
const (
	RoleUnknown   = "unknown"
	RoleMafia     = "mafia"
	RoleDetective = "detective"
	RoleDoctor    = "doctor"
	RoleCivilian  = "civilian"
)

// Winning factions
const (
	WinnerMafia = "mafia"
	WinnerTown  = "town"
)

// Night action types
const (
	ActionMafiaKill   = "mafia_kill"
	ActionInvestigate = "investigate"
	ActionHeal        = "heal"
)

// maxRosterSize caps every roster regardless of a game's max_players.
const maxRosterSize = 20

// applyTx runs one operation as a single transaction. Either every write of
// the operation lands or none do; concurrent operations on the same game are
// serialized by sqlite.
func applyTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func getGameTx(tx *sqlx.Tx, gameID string) (Game, error) {
	var game Game
	err := tx.Get(&game, `
		SELECT rowid as id, game_id, creator, max_players, entry_fee, state,
			phase, day_count, escrow, winner, created_at, phase_start_time, phase_end_time
		FROM game
		WHERE game_id = ?`, gameID)
	if err == sql.ErrNoRows {
		return game, ErrGameNotFound
	}
	return game, err
}

// getPlayersTx returns a game's players in join order.
func getPlayersTx(tx *sqlx.Tx, gameID string) ([]GamePlayer, error) {
	var players []GamePlayer
	err := tx.Select(&players, `
		SELECT rowid as id, game_id, address, role, is_alive, vote_target, joined_at, claimed
		FROM game_player
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return players, err
}

func getGamePlayerTx(tx *sqlx.Tx, gameID, address string) (GamePlayer, error) {
	var player GamePlayer
	err := tx.Get(&player, `
		SELECT rowid as id, game_id, address, role, is_alive, vote_target, joined_at, claimed
		FROM game_player
		WHERE game_id = ? AND address = ?`, gameID, address)
	return player, err
}

// getVotesTx returns the standing votes in cast order.
func getVotesTx(tx *sqlx.Tx, gameID string) ([]Vote, error) {
	var votes []Vote
	err := tx.Select(&votes, `
		SELECT rowid as id, game_id, voter, target, cast_at
		FROM game_vote
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return votes, err
}

func getGame(gameID string) (Game, error) {
	var game Game
	err := db.Get(&game, `
		SELECT rowid as id, game_id, creator, max_players, entry_fee, state,
			phase, day_count, escrow, winner, created_at, phase_start_time, phase_end_time
		FROM game
		WHERE game_id = ?`, gameID)
	if err == sql.ErrNoRows {
		return game, ErrGameNotFound
	}
	return game, err
}

func getPlayers(gameID string) ([]GamePlayer, error) {
	var players []GamePlayer
	err := db.Select(&players, `
		SELECT rowid as id, game_id, address, role, is_alive, vote_target, joined_at, claimed
		FROM game_player
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return players, err
}

func getVotes(gameID string) ([]Vote, error) {
	var votes []Vote
	err := db.Select(&votes, `
		SELECT rowid as id, game_id, voter, target, cast_at
		FROM game_vote
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return votes, err
}

func getEliminations(gameID string) ([]Elimination, error) {
	var eliminated []Elimination
	err := db.Select(&eliminated, `
		SELECT rowid as id, game_id, address, day_count, phase
		FROM game_elimination
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return eliminated, err
}

func getEvents(gameID string) ([]Event, error) {
	var events []Event
	err := db.Select(&events, `
		SELECT rowid as id, game_id, kind, payload, created_at
		FROM game_event
		WHERE game_id = ?
		ORDER BY rowid`, gameID)
	return events, err
}

func getAccountByAddress(address string) (Account, error) {
	var account Account
	err := db.Get(&account, `
		SELECT rowid as id, address, name, secret_code, balance
		FROM account
		WHERE address = ?`, address)
	return account, err
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS account (
		address TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE,
		secret_code TEXT NOT NULL,
		balance INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS session (
		token INTEGER PRIMARY KEY,
		address TEXT NOT NULL,
		FOREIGN KEY (address) REFERENCES account(address)
	);
	CREATE TABLE IF NOT EXISTS game (
		game_id TEXT NOT NULL UNIQUE,
		creator TEXT NOT NULL,
		max_players INTEGER NOT NULL,
		entry_fee INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'waiting_for_players',
		phase TEXT NOT NULL DEFAULT 'lobby',
		day_count INTEGER NOT NULL DEFAULT 0,
		escrow INTEGER NOT NULL DEFAULT 0,
		winner TEXT,
		created_at INTEGER NOT NULL,
		phase_start_time INTEGER NOT NULL,
		phase_end_time INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS game_player (
		game_id TEXT NOT NULL,
		address TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'unknown',
		is_alive INTEGER NOT NULL DEFAULT 1,
		vote_target TEXT,
		joined_at INTEGER NOT NULL,
		claimed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (game_id) REFERENCES game(game_id),
		UNIQUE(game_id, address)
	);
	CREATE TABLE IF NOT EXISTS game_vote (
		game_id TEXT NOT NULL,
		voter TEXT NOT NULL,
		target TEXT NOT NULL,
		cast_at INTEGER NOT NULL,
		FOREIGN KEY (game_id) REFERENCES game(game_id),
		UNIQUE(game_id, voter)
	);
	CREATE TABLE IF NOT EXISTS game_elimination (
		game_id TEXT NOT NULL,
		address TEXT NOT NULL,
		day_count INTEGER NOT NULL,
		phase TEXT NOT NULL,
		FOREIGN KEY (game_id) REFERENCES game(game_id)
	);
	CREATE TABLE IF NOT EXISTS game_event (
		game_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (game_id) REFERENCES game(game_id)
	);
	CREATE INDEX IF NOT EXISTS idx_game_event_lookup ON game_event(game_id, kind);
	CREATE INDEX IF NOT EXISTS idx_game_player_lookup ON game_player(game_id, address);
	`
	_, err := db.Exec(schema)
	if err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}
