package main

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB points the global db at a fresh in-memory database for one
// test. The uuid in the dsn keeps databases isolated between tests while
// cache=shared lets the connection pool see the same data.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	db = testDB
	globalChronicler = nil

	if err := initDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})
}

// newTestAccount inserts an account with the given balance and returns its
// address.
func newTestAccount(t *testing.T, name string, balance int64) string {
	t.Helper()

	address := uuid.NewString()
	_, err := db.Exec("INSERT INTO account (address, name, secret_code, balance) VALUES (?, ?, ?, ?)",
		address, name, "c0de", balance)
	if err != nil {
		t.Fatalf("Failed to insert account %s: %v", name, err)
	}
	return address
}

// newTestGame creates a game and joins n funded players into it. The first
// address returned is the creator, who joins first, so with n=4 the roles
// after start are mafia, detective, doctor, civilian in slice order.
func newTestGame(t *testing.T, n int, entryFee int64) (string, []string) {
	t.Helper()

	addrs := make([]string, n)
	for i := 0; i < n; i++ {
		addrs[i] = newTestAccount(t, fmt.Sprintf("player%d-%s", i, uuid.NewString()[:8]), 1000)
	}

	gameID, err := createGame(addrs[0], maxRosterSize, entryFee)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	for i, addr := range addrs {
		if err := joinGame(addr, gameID); err != nil {
			t.Fatalf("joinGame failed for player %d: %v", i, err)
		}
	}

	return gameID, addrs
}

// newStartedGame creates, fills, and starts a game, leaving it in the day
// phase of day 1.
func newStartedGame(t *testing.T, n int, entryFee int64) (string, []string) {
	t.Helper()

	gameID, addrs := newTestGame(t, n, entryFee)
	if err := startGame(addrs[0], gameID); err != nil {
		t.Fatalf("startGame failed: %v", err)
	}
	return gameID, addrs
}

func mustGetGame(t *testing.T, gameID string) Game {
	t.Helper()

	game, err := getGame(gameID)
	if err != nil {
		t.Fatalf("getGame failed: %v", err)
	}
	return game
}

func mustGetPlayer(t *testing.T, gameID, address string) GamePlayer {
	t.Helper()

	var player GamePlayer
	err := db.Get(&player, `
		SELECT rowid as id, game_id, address, role, is_alive, vote_target, joined_at, claimed
		FROM game_player
		WHERE game_id = ? AND address = ?`, gameID, address)
	if err != nil {
		t.Fatalf("Failed to get player %s: %v", address, err)
	}
	return player
}

func accountBalance(t *testing.T, address string) int64 {
	t.Helper()

	var balance int64
	if err := db.Get(&balance, "SELECT balance FROM account WHERE address = ?", address); err != nil {
		t.Fatalf("Failed to get balance for %s: %v", address, err)
	}
	return balance
}

// toNight moves a freshly started game from day 1 into night without any
// votes standing.
func toNight(t *testing.T, gameID string, caller string) {
	t.Helper()

	if err := advancePhase(caller, gameID); err != nil {
		t.Fatalf("advancePhase to night failed: %v", err)
	}
}
