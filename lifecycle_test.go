package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestCreateGameValidation(t *testing.T) {
	setupTestDB(t)
	creator := newTestAccount(t, "creator", 1000)

	if _, err := createGame(creator, 3, 0); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("maxPlayers=3 expected ErrNotEnoughPlayers, got %v", err)
	}
	if _, err := createGame(creator, 21, 0); !errors.Is(err, ErrTooManyPlayers) {
		t.Errorf("maxPlayers=21 expected ErrTooManyPlayers, got %v", err)
	}
	if _, err := createGame(creator, 8, -5); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("negative entry fee expected ErrInvalidAction, got %v", err)
	}

	gameID, err := createGame(creator, 8, 50)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	game := mustGetGame(t, gameID)
	if game.State != StateWaiting {
		t.Errorf("new game state expected %q, got %q", StateWaiting, game.State)
	}
	if game.Phase != PhaseLobby {
		t.Errorf("new game phase expected %q, got %q", PhaseLobby, game.Phase)
	}
	if game.Escrow != 0 {
		t.Errorf("new game escrow expected 0, got %d", game.Escrow)
	}
	if game.Creator != creator {
		t.Errorf("creator mismatch: %s vs %s", game.Creator, creator)
	}
}

func TestJoinGameMovesFeeIntoEscrow(t *testing.T) {
	setupTestDB(t)
	creator := newTestAccount(t, "creator", 1000)
	player := newTestAccount(t, "joiner", 200)

	gameID, err := createGame(creator, 8, 150)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	if err := joinGame(player, gameID); err != nil {
		t.Fatalf("joinGame failed: %v", err)
	}

	if got := accountBalance(t, player); got != 50 {
		t.Errorf("balance after join expected 50, got %d", got)
	}
	if got := mustGetGame(t, gameID).Escrow; got != 150 {
		t.Errorf("escrow after join expected 150, got %d", got)
	}

	joined := mustGetPlayer(t, gameID, player)
	if joined.Role != RoleUnknown {
		t.Errorf("joined player role expected %q, got %q", RoleUnknown, joined.Role)
	}
	if !joined.IsAlive {
		t.Error("joined player should be alive")
	}
}

func TestJoinGameRejections(t *testing.T) {
	setupTestDB(t)
	creator := newTestAccount(t, "creator", 1000)
	gameID, err := createGame(creator, 4, 100)
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	if err := joinGame(creator, "no-such-game"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("unknown game expected ErrGameNotFound, got %v", err)
	}

	broke := newTestAccount(t, "broke", 10)
	if err := joinGame(broke, gameID); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("underfunded join expected ErrInsufficientFunds, got %v", err)
	}
	// The rejected join must not leave a roster entry or a partial debit.
	if got := accountBalance(t, broke); got != 10 {
		t.Errorf("balance after rejected join expected 10, got %d", got)
	}
	players, err := getPlayers(gameID)
	if err != nil {
		t.Fatalf("getPlayers failed: %v", err)
	}
	if len(players) != 0 {
		t.Errorf("rejected join left %d roster entries", len(players))
	}

	if err := joinGame(creator, gameID); err != nil {
		t.Fatalf("creator join failed: %v", err)
	}
	if err := joinGame(creator, gameID); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("double join expected ErrAlreadyJoined, got %v", err)
	}

	for i := 0; i < 3; i++ {
		addr := newTestAccount(t, fmt.Sprintf("filler%d", i), 1000)
		if err := joinGame(addr, gameID); err != nil {
			t.Fatalf("filler join failed: %v", err)
		}
	}
	late := newTestAccount(t, "late", 1000)
	if err := joinGame(late, gameID); !errors.Is(err, ErrGameFull) {
		t.Errorf("join past max expected ErrGameFull, got %v", err)
	}

	if err := startGame(creator, gameID); err != nil {
		t.Fatalf("startGame failed: %v", err)
	}
	if err := joinGame(late, gameID); !errors.Is(err, ErrNotJoinable) {
		t.Errorf("join after start expected ErrNotJoinable, got %v", err)
	}
}

func TestStartGameRejections(t *testing.T) {
	setupTestDB(t)
	gameID, addrs := newTestGame(t, 4, 0)
	outsider := newTestAccount(t, "outsider", 1000)

	if err := startGame(outsider, gameID); !errors.Is(err, ErrNotCreator) {
		t.Errorf("non-creator start expected ErrNotCreator, got %v", err)
	}

	smallID, small := newTestGame(t, 3, 0)
	if err := startGame(small[0], smallID); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("start with 3 players expected ErrNotEnoughPlayers, got %v", err)
	}

	if err := startGame(addrs[0], gameID); err != nil {
		t.Fatalf("startGame failed: %v", err)
	}
	if err := startGame(addrs[0], gameID); !errors.Is(err, ErrNotStartable) {
		t.Errorf("double start expected ErrNotStartable, got %v", err)
	}
}

func TestStartGameAssignsRolesByJoinOrder(t *testing.T) {
	setupTestDB(t)
	gameID, addrs := newStartedGame(t, 4, 0)

	game := mustGetGame(t, gameID)
	if game.State != StateActive {
		t.Errorf("state expected %q, got %q", StateActive, game.State)
	}
	if game.Phase != PhaseDay {
		t.Errorf("phase expected %q, got %q", PhaseDay, game.Phase)
	}
	if game.DayCount != 1 {
		t.Errorf("day count expected 1, got %d", game.DayCount)
	}

	want := []string{RoleMafia, RoleDetective, RoleDoctor, RoleCivilian}
	for i, addr := range addrs {
		if got := mustGetPlayer(t, gameID, addr).Role; got != want[i] {
			t.Errorf("player %d role expected %q, got %q", i, want[i], got)
		}
	}
}

func TestAssignRoles(t *testing.T) {
	cases := []struct {
		n    int
		want []string
	}{
		{4, []string{RoleMafia, RoleDetective, RoleDoctor, RoleCivilian}},
		{5, []string{RoleMafia, RoleDetective, RoleDoctor, RoleCivilian, RoleCivilian}},
		{8, []string{RoleMafia, RoleMafia, RoleDetective, RoleDoctor, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian}},
		{12, []string{RoleMafia, RoleMafia, RoleMafia, RoleDetective, RoleDoctor, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian, RoleCivilian}},
	}

	for _, tc := range cases {
		players := make([]GamePlayer, tc.n)
		got := assignRoles(players)
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("n=%d index %d: expected %q, got %q", tc.n, i, tc.want[i], got[i])
			}
		}
	}
}
