package main

import "errors"

// Every operation rejects invalid input with one of these named errors and
// leaves the stored game untouched. Handlers compare with errors.Is and
// report the name to the caller; there is no retry logic on the server side.
var (
	// State preconditions
	ErrNotJoinable  = errors.New("game is not joinable")
	ErrNotStartable = errors.New("game is not startable")
	ErrNotActive    = errors.New("game is not active")
	ErrNotVoting    = errors.New("not voting phase")
	ErrNotNight     = errors.New("not night phase")
	ErrNotFinished  = errors.New("game is not finished")
	ErrInvalidPhase = errors.New("invalid phase")

	// Authorization
	ErrNotCreator = errors.New("not the game creator")
	ErrNotWinner  = errors.New("not a winner")

	// Capacity / membership
	ErrGameNotFound     = errors.New("game not found")
	ErrGameFull         = errors.New("game is full")
	ErrAlreadyJoined    = errors.New("player already joined")
	ErrPlayerNotInGame  = errors.New("player not in game")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrTooManyPlayers   = errors.New("too many players")

	// Target validity
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidAction = errors.New("invalid action")
	ErrPlayerDead    = errors.New("player is dead")

	// Outcome / funds
	ErrNoWinner          = errors.New("no winner")
	ErrAlreadyClaimed    = errors.New("winnings already claimed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
