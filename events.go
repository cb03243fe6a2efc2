package main

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Event kinds. One or more rows land in game_event per successful operation,
// in the same transaction as the state change they describe.
const (
	EventGameCreated      = "game_created"
	EventPlayerJoined     = "player_joined"
	EventGameStarted      = "game_started"
	EventVoteCast         = "vote_cast"
	EventPlayerEliminated = "player_eliminated"
	EventPhaseChanged     = "phase_changed"
	EventNightAction      = "night_action"
	EventGameEnded        = "game_ended"
	EventWinningsClaimed  = "winnings_claimed"
	EventGameUpdated      = "game_updated"
	EventChronicle        = "chronicle"
)

// emitEvent appends a notification to the game's event log.
func emitEvent(tx *sqlx.Tx, gameID, kind string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["game_id"] = gameID
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO game_event (game_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?)`, gameID, kind, string(data), time.Now().Unix())
	return err
}

// GameSnapshot is the full observable state of one game, pushed to every
// connected client after a state change and served over GET /game.
type GameSnapshot struct {
	Game        Game          `json:"game"`
	Players     []GamePlayer  `json:"players"`
	Votes       []Vote        `json:"votes"`
	Eliminated  []Elimination `json:"eliminated"`
	PlayerCount int           `json:"player_count"`
}

func buildSnapshot(gameID string) (*GameSnapshot, error) {
	game, err := getGame(gameID)
	if err != nil {
		return nil, err
	}
	players, err := getPlayers(gameID)
	if err != nil {
		return nil, err
	}
	votes, err := getVotes(gameID)
	if err != nil {
		return nil, err
	}
	eliminated, err := getEliminations(gameID)
	if err != nil {
		return nil, err
	}
	return &GameSnapshot{
		Game:        game,
		Players:     players,
		Votes:       votes,
		Eliminated:  eliminated,
		PlayerCount: len(players),
	}, nil
}

// broadcastGameUpdate sends the current game state to all connected clients.
func broadcastGameUpdate(gameID string) {
	snapshot, err := buildSnapshot(gameID)
	if err != nil {
		logError("broadcastGameUpdate: buildSnapshot", err)
		return
	}

	frame, err := json.Marshal(map[string]any{
		"type":     "game",
		"snapshot": snapshot,
	})
	if err != nil {
		logError("broadcastGameUpdate: marshal", err)
		return
	}

	DebugLog("broadcastGameUpdate", "Broadcasting game %s (state: %s, phase: %s)",
		gameID, snapshot.Game.State, snapshot.Game.Phase)
	hub.broadcastAll(frame)
}

// sendClaimResult tells a winner what their claim paid out.
func sendClaimResult(address, gameID string, amount int64) {
	frame, err := json.Marshal(map[string]any{
		"type":    "claimed",
		"game_id": gameID,
		"amount":  amount,
	})
	if err != nil {
		return
	}
	hub.sendToAddress(address, frame)
}

// sendError reports a rejected operation to the caller. The transaction has
// already been rolled back; nothing else observes the failure.
func sendError(address, action string, err error) {
	frame, merr := json.Marshal(map[string]string{
		"type":   "error",
		"action": action,
		"error":  err.Error(),
	})
	if merr != nil {
		return
	}
	hub.sendToAddress(address, frame)
}
