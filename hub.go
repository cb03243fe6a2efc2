package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage is one signed operation request from a client.
type WSMessage struct {
	Action     string      `json:"action"`
	GameID     string      `json:"game_id,omitempty"`
	MaxPlayers int         `json:"max_players,omitempty"`
	EntryFee   int64       `json:"entry_fee,omitempty"`
	Target     string      `json:"target,omitempty"`
	ActionType string      `json:"action_type,omitempty"`
	Update     *GameUpdate `json:"update,omitempty"`
}

// Client represents a websocket connection with its signer identity
type Client struct {
	conn    *websocket.Conn
	address string
	writeMu sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

// WebSocket hub for broadcasting updates to all connected clients
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

func (h *Hub) sendToAddress(address string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.address == address {
			LogWSMessage("OUT", address, string(message))

			// Serialize writes to each connection
			client.writeMu.Lock()
			err := client.conn.WriteMessage(websocket.TextMessage, message)
			client.writeMu.Unlock()

			if err != nil {
				log.Printf("WebSocket write error to %s: %v", address, err)
			}
		}
	}
}

// broadcastAll writes a frame to every connected client without going through
// the broadcast channel, so it is safe to call before the hub loop starts.
func (h *Hub) broadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.writeMu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, message)
		client.writeMu.Unlock()

		if err != nil {
			log.Printf("WebSocket write error: %v", err)
		}
	}
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (%s). Total: %d", client.address, total)
			DebugLog("hub.register", "Address %s connected via WebSocket", client.address)

		case conn := <-h.unregister:
			h.mu.Lock()
			client, ok := h.clients[conn]
			if ok {
				delete(h.clients, conn)
				conn.Close()
				DebugLog("hub.unregister", "Address %s disconnected", client.address)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn, client := range h.clients {
				// Serialize writes to each connection
				client.writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, message)
				client.writeMu.Unlock()

				if err != nil {
					log.Printf("WebSocket write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture globals at entry to avoid race conditions in parallel tests
	currentHub := hub

	address, err := getAddressFromSession(r)
	if err != nil {
		DebugLog("handleWebSocket", "Rejected WebSocket connection - not logged in")
		http.Error(w, "Not logged in", http.StatusUnauthorized)
		return
	}

	DebugLog("handleWebSocket", "Address %s initiating WebSocket connection", address)

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for %s: %v", address, err)
		return
	}

	DebugLog("handleWebSocket", "WebSocket upgraded successfully for %s", address)
	client := &Client{conn: conn, address: address}
	currentHub.register <- client

	// Handle messages and disconnection
	go func() {
		defer func() {
			currentHub.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(client, message)
		}
	}()
}

func handleWSMessage(client *Client, message []byte) {
	var msg WSMessage
	err := json.Unmarshal(message, &msg)
	if err != nil {
		log.Printf("WebSocket unmarshal error for %s: %v", client.address, err)
		return
	}

	LogWSMessage("IN", client.address, msg.Action)

	dispatchOperation(client.address, msg)
}
