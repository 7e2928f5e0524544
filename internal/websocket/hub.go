package websocket

import "github.com/rs/zerolog/log"

// GlobalTopic is the subscription of clients that follow every server.
const GlobalTopic = "global"

type envelope struct {
	serverID string
	message  []byte
}

type delivery struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and fans poll updates out to them.
// Only Run writes to or closes a client's Send channel.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages about one server.
	publish chan envelope

	// Replies addressed to a single client.
	direct chan delivery

	// A map of server IDs to a set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		publish:       make(chan envelope, 64),
		direct:        make(chan delivery),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.ServerID)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.ServerID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case d := <-h.direct:
			h.send(d.client, d.message)
		case env := <-h.publish:
			for client := range h.subscriptions[env.serverID] {
				h.send(client, env.message)
			}
			for client := range h.subscriptions[GlobalTopic] {
				h.send(client, env.message)
			}
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

// Join registers client unless the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client unless the hub has stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Publish queues a message for the clients following serverID and for global
// clients. It never blocks the caller once the hub is stopped.
func (h *Hub) Publish(serverID string, message []byte) {
	select {
	case h.publish <- envelope{serverID: serverID, message: message}:
	case <-h.done:
	}
}

// SendTo queues a message for one client. Messages for clients that already
// left, or sent after Stop, are discarded.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- delivery{client: client, message: message}:
	case <-h.done:
	}
}

// send delivers message without blocking; slow clients are dropped.
func (h *Hub) send(client *Client, message []byte) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("topic", client.ServerID).Msg("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, serverID string) {
	if h.subscriptions[serverID] == nil {
		h.subscriptions[serverID] = make(map[*Client]bool)
	}
	h.subscriptions[serverID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for serverID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, serverID)
			}
		}
	}
}
