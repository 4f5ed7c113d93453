package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"agent-chess-league/models"
	"agent-chess-league/utils"
)

// Webhook event types.
const (
	EventMatched     = "matched"
	EventGameStarted = "game_started"
	EventYourTurn    = "your_turn"
	EventGameOver    = "game_over"
)

// WebhookEvent is the payload POSTed to an agent's callback URL.
type WebhookEvent struct {
	Type     string `json:"type"`
	GameID   string `json:"game_id"`
	Opponent string `json:"opponent,omitempty"`
	FEN      string `json:"fen,omitempty"`
	Result   string `json:"result,omitempty"`
	Message  string `json:"message"`
}

// Notifier delivers lifecycle events to agent callback URLs. Delivery is a
// single best-effort attempt; every failure is swallowed. Never invoked
// inside a database transaction.
type Notifier struct {
	Client *http.Client
}

func NewNotifier() *Notifier {
	return &Notifier{Client: utils.WebhookClient}
}

// Notify sends the event to the agent's callback URL without blocking the
// caller. No-op when the agent has no callback registered.
func (n *Notifier) Notify(agent *models.Agent, event WebhookEvent) {
	if agent == nil || agent.CallbackURL == "" {
		return
	}
	url := agent.CallbackURL
	go n.deliver(url, agent.Name, event)
}

func (n *Notifier) deliver(url, agentName string, event WebhookEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Webhook] marshal failed for %s: %v", agentName, err)
		return
	}

	resp, err := n.Client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Webhook] %s delivery to %s failed: %v", event.Type, agentName, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[Webhook] %s delivery to %s returned %d", event.Type, agentName, resp.StatusCode)
	}
}
