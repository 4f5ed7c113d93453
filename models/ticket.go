package models

import "time"

// MatchmakingTicket is a queue entry for an agent awaiting an opponent.
// At most one per agent; deleted the moment a pairing is made or the agent
// withdraws.
type MatchmakingTicket struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	AgentID   string    `gorm:"uniqueIndex;not null" json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}
