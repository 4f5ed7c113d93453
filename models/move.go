package models

import "time"

// Move is an append-only log record of one applied move. Never updated or
// deleted; the ordered sequence for a game replays to its current FEN.
type Move struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	GameID     string    `gorm:"index;not null" json:"game_id"`
	MoveNumber int       `gorm:"not null" json:"move_number"`
	SAN        string    `gorm:"type:varchar(16);not null" json:"san"`
	FENAfter   string    `gorm:"not null" json:"fen_after"`
	CreatedAt  time.Time `json:"created_at"`
}
