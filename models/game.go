package models

import "time"

// GameStatus is the closed set of lifecycle states. waiting → active →
// completed, no skips, completed is terminal.
type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
)

// GameResult is the closed set of outcome codes, empty while the game is in
// progress.
type GameResult string

const (
	ResultNone      GameResult = ""
	ResultWhiteWins GameResult = "1-0"
	ResultBlackWins GameResult = "0-1"
	ResultDraw      GameResult = "1/2-1/2"
)

const DefaultTimeControl = "24h"

// Game is one match between two agents. Mutated exclusively by the game
// service; never deleted — completed games are the permanent archive.
type Game struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	WhiteID string `gorm:"index;not null" json:"white_id"`
	BlackID string `gorm:"index;not null" json:"black_id"`

	Status GameStatus `gorm:"type:varchar(16);index;default:'waiting'" json:"status"`

	// FEN is the current position; PGN is the space-joined SAN transcript.
	// Replaying PGN from the starting position must reproduce FEN.
	FEN string `gorm:"not null" json:"fen"`
	PGN string `gorm:"type:text;default:''" json:"pgn"`

	Result      GameResult `gorm:"type:varchar(8);default:''" json:"result,omitempty"`
	TimeControl string     `gorm:"type:varchar(16);default:'24h'" json:"time_control"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (g *Game) HasPlayer(agentID string) bool {
	return g.WhiteID == agentID || g.BlackID == agentID
}

// OpponentID returns the other side's agent id. Callers must have checked
// HasPlayer first.
func (g *Game) OpponentID(agentID string) string {
	if g.WhiteID == agentID {
		return g.BlackID
	}
	return g.WhiteID
}
