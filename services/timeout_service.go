package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"agent-chess-league/models"

	"gorm.io/gorm"
)

// EarlyAbandonTimeout applies while a game has fewer than two recorded
// moves: an opening that never happens should not hold both agents for the
// full time control.
const EarlyAbandonTimeout = 15 * time.Minute

// TimeoutService forfeits active games whose side to move has run out of
// time. Completed games are never touched, so repeated sweeps are
// idempotent.
type TimeoutService struct {
	DB    *gorm.DB
	Games *GameService
}

func NewTimeoutService(db *gorm.DB, games *GameService) *TimeoutService {
	return &TimeoutService{DB: db, Games: games}
}

// Sweep scans every active game and forfeits the overdue ones. Per-game
// errors are logged and the scan continues. Returns the number of games
// forfeited.
func (s *TimeoutService) Sweep() (int, error) {
	var games []models.Game
	if err := s.DB.Where("status = ?", models.GameActive).Find(&games).Error; err != nil {
		return 0, fmt.Errorf("loading active games: %w", err)
	}

	now := time.Now().UTC()
	forfeited := 0
	for _, game := range games {
		overdue, err := s.overdue(&game, now)
		if err != nil {
			log.Printf("[Timeout] skipping game %s: %v", game.ID, err)
			continue
		}
		if !overdue {
			continue
		}
		done, err := s.Games.ForfeitOnTime(game.ID)
		if err != nil {
			log.Printf("[Timeout] forfeit of game %s failed: %v", game.ID, err)
			continue
		}
		if done != nil {
			forfeited++
			log.Printf("[Timeout] game %s forfeited on time: %s", done.ID, done.Result)
		}
	}
	return forfeited, nil
}

// overdue reports whether the game's side to move has exceeded its
// threshold. The clock runs from the later of game start and last move.
func (s *TimeoutService) overdue(game *models.Game, now time.Time) (bool, error) {
	var moveCount int64
	if err := s.DB.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&moveCount).Error; err != nil {
		return false, err
	}

	last := game.CreatedAt
	if game.StartedAt != nil {
		last = *game.StartedAt
	}
	var lastMove models.Move
	err := s.DB.Where("game_id = ?", game.ID).Order("created_at DESC").First(&lastMove).Error
	if err == nil && lastMove.CreatedAt.After(last) {
		last = lastMove.CreatedAt
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	threshold := EarlyAbandonTimeout
	if moveCount >= 2 {
		threshold = parseTimeControl(game.TimeControl)
	}
	return now.Sub(last) > threshold, nil
}

// parseTimeControl interprets a descriptor like "24h" or "90m"; anything
// unparseable falls back to the default control.
func parseTimeControl(tc string) time.Duration {
	d, err := time.ParseDuration(tc)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
