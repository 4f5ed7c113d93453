package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"agent-chess-league/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchmakingService pairs agents into games, either through the explicit
// queue or through the periodic auto-match sweep. Invariant: an agent holds
// at most one ticket, and is party to at most one waiting-or-active game,
// at any time.
type MatchmakingService struct {
	DB       *gorm.DB
	Games    *GameService
	Notifier *Notifier
}

func NewMatchmakingService(db *gorm.DB, games *GameService, notifier *Notifier) *MatchmakingService {
	return &MatchmakingService{DB: db, Games: games, Notifier: notifier}
}

// JoinResult reports the effect of a queue join.
type JoinResult struct {
	Matched       bool
	AlreadyQueued bool
	Game          *models.Game
	Opponent      *models.Agent
	QueueSize     int64
}

// JoinQueue pairs the agent with the oldest waiting ticket holder, or
// enqueues them when nobody is waiting. Ticket consumption and game
// creation happen in one transaction. Queue pairings assign colors
// deterministically: the lexicographically smaller agent ID plays white.
func (s *MatchmakingService) JoinQueue(agent *models.Agent) (*JoinResult, error) {
	res := &JoinResult{}
	var opponent models.Agent

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var mine models.MatchmakingTicket
		err := tx.First(&mine, "agent_id = ?", agent.ID).Error
		if err == nil {
			res.AlreadyQueued = true
			return tx.Model(&models.MatchmakingTicket{}).Count(&res.QueueSize).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var waiting models.MatchmakingTicket
		err = tx.Where("agent_id <> ?", agent.ID).Order("created_at ASC").First(&waiting).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			// Claim the ticket. RowsAffected guards against a concurrent
			// joiner consuming the same ticket; losing the race falls
			// through to enqueueing.
			del := tx.Where("id = ?", waiting.ID).Delete(&models.MatchmakingTicket{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 1 {
				if err := tx.First(&opponent, "id = ?", waiting.AgentID).Error; err != nil {
					return err
				}
				whiteID, blackID := agent.ID, opponent.ID
				if whiteID > blackID {
					whiteID, blackID = blackID, whiteID
				}
				game, err := createActiveGame(tx, whiteID, blackID)
				if err != nil {
					return err
				}
				res.Matched = true
				res.Game = game
				return nil
			}
		}

		ticket := models.MatchmakingTicket{ID: uuid.NewString(), AgentID: agent.ID}
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		return tx.Model(&models.MatchmakingTicket{}).Count(&res.QueueSize).Error
	})
	if err != nil {
		return nil, err
	}

	if res.Matched {
		res.Opponent = &opponent
		s.notifyMatched(res.Game, agent, &opponent)
	}
	return res, nil
}

// LeaveQueue removes the agent's ticket if one exists.
func (s *MatchmakingService) LeaveQueue(agent *models.Agent) (bool, error) {
	del := s.DB.Where("agent_id = ?", agent.ID).Delete(&models.MatchmakingTicket{})
	if del.Error != nil {
		return false, del.Error
	}
	return del.RowsAffected > 0, nil
}

// AutoMatch pairs off every idle claimed agent, two at a time. Idle means
// not party to an active game and not a challenger on a pending challenge.
// The idle set is shuffled, so colors on this path are randomized. Each
// pairing is its own transaction; a failed pairing is logged and the sweep
// continues.
func (s *MatchmakingService) AutoMatch() error {
	busy := map[string]bool{}

	var active []models.Game
	if err := s.DB.Where("status = ?", models.GameActive).Find(&active).Error; err != nil {
		return fmt.Errorf("loading active games: %w", err)
	}
	for _, g := range active {
		busy[g.WhiteID] = true
		busy[g.BlackID] = true
	}

	var pending []models.Game
	if err := s.DB.Where("status = ?", models.GameWaiting).Find(&pending).Error; err != nil {
		return fmt.Errorf("loading pending challenges: %w", err)
	}
	for _, g := range pending {
		busy[g.WhiteID] = true
	}

	var claimed []models.Agent
	if err := s.DB.Where("claim_status = ?", models.ClaimClaimed).Find(&claimed).Error; err != nil {
		return fmt.Errorf("loading claimed agents: %w", err)
	}

	idle := make([]models.Agent, 0, len(claimed))
	for _, a := range claimed {
		if !busy[a.ID] {
			idle = append(idle, a)
		}
	}
	rand.Shuffle(len(idle), func(i, j int) {
		idle[i], idle[j] = idle[j], idle[i]
	})

	for i := 0; i+1 < len(idle); i += 2 {
		white := idle[i]
		black := idle[i+1]

		var game *models.Game
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			game, err = createActiveGame(tx, white.ID, black.ID)
			if err != nil {
				return err
			}
			// Consume any queue tickets the pair was holding.
			return tx.Where("agent_id IN ?", []string{white.ID, black.ID}).
				Delete(&models.MatchmakingTicket{}).Error
		})
		if err != nil {
			log.Printf("[AutoMatch] pairing %s vs %s failed: %v", white.Name, black.Name, err)
			continue
		}
		log.Printf("[AutoMatch] paired %s (white) vs %s (black), game %s", white.Name, black.Name, game.ID)
		s.notifyMatched(game, &white, &black)
	}
	return nil
}

func (s *MatchmakingService) notifyMatched(game *models.Game, a, b *models.Agent) {
	for _, pair := range []struct {
		to, other *models.Agent
	}{{a, b}, {b, a}} {
		color := "black"
		if game.WhiteID == pair.to.ID {
			color = "white"
		}
		s.Notifier.Notify(pair.to, WebhookEvent{
			Type:     EventMatched,
			GameID:   game.ID,
			Opponent: pair.other.Name,
			FEN:      game.FEN,
			Message:  fmt.Sprintf("Matched with %s! You play %s.", pair.other.Name, color),
		})
	}
}

// --- HTTP handlers ---

// Join handles POST /api/queue/join.
func (s *MatchmakingService) Join(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	res, err := s.JoinQueue(agent)
	if err != nil {
		return jsonError(c, err)
	}

	if res.AlreadyQueued {
		return c.JSON(fiber.Map{
			"success":  true,
			"matched":  false,
			"message":  "Already in queue",
			"position": res.QueueSize,
		})
	}
	if res.Matched {
		yourColor := "black"
		if res.Game.WhiteID == agent.ID {
			yourColor = "white"
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"matched":    true,
			"game_id":    res.Game.ID,
			"opponent":   res.Opponent.Name,
			"your_color": yourColor,
			"message":    fmt.Sprintf("Matched with %s! Game started.", res.Opponent.Name),
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"matched":  false,
		"message":  "Joined queue. Waiting for opponent.",
		"position": res.QueueSize,
	})
}

// Leave handles DELETE /api/queue/leave.
func (s *MatchmakingService) Leave(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	removed, err := s.LeaveQueue(agent)
	if err != nil {
		return jsonError(c, err)
	}
	msg := "Not in queue"
	if removed {
		msg = "Left queue"
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

// Status handles GET /api/queue/status.
func (s *MatchmakingService) Status(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var ticket models.MatchmakingTicket
	inQueue := true
	err := s.DB.First(&ticket, "agent_id = ?", agent.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		inQueue = false
	} else if err != nil {
		return jsonError(c, err)
	}

	var total int64
	if err := s.DB.Model(&models.MatchmakingTicket{}).Count(&total).Error; err != nil {
		return jsonError(c, err)
	}

	resp := fiber.Map{"in_queue": inQueue, "queue_size": total}
	if inQueue {
		resp["joined_at"] = ticket.CreatedAt.Format(time.RFC3339)
	} else {
		resp["joined_at"] = nil
	}
	return c.JSON(resp)
}
