package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agent-chess-league/models"
	"agent-chess-league/rules"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameService owns the game lifecycle: challenge creation, accepting,
// moves, resignations and timeout forfeits. Every state transition runs as
// one transaction, and every terminal transition re-checks that the game is
// still active inside that transaction so concurrent completions collapse
// to a no-op.
type GameService struct {
	DB       *gorm.DB
	Notifier *Notifier
}

func NewGameService(db *gorm.DB, notifier *Notifier) *GameService {
	return &GameService{DB: db, Notifier: notifier}
}

// CreateChallenge opens a waiting game against the named opponent. The
// challenger always takes white.
func (s *GameService) CreateChallenge(challenger *models.Agent, opponentName, timeControl string) (*models.Game, error) {
	var opponent models.Agent
	if err := s.DB.First(&opponent, "name = ?", opponentName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "opponent"}
		}
		return nil, err
	}
	if opponent.ID == challenger.ID {
		return nil, ValidationError{Reason: "cannot challenge yourself"}
	}
	if timeControl == "" {
		timeControl = models.DefaultTimeControl
	}

	game := models.Game{
		ID:          uuid.NewString(),
		WhiteID:     challenger.ID,
		BlackID:     opponent.ID,
		Status:      models.GameWaiting,
		FEN:         rules.StartingFEN(),
		PGN:         "",
		TimeControl: timeControl,
	}
	if err := s.DB.Create(&game).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// createActiveGame creates a game that starts in the active state, used by
// both matchmaking paths. Runs inside the caller's transaction.
func createActiveGame(tx *gorm.DB, whiteID, blackID string) (*models.Game, error) {
	now := time.Now().UTC()
	game := models.Game{
		ID:          uuid.NewString(),
		WhiteID:     whiteID,
		BlackID:     blackID,
		Status:      models.GameActive,
		FEN:         rules.StartingFEN(),
		PGN:         "",
		TimeControl: models.DefaultTimeControl,
		StartedAt:   &now,
	}
	if err := tx.Create(&game).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// Accept transitions a waiting game to active. Only the challenged side may
// accept.
func (s *GameService) Accept(agent *models.Agent, gameID string) (*models.Game, error) {
	var game models.Game
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "game"}
			}
			return err
		}
		if game.BlackID != agent.ID {
			return ForbiddenError{Reason: "this challenge is not for you"}
		}
		if game.Status != models.GameWaiting {
			return ConflictError{Reason: "challenge is no longer open"}
		}
		now := time.Now().UTC()
		game.Status = models.GameActive
		game.StartedAt = &now
		return tx.Save(&game).Error
	})
	if err != nil {
		return nil, err
	}

	if white, err := s.agentByID(game.WhiteID); err == nil {
		s.Notifier.Notify(white, WebhookEvent{
			Type:     EventGameStarted,
			GameID:   game.ID,
			Opponent: agent.Name,
			FEN:      game.FEN,
			Message:  fmt.Sprintf("%s accepted your challenge. You play white — your move.", agent.Name),
		})
	}
	return &game, nil
}

// MoveOutcome reports the effect of an applied move.
type MoveOutcome struct {
	Game     *models.Game
	SAN      string
	Finished bool
}

// ApplyMove validates and applies one move for agent. On a terminal
// position the game completes and ratings update atomically with the move;
// otherwise the opponent gets a best-effort turn notification after commit.
func (s *GameService) ApplyMove(agent *models.Agent, gameID, input string) (*MoveOutcome, error) {
	var game models.Game
	var san string
	finished := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "game"}
			}
			return err
		}
		if game.Status != models.GameActive {
			return ConflictError{Reason: "game is not active"}
		}
		if !game.HasPlayer(agent.ID) {
			return ForbiddenError{Reason: "you are not in this game"}
		}

		turn, err := rules.SideToMove(game.FEN)
		if err != nil {
			return err
		}
		agentSide := rules.Black
		if game.WhiteID == agent.ID {
			agentSide = rules.White
		}
		if turn != agentSide {
			return ValidationError{Reason: "not your turn"}
		}

		res, err := rules.ApplyMove(game.FEN, input)
		switch {
		case errors.Is(err, rules.ErrInvalidSyntax):
			return ValidationError{Reason: "invalid move syntax"}
		case errors.Is(err, rules.ErrIllegalMove):
			return ValidationError{Reason: "illegal move"}
		case err != nil:
			return err
		}

		game.FEN = res.FEN
		if game.PGN == "" {
			game.PGN = res.SAN
		} else {
			game.PGN += " " + res.SAN
		}
		san = res.SAN

		record := models.Move{
			ID:         uuid.NewString(),
			GameID:     game.ID,
			MoveNumber: res.MoveNumber,
			SAN:        res.SAN,
			FENAfter:   res.FEN,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		if res.Outcome != rules.NoOutcome {
			finished = true
			return s.finishGame(tx, &game, models.GameResult(res.Outcome))
		}
		return tx.Save(&game).Error
	})
	if err != nil {
		return nil, err
	}

	if opponent, err := s.agentByID(game.OpponentID(agent.ID)); err == nil {
		if finished {
			s.Notifier.Notify(opponent, WebhookEvent{
				Type:     EventGameOver,
				GameID:   game.ID,
				Opponent: agent.Name,
				FEN:      game.FEN,
				Result:   string(game.Result),
				Message:  fmt.Sprintf("Game over: %s.", game.Result),
			})
		} else {
			s.Notifier.Notify(opponent, WebhookEvent{
				Type:     EventYourTurn,
				GameID:   game.ID,
				Opponent: agent.Name,
				FEN:      game.FEN,
				Message:  fmt.Sprintf("%s played %s. Your move.", agent.Name, san),
			})
		}
	}

	return &MoveOutcome{Game: &game, SAN: san, Finished: finished}, nil
}

// Resign ends an active game, awarding the win to the other side. No move
// record is appended.
func (s *GameService) Resign(agent *models.Agent, gameID string) (*models.Game, error) {
	var game models.Game
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "game"}
			}
			return err
		}
		if game.Status != models.GameActive {
			return ConflictError{Reason: "game is not active"}
		}
		if !game.HasPlayer(agent.ID) {
			return ForbiddenError{Reason: "you are not in this game"}
		}
		result := models.ResultWhiteWins
		if game.WhiteID == agent.ID {
			result = models.ResultBlackWins
		}
		return s.finishGame(tx, &game, result)
	})
	if err != nil {
		return nil, err
	}

	if opponent, err := s.agentByID(game.OpponentID(agent.ID)); err == nil {
		s.Notifier.Notify(opponent, WebhookEvent{
			Type:     EventGameOver,
			GameID:   game.ID,
			Opponent: agent.Name,
			FEN:      game.FEN,
			Result:   string(game.Result),
			Message:  fmt.Sprintf("%s resigned. You win.", agent.Name),
		})
	}
	return &game, nil
}

// ForfeitOnTime completes an active game against the side currently to
// move. Invoked by the timeout sweep only. Returns (nil, nil) when the game
// is no longer active, making concurrent sweeps and races with a landing
// move harmless.
func (s *GameService) ForfeitOnTime(gameID string) (*models.Game, error) {
	var game models.Game
	forfeited := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "game"}
			}
			return err
		}
		if game.Status != models.GameActive {
			return nil
		}
		turn, err := rules.SideToMove(game.FEN)
		if err != nil {
			return err
		}
		// The side to move forfeits; the win goes to the other color.
		result := models.ResultBlackWins
		if turn.Other() == rules.White {
			result = models.ResultWhiteWins
		}
		forfeited = true
		return s.finishGame(tx, &game, result)
	})
	if err != nil {
		return nil, err
	}
	if !forfeited {
		return nil, nil
	}

	white, werr := s.agentByID(game.WhiteID)
	black, berr := s.agentByID(game.BlackID)
	if werr == nil && berr == nil {
		for _, pair := range []struct {
			to, other *models.Agent
		}{{white, black}, {black, white}} {
			s.Notifier.Notify(pair.to, WebhookEvent{
				Type:     EventGameOver,
				GameID:   game.ID,
				Opponent: pair.other.Name,
				FEN:      game.FEN,
				Result:   string(game.Result),
				Message:  fmt.Sprintf("Game forfeited on time: %s.", game.Result),
			})
		}
	}
	return &game, nil
}

// finishGame applies the terminal bookkeeping: status, result, end
// timestamp, and both agents' ratings and counters. Callers must have
// verified, inside the same transaction, that the game is still active.
func (s *GameService) finishGame(tx *gorm.DB, game *models.Game, result models.GameResult) error {
	now := time.Now().UTC()
	game.Status = models.GameCompleted
	game.Result = result
	game.EndedAt = &now
	if err := tx.Save(game).Error; err != nil {
		return err
	}

	var white, black models.Agent
	if err := tx.First(&white, "id = ?", game.WhiteID).Error; err != nil {
		return err
	}
	if err := tx.First(&black, "id = ?", game.BlackID).Error; err != nil {
		return err
	}

	white.GamesPlayed++
	black.GamesPlayed++
	switch result {
	case models.ResultWhiteWins:
		white.Wins++
		black.Losses++
		white.Elo, black.Elo = UpdateElo(white.Elo, black.Elo, false)
	case models.ResultBlackWins:
		black.Wins++
		white.Losses++
		black.Elo, white.Elo = UpdateElo(black.Elo, white.Elo, false)
	case models.ResultDraw:
		white.Draws++
		black.Draws++
		white.Elo, black.Elo = UpdateElo(white.Elo, black.Elo, true)
	default:
		return fmt.Errorf("unexpected game result %q", result)
	}

	if err := tx.Save(&white).Error; err != nil {
		return err
	}
	return tx.Save(&black).Error
}

// splitPGN returns the individual SAN tokens of a transcript.
func splitPGN(pgn string) []string {
	if pgn == "" {
		return nil
	}
	return strings.Fields(pgn)
}

func (s *GameService) agentByID(id string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.DB.First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// --- HTTP handlers ---

// Challenge handles POST /api/challenge.
func (s *GameService) Challenge(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var req struct {
		Opponent    string `json:"opponent"`
		TimeControl string `json:"time_control"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Opponent == "" {
		return jsonError(c, ValidationError{Reason: "opponent is required"})
	}

	game, err := s.CreateChallenge(agent, req.Opponent, req.TimeControl)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"game_id":  game.ID,
		"message":  fmt.Sprintf("Challenge sent to %s.", req.Opponent),
		"you_play": "white",
	})
}

// ListChallenges handles GET /api/challenges: waiting games where the
// caller is the challenged side.
func (s *GameService) ListChallenges(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var games []models.Game
	if err := s.DB.Where("black_id = ? AND status = ?", agent.ID, models.GameWaiting).
		Find(&games).Error; err != nil {
		log.Printf("[Games] listing challenges for %s failed: %v", agent.Name, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	challenges := make([]fiber.Map, 0, len(games))
	for _, game := range games {
		white, err := s.agentByID(game.WhiteID)
		if err != nil {
			continue
		}
		challenges = append(challenges, fiber.Map{
			"game_id":        game.ID,
			"challenger":     white.Name,
			"challenger_elo": white.Elo,
			"time_control":   game.TimeControl,
		})
	}
	return c.JSON(fiber.Map{"challenges": challenges})
}

// AcceptChallenge handles POST /api/challenges/:id/accept.
func (s *GameService) AcceptChallenge(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	game, err := s.Accept(agent, c.Params("id"))
	if err != nil {
		return jsonError(c, err)
	}
	white, err := s.agentByID(game.WhiteID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"game_id":  game.ID,
		"message":  fmt.Sprintf("Game started against %s.", white.Name),
		"you_play": "black",
	})
}

// ActiveGames handles GET /api/games/active for the calling agent.
func (s *GameService) ActiveGames(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var games []models.Game
	if err := s.DB.Where("(white_id = ? OR black_id = ?) AND status = ?",
		agent.ID, agent.ID, models.GameActive).Find(&games).Error; err != nil {
		log.Printf("[Games] listing active games for %s failed: %v", agent.Name, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	out := make([]fiber.Map, 0, len(games))
	for _, game := range games {
		white, werr := s.agentByID(game.WhiteID)
		black, berr := s.agentByID(game.BlackID)
		if werr != nil || berr != nil {
			continue
		}
		turn, err := rules.SideToMove(game.FEN)
		if err != nil {
			log.Printf("[Games] bad position in game %s: %v", game.ID, err)
			continue
		}
		yourColor := rules.Black
		if game.WhiteID == agent.ID {
			yourColor = rules.White
		}
		out = append(out, fiber.Map{
			"game_id":    game.ID,
			"white":      white.Name,
			"black":      black.Name,
			"your_color": string(yourColor),
			"your_turn":  turn == yourColor,
			"fen":        game.FEN,
			"move_count": rules.FullMoveNumber(game.FEN),
		})
	}
	return c.JSON(fiber.Map{"games": out})
}

// LiveGames handles GET /api/games/live — public snapshot of games in
// progress.
func (s *GameService) LiveGames(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var games []models.Game
	if err := s.DB.Where("status = ?", models.GameActive).Limit(limit).Find(&games).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	out := make([]fiber.Map, 0, len(games))
	for _, game := range games {
		white, werr := s.agentByID(game.WhiteID)
		black, berr := s.agentByID(game.BlackID)
		if werr != nil || berr != nil {
			continue
		}
		turn, err := rules.SideToMove(game.FEN)
		if err != nil {
			continue
		}
		out = append(out, fiber.Map{
			"game_id":    game.ID,
			"white":      fiber.Map{"name": white.Name, "elo": white.Elo},
			"black":      fiber.Map{"name": black.Name, "elo": black.Elo},
			"turn":       string(turn),
			"move_count": rules.FullMoveNumber(game.FEN),
		})
	}
	return c.JSON(fiber.Map{"games": out, "count": len(out)})
}

// Archive handles GET /api/games/archive — completed games, newest first,
// optionally filtered to one agent.
func (s *GameService) Archive(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.DB.Where("status = ?", models.GameCompleted)
	if name := c.Query("agent"); name != "" {
		var agent models.Agent
		if err := s.DB.First(&agent, "name = ?", name).Error; err == nil {
			query = query.Where("white_id = ? OR black_id = ?", agent.ID, agent.ID)
		}
	}

	var games []models.Game
	if err := query.Order("ended_at DESC").Limit(limit).Find(&games).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	out := make([]fiber.Map, 0, len(games))
	for _, game := range games {
		white, werr := s.agentByID(game.WhiteID)
		black, berr := s.agentByID(game.BlackID)
		if werr != nil || berr != nil {
			continue
		}
		var endedAt interface{}
		if game.EndedAt != nil {
			endedAt = game.EndedAt.Format(time.RFC3339)
		}
		out = append(out, fiber.Map{
			"game_id":    game.ID,
			"white":      white.Name,
			"black":      black.Name,
			"result":     game.Result,
			"move_count": len(splitPGN(game.PGN)),
			"ended_at":   endedAt,
		})
	}
	return c.JSON(fiber.Map{"games": out})
}

// GetGame handles GET /api/games/:id.
func (s *GameService) GetGame(c *fiber.Ctx) error {
	var game models.Game
	if err := s.DB.First(&game, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, NotFoundError{Resource: "game"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	white, werr := s.agentByID(game.WhiteID)
	black, berr := s.agentByID(game.BlackID)
	if werr != nil || berr != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	turn, err := rules.SideToMove(game.FEN)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}

	resp := fiber.Map{
		"id":           game.ID,
		"white":        white.Name,
		"black":        black.Name,
		"fen":          game.FEN,
		"pgn":          game.PGN,
		"status":       game.Status,
		"result":       game.Result,
		"turn":         string(turn),
		"move_count":   rules.FullMoveNumber(game.FEN),
		"time_control": game.TimeControl,
	}
	if game.StartedAt != nil {
		resp["started_at"] = game.StartedAt.Format(time.RFC3339)
	}
	if game.EndedAt != nil {
		resp["ended_at"] = game.EndedAt.Format(time.RFC3339)
	}
	if game.Status == models.GameActive {
		if legal, err := rules.LegalMoves(game.FEN); err == nil {
			resp["legal_moves"] = legal
		}
	}
	return c.JSON(resp)
}

// MakeMove handles POST /api/games/:id/move.
func (s *GameService) MakeMove(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var req struct {
		Move string `json:"move"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Move == "" {
		return jsonError(c, ValidationError{Reason: "move is required"})
	}

	out, err := s.ApplyMove(agent, c.Params("id"), req.Move)
	if err != nil {
		return jsonError(c, err)
	}

	resp := fiber.Map{
		"success":     true,
		"move":        out.SAN,
		"fen":         out.Game.FEN,
		"game_status": out.Game.Status,
	}
	if out.Finished {
		resp["result"] = out.Game.Result
	}
	return c.JSON(resp)
}

// ResignGame handles POST /api/games/:id/resign.
func (s *GameService) ResignGame(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	game, err := s.Resign(agent, c.Params("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  game.Result,
		"message": fmt.Sprintf("You resigned. Result: %s", game.Result),
	})
}
