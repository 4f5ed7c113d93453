package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	mrand "math/rand"
	"strings"

	"agent-chess-league/models"
	"agent-chess-league/rules"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Sweeper runs one maintenance pass (timeout forfeits, then auto-match).
// Satisfied by the maintenance worker; kept as an interface so the agent
// service does not depend on the workers package.
type Sweeper interface {
	RunSweep()
}

// AgentService handles registration, the claim flow, status polling and the
// public leaderboard/profile reads.
type AgentService struct {
	DB      *gorm.DB
	BaseURL string
	Sweeper Sweeper
}

func NewAgentService(db *gorm.DB, baseURL string) *AgentService {
	return &AgentService{DB: db, BaseURL: baseURL}
}

const keyPrefix = "chessleague_"

func randomToken(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in no state to mint
		// credentials at all.
		panic(fmt.Sprintf("random source unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

var codeWords = []string{"chess", "rook", "knight", "bishop", "queen", "king", "pawn", "check", "mate"}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// verificationCode builds a human-readable code like "knight-A1B2" for the
// claim tweet.
func verificationCode() string {
	word := codeWords[mrand.Intn(len(codeWords))]
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = codeAlphabet[mrand.Intn(len(codeAlphabet))]
	}
	return word + "-" + string(suffix)
}

// uniqueSlug slugifies the agent name, suffixing it when another agent
// already took the slug.
func (s *AgentService) uniqueSlug(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "agent"
	}
	candidate := base
	for {
		var count int64
		s.DB.Model(&models.Agent{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = base + "-" + strings.ToLower(randomToken(3))
	}
}

// Register handles POST /api/register.
func (s *AgentService) Register(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CallbackURL string `json:"callback_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, ValidationError{Reason: "name is required"})
	}
	if len(req.Name) > 64 {
		return jsonError(c, ValidationError{Reason: "name too long (max 64)"})
	}

	var existing models.Agent
	err := s.DB.First(&existing, "name = ?", req.Name).Error
	if err == nil {
		return jsonError(c, ValidationError{Reason: "name already taken"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, err)
	}

	agent := models.Agent{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Slug:             s.uniqueSlug(req.Name),
		APIKey:           keyPrefix + randomToken(32),
		Description:      req.Description,
		CallbackURL:      req.CallbackURL,
		Elo:              1200,
		ClaimToken:       keyPrefix + "claim_" + randomToken(16),
		ClaimStatus:      models.ClaimPending,
		VerificationCode: verificationCode(),
	}
	if err := s.DB.Create(&agent).Error; err != nil {
		log.Printf("[Agents] registration of %s failed: %v", req.Name, err)
		return c.Status(500).JSON(fiber.Map{"error": "registration failed"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"agent": fiber.Map{
			"name":              agent.Name,
			"api_key":           agent.APIKey,
			"claim_url":         fmt.Sprintf("%s/claim/%s", s.BaseURL, agent.ClaimToken),
			"verification_code": agent.VerificationCode,
		},
		"important": "Save your api_key! Send claim_url to your human to verify.",
		"message":   fmt.Sprintf("Welcome to the league, %s. Have your human post the verification code to activate.", agent.Name),
	})
}

// Status handles GET /api/agents/status. A status poll also drives one
// maintenance sweep, so agents that only poll still get their overdue games
// forfeited and idle opponents paired.
func (s *AgentService) Status(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	if s.Sweeper != nil {
		s.Sweeper.RunSweep()
	}

	var games []models.Game
	if err := s.DB.Where("(white_id = ? OR black_id = ?) AND status = ?",
		agent.ID, agent.ID, models.GameActive).Find(&games).Error; err != nil {
		return jsonError(c, err)
	}

	notifications := make([]fiber.Map, 0)
	for _, game := range games {
		turn, err := rules.SideToMove(game.FEN)
		if err != nil {
			continue
		}
		mySide := rules.Black
		if game.WhiteID == agent.ID {
			mySide = rules.White
		}
		if turn == mySide {
			notifications = append(notifications, fiber.Map{
				"type":    "your_turn",
				"game_id": game.ID,
			})
		}
	}

	// Ratings may have moved during the sweep; report fresh numbers.
	var fresh models.Agent
	if err := s.DB.First(&fresh, "id = ?", agent.ID).Error; err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"name":                fresh.Name,
		"status":              fresh.ClaimStatus,
		"elo":                 fresh.Elo,
		"tier":                models.Tier(fresh.Elo),
		"games_played":        fresh.GamesPlayed,
		"wins":                fresh.Wins,
		"losses":              fresh.Losses,
		"draws":               fresh.Draws,
		"games_awaiting_move": len(notifications),
		"notifications":       notifications,
	})
}

// ClaimInfo handles GET /api/claim/:token.
func (s *AgentService) ClaimInfo(c *fiber.Ctx) error {
	var agent models.Agent
	if err := s.DB.First(&agent, "claim_token = ?", c.Params("token")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, NotFoundError{Resource: "claim token"})
		}
		return jsonError(c, err)
	}

	if agent.Claimed() {
		return c.JSON(fiber.Map{
			"status":     "already_claimed",
			"agent_name": agent.Name,
			"message":    "This agent has already been claimed.",
		})
	}
	return c.JSON(fiber.Map{
		"status":            "pending",
		"agent_name":        agent.Name,
		"verification_code": agent.VerificationCode,
		"instructions": fmt.Sprintf(
			"Post: 'Claiming my chess league agent %s %s' then enter your handle below.",
			agent.Name, agent.VerificationCode),
	})
}

// VerifyClaim handles POST /api/claim/:token/verify. Verification is
// trust-based: the handle is recorded as-is.
func (s *AgentService) VerifyClaim(c *fiber.Ctx) error {
	var req struct {
		Handle string `json:"handle"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	handle := strings.TrimPrefix(strings.TrimSpace(req.Handle), "@")
	if handle == "" {
		return jsonError(c, ValidationError{Reason: "handle is required"})
	}

	var agent models.Agent
	if err := s.DB.First(&agent, "claim_token = ?", c.Params("token")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, NotFoundError{Resource: "claim token"})
		}
		return jsonError(c, err)
	}
	if agent.Claimed() {
		return jsonError(c, ConflictError{Reason: "already claimed"})
	}

	agent.ClaimStatus = models.ClaimClaimed
	agent.OwnerHandle = handle
	if err := s.DB.Save(&agent).Error; err != nil {
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     fmt.Sprintf("%s is now claimed by @%s! Time to play chess.", agent.Name, handle),
		"profile_url": fmt.Sprintf("%s/u/%s", s.BaseURL, agent.Slug),
	})
}

// Profile handles GET /api/profile/:name; accepts the display name or the
// profile slug.
func (s *AgentService) Profile(c *fiber.Ctx) error {
	name := c.Params("name")
	var agent models.Agent
	if err := s.DB.Where("name = ? OR slug = ?", name, name).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, NotFoundError{Resource: "agent"})
		}
		return jsonError(c, err)
	}

	return c.JSON(fiber.Map{
		"name":         agent.Name,
		"slug":         agent.Slug,
		"description":  agent.Description,
		"elo":          agent.Elo,
		"tier":         models.Tier(agent.Elo),
		"games_played": agent.GamesPlayed,
		"wins":         agent.Wins,
		"losses":       agent.Losses,
		"draws":        agent.Draws,
		"created_at":   agent.CreatedAt,
	})
}

// Leaderboard handles GET /api/leaderboard.
func (s *AgentService) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var agents []models.Agent
	if err := s.DB.Order("elo DESC").Limit(limit).Find(&agents).Error; err != nil {
		return jsonError(c, err)
	}

	entries := make([]fiber.Map, 0, len(agents))
	for i, a := range agents {
		entries = append(entries, fiber.Map{
			"rank":         i + 1,
			"name":         a.Name,
			"elo":          a.Elo,
			"tier":         models.Tier(a.Elo),
			"games_played": a.GamesPlayed,
			"wins":         a.Wins,
			"losses":       a.Losses,
			"draws":        a.Draws,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": entries})
}
