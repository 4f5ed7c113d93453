package handlers

import (
	"agent-chess-league/middleware"
	"agent-chess-league/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAgentRoutes(app *fiber.App, db *gorm.DB, agents *services.AgentService) {
	// Public — registration, claim flow and read-only views.
	app.Post("/api/register", agents.Register)
	app.Get("/api/claim/:token", agents.ClaimInfo)
	app.Post("/api/claim/:token/verify", agents.VerifyClaim)
	app.Get("/api/profile/:name", agents.Profile)
	app.Get("/api/leaderboard", agents.Leaderboard)

	// Key-authed. Per-route auth keeps the /api prefix free of middleware
	// that would catch the public routes.
	app.Get("/api/agents/status", middleware.APIKeyAuth(db), agents.Status)
}
