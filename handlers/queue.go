package handlers

import (
	"agent-chess-league/middleware"
	"agent-chess-league/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupQueueRoutes(app *fiber.App, db *gorm.DB, matchmaking *services.MatchmakingService) {
	auth := middleware.APIKeyAuth(db)
	app.Post("/api/queue/join", auth, matchmaking.Join)
	app.Delete("/api/queue/leave", auth, matchmaking.Leave)
	app.Get("/api/queue/status", auth, matchmaking.Status)
}
