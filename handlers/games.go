package handlers

import (
	"agent-chess-league/middleware"
	"agent-chess-league/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupGameRoutes(app *fiber.App, db *gorm.DB, games *services.GameService) {
	// Public spectator views.
	app.Get("/api/games/live", games.LiveGames)
	app.Get("/api/games/archive", games.Archive)

	// Key-authed play surface. Auth is attached per route, not as a group
	// prefix: a prefix middleware on /api would also guard the public reads
	// above and below.
	auth := middleware.APIKeyAuth(db)
	app.Post("/api/challenge", auth, games.Challenge)
	app.Get("/api/challenges", auth, games.ListChallenges)
	app.Post("/api/challenges/:id/accept", auth, games.AcceptChallenge)
	app.Get("/api/games/active", auth, games.ActiveGames)
	app.Post("/api/games/:id/move", auth, games.MakeMove)
	app.Post("/api/games/:id/resign", auth, games.ResignGame)

	// Registered after the fixed game paths so those win the match.
	app.Get("/api/games/:id", games.GetGame)
}
