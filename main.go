package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-chess-league/handlers"
	"agent-chess-league/models"
	"agent-chess-league/services"
	"agent-chess-league/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDatabase() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("⚠️  DATABASE_URL not set, falling back to local sqlite file")
		return gorm.Open(sqlite.Open("./chess_league.db"), &gorm.Config{})
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
	}))

	db, err := openDatabase()
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Agent{},
		&models.Game{},
		&models.Move{},
		&models.MatchmakingTicket{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	notifier := services.NewNotifier()
	gameService := services.NewGameService(db, notifier)
	matchmaking := services.NewMatchmakingService(db, gameService, notifier)
	timeouts := services.NewTimeoutService(db, gameService)
	agents := services.NewAgentService(db, baseURL)

	sweepInterval := time.Minute
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			sweepInterval = d
		} else {
			log.Printf("⚠️  Invalid SWEEP_INTERVAL %q, using %s", raw, sweepInterval)
		}
	}
	maintenance := workers.NewMaintenanceWorker(timeouts, matchmaking, sweepInterval)
	agents.Sweeper = maintenance

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := maintenance.Start(ctx); err != nil {
		log.Fatal("failed to start maintenance worker:", err)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": "agent-chess-league", "status": "operational"})
	})
	handlers.SetupAgentRoutes(app, db, agents)
	handlers.SetupGameRoutes(app, db, gameService)
	handlers.SetupQueueRoutes(app, db, matchmaking)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Maintenance worker running (every %s)", sweepInterval)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
