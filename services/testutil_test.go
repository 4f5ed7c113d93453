package services

import (
	"fmt"
	"strings"
	"testing"

	"agent-chess-league/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a fresh in-memory database. The unique name keeps gorm's
// connection pool pointed at one shared store per test.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Agent{},
		&models.Game{},
		&models.Move{},
		&models.MatchmakingTicket{},
	))
	return db
}

func createAgent(t *testing.T, db *gorm.DB, name string, claimed bool) *models.Agent {
	t.Helper()
	status := models.ClaimPending
	if claimed {
		status = models.ClaimClaimed
	}
	agent := &models.Agent{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        strings.ToLower(name),
		APIKey:      "key-" + name,
		Elo:         1200,
		ClaimToken:  "claim-" + name,
		ClaimStatus: status,
	}
	require.NoError(t, db.Create(agent).Error)
	return agent
}

func newGameService(db *gorm.DB) *GameService {
	return NewGameService(db, NewNotifier())
}

func reloadAgent(t *testing.T, db *gorm.DB, id string) *models.Agent {
	t.Helper()
	var agent models.Agent
	require.NoError(t, db.First(&agent, "id = ?", id).Error)
	return &agent
}

func reloadGame(t *testing.T, db *gorm.DB, id string) *models.Game {
	t.Helper()
	var game models.Game
	require.NoError(t, db.First(&game, "id = ?", id).Error)
	return &game
}
