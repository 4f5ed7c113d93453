package services

import (
	"testing"

	"agent-chess-league/models"
	"agent-chess-league/rules"

	"github.com/stretchr/testify/require"
)

func TestCreateChallenge(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	require.Equal(t, models.GameWaiting, game.Status)
	require.Equal(t, alice.ID, game.WhiteID)
	require.Equal(t, bob.ID, game.BlackID)
	require.Equal(t, models.DefaultTimeControl, game.TimeControl)
	require.Equal(t, rules.StartingFEN(), game.FEN)
	require.Nil(t, game.StartedAt)
}

func TestCreateChallengeUnknownOpponent(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)

	_, err := svc.CreateChallenge(alice, "nobody", "")
	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCreateChallengeSelf(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)

	_, err := svc.CreateChallenge(alice, "alice", "")
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestAcceptChallenge(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "1h")
	require.NoError(t, err)

	accepted, err := svc.Accept(bob, game.ID)
	require.NoError(t, err)
	require.Equal(t, models.GameActive, accepted.Status)
	require.NotNil(t, accepted.StartedAt)
	require.Equal(t, "1h", accepted.TimeControl)

	// Accepting twice conflicts.
	_, err = svc.Accept(bob, game.ID)
	var conflict ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestAcceptOnlyChallengedSide(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	createAgent(t, db, "bob", true)
	carol := createAgent(t, db, "carol", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)

	var forbidden ForbiddenError
	_, err = svc.Accept(carol, game.ID)
	require.ErrorAs(t, err, &forbidden)
	_, err = svc.Accept(alice, game.ID)
	require.ErrorAs(t, err, &forbidden)
}

func TestApplyMoveLifecycle(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)

	// Moves are rejected while the challenge is pending.
	_, err = svc.ApplyMove(alice, game.ID, "e4")
	var conflict ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	out, err := svc.ApplyMove(alice, game.ID, "e4")
	require.NoError(t, err)
	require.Equal(t, "e4", out.SAN)
	require.False(t, out.Finished)
	require.Equal(t, "e4", out.Game.PGN)

	var moves []models.Move
	require.NoError(t, db.Where("game_id = ?", game.ID).Find(&moves).Error)
	require.Len(t, moves, 1)
	require.Equal(t, 1, moves[0].MoveNumber)
	require.Equal(t, out.Game.FEN, moves[0].FENAfter)

	// White again: not their turn.
	_, err = svc.ApplyMove(alice, game.ID, "d4")
	var ve ValidationError
	require.ErrorAs(t, err, &ve)

	out, err = svc.ApplyMove(bob, game.ID, "e5")
	require.NoError(t, err)
	require.Equal(t, "e4 e5", out.Game.PGN)
}

func TestApplyMoveRejectsOutsider(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)
	carol := createAgent(t, db, "carol", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	_, err = svc.ApplyMove(carol, game.ID, "e4")
	var forbidden ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestApplyMoveBadInput(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	var ve ValidationError
	_, err = svc.ApplyMove(alice, game.ID, "xyzzy")
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "invalid move syntax", ve.Reason)

	_, err = svc.ApplyMove(alice, game.ID, "e2e5")
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "illegal move", ve.Reason)

	// Rejected moves leave no trace.
	var count int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestApplyMoveUnknownGame(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)

	_, err := svc.ApplyMove(alice, "no-such-game", "e4")
	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCheckmateCompletesGame(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	players := []*models.Agent{alice, bob}
	var out *MoveOutcome
	for i, san := range []string{"f3", "e5", "g4", "Qh4#"} {
		out, err = svc.ApplyMove(players[i%2], game.ID, san)
		require.NoError(t, err)
	}
	require.True(t, out.Finished)
	require.Equal(t, models.GameCompleted, out.Game.Status)
	require.Equal(t, models.ResultBlackWins, out.Game.Result)
	require.NotNil(t, out.Game.EndedAt)

	alice = reloadAgent(t, db, alice.ID)
	bob = reloadAgent(t, db, bob.ID)
	require.Equal(t, 1, alice.GamesPlayed)
	require.Equal(t, 1, bob.GamesPlayed)
	require.Equal(t, 1, alice.Losses)
	require.Equal(t, 1, bob.Wins)
	require.Equal(t, 1184, alice.Elo)
	require.Equal(t, 1216, bob.Elo)

	// A completed game accepts no further moves.
	_, err = svc.ApplyMove(alice, game.ID, "e4")
	var conflict ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestResign(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	done, err := svc.Resign(bob, game.ID)
	require.NoError(t, err)
	require.Equal(t, models.GameCompleted, done.Status)
	require.Equal(t, models.ResultWhiteWins, done.Result)

	// No move record for a resignation.
	var count int64
	require.NoError(t, db.Model(&models.Move{}).Where("game_id = ?", game.ID).Count(&count).Error)
	require.Zero(t, count)

	alice = reloadAgent(t, db, alice.ID)
	bob = reloadAgent(t, db, bob.ID)
	require.Equal(t, 1216, alice.Elo)
	require.Equal(t, 1184, bob.Elo)

	_, err = svc.Resign(alice, game.ID)
	var conflict ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestForfeitOnTimeCompletedGameIsNoop(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)
	_, err = svc.Resign(bob, game.ID)
	require.NoError(t, err)

	forfeited, err := svc.ForfeitOnTime(game.ID)
	require.NoError(t, err)
	require.Nil(t, forfeited)

	// Ratings unchanged by the no-op.
	require.Equal(t, 1216, reloadAgent(t, db, alice.ID).Elo)
	require.Equal(t, 1, reloadAgent(t, db, alice.ID).GamesPlayed)
}

func TestMoveRecordsReplayToStoredPosition(t *testing.T) {
	db := testDB(t)
	svc := newGameService(db)
	alice := createAgent(t, db, "alice", true)
	bob := createAgent(t, db, "bob", true)

	game, err := svc.CreateChallenge(alice, "bob", "")
	require.NoError(t, err)
	_, err = svc.Accept(bob, game.ID)
	require.NoError(t, err)

	players := []*models.Agent{alice, bob}
	for i, san := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5"} {
		_, err = svc.ApplyMove(players[i%2], game.ID, san)
		require.NoError(t, err)
	}

	var moves []models.Move
	require.NoError(t, db.Where("game_id = ?", game.ID).
		Order("created_at ASC").Find(&moves).Error)
	require.Len(t, moves, 5)

	fen := rules.StartingFEN()
	for _, m := range moves {
		res, err := rules.ApplyMove(fen, m.SAN)
		require.NoError(t, err)
		require.Equal(t, m.FENAfter, res.FEN)
		fen = res.FEN
	}
	require.Equal(t, reloadGame(t, db, game.ID).FEN, fen)
}
