package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateEloEqualRatings(t *testing.T) {
	winner, loser := UpdateElo(1200, 1200, false)
	require.Equal(t, 1216, winner)
	require.Equal(t, 1184, loser)
}

func TestUpdateEloEqualRatingsDraw(t *testing.T) {
	a, b := UpdateElo(1200, 1200, true)
	require.Equal(t, 1200, a)
	require.Equal(t, 1200, b)
}

func TestUpdateEloFavoriteWins(t *testing.T) {
	// The higher rated side gains less than 16 for an expected win.
	winner, loser := UpdateElo(1400, 1200, false)
	require.Greater(t, winner, 1400)
	require.Less(t, loser, 1200)
	require.Less(t, winner-1400, 16)
}

func TestUpdateEloUpset(t *testing.T) {
	// An underdog win moves more than 16 points.
	winner, loser := UpdateElo(1200, 1400, false)
	require.Greater(t, winner-1200, 16)
	require.Less(t, 1400-loser, 33)
}

func TestUpdateEloDrawFavorsUnderdog(t *testing.T) {
	underdog, favorite := UpdateElo(1200, 1400, true)
	require.Greater(t, underdog, 1200)
	require.Less(t, favorite, 1400)
}

func TestEloRoundHalfToEven(t *testing.T) {
	require.Equal(t, 16, eloRound(16.5))
	require.Equal(t, 18, eloRound(17.5))
	require.Equal(t, -16, eloRound(-16.5))
	require.Equal(t, -18, eloRound(-17.5))
	require.Equal(t, 8, eloRound(7.69))
	require.Equal(t, 24, eloRound(24.31))
}

func TestUpdateEloZeroSum(t *testing.T) {
	for _, tc := range []struct{ w, l int }{
		{1200, 1200},
		{1350, 1180},
		{800, 2100},
		{2000, 1999},
	} {
		winner, loser := UpdateElo(tc.w, tc.l, false)
		require.Equal(t, winner-tc.w, tc.l-loser, "ratings %d vs %d", tc.w, tc.l)
	}
}
