package services

import "math"

// KFactor is the Elo K used for every rated game.
const KFactor = 32

// UpdateElo returns the post-game ratings for the winner and loser of a
// decisive game, or for the white/black pair of a draw. Pure; argument order
// carries the roles.
func UpdateElo(winnerElo, loserElo int, draw bool) (int, int) {
	expectedWinner := 1 / (1 + math.Pow(10, float64(loserElo-winnerElo)/400))
	expectedLoser := 1 - expectedWinner

	if draw {
		return winnerElo + eloRound(KFactor*(0.5-expectedWinner)),
			loserElo + eloRound(KFactor*(0.5-expectedLoser))
	}
	return winnerElo + eloRound(KFactor*(1-expectedWinner)),
		loserElo + eloRound(KFactor*(0-expectedLoser))
}

// eloRound rounds half to even. Symmetric around zero, so gain and loss
// stay balanced on exact half-point deltas.
func eloRound(delta float64) int {
	return int(math.RoundToEven(delta))
}
