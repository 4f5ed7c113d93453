// Package rules wraps the chess rules engine behind the few capabilities the
// league core needs: side to move, move parsing and application, legal move
// listing, and terminal-position detection.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// Side identifies a color in a game.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

// Outcome is the result of a terminal position, or NoOutcome while play
// continues.
type Outcome string

const (
	NoOutcome Outcome = ""
	WhiteWins Outcome = "1-0"
	BlackWins Outcome = "0-1"
	Draw      Outcome = "1/2-1/2"
)

var (
	ErrInvalidSyntax = errors.New("invalid move syntax")
	ErrIllegalMove   = errors.New("illegal move")
)

// StartingFEN is the canonical initial position.
func StartingFEN() string {
	return chess.StartingPosition().String()
}

func gameFromFEN(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("bad position %q: %w", fen, err)
	}
	return chess.NewGame(opt), nil
}

// SideToMove reports which color moves next in the given position.
func SideToMove(fen string) (Side, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	if g.Position().Turn() == chess.White {
		return White, nil
	}
	return Black, nil
}

// LegalMoves lists every legal move from the position in SAN.
func LegalMoves(fen string) ([]string, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	pos := g.Position()
	moves := g.ValidMoves()
	sans := make([]string, 0, len(moves))
	for _, m := range moves {
		sans = append(sans, chess.AlgebraicNotation{}.Encode(pos, m))
	}
	return sans, nil
}

// FullMoveNumber extracts the fullmove counter from a FEN string.
func FullMoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 0
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil {
		return 0
	}
	return n
}

// Result describes a successfully applied move.
type Result struct {
	SAN        string
	FEN        string
	Outcome    Outcome
	MoveNumber int
}

// ApplyMove parses input as SAN, falling back to UCI coordinates, and
// applies it to the position. Returns ErrInvalidSyntax when neither notation
// parses, ErrIllegalMove when the parsed move is not legal.
func ApplyMove(fen, input string) (Result, error) {
	g, err := gameFromFEN(fen)
	if err != nil {
		return Result{}, err
	}
	pos := g.Position()

	m, err := chess.AlgebraicNotation{}.Decode(pos, input)
	if err != nil {
		m, err = chess.UCINotation{}.Decode(pos, input)
		if err != nil {
			return Result{}, ErrInvalidSyntax
		}
	}

	// Canonical SAN must be computed against the pre-move position.
	san := chess.AlgebraicNotation{}.Encode(pos, m)

	if err := g.Move(m); err != nil {
		return Result{}, ErrIllegalMove
	}

	next := g.Position().String()
	return Result{
		SAN:        san,
		FEN:        next,
		Outcome:    outcomeOf(g),
		MoveNumber: FullMoveNumber(next),
	}, nil
}

func outcomeOf(g *chess.Game) Outcome {
	switch g.Outcome() {
	case chess.WhiteWon:
		return WhiteWins
	case chess.BlackWon:
		return BlackWins
	case chess.Draw:
		return Draw
	}
	// Checkmate, stalemate, insufficient material and the automatic draw
	// rules are reflected in Outcome above. Claimable draws (repetition,
	// fifty-move rule) end the game the moment they arise.
	for _, method := range g.EligibleDraws() {
		if method == chess.ThreefoldRepetition || method == chess.FiftyMoveRule {
			return Draw
		}
	}
	return NoOutcome
}
