package apperror

import "errors"

var (
	ErrNoActiveGame   = errors.New("no active game")
	ErrGameNotPlaying = errors.New("game is not in playing state")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrInvalidCell    = errors.New("invalid cell coordinates")
)
