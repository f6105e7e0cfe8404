package services

import (
	"context"

	"github.com/dmitrijs2005/seabattle/internal/server/models"
)

// GameService defines the match-lifecycle operations the HTTP layer will be
// built against. Implementations own board setup, turn order, and shot
// resolution; the auth layer only consumes the interface (win/loss counters
// are reported back through UserService).
type GameService interface {
	// CreateGame opens a new game with the caller as the first player.
	CreateGame(ctx context.Context, playerID string) (*models.Game, error)

	// GetGameByID returns the game, or common.ErrorNotFound.
	GetGameByID(ctx context.Context, gameID string) (*models.Game, error)

	// JoinGame adds a second player to a game waiting for an opponent.
	JoinGame(ctx context.Context, gameID, playerID string) (*models.Game, error)

	// CancelGame terminates a game that has not finished.
	CancelGame(ctx context.Context, gameID, playerID string) error

	// PlaceShip puts a ship on the player's board during setup.
	PlaceShip(ctx context.Context, gameID, playerID string, ship *models.Ship) error

	// MakeShot resolves a shot at the opponent's board and reports the hit.
	MakeShot(ctx context.Context, gameID, playerID string, x, y int) (*models.BoardHit, error)

	// GetPlayerBoard returns the caller's own board state.
	GetPlayerBoard(ctx context.Context, gameID, playerID string) (*models.Board, error)

	// AreAllShipsSunk reports whether the player has no afloat ships left.
	AreAllShipsSunk(ctx context.Context, gameID, playerID string) (bool, error)
}
