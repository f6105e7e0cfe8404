package models

import "time"

// GameStatus enumerates the lifecycle states of a game.
type GameStatus string

const (
	GameStatusInProgress GameStatus = "InProgress"
	GameStatusCompleted  GameStatus = "Completed"
	GameStatusCanceled   GameStatus = "Canceled"
)

// ShipType enumerates the classic Battleship ship classes.
type ShipType string

const (
	ShipTypeBattleship ShipType = "Battleship"
	ShipTypeCruiser    ShipType = "Cruiser"
	ShipTypeDestroyer  ShipType = "Destroyer"
	ShipTypeSubmarine  ShipType = "Submarine"
)

// ShipOrientation is the placement direction of a ship on the board.
type ShipOrientation string

const (
	ShipHorizontal ShipOrientation = "Horizontal"
	ShipVertical   ShipOrientation = "Vertical"
)

// Game is a match between two players. Relations are held by id and resolved
// through repositories.
type Game struct {
	ID        string
	Player1ID string
	Player2ID string
	WinnerID  *string
	Status    GameStatus
	StartTime time.Time
	EndTime   *time.Time
}

// Board is one player's field within a game.
type Board struct {
	ID     string
	GameID string
	UserID string
}

// Ship is a placed ship on a board.
type Ship struct {
	ID          string
	BoardID     string
	Type        ShipType
	StartX      int
	StartY      int
	Orientation ShipOrientation
	HitCount    int
}

// BoardHit records one shot taken at a board cell.
type BoardHit struct {
	ID      string
	BoardID string
	X       int
	Y       int
	IsHit   bool
	At      time.Time
}
