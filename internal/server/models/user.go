// Package models defines the persistent entities of the SeaBattle backend.
package models

import "time"

// User is a registered player. Users are created at registration, mutated by
// password changes and win/loss increments, and never hard-deleted.
type User struct {
	ID           string
	Name         string
	PasswordHash string
	Wins         int
	Losses       int
	CreatedAt    time.Time
}
