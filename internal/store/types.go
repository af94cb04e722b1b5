package store

import (
	"context"
	"errors"
	"time"
)

// Turn is a single conversational turn. Turns are append-only per user.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account record. Account handling is plain CRUD around the
// reply pipeline; passwords are stored hashed by the caller.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

var ErrUserNotFound = errors.New("user not found")

// Store persists users, conversation turns, extracted memory and running
// summaries. Reads of absent data return empty values, not errors.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, id, name, passwordHash string) (User, error)
	DeleteUser(ctx context.Context, id string) (User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	// ReadHistory returns the user's conversation log as newline-joined
	// "role: message" lines, oldest first. Empty history is "".
	ReadHistory(ctx context.Context, userID string) (string, error)
	AppendTurn(ctx context.Context, userID, role, message string) error

	ReadMemory(ctx context.Context, userID string) (string, error)
	UpdateMemory(ctx context.Context, userID, memory string) error

	ReadSummary(ctx context.Context, userID string) (string, error)
	UpsertSummary(ctx context.Context, userID, summary string) error

	Close() error
}
