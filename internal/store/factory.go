package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

// NewUserID generates an account identifier in the user_<hex> convention.
func NewUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
