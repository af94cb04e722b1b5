package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists users, turns, memory and summaries in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_user_created ON conversation_turns (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS memories (
			user_id TEXT PRIMARY KEY,
			memory TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			user_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1`, id))
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email)=lower($1)`, email))
}

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id, name, passwordHash string) (User, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if name != "" {
		u.Name = name
	}
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE users SET name=$2, password_hash=$3 WHERE id=$1`,
		u.ID, u.Name, u.PasswordHash,
	)
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) (User, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id); err != nil {
		return User{}, fmt.Errorf("delete user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) ReadHistory(ctx context.Context, userID string) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, message FROM conversation_turns WHERE user_id=$1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return "", fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var role, message string
		if err := rows.Scan(&role, &message); err != nil {
			return "", fmt.Errorf("scan turn: %w", err)
		}
		lines = append(lines, role+": "+message)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate turns: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, userID, role, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_turns (id, user_id, role, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, role, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReadMemory(ctx context.Context, userID string) (string, error) {
	return s.readText(ctx, `SELECT memory FROM memories WHERE user_id=$1`, userID)
}

func (s *PostgresStore) UpdateMemory(ctx context.Context, userID, memory string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memories (user_id, memory, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET memory=EXCLUDED.memory, updated_at=now()`,
		userID, memory,
	)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReadSummary(ctx context.Context, userID string) (string, error) {
	return s.readText(ctx, `SELECT summary FROM summaries WHERE user_id=$1`, userID)
}

func (s *PostgresStore) UpsertSummary(ctx context.Context, userID, summary string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summaries (user_id, summary, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET summary=EXCLUDED.summary, updated_at=now()`,
		userID, summary,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) readText(ctx context.Context, query, userID string) (string, error) {
	var out string
	err := s.pool.QueryRow(ctx, query, userID).Scan(&out)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read row: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
