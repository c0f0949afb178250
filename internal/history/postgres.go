package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kilincarslan-Enterprises/lyra-app/internal/domain"
)

const exchangesSchema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id         UUID PRIMARY KEY,
	owner      TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	reply      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'complete',
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS exchanges_owner_created_at_idx
	ON exchanges (owner, created_at);
`

// PostgresStore persists exchanges in a relational table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("history: database url must not be empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the exchanges table and index if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, exchangesSchema); err != nil {
		return fmt.Errorf("history: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateExchange(ctx context.Context, ex domain.Exchange) (domain.Exchange, error) {
	if strings.TrimSpace(ex.Owner) == "" {
		return domain.Exchange{}, errors.New("history: CreateExchange: owner is required")
	}
	ex = assignIdentity(ex)

	var meta []byte
	if len(ex.Metadata) > 0 {
		raw, err := json.Marshal(ex.Metadata)
		if err != nil {
			return domain.Exchange{}, fmt.Errorf("history: CreateExchange marshal metadata: %w", err)
		}
		meta = raw
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO exchanges (id, owner, prompt, reply, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, ex.ID, ex.Owner, ex.Prompt, ex.Reply, string(ex.Status), meta, ex.CreatedAt).Scan(
		&ex.ID,
		&ex.CreatedAt,
	)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("history: CreateExchange: %w", err)
	}
	return ex, nil
}

func (s *PostgresStore) ListExchanges(ctx context.Context, owner string) ([]domain.Exchange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, prompt, reply, status, metadata, created_at
		FROM exchanges
		WHERE owner = $1
		ORDER BY created_at ASC, id ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("history: ListExchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []domain.Exchange
	for rows.Next() {
		var (
			ex     domain.Exchange
			status string
			meta   []byte
		)
		if err := rows.Scan(&ex.ID, &ex.Owner, &ex.Prompt, &ex.Reply, &status, &meta, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: ListExchanges scan: %w", err)
		}
		ex.Status = domain.ExchangeStatus(status)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ex.Metadata); err != nil {
				return nil, fmt.Errorf("history: ListExchanges unmarshal metadata: %w", err)
			}
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: ListExchanges rows: %w", err)
	}
	return exchanges, nil
}
