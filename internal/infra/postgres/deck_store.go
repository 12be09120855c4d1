package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// DeckStore resolves deck names from the decks table.
type DeckStore struct {
	pool *pgxpool.Pool
}

func NewDeckStore(pool *pgxpool.Pool) *DeckStore {
	return &DeckStore{pool: pool}
}

func (s *DeckStore) Put(ctx context.Context, id, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decks (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name)
	if err != nil {
		return fmt.Errorf("upsert deck: %w", err)
	}
	return nil
}

func (s *DeckStore) DeckNames(ctx context.Context, deckIDs []string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM decks WHERE id = ANY($1)`, deckIDs)
	if err != nil {
		return nil, fmt.Errorf("load deck names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(deckIDs))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
