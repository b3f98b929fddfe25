package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/repository"
)

var _ repository.GPTKeyRepository = (*GPTKeyDB)(nil)

// GPTKeyDB is the single-row gpt_keys table. The row always has id 1.
type GPTKeyDB struct {
	conn *sql.DB
}

func (k *GPTKeyDB) Get(ctx context.Context) (*model.GPTKey, error) {
	var key model.GPTKey
	err := k.conn.QueryRowContext(ctx,
		`SELECT api_key, updated_by, updated_at FROM gpt_keys WHERE id = 1`,
	).Scan(&key.Key, &key.UpdatedBy, &key.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("GPT Key not found")
		}
		return nil, fmt.Errorf("sqlite: getting gpt key: %w", err)
	}
	return &key, nil
}

// Upsert writes the key whether or not one exists. Last write wins.
func (k *GPTKeyDB) Upsert(ctx context.Context, key, updatedBy string) (*model.GPTKey, error) {
	now := time.Now()
	_, err := k.conn.ExecContext(ctx,
		`INSERT INTO gpt_keys (id, api_key, updated_by, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     api_key = excluded.api_key,
		     updated_by = excluded.updated_by,
		     updated_at = excluded.updated_at`,
		key, updatedBy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting gpt key: %w", err)
	}
	return &model.GPTKey{Key: key, UpdatedBy: updatedBy, UpdatedAt: now}, nil
}

// Update replaces the key only if one was set before.
func (k *GPTKeyDB) Update(ctx context.Context, key, updatedBy string) (*model.GPTKey, error) {
	now := time.Now()
	result, err := k.conn.ExecContext(ctx,
		`UPDATE gpt_keys SET api_key = ?, updated_by = ?, updated_at = ? WHERE id = 1`,
		key, updatedBy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating gpt key: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFoundMessage("GPT Key not found")
	}
	return &model.GPTKey{Key: key, UpdatedBy: updatedBy, UpdatedAt: now}, nil
}
