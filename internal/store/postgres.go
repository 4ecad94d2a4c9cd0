package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Database = (*PostgresDatabase)(nil)

// documentID is the single row holding the whole tree.
const documentID = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS portfolio_document
(
    id         INTEGER PRIMARY KEY,
    doc        JSONB       NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
INSERT INTO portfolio_document (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

// PostgresDatabase stores the tree as one JSONB document. Reads use the
// jsonb path operator; writes lock the row, edit the tree and store it back,
// so concurrent writers serialize and the last one wins per path.
type PostgresDatabase struct {
	pool *pgxpool.Pool
}

func NewPostgresDatabase(pool *pgxpool.Pool) *PostgresDatabase {
	return &PostgresDatabase{
		pool: pool,
	}
}

func (p *PostgresDatabase) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create portfolio document table: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) Get(ctx context.Context, path string) (any, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if segments == nil {
		segments = []string{}
	}

	var raw []byte
	if err := p.pool.QueryRow(
		ctx,
		`SELECT doc #> $1 FROM portfolio_document WHERE id = $2;`,
		segments, documentID,
	).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select document: %w", err)
	}

	if raw == nil {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if isEmpty(value) {
		return nil, nil
	}
	return value, nil
}

func (p *PostgresDatabase) Set(ctx context.Context, path string, value any) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	return p.modify(ctx, func(root any) (any, error) {
		return setAt(root, segments, normalized), nil
	})
}

func (p *PostgresDatabase) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := newPushKey()
	if err != nil {
		return "", err
	}
	if err := p.Set(ctx, JoinPath(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (p *PostgresDatabase) Update(ctx context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("update value must be a non-empty map")
	}
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	return p.modify(ctx, func(root any) (any, error) {
		return updateAt(root, segments, normalized.(map[string]any))
	})
}

func (p *PostgresDatabase) Delete(ctx context.Context, path string) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	return p.modify(ctx, func(root any) (any, error) {
		return setAt(root, segments, nil), nil
	})
}

func (p *PostgresDatabase) modify(ctx context.Context, edit func(root any) (any, error)) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			// rollback after commit is a no-op
			_ = tx.Rollback(ctx)
		}
	}()

	var raw []byte
	if err := tx.QueryRow(
		ctx,
		`SELECT doc FROM portfolio_document WHERE id = $1 FOR UPDATE;`,
		documentID,
	).Scan(&raw); err != nil {
		return fmt.Errorf("lock document: %w", err)
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}

	root, err = edit(root)
	if err != nil {
		return err
	}
	if root == nil {
		root = map[string]any{}
	}

	docBytes, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE portfolio_document SET doc = $1::jsonb, updated_at = now() WHERE id = $2;`,
		string(docBytes), documentID,
	); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
