package store

import (
	"context"
	"errors"
	"path"
	"strings"
)

// Ref points at a location in a Database.
type Ref struct {
	db   Database
	path string
}

func NewRef(db Database, refPath string) *Ref {
	return &Ref{
		db:   db,
		path: JoinPath(refPath),
	}
}

func (r *Ref) Child(childPath string) *Ref {
	return &Ref{
		db:   r.db,
		path: JoinPath(r.path, childPath),
	}
}

func (r *Ref) Path() string {
	return r.path
}

// Key is the last segment of the path, empty for the root.
func (r *Ref) Key() string {
	if r.path == "/" {
		return ""
	}
	return path.Base(r.path)
}

func (r *Ref) Get(ctx context.Context) (any, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r.db.Get(ctx, r.path)
}

// GetMap returns the value at the ref as an object; nil and non-object
// values yield an empty map.
func (r *Ref) GetMap(ctx context.Context) (map[string]any, error) {
	value, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}

func (r *Ref) Set(ctx context.Context, value any) error {
	if err := r.validate(); err != nil {
		return err
	}
	return r.db.Set(ctx, r.path, value)
}

func (r *Ref) Push(ctx context.Context, value any) (*Ref, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	key, err := r.db.Push(ctx, r.path, value)
	if err != nil {
		return nil, err
	}
	return r.Child(key), nil
}

func (r *Ref) Update(ctx context.Context, fields map[string]any) error {
	if err := r.validate(); err != nil {
		return err
	}
	if len(fields) == 0 {
		return errors.New("update value must be a non-empty map")
	}
	for key := range fields {
		if _, err := SplitPath(key); err != nil || strings.Trim(key, "/") == "" {
			if err == nil {
				err = ErrInvalidKey
			}
			return err
		}
	}
	return r.db.Update(ctx, r.path, fields)
}

func (r *Ref) Delete(ctx context.Context) error {
	if err := r.validate(); err != nil {
		return err
	}
	return r.db.Delete(ctx, r.path)
}

func (r *Ref) validate() error {
	_, err := SplitPath(r.path)
	return err
}
