// Package store is the hierarchical JSON database the portfolio lives in.
// Database is the narrow set of operations every backend offers; Ref binds a
// path to a database the way the realtime database client does.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrInvalidKey = errors.New("invalid key")

type Database interface {
	// Get returns the subtree at path, or nil when nothing is stored there.
	Get(ctx context.Context, path string) (any, error)
	// Set overwrites the value at path.
	Set(ctx context.Context, path string, value any) error
	// Push stores value under a newly generated child key of path.
	Push(ctx context.Context, path string, value any) (string, error)
	// Update merges fields into the value at path, leaving other children untouched.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error
}

// SplitPath validates a slash separated path and returns its segments.
// The root is addressed by "" or "/".
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}

	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if err := ValidateKey(segment); err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
	}
	return segments, nil
}

func JoinPath(segments ...string) string {
	var nonEmpty []string
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return "/" + strings.Join(nonEmpty, "/")
}

// ValidateKey applies the realtime database key rules, so every backend
// accepts and rejects the same keys.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if len(key) > 768 {
		return fmt.Errorf("%w: key longer than 768 bytes", ErrInvalidKey)
	}
	for _, r := range key {
		switch {
		case strings.ContainsRune(".$#[]/", r):
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, r)
		case unicode.IsControl(r):
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidKey, key)
		}
	}
	return nil
}
