package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// normalize turns any JSON serializable value into its decoded form
// (maps, slices, strings, float64, bool, nil). The round trip doubles as a
// deep copy, so stored trees never alias caller values.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not json serializable: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// isEmpty reports values the database does not keep: nil and empty objects.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	m, ok := value.(map[string]any)
	return ok && len(m) == 0
}

func getAt(node any, segments []string) any {
	for _, segment := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[segment]
	}
	return node
}

// setAt writes value at segments below node and returns the new node.
// Maps on the way are modified in place; emptied maps are pruned.
func setAt(node any, segments []string, value any) any {
	if len(segments) == 0 {
		if isEmpty(value) {
			return nil
		}
		return value
	}

	m, ok := node.(map[string]any)
	if !ok {
		if isEmpty(value) {
			// nothing to delete below a leaf
			return node
		}
		m = map[string]any{}
	}

	child := setAt(m[segments[0]], segments[1:], value)
	if child == nil {
		delete(m, segments[0])
	} else {
		m[segments[0]] = child
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

func updateAt(node any, segments []string, fields map[string]any) (any, error) {
	targets := make(map[string][]string, len(fields))
	for key := range fields {
		fieldSegments, err := SplitPath(key)
		if err != nil {
			return node, err
		}
		if len(fieldSegments) == 0 {
			return node, fmt.Errorf("%w: empty update key", ErrInvalidKey)
		}
		targets[key] = append(append([]string{}, segments...), fieldSegments...)
	}

	for key, value := range fields {
		node = setAt(node, targets[key], value)
	}
	return node, nil
}

// newPushKey returns a unique key that sorts in creation order.
func newPushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
