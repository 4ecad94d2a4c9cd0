package store

import (
	"context"

	"firebase.google.com/go/v4/db"
)

var _ Database = (*FirebaseDatabase)(nil)

// FirebaseDatabase delegates every operation to the realtime database client.
type FirebaseDatabase struct {
	client *db.Client
}

func NewFirebaseDatabase(client *db.Client) *FirebaseDatabase {
	return &FirebaseDatabase{
		client: client,
	}
}

func (f *FirebaseDatabase) Get(ctx context.Context, path string) (any, error) {
	var value any
	if err := f.client.NewRef(path).Get(ctx, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (f *FirebaseDatabase) Set(ctx context.Context, path string, value any) error {
	return f.client.NewRef(path).Set(ctx, value)
}

func (f *FirebaseDatabase) Push(ctx context.Context, path string, value any) (string, error) {
	newRef, err := f.client.NewRef(path).Push(ctx, value)
	if err != nil {
		return "", err
	}
	return newRef.Key, nil
}

func (f *FirebaseDatabase) Update(ctx context.Context, path string, fields map[string]any) error {
	return f.client.NewRef(path).Update(ctx, fields)
}

func (f *FirebaseDatabase) Delete(ctx context.Context, path string) error {
	return f.client.NewRef(path).Delete(ctx)
}
