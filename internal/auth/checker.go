package auth

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=auth_test

var _ Checker = (*SessionManager)(nil)

// SessionStore holds the server side record of admin sessions.
type SessionStore interface {
	Login(ctx context.Context, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
	IsLogged(ctx context.Context, token string) (bool, error)
}

type Checker interface {
	IsAuthenticated(r *http.Request) bool
}
