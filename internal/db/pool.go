package db

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NewDBPoolParams struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	TracingEnabled bool
}

func (p NewDBPoolParams) ConnString() string {
	user := url.User(p.DBUser)
	if p.DBPassword != "" {
		user = url.UserPassword(p.DBUser, p.DBPassword)
	}
	host := p.DBHost
	if p.DBPort != "" {
		host = net.JoinHostPort(p.DBHost, p.DBPort)
	}
	connURL := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   host,
		Path:   "/" + p.DBName,
	}
	return connURL.String()
}

func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(params.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return db, nil
}
