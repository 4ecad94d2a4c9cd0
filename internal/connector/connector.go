// Package connector owns the single process wide connection to the
// portfolio store. The connection is opened once, on first use; a failed
// attempt leaves the connector unavailable instead of failing the process.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/2beens/portfoliocms/internal/apperr"
	"github.com/2beens/portfoliocms/internal/db"
	"github.com/2beens/portfoliocms/internal/store"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/pkg"
)

const PortfolioPath = "portfolio"

type Backend string

const (
	BackendFirebase Backend = "firebase"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

var (
	ErrNotConnected        = errors.New("store not connected")
	ErrCredentialsNotFound = errors.New("service account credentials not found")
)

type Params struct {
	Backend     Backend
	DatabaseURL string
	// CredentialsPath, when set, is the only service account file considered.
	CredentialsPath       string
	CredentialsCandidates []string
	Postgres              db.NewDBPoolParams
	MetricsManager        *metrics.Manager
}

type Connector struct {
	params Params

	attempted atomic.Bool
	mutex     sync.Mutex
	database  store.Database
	pgPool    *pgxpool.Pool

	// used by tests to plug in a database without opening a connection
	openFunc func(ctx context.Context) (store.Database, error)
}

func New(params Params) *Connector {
	c := &Connector{
		params: params,
	}
	c.openFunc = c.open
	return c
}

// NewWithDatabase returns a connector already holding database.
func NewWithDatabase(params Params, database store.Database) *Connector {
	c := New(params)
	c.openFunc = func(context.Context) (store.Database, error) {
		return database, nil
	}
	return c
}

// Connect opens the store connection. Only the first call does any work;
// concurrent callers wait for it and later calls return immediately.
func (c *Connector) Connect(ctx context.Context) {
	if c.attempted.Load() {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.attempted.Load() {
		return
	}
	defer c.attempted.Store(true)

	database, err := c.openFunc(ctx)
	if err != nil {
		log.Warnf("portfolio store [%s] unavailable: %s", c.params.Backend, err)
		c.setConnectedGauge(0)
		return
	}

	c.database = database
	c.setConnectedGauge(1)
	log.Infof("portfolio store [%s] connected", c.params.Backend)
}

func (c *Connector) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.database != nil
}

func (c *Connector) Database(ctx context.Context) (store.Database, error) {
	c.Connect(ctx)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.database == nil {
		return nil, apperr.Unavailable("connector", ErrNotConnected)
	}
	return c.database, nil
}

// RootRef returns a handle to the store root.
func (c *Connector) RootRef(ctx context.Context) (*store.Ref, error) {
	database, err := c.Database(ctx)
	if err != nil {
		return nil, err
	}
	return store.NewRef(database, "/"), nil
}

// PortfolioRef returns a handle scoped to the portfolio subtree.
func (c *Connector) PortfolioRef(ctx context.Context) (*store.Ref, error) {
	root, err := c.RootRef(ctx)
	if err != nil {
		return nil, err
	}
	return root.Child(PortfolioPath), nil
}

func (c *Connector) Backend() Backend {
	return c.params.Backend
}

func (c *Connector) DatabaseURL() string {
	return c.params.DatabaseURL
}

// PgPool is set only for the postgres backend, once connected.
func (c *Connector) PgPool() *pgxpool.Pool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pgPool
}

// CredentialPath returns the service account file the connector uses,
// or an empty string when none can be found.
func (c *Connector) CredentialPath() string {
	if c.params.CredentialsPath != "" {
		return c.params.CredentialsPath
	}
	for _, candidate := range c.params.CredentialsCandidates {
		if exists, _ := pkg.PathExists(candidate, false); exists {
			return candidate
		}
	}
	return ""
}

// ServiceAccountProjectID reads project_id from the service account file.
// Empty when the file is missing or unreadable.
func (c *Connector) ServiceAccountProjectID() string {
	credPath := c.CredentialPath()
	if credPath == "" {
		return ""
	}

	content, err := os.ReadFile(credPath)
	if err != nil {
		log.Debugf("read service account file %s: %s", credPath, err)
		return ""
	}

	var serviceAccount struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(content, &serviceAccount); err != nil {
		log.Debugf("parse service account file %s: %s", credPath, err)
		return ""
	}
	return serviceAccount.ProjectID
}

func (c *Connector) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.pgPool != nil {
		log.Debugln("closing db pool ...")
		c.pgPool.Close() // blocking operation
		c.pgPool = nil
		log.Debugln("db pool closed")
	}
	c.database = nil
	c.setConnectedGauge(0)
}

func (c *Connector) open(ctx context.Context) (store.Database, error) {
	switch c.params.Backend {
	case BackendFirebase:
		return c.openFirebase(ctx)
	case BackendPostgres:
		return c.openPostgres(ctx)
	case BackendMemory:
		log.Warnln("using in-memory portfolio store, contents are lost on restart")
		return store.NewMemoryDatabase(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", c.params.Backend)
	}
}

func (c *Connector) openFirebase(ctx context.Context) (store.Database, error) {
	credPath := c.CredentialPath()
	if credPath == "" {
		return nil, ErrCredentialsNotFound
	}
	if exists, _ := pkg.PathExists(credPath, false); !exists {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, credPath)
	}

	app, err := firebase.NewApp(
		ctx,
		&firebase.Config{DatabaseURL: c.params.DatabaseURL},
		option.WithCredentialsFile(credPath),
	)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase database client: %w", err)
	}

	log.Infof("firebase initialized with DB URL: %s", c.params.DatabaseURL)
	return store.NewFirebaseDatabase(client), nil
}

func (c *Connector) openPostgres(ctx context.Context) (store.Database, error) {
	pool, err := db.NewDBPool(ctx, c.params.Postgres)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	pgDatabase := store.NewPostgresDatabase(pool)
	if err := pgDatabase.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	c.pgPool = pool
	return pgDatabase, nil
}

func (c *Connector) setConnectedGauge(v float64) {
	if c.params.MetricsManager != nil {
		c.params.MetricsManager.GaugeStoreConnected.Set(v)
	}
}
