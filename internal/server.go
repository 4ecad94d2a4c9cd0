package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/config"
	"github.com/2beens/portfoliocms/internal/connector"
	"github.com/2beens/portfoliocms/internal/db"
	"github.com/2beens/portfoliocms/internal/diagnostics"
	"github.com/2beens/portfoliocms/internal/middleware"
	"github.com/2beens/portfoliocms/internal/portfolio"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/internal/web"
	"github.com/2beens/portfoliocms/pkg"
)

const (
	sessionsCleanupInterval = 8 * time.Hour
	redisPingAttempts       = 3
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config    *config.Config
	connector *connector.Connector

	redisClient    *redis.Client
	authService    *auth.Service
	sessionManager *auth.SessionManager

	portfolioService *portfolio.Service
	policies         *portfolio.Policies
	renderer         *web.Renderer

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()

	done chan struct{}
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	SessionSecret           string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "portfolio-backend")
	if err != nil {
		return nil, err
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	conn := connector.New(connector.Params{
		Backend:               connector.Backend(cfg.StoreBackend),
		DatabaseURL:           cfg.DatabaseURL,
		CredentialsPath:       cfg.CredentialsPath,
		CredentialsCandidates: cfg.CredentialsCandidates,
		Postgres: db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.HoneycombTracingEnabled,
		},
		MetricsManager: metricsManager,
	})
	// a failed connect leaves the server up; mutating calls answer 503
	conn.Connect(ctx)

	if pool := conn.PgPool(); pool != nil {
		pgxpoolCollector := pgxpoolprometheus.NewCollector(
			pool,
			map[string]string{"db_name": cfg.PostgresDBName},
		)
		if err := promRegistry.Register(pgxpoolCollector); err != nil {
			log.Errorf("register pgxpool collector: %s", err)
		}
	}

	policies, err := portfolio.NewPolicies(cfg.WritePolicies)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("write policies: %w", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("new renderer: %w", err)
	}

	s := &Server{
		config:      cfg,
		connector:   conn,
		versionInfo: params.VersionInfo,

		portfolioService: portfolio.NewService(conn, policies, metricsManager),
		policies:         policies,
		renderer:         renderer,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,

		done: make(chan struct{}),
	}

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour
	var sessionStore auth.SessionStore
	switch cfg.SessionStore {
	case "memory":
		log.Warnln("using in-memory session store, sessions are lost on restart")
		sessionStore = auth.NewMemorySessionStore(sessionTTL)
	default:
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		// redis may come up after the service, give it a few seconds
		err := retry.Call(retry.CallArgs{
			Func: func() error {
				return s.redisClient.Ping(ctx).Err()
			},
			NotifyFunc: func(err error, attempt int) {
				log.Debugf("redis ping, attempt %d: %s", attempt, err)
			},
			Attempts: redisPingAttempts,
			Delay:    time.Second,
			Clock:    clock.WallClock,
			Stop:     ctx.Done(),
		})
		if err != nil {
			log.Errorf("--> failed to ping redis: %s", retry.LastError(err))
		} else {
			log.Debugln("redis ping ok")
		}

		s.authService = auth.NewAuthService(sessionTTL, s.redisClient)
		sessionStore = s.authService
	}

	s.sessionManager = auth.NewSessionManager(auth.SessionManagerParams{
		Secret:       params.SessionSecret,
		Store:        sessionStore,
		TTL:          sessionTTL,
		SecureCookie: cfg.CookieSecure,
	})

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	portfolioHandler := portfolio.NewHandler(s.portfolioService)
	portfolioHandler.SetupRoutes(r)

	webHandler := web.NewHandler(web.HandlerParams{
		Portfolio:      s.portfolioService,
		Sessions:       s.sessionManager,
		Renderer:       s.renderer,
		Singletons:     s.policies.Singletons(),
		CredentialPath: s.config.AdminCredentialsPath,
		MetricsManager: s.metricsManager,
	})
	webHandler.SetupRoutes(r)

	if s.config.DiagnosticsDisabled {
		log.Infoln("diagnostics endpoints disabled")
	} else {
		diagnosticsHandler := diagnostics.NewHandler(s.connector)
		diagnosticsHandler.SetupRoutes(r)
	}

	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.sessionManager)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, s.versionInfo)
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	if s.authService != nil {
		go s.cleanSessionsPeriodically(ctx, sessionsCleanupInterval)
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) cleanSessionsPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)
	close(s.done)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	s.connector.Close()

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
