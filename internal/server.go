package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/trainingboard/internal/auth"
	"github.com/2beens/trainingboard/internal/config"
	"github.com/2beens/trainingboard/internal/db"
	"github.com/2beens/trainingboard/internal/middleware"
	"github.com/2beens/trainingboard/internal/misc"
	"github.com/2beens/trainingboard/internal/telemetry/metrics"
	"github.com/2beens/trainingboard/internal/telemetry/tracing"
	"github.com/2beens/trainingboard/internal/trainingload"
	"github.com/2beens/trainingboard/internal/workouts"
)

const sessionsCleanupInterval = 8 * time.Hour

// workoutsStore is implemented by both the postgres and the mongo repo.
type workoutsStore interface {
	Add(ctx context.Context, workout workouts.Workout) (*workouts.Workout, error)
	Get(ctx context.Context, id string) (*workouts.Workout, error)
	Update(ctx context.Context, workout *workouts.Workout) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params workouts.ListParams) (_ []workouts.Workout, total int, err error)
	ListByDateRange(ctx context.Context, params workouts.RangeParams) ([]workouts.Workout, error)
	DateExtent(ctx context.Context, includeHidden bool) (*workouts.DateExtent, error)
}

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	mongoClient *mongo.Client
	store       workoutsStore
	analyzer    *trainingload.Analyzer

	redisClient    *redis.Client
	rateLimiter    middleware.RequestRateLimiter
	sessionChecker auth.Checker
	authService    *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// app users always live in postgres, workouts only with the postgres store driver
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		MaxConns:       cfg.PostgresMaxConns,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	promRegistry := metrics.SetupPrometheus(db.NewPoolCollector(dbPool, cfg.PostgresDBName))
	metricsManager := metrics.NewManager("trainingboard", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := &Server{
		config:         cfg,
		dbPool:         dbPool,
		versionInfo:    params.VersionInfo,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mongoClient, err := db.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("new mongo client: %w", err)
		}
		mongoRepo := workouts.NewMongoRepo(mongoClient.Database(cfg.MongoDBName))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			log.Errorf("failed to ensure workouts indexes: %s", err)
		}
		s.mongoClient = mongoClient
		s.store = mongoRepo
	default:
		s.store = workouts.NewRepo(dbPool)
	}
	log.Debugf("using workouts store driver: %s", cfg.StoreDriver)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}
	s.redisClient = rdb
	s.rateLimiter = redis_rate.NewLimiter(rdb)

	var admin *auth.Admin
	if params.AdminUsername != "" && params.AdminPasswordHash != "" {
		admin = &auth.Admin{
			Username:     params.AdminUsername,
			PasswordHash: params.AdminPasswordHash,
		}
	}
	s.authService = auth.NewAuthService(admin, auth.NewUsersRepo(dbPool), auth.DefaultTTL, rdb)
	s.sessionChecker = auth.NewLoginChecker(auth.DefaultTTL, rdb)
	go s.cleanupSessions(ctx)

	// use honeycomb distro to setup OpenTelemetry SDK
	s.otelShutdown, err = tracing.HoneycombSetup(params.HoneycombTracingEnabled, "trainingboard", rdb)
	if err != nil {
		return nil, err
	}

	s.analyzer = trainingload.NewAnalyzer(s.store, trainingload.Config{
		DefaultWindowWeeks:    cfg.DefaultWindowWeeks,
		ClampNegativeResidual: cfg.ClampResidual(),
		CacheSizeMB:           cfg.AggregatesCacheSizeMB,
		CacheTTL:              time.Duration(cfg.AggregatesCacheTTLSeconds) * time.Second,
	}, metricsManager)

	return s, nil
}

func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionsCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	miscHandler := misc.NewHandler(s.versionInfo)
	miscHandler.SetupRoutes(r)

	authHandler := auth.NewHandler(s.authService)
	// rate limit the /login and /logout endpoints to prevent abuse
	authHandler.SetupRoutes(r, middleware.RateLimit(
		s.rateLimiter,
		"login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))

	trainingloadHandler := trainingload.NewHandler(s.analyzer)
	trainingloadHandler.SetupRoutes(r)

	// writes go through a subrouter so only admins reach them
	writeRouter := r.NewRoute().Subrouter()
	writeRouter.Use(middleware.RequireRole(auth.RoleAdmin))
	workoutsHandler := workouts.NewHandler(s.store, s.metricsManager, s.analyzer)
	workoutsHandler.SetupRoutes(r, writeRouter)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.sessionChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
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

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the stores go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			log.Errorf("failed to disconnect mongo client: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}
