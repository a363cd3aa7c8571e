package app

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/config"
	"github.com/goliatone/go-auth-gate/middleware/jwtware"
	"github.com/goliatone/go-auth-gate/middleware/routepolicy"
)

// Deps are the collaborators the HTTP server is assembled from
type Deps struct {
	Config   *config.Config
	DB       bun.IDB
	Logger   auth.Logger
	Registry *prometheus.Registry
	Hasher   auth.PasswordHasher
}

// OpenDB opens the sqlite database behind dsn and makes sure the schema
// exists.
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}

	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		// every connection would get its own empty database otherwise
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := auth.NewUsersRepository(db).CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Server is the HTTP surface of authgate: a go-router route table mounted
// on a fiber app.
type Server struct {
	srv router.Server[*fiber.App]
	app *fiber.App
}

// App returns the fiber app the routes are mounted on
func (s *Server) App() *fiber.App {
	return s.app
}

// Router returns the route table
func (s *Server) Router() router.Router[*fiber.App] {
	return s.srv.Router()
}

// FiberConfig is the fiber setup shared by the server and its tests. Routing
// is case sensitive and strict so the router resolves paths exactly like the
// route policy classifies them.
func FiberConfig(logger auth.Logger) fiber.Config {
	return fiber.Config{
		AppName:               "authgate",
		DisableStartupMessage: true,
		CaseSensitive:         true,
		StrictRouting:         true,
		ErrorHandler:          auth.ErrorHandler(logger),
	}
}

// NewServer wires the gate, the route policy and the account API into a
// go-router server backed by fiber.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server config is required", errors.CategoryBadInput)
	}

	if deps.DB == nil {
		return nil, errors.New("server database is required", errors.CategoryBadInput)
	}

	logger := deps.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	tokens, err := auth.NewTokenServiceFromConfig(deps.Config, logger)
	if err != nil {
		return nil, err
	}

	users := auth.NewUsersRepository(deps.DB)
	metrics := auth.NewMetrics(registry)

	auther := auth.NewAuthenticator(users, deps.Hasher, tokens).
		WithLogger(logger).
		WithActivitySink(metrics)

	policy, err := routepolicy.New(routepolicy.DefaultRules()...)
	if err != nil {
		return nil, err
	}
	policy.WithLogger(logger)

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(fiber.New(FiberConfig(logger)))
		app.Use(recover.New())
		app.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		)).Name("metrics")
		return app
	})

	if app == nil {
		return nil, errors.New("router adapter did not create a fiber app", errors.CategoryInternal)
	}

	r := srv.Router()

	r.Use(jwtware.New(jwtware.Config{
		Tokens:       tokens,
		Identities:   users,
		Logger:       logger,
		ActivitySink: metrics,
		DebugHeaders: deps.Config.GetDebugHeaders(),
	}))

	r.Use(policy.Enforce())

	r.Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("healthz")

	auth.RegisterAuthRoutes(r.Group("/api"),
		auth.WithAuthenticator(auther),
		auth.WithRoleGuard(routepolicy.RequireRole),
		auth.WithControllerLogger(logger),
		auth.WithDebug(deps.Config.Debug),
	)

	mountFallback(r)

	return &Server{srv: srv, app: app}, nil
}

// mountFallback catches every path no route claimed. Those requests still
// run through the gate and the policy, so unknown protected paths answer
// 401 and only callers that were let through see a 404.
func mountFallback[T any](r router.Router[T]) {
	notFound := func(router.Context) error {
		return auth.ErrRouteNotFound
	}

	r.Get("/*", notFound).SetName("fallback.get")
	r.Post("/*", notFound).SetName("fallback.post")
	r.Put("/*", notFound).SetName("fallback.put")
	r.Patch("/*", notFound).SetName("fallback.patch")
	r.Delete("/*", notFound).SetName("fallback.delete")
}
