package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotlink/internal/repositories"
	"github.com/desertthunder/spotlink/internal/server"
	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
	"github.com/desertthunder/spotlink/internal/ui"
)

const purgeInterval = 5 * time.Minute

// routeInfo is the JSON shape of `spotlink routes --json`.
type routeInfo struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Serve validates the configuration, opens the session backend and serves until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.IsSet("host") {
		config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port := int(cmd.Int("port"))
		if port < 1 || port > 65535 {
			return fmt.Errorf("%w: port must be between 1 and 65535, got %d", shared.ErrInvalidArgument, port)
		}
		config.Server.Port = port
	}
	if cmd.IsSet("backend") {
		config.Session.Backend = cmd.String("backend")
	}

	if err := config.Validate(); err != nil {
		return err
	}
	shared.SetLogLevel(r.logger, config.Server.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := r.openStore(ctx, config)
	if err != nil {
		return err
	}
	defer closeStore()

	r.logger.Info("starting server", "addr", config.Server.Addr(), "backend", config.Session.Backend)

	srv := server.New(server.Options{
		Config:     config,
		Store:      store,
		Logger:     r.logger,
		HTTPClient: r.httpClient,
	})
	return srv.ListenAndServe(ctx)
}

// openStore builds the session store named by config.Session.Backend.
//
// The returned close function releases any connection the backend holds and is never nil.
func (r *Runner) openStore(ctx context.Context, config *shared.Config) (session.Store, func() error, error) {
	options := session.CookieOptions{Secure: config.Session.Secure}
	noop := func() error { return nil }

	switch config.Session.Backend {
	case shared.BackendCookie:
		codec, err := session.NewCodec(config.Session.Secret)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		return session.NewCookieStore(codec, options), noop, nil

	case shared.BackendMemory:
		backend := session.NewMemoryBackend()
		go r.purgeLoop(ctx, backend, purgeInterval)
		return session.NewServerStore(backend, options), noop, nil

	case shared.BackendSQLite:
		db, err := shared.OpenDatabase(config.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open session database: %w", err)
		}
		repo := repositories.NewSessionRepository(db)
		go r.purgeLoop(ctx, repo, purgeInterval)
		return session.NewServerStore(repo, options), db.Close, nil

	case shared.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", config.Redis.Addr, err)
		}
		return session.NewServerStore(session.NewRedisBackend(client), options), client.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, config.Session.Backend)
	}
}

// purger is a session backend that can sweep its expired values.
type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeLoop removes expired session values until ctx is done.
func (r *Runner) purgeLoop(ctx context.Context, backend purger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := backend.PurgeExpired(ctx)
			if err != nil {
				r.logger.Warn("failed to purge expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				r.logger.Debug("purged expired sessions", "count", removed)
			}
		}
	}
}

// Routes prints the routes the server registers.
func (r *Runner) Routes(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Config: config,
		Store:  session.NewServerStore(session.NewMemoryBackend(), session.CookieOptions{}),
		Logger: r.logger,
	})

	routes := make([]routeInfo, 0, len(srv.Routes()))
	for _, route := range srv.Routes() {
		routes = append(routes, routeInfo{Method: route.Method, Pattern: route.Pattern})
	}

	if cmd.Bool("json") {
		return r.writeJSON(routes, cmd.Bool("pretty"))
	}

	palette := ui.Styles()
	table := ui.NewTable("Routes", "METHOD", "PATH").KeyStyle(palette.Method)
	for _, route := range routes {
		table.Add(route.Method, route.Pattern)
	}
	return r.writePlain("%s", table.Render())
}
