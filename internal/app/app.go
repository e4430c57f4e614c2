// Package app wires the cadence components together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/guilhermegouw/cadence/internal/activity"
	"github.com/guilhermegouw/cadence/internal/config"
	"github.com/guilhermegouw/cadence/internal/credentials"
	"github.com/guilhermegouw/cadence/internal/db"
	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/deferred"
	"github.com/guilhermegouw/cadence/internal/orchestrator"
	"github.com/guilhermegouw/cadence/internal/pubsub"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/remote"
	"github.com/guilhermegouw/cadence/internal/scheduler"
	"github.com/guilhermegouw/cadence/internal/store"
	"github.com/guilhermegouw/cadence/internal/syncer"
)

// ErrChannelOff is returned by SendMessage when no realtime transport is
// configured.
var ErrChannelOff = errors.New("realtime channel is off")

// feedBuffer bounds queued input signals between the TUI and the monitor.
const feedBuffer = 64

// App holds every long-lived component.
type App struct { //nolint:govet // fieldalignment: preserving logical field order
	Config      *config.Config
	DB          *db.DB
	Store       *store.Store
	Credentials *credentials.Store
	Remote      *remote.Client // nil when no server is configured
	Syncer      *syncer.Syncer

	Bus       *pubsub.Bus
	Registry  *pubsub.Registry
	Scheduler *scheduler.Scheduler
	Realtime  *realtime.Client // nil when the transport is off
	Spool     *deferred.Spool
	Registrar *deferred.Registrar
	Feed      *activity.Feed
	Monitor   *activity.Monitor

	Orchestrator *orchestrator.Orchestrator

	redis   *redis.Client
	cancel  context.CancelFunc
	running chan struct{}
}

// New builds the components from cfg. Nothing runs until Start.
func New(cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &App{
		Config:      cfg,
		DB:          database,
		Store:       store.New(database),
		Credentials: credentials.New(os.Getenv("USER"), cfg.Server.Token),
		Bus:         pubsub.NewBus(),
		Registry:    pubsub.NewRegistry(),
		Feed:        activity.NewFeed(feedBuffer),
	}
	a.Registry.Register(a.Bus.Mirror())

	if err := a.buildRemote(); err != nil {
		_ = database.Close()
		return nil, err
	}

	// A nil *remote.Client must not reach the syncer as a non-nil interface.
	var rm syncer.Remote
	if a.Remote != nil {
		rm = a.Remote
	}
	a.Syncer = syncer.New(a.Store, rm, a.Bus)

	a.Scheduler = scheduler.New(a.Bus)
	a.Monitor = activity.New(a.Bus, activity.WithIdleThreshold(cfg.Activity.IdleThreshold.Std()))

	a.Spool = deferred.NewSpool(cfg.Deferred.SpoolDir, cfg.Deferred.IsEnabled())
	a.Registrar = deferred.New(a.Spool, deferred.NewTerminalNotifier(os.Stderr, cfg.Notifications.Bell))

	if err := a.buildChannel(); err != nil {
		_ = database.Close()
		return nil, err
	}

	deps := orchestrator.Deps{
		Bus:          a.Bus,
		Scheduler:    a.Scheduler,
		Deferred:     a.Registrar,
		Syncer:       a.Syncer,
		Acknowledger: a.Syncer,
	}
	if a.Realtime != nil {
		deps.Channel = a.Realtime
	}
	a.Orchestrator = orchestrator.New(deps, orchestratorConfig(cfg))

	return a, nil
}

func (a *App) buildRemote() error {
	if a.Config.Server.URL == "" {
		debug.Log("no server configured, syncing locally only")
		return nil
	}
	rc, err := remote.New(remote.Options{
		BaseURL:  a.Config.Server.URL,
		Tokens:   a.Credentials.TokenSource(),
		Timeout:  a.Config.Server.Timeout.Std(),
		RetryMax: a.Config.Server.Retries,
	})
	if err != nil {
		return fmt.Errorf("creating server client: %w", err)
	}
	a.Remote = rc
	return nil
}

func (a *App) buildChannel() error {
	rt := a.Config.Realtime

	var dialer realtime.Dialer
	switch rt.Transport {
	case config.TransportOff:
		return nil
	case config.TransportRedis:
		client, err := newRedisClient(rt.RedisAddr)
		if err != nil {
			return err
		}
		a.redis = client
		dialer = realtime.RedisDialer{Client: client, Inbox: rt.Inbox, Outbox: rt.Outbox}
	default:
		if rt.URL == "" {
			debug.Log("no realtime url configured, channel off")
			return nil
		}
		dialer = realtime.WebSocketDialer{URL: rt.URL, WriteTimeout: rt.WriteTimeout.Std()}
	}

	a.Realtime = realtime.New(dialer, realtime.FromTokenSource(a.Credentials.TokenSource()), a.Bus,
		realtime.WithConfig(realtime.Config{
			BaseDelay:   rt.BaseDelay.Std(),
			MaxDelay:    rt.MaxDelay.Std(),
			MaxAttempts: rt.MaxAttempts,
		}),
	)
	return nil
}

// newRedisClient accepts either host:port or a redis:// URL.
func newRedisClient(addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("realtime.redis_addr is required for the redis transport")
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	o := cfg.Orchestrator
	return orchestrator.Config{
		ProbeInterval:    o.ProbeInterval.Std(),
		FullSyncInterval: o.FullSyncInterval.Std(),
		HealthInterval:   o.HealthInterval.Std(),
		HealthGrace:      o.HealthGrace.Std(),
		DebounceWindow:   o.DebounceWindow.Std(),
		ProcessedCap:     o.ProcessedCap,
		NightlySchedule:  cfg.Scheduler.NightlySchedule,
	}
}

// Start runs the activity monitor and initializes the orchestrator, which
// starts the scheduler and connects the channel. Components run until
// Shutdown or until ctx is done.
func (a *App) Start(ctx context.Context) error {
	if a.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = make(chan struct{})

	go func() {
		defer close(a.running)
		a.Monitor.Run(runCtx, a.Feed, a.Feed)
	}()

	if err := a.Orchestrator.Initialize(runCtx); err != nil {
		cancel()
		<-a.running
		a.cancel = nil
		return fmt.Errorf("initializing orchestrator: %w", err)
	}
	return nil
}

// Shutdown stops everything in dependency order: the orchestrator first so
// no new work is scheduled, then the scheduler, monitor and transports, and
// the bus and database last.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.cancel != nil {
		if err := a.Orchestrator.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("orchestrator: %w", err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Scheduler.Shutdown(gctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if a.cancel == nil {
			return nil
		}
		a.cancel()
		select {
		case <-a.running:
			return nil
		case <-gctx.Done():
			return fmt.Errorf("activity monitor: %w", gctx.Err())
		}
	})
	g.Go(func() error {
		if a.Realtime != nil {
			a.Realtime.Disconnect()
		}
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	a.Bus.Shutdown()
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	debug.Event("app", "shutdown", fmt.Sprintf("errors=%d", len(errs)))
	return errors.Join(errs...)
}
