// Command app wires the client core together and runs a diagnostic session:
// bootstrap with the init data from the environment, report the identity and
// onboarding state, then poll the available-order feed until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fixmasters/master-app/internal/core/ports"
	"github.com/fixmasters/master-app/internal/core/service"
	"github.com/fixmasters/master-app/internal/infrastructure/api"
	"github.com/fixmasters/master-app/internal/infrastructure/config"
	diaghttp "github.com/fixmasters/master-app/internal/infrastructure/http"
	"github.com/fixmasters/master-app/internal/infrastructure/http/handlers"
	"github.com/fixmasters/master-app/internal/infrastructure/queue"
	"github.com/fixmasters/master-app/internal/infrastructure/store"
	"github.com/fixmasters/master-app/internal/infrastructure/telegram"
	"github.com/fixmasters/master-app/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	rawInitData := os.Getenv("TELEGRAM_INIT_DATA")

	var (
		tokens ports.TokenStore
		rdb    *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err = store.Connect(ctx, store.RedisConfig{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect")
		}
		defer rdb.Close()
		tokens = store.NewRedisTokenStore(rdb)
	} else {
		tokens = store.NewFileTokenStore(cfg.TokenFile)
	}
	tokens = store.WithExpiryCheck(tokens, 0)

	client, err := api.NewClient(cfg.APIBaseURL, tokens, logger.With("transport"))
	if err != nil {
		log.Fatal().Err(err).Msg("transport")
	}
	backend := api.NewBackend(client)

	if cfg.BotToken != "" {
		if err := telegram.Validate(rawInitData, cfg.BotToken, cfg.InitDataTTL); err != nil {
			log.Fatal().Err(err).Msg("init data rejected locally, re-open the mini app")
		}
	}
	if tgUser, err := telegram.Inspect(rawInitData); err == nil {
		log.Info().Int64("telegram_id", tgUser.ID).Str("username", tgUser.Username).Msg("init data parsed")
	}

	flags := service.NewFlagBroadcaster()
	cache := service.NewIdentityCache()
	bootstrap := service.NewBootstrapService(tokens, backend, backend, cache, flags, logger.With("bootstrap"))
	orders := service.NewOrderService(backend, service.NewOrderStore(), service.NewListIndex(), logger.With("orders"))

	refresher := queue.NewDispatcher(cfg.RefreshWorkers, func(ctx context.Context, id string) error {
		_, err := orders.Get(ctx, id)
		return err
	}, logger.With("refresh"))
	refresher.Start(ctx)

	if cfg.DiagAddr != "" {
		checks := []handlers.Check{
			{Name: "backend", Probe: func(ctx context.Context) error {
				_, err := backend.Districts(ctx)
				return err
			}},
		}
		if rdb != nil {
			checks = append(checks, handlers.Check{Name: "redis", Probe: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
		diag := diaghttp.NewRouter(checks)
		go func() {
			if err := diag.Start(cfg.DiagAddr); err != nil {
				log.Warn().Err(err).Msg("diagnostics server stopped")
			}
		}()
	}

	unsubscribe := flags.Subscribe(func(needsSetup bool) {
		res, ok := bootstrap.Resolved()
		decision, target := service.DecideRoute(res, ok, service.RouteHome)
		log.Info().Bool("needs_setup", needsSetup).Int("decision", int(decision)).Str("route", string(target)).Msg("onboarding flag")
	})
	defer unsubscribe()

	res, err := bootstrap.Bootstrap(ctx, rawInitData)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	log.Info().
		Str("user_id", res.Identity.ID).
		Str("role", res.Identity.Role).
		Bool("needs_setup", res.NeedsSetup).
		Msg("session ready")

	poller := service.NewPoller("orders_available", cfg.PollInterval, func(ctx context.Context) error {
		list, err := orders.List(ctx, ports.ListOrdersQuery{Scope: ports.ScopeAvailable})
		if err != nil {
			return err
		}
		log.Info().Int("orders", len(list)).Msg("available feed refreshed")
		return nil
	}, logger.With("poller"))
	poller.Start(ctx)
	defer poller.Stop()

	activePoller := service.NewPoller("orders_active", cfg.PollInterval, func(ctx context.Context) error {
		list, err := orders.List(ctx, ports.ListOrdersQuery{Scope: ports.ScopeActive})
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(list))
		for _, o := range list {
			ids = append(ids, o.ID)
		}
		refresher.EnqueueBatch(ids)
		return nil
	}, logger.With("poller"))
	activePoller.Start(ctx)
	defer activePoller.Stop()

	<-ctx.Done()
	log.Info().Msg("stopped")
}
