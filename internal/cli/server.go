package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"red-herring-service/internal/app"
	"red-herring-service/internal/config"
	"red-herring-service/internal/domain"
	"red-herring-service/internal/infra/memory"
	"red-herring-service/internal/infra/postgres"
	redisstore "red-herring-service/internal/infra/redis"
	transport "red-herring-service/internal/transport/http"
)

const (
	defaultPort        = "8080"
	defaultRedisTTL    = 2 * time.Hour
	defaultQuestionTTL = 10 * time.Minute
	defaultIdleTimeout = time.Hour
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	setupLogging(cfg, opts)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	port := opts.Port
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = defaultPort
	}

	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      transport.NewRouter(service, cfg.Server.PublicURL),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	idle := config.TTLDuration(cfg.Rooms.IdleTimeout, defaultIdleTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", port).Msg("starting red herring service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reapIdleRooms(gctx, service, idle)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildService picks the stores from config: redis when an address is set,
// postgres for decks and history when a url is set, memory otherwise.
func buildService(ctx context.Context, cfg config.Config) (*app.GameService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var loader memory.QuestionLoader = memory.NewClassicLoader()
	var history app.HistoryRecorder = memory.NewHistoryLog()
	if cfg.Postgres.URL != "" {
		pool, err := postgres.OpenPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)
		loader = postgres.NewQuestionLoader(pool)

		db := postgres.OpenBun(cfg.Postgres.URL)
		closers = append(closers, func() { closeBun(db) })
		history = postgres.NewHistoryStore(db)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, defaultQuestionTTL)
	var questions app.QuestionRepository
	var rooms app.RoomRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, cleanup, err
		}
		questions = redisstore.NewQuestionRepository(client, loader, questionTTL)
		store := redisstore.NewRoomStore(client, config.TTLDuration(cfg.Redis.TTL, defaultRedisTTL), config.InstanceID(cfg.Redis.InstanceID))
		log.Info().Str("instance", store.Instance()).Msg("redis room store owns rooms as this instance")
		rooms = store
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		rooms = memory.NewRoomStore()
	}

	deck := cfg.Questions.Deck
	if deck == "" {
		deck = domain.DefaultDeck
	}
	return app.NewGameService(rooms, questions, history, deck), cleanup, nil
}

// reapIdleRooms expires idle rooms every idle/2 until ctx is done. A
// non-positive idle disables reaping.
func reapIdleRooms(ctx context.Context, service *app.GameService, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := service.ExpireIdle(ctx, idle); n > 0 {
				log.Info().Int("rooms", n).Msg("expired idle rooms")
			}
		}
	}
}

func closeBun(db *bun.DB) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("close postgres")
	}
}
