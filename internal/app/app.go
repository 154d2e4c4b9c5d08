// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: выбирает хранилище, создаёт репозитории, сервисы,
// обработчики, фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot"
	"serotonyl.ru/resource-bot/internal/bot/filters"
	"serotonyl.ru/resource-bot/internal/bot/middleware"
	"serotonyl.ru/resource-bot/internal/config"
	"serotonyl.ru/resource-bot/internal/db/docstore"
	"serotonyl.ru/resource-bot/internal/db/postgres"
	"serotonyl.ru/resource-bot/internal/features/afk"
	"serotonyl.ru/resource-bot/internal/features/leaderboard"
	"serotonyl.ru/resource-bot/internal/features/moderation"
	"serotonyl.ru/resource-bot/internal/features/resources"
	"serotonyl.ru/resource-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Session   *discordgo.Session
	Metrics   *http.Server

	closers []func()
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище ===
	raw, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	store := docstore.WithTimeout(raw, cfg.StorageTimeout)

	// === 2. Discord ===
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания сессии Discord: %w", err)
	}
	a.Session = session

	// === 3. Репозитории и сервисы ===
	var (
		handlers    bot.Handlers
		resourceSvc *resources.Service
		afkRegistry *afk.Registry
		gate        *resources.CooldownGate
		views       *leaderboard.Registry
	)

	if cfg.FeatureResourcesEnabled {
		repo := resources.NewRepository(store)
		gate = resources.NewCooldownGate(cfg.CooldownWindow)
		resourceSvc = resources.NewService(repo, gate, resources.NewDetector(cfg.TriggerWords))
		views = leaderboard.NewRegistry(resourceSvc, cfg.LeaderboardPageSize, cfg.LeaderboardViewTTL)

		handlers.Resources = resources.NewHandler(resourceSvc, session)
		handlers.Leaderboard = leaderboard.NewHandler(views, session)
	}

	if cfg.FeatureAFKEnabled {
		afkRegistry = afk.NewRegistry(store)
		n, err := afkRegistry.Warm(ctx)
		if err != nil {
			// бот работает и с пустым кэшем: статусы вернутся по мере /afk
			log.WithError(err).Warn("Не удалось загрузить AFK-статусы")
		} else {
			log.WithField("count", n).Info("AFK-статусы загружены")
		}
		handlers.AFK = afk.NewHandler(afkRegistry, session)
	}

	if cfg.FeatureModerationEnabled {
		modSvc := moderation.NewService(
			moderation.NewRepository(store),
			moderation.NewDiscordActions(session),
			moderation.NewDMNotifier(session),
		)
		handlers.Moderation = moderation.NewHandler(modSvc, session)
	}

	// === 4. Фильтры и middleware ===
	guildFilter := filters.NewGuildFilter(cfg.AllowedGuildIDs)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// === 5. Собираем бота ===
	router := bot.NewRouter(resourceSvc, afkRegistry, cfg.AFKNoticeTTL)
	a.Bot = bot.New(session, cfg, router, handlers, guildFilter, rateLimiter)

	// === 6. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(cfg.SweepSchedule)
	a.Scheduler.Register("rate_limiter", rateLimiter)
	if gate != nil {
		a.Scheduler.Register("cooldowns", gate)
	}
	if views != nil {
		a.Scheduler.Register("leaderboard_views", views)
	}

	// === 7. Метрики ===
	if cfg.MetricsAddr != "" {
		a.Metrics = newMetricsServer(cfg.MetricsAddr)
	}

	return a, nil
}

// openStore открывает хранилище документов по DB_DRIVER.
func (a *App) openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrate(ctx, pool); err != nil {
			return nil, err
		}
		return docstore.NewPostgres(pool), nil

	case config.DriverSQLite:
		db, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("Ошибка закрытия SQLite")
			}
		})
		log.WithField("path", cfg.SQLitePath).Info("Хранилище: SQLite")
		return db, nil

	case config.DriverMemory:
		log.Warn("Хранилище: память, данные не переживут перезапуск")
		return docstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("неизвестный DB_DRIVER %q", cfg.DBDriver)
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("ошибка миграций: %w", err)
	}
	return nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ServeMetrics запускает HTTP-сервер метрик в фоне.
func (a *App) ServeMetrics() {
	if a.Metrics == nil {
		return
	}
	go func() {
		log.WithField("addr", a.Metrics.Addr).Info("Метрики доступны на /metrics")
		if err := a.Metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Сервер метрик остановлен с ошибкой")
		}
	}()
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() {
	if a.Metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Metrics.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Ошибка остановки сервера метрик")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
