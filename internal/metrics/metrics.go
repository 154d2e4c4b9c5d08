// Package metrics — metrics.go объявляет метрики Prometheus бота.
// Все метрики регистрируются в init и отдаются на /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Благодарности.
	AwardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "resources",
		Name:      "awards_total",
		Help:      "Total number of award attempts by result.",
	}, []string{"result"}) // "ok", "failed" или "partial"
	CooldownRefusals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "resources",
		Name:      "cooldown_refusals_total",
		Help:      "Acknowledgments refused because the actor was on cooldown.",
	})

	// Рейтинг.
	LeaderboardViewsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "resourcebot",
		Subsystem: "leaderboard",
		Name:      "views_active",
		Help:      "Number of leaderboard views still held in memory.",
	})
	LeaderboardPagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "leaderboard",
		Name:      "pages_total",
		Help:      "Leaderboard page transitions by outcome.",
	}, []string{"outcome"}) // "rendered", "end", "first", "expired"

	// AFK.
	AFKNoticesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "afk",
		Name:      "notices_total",
		Help:      "AFK notices emitted by kind.",
	}, []string{"kind"}) // "welcome_back" или "mention"

	// Модерация.
	ModerationActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "moderation",
		Name:      "actions_total",
		Help:      "Moderation actions by kind and result.",
	}, []string{"action", "result"})

	// Хранилище (docstore.WithTimeout).
	StorageOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "storage",
		Name:      "ops_total",
		Help:      "Document store operations by op and result.",
	}, []string{"op", "result"})
	StorageOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "resourcebot",
		Subsystem: "storage",
		Name:      "op_duration_seconds",
		Help:      "Document store operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// Команды и кнопки.
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "bot",
		Name:      "commands_total",
		Help:      "Slash commands and button presses handled.",
	}, []string{"name"})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resourcebot",
		Subsystem: "bot",
		Name:      "rate_limited_total",
		Help:      "Interactions dropped by the per-user rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(
		AwardsTotal,
		CooldownRefusals,

		LeaderboardViewsActive,
		LeaderboardPagesTotal,

		AFKNoticesTotal,

		ModerationActionsTotal,

		StorageOpsTotal,
		StorageOpDuration,

		CommandsTotal,
		RateLimited,
	)
}
