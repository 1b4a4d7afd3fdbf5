// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spot_the_difference"

type Metrics struct {
	registry *prometheus.Registry

	GamesCreated       prometheus.Counter
	QuotaRejections    *prometheus.CounterVec
	QuotaLeaks         prometheus.Counter
	PlaysVerified      *prometheus.CounterVec
	PlayConflicts      prometheus.Counter
	GenerationFailures *prometheus.CounterVec
	AppGames           prometheus.Gauge
	LeaderboardSyncs   *prometheus.CounterVec
}

// New builds a fresh registry so tests can create as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GamesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Game rounds persisted.",
		}),
		QuotaRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Reservations rejected, by quota scope.",
		}, []string{"scope"}),
		QuotaLeaks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_leaks_total",
			Help:      "Reservations consumed by a creation that later failed.",
		}),
		PlaysVerified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_verified_total",
			Help:      "Committed plays, by result.",
		}, []string{"result"}),
		PlayConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "play_conflicts_total",
			Help:      "Verification attempts rejected because the game was already played.",
		}),
		GenerationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed calls to the image generator, by step.",
		}, []string{"step"}),
		AppGames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_games",
			Help:      "Game rounds counted against the app-wide quota.",
		}),
		LeaderboardSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_syncs_total",
			Help:      "Leaderboard mirror rebuilds, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
