package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	Logger *zap.Logger

	updatesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updates_processed_total",
			Help: "Total number of chat updates processed",
		},
		[]string{"status"},
	)

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Total number of moderation actions applied",
		},
		[]string{"action"},
	)

	linkReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_reviews_total",
			Help: "Total number of link review transitions",
		},
		[]string{"outcome"},
	)

	scheduledDeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_deletions_total",
			Help: "Total number of ephemeral message deletions fired",
		},
		[]string{"result"},
	)
)

func Init(ctx context.Context, metricsAddr string) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(updatesProcessedTotal)
	prometheus.MustRegister(moderationActionsTotal)
	prometheus.MustRegister(linkReviewsTotal)
	prometheus.MustRegister(scheduledDeletionsTotal)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordUpdate records a processed update outcome
func RecordUpdate(status string) {
	updatesProcessedTotal.WithLabelValues(status).Inc()
}

// RecordModerationAction records an applied moderation action
func RecordModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}

// RecordLinkReview records a pending link transition
func RecordLinkReview(outcome string) {
	linkReviewsTotal.WithLabelValues(outcome).Inc()
}

// RecordScheduledDeletion records an ephemeral deletion result
func RecordScheduledDeletion(result string) {
	scheduledDeletionsTotal.WithLabelValues(result).Inc()
}
