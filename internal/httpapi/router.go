// Package httpapi is the external HTTP surface from spec.md §6,
// grounded on internal/controller/campaign_controller.go's chi-based
// handler shape.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaytide/campaign-platform/internal/metrics"
	"github.com/relaytide/campaign-platform/internal/orchestrator"
	"github.com/relaytide/campaign-platform/internal/webhook"
)

// NewRouter wires every external route: campaign lifecycle, the two
// webhook entry points, and the Prometheus scrape endpoint.
func NewRouter(orch *orchestrator.Orchestrator, ingestor *webhook.Ingestor, stats StatsStore, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	if m != nil {
		r.Use(m.Middleware)
	}

	campaigns := &CampaignHandlers{Orchestrator: orch, StatsRepo: stats}
	webhooks := &WebhookHandlers{Ingestor: ingestor}

	r.Post("/campaigns/{id}/ready", campaigns.MarkReady)
	r.Post("/campaigns/{id}/trigger", campaigns.Trigger)
	r.Post("/campaigns/{id}/pause", campaigns.Pause)
	r.Post("/campaigns/{id}/resume", campaigns.Resume)
	r.Get("/campaigns/{id}/stats", campaigns.Stats)

	r.Post("/webhooks/inbound", webhooks.Inbound)
	r.Post("/webhooks/status", webhooks.Status)

	if m != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}
