package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/orchestrator"
)

// StatsStore is the subset of the Store contract the campaign-stats
// endpoint depends on, grounded on the teacher's
// CampaignRepository.GetCampaignStats
// (internal/repository/campaign_repository.go), generalized from its
// lower-case pending/sent/failed set to the full status DAG.
type StatsStore interface {
	CampaignMessageStats(campaignID int) (map[model.MessageStatus]int, error)
}

// CampaignHandlers exposes the campaign lifecycle transitions over HTTP.
type CampaignHandlers struct {
	Orchestrator *orchestrator.Orchestrator
	StatsRepo    StatsStore
}

func campaignIDFromRequest(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (h *CampaignHandlers) MarkReady(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := h.Orchestrator.MarkReady(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandlers) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	status, taskID, err := h.Orchestrator.Trigger(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status, "taskId": taskID})
}

func (h *CampaignHandlers) Pause(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := h.Orchestrator.Pause(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandlers) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := h.Orchestrator.Resume(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Stats reports message-status counts for a campaign, ported and
// generalized from the teacher's GetCampaignHandlerWithStats.
func (h *CampaignHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDFromRequest(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	counts, err := h.StatsRepo.CampaignMessageStats(id)
	if err != nil {
		http.Error(w, "failed to fetch campaign stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = count
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"by_status":   byStatus,
	})
}
