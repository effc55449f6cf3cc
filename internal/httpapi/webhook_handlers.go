package httpapi

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/relaytide/campaign-platform/internal/webhook"
)

// WebhookHandlers adapts the provider's form-encoded POSTs to the
// Ingestor's provider-agnostic payload shape (spec.md §4.6). Both
// handlers always respond 200 once the raw body has been captured,
// even when extraction or downstream processing fails, so the provider
// never retries a webhook this service has already recorded.
type WebhookHandlers struct {
	Ingestor *webhook.Ingestor
}

// Inbound handles an inbound-message webhook (Twilio-style From/Body/
// MessageSid form fields).
func (h *WebhookHandlers) Inbound(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("⚠️ webhook: inbound: read body: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))
	if err := r.ParseForm(); err != nil {
		log.Printf("⚠️ webhook: inbound: parse form: %v", err)
	}

	payload := webhook.InboundPayload{
		From:              r.FormValue("From"),
		Body:              r.FormValue("Body"),
		ProviderMessageID: r.FormValue("MessageSid"),
	}
	if payload.From == "" {
		if waID := r.FormValue("WaId"); waID != "" {
			payload.From = "whatsapp:" + waID
		}
	}

	if err := h.Ingestor.Inbound(rawBody, payload); err != nil {
		log.Printf("⚠️ webhook: inbound: %v", err)
	}
	w.WriteHeader(http.StatusOK)
}

// Status handles a delivery-status callback webhook (Twilio-style
// MessageSid/MessageStatus/ErrorCode form fields).
func (h *WebhookHandlers) Status(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("⚠️ webhook: status: read body: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))
	if err := r.ParseForm(); err != nil {
		log.Printf("⚠️ webhook: status: parse form: %v", err)
	}

	var errorCode *int
	if raw := r.FormValue("ErrorCode"); raw != "" {
		if code, err := strconv.Atoi(raw); err == nil {
			errorCode = &code
		}
	}

	payload := webhook.StatusPayload{
		ProviderSid:   r.FormValue("MessageSid"),
		MessageStatus: r.FormValue("MessageStatus"),
		ErrorCode:     errorCode,
	}

	if err := h.Ingestor.Status(rawBody, payload); err != nil {
		log.Printf("⚠️ webhook: status: %v", err)
	}
	w.WriteHeader(http.StatusOK)
}
