package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bluedeem/clinic-ai-platform/internal/conversation"
	"github.com/bluedeem/clinic-ai-platform/internal/observability/metrics"
	"github.com/bluedeem/clinic-ai-platform/internal/platform"
	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

// WebhookHandler receives platform webhooks, runs the routing engine
// and sends replies back through the matching adapter.
type WebhookHandler struct {
	engine   *conversation.Engine
	adapters map[string]platform.Adapter
	logger   *logging.Logger
	metrics  *metrics.RouterMetrics
}

// NewWebhookHandler wires the handler for the given adapters.
func NewWebhookHandler(engine *conversation.Engine, adapters []platform.Adapter, logger *logging.Logger, m *metrics.RouterMetrics) *WebhookHandler {
	if engine == nil {
		panic("handlers: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	byName := make(map[string]platform.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &WebhookHandler{
		engine:   engine,
		adapters: byName,
		logger:   logger,
		metrics:  m,
	}
}

// HealthCheck reports liveness.
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleVerification answers the GET subscription challenge the
// platforms send when a webhook is registered.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	adapter, ok := h.adapters[chi.URLParam(r, "platform")]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == adapter.VerifyToken() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound processes POST webhook events. It acknowledges with 200
// before replies go out so the platform does not retry while the LLM is
// still thinking.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "platform")
	adapter, ok := h.adapters[name]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := adapter.VerifySignature(r.Header, body); err != nil {
		h.logger.Warn("webhook signature rejected", "platform", name, "error", err)
		h.metrics.ObserveDropped(name, "bad_signature")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messages, err := adapter.ParseInbound(body)
	if err != nil {
		h.logger.Warn("webhook parse failed", "platform", name, "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)

	start := time.Now()
	for _, msg := range messages {
		h.process(r, adapter, msg)
	}
	h.metrics.ObserveWebhookLatency(name, time.Since(start).Seconds())
}

func (h *WebhookHandler) process(r *http.Request, adapter platform.Adapter, msg platform.Message) {
	ctx := r.Context()

	reply, err := h.engine.HandleMessage(ctx, conversation.Inbound{
		Platform:   msg.Platform,
		SenderID:   msg.SenderID,
		Text:       msg.Text,
		MessageID:  msg.MessageID,
		ReceivedAt: msg.ReceivedAt,
	})
	if err != nil {
		h.logger.Error("message handling failed", "platform", msg.Platform, "error", err)
		return
	}
	if reply == "" {
		return
	}

	if err := adapter.SendText(ctx, msg.SenderID, reply); err != nil {
		h.logger.Error("reply delivery failed", "platform", msg.Platform, "error", err)
	}
}
