package secrethandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/secret-service/api"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
	"golang.org/x/time/rate"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Error names for failures that are not engine faults.
const (
	failedErrorName         = "org.freedesktop.DBus.Error.Failed"
	limitsExceededErrorName = "org.freedesktop.DBus.Error.LimitsExceeded"
)

// SecretService is the engine surface the handler dispatches to.
type SecretService interface {
	OpenSession(caller interfaces.Caller, algorithm string, input any) (any, interfaces.ObjectPath, error)
	SearchItems(query map[string]string) (unlocked, locked []interfaces.ObjectPath)
	GetSecrets(caller interfaces.Caller, items []interfaces.ObjectPath, session interfaces.ObjectPath) (map[interfaces.ObjectPath]interfaces.Secret, error)
	GetSecret(caller interfaces.Caller, item, session interfaces.ObjectPath) (interfaces.Secret, error)
	DeleteItem(caller interfaces.Caller, item interfaces.ObjectPath) (interfaces.ObjectPath, error)
	CloseSession(caller interfaces.Caller, session interfaces.ObjectPath) error
	PromptPrompt(path interfaces.ObjectPath, windowID string) error
	DismissPrompt(path interfaces.ObjectPath) error
	CallerLost(caller interfaces.Caller)
	Collections() []secretservice.CollectionInfo
}

// Handler serves the secret service over HTTP/JSON. The caller identity of
// every request is interfaces.HTTPCaller of the api.CallerHeader header.
type Handler struct {
	svc     SecretService
	signals *SignalQueue
	limiter *callerLimiter
	log     *slog.Logger
}

// NewHandler creates a handler. Completed signals must be routed to signals by
// the engine for /api/signals to return them.
func NewHandler(svc SecretService, signals *SignalQueue, limits api.RateLimitConfig, log *slog.Logger) *Handler {
	h := &Handler{
		svc:     svc,
		signals: signals,
		log:     log,
	}
	if limits.RequestsPerSecond > 0 {
		h.limiter = newCallerLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst, limits.IdleTTL)
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireCaller, h.rateLimit)

		r.Post("/service/open-session", h.HandleOpenSession)
		r.Post("/service/search-items", h.HandleSearchItems)
		r.Post("/service/get-secrets", h.HandleGetSecrets)
		r.Post("/item/get-secret", h.HandleGetSecret)
		r.Post("/item/delete", h.HandleDeleteItem)
		r.Post("/session/close", h.HandleCloseSession)
		r.Post("/prompt/prompt", h.HandlePrompt)
		r.Post("/prompt/dismiss", h.HandleDismiss)
		r.Post("/caller/disconnect", h.HandleDisconnect)
		r.Get("/signals", h.HandleSignals)
		r.Get("/collections", h.HandleCollections)
	})
}

type callerKey struct{}

func callerFrom(ctx context.Context) interfaces.Caller {
	caller, _ := ctx.Value(callerKey{}).(interfaces.Caller)
	return caller
}

func (h *Handler) requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(api.CallerHeader)
		if caller == "" {
			h.writeFault(w, interfaces.InvalidArgs("missing %s header", api.CallerHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, interfaces.HTTPCaller(caller))))
	})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.allow(string(callerFrom(r.Context()))) {
			writeJSON(w, http.StatusTooManyRequests, api.FaultResponse{
				Name:    limitsExceededErrorName,
				Message: "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleOpenSession negotiates a session.
//
// URL format: POST /api/service/open-session
// Body: api.OpenSessionRequest. Response: api.OpenSessionResponse.
func (h *Handler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req api.OpenSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	input, err := req.Input.Value()
	if err != nil {
		h.writeFault(w, interfaces.InvalidArgs("invalid input: %v", err))
		return
	}

	output, session, err := h.svc.OpenSession(callerFrom(r.Context()), req.Algorithm, input)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	outputVariant, err := api.VariantOf(output)
	if err != nil {
		h.writeFault(w, fmt.Errorf("could not encode output: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, api.OpenSessionResponse{Output: outputVariant, Session: session})
}

// HandleSearchItems returns matching items split by lock state.
//
// URL format: POST /api/service/search-items
func (h *Handler) HandleSearchItems(w http.ResponseWriter, r *http.Request) {
	var req api.SearchItemsRequest
	if !h.decode(w, r, &req) {
		return
	}

	unlocked, locked := h.svc.SearchItems(req.Attributes)
	writeJSON(w, http.StatusOK, api.SearchItemsResponse{Unlocked: unlocked, Locked: locked})
}

// HandleGetSecrets returns the secrets of several items over one session.
//
// URL format: POST /api/service/get-secrets
func (h *Handler) HandleGetSecrets(w http.ResponseWriter, r *http.Request) {
	var req api.GetSecretsRequest
	if !h.decode(w, r, &req) {
		return
	}

	secrets, err := h.svc.GetSecrets(callerFrom(r.Context()), req.Items, req.Session)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.GetSecretsResponse{Secrets: secrets})
}

// HandleGetSecret returns one item's secret.
//
// URL format: POST /api/item/get-secret
func (h *Handler) HandleGetSecret(w http.ResponseWriter, r *http.Request) {
	var req api.GetSecretRequest
	if !h.decode(w, r, &req) {
		return
	}

	secret, err := h.svc.GetSecret(callerFrom(r.Context()), req.Item, req.Session)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.GetSecretResponse{Secret: secret})
}

// HandleDeleteItem deletes an item or returns the prompt that will.
//
// URL format: POST /api/item/delete
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	prompt, err := h.svc.DeleteItem(callerFrom(r.Context()), req.Item)
	if err != nil {
		h.writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.DeleteItemResponse{Prompt: prompt})
}

// HandleCloseSession closes one of the caller's sessions.
//
// URL format: POST /api/session/close
func (h *Handler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	var req api.CloseSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.CloseSession(callerFrom(r.Context()), req.Session); err != nil {
		h.writeFault(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlePrompt drives a prompt. The Completed signal is queued for the
// prompt's owner.
//
// URL format: POST /api/prompt/prompt
func (h *Handler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	var req api.PromptRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.PromptPrompt(req.Prompt, req.WindowID); err != nil {
		h.writeFault(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDismiss dismisses a prompt.
//
// URL format: POST /api/prompt/dismiss
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	var req api.DismissRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.DismissPrompt(req.Prompt); err != nil {
		h.writeFault(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisconnect reports that the caller is gone. All of its sessions are
// closed before the response is written.
//
// URL format: POST /api/caller/disconnect
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	h.svc.CallerLost(caller)
	h.signals.Forget(caller)

	h.log.Debug("Caller disconnected", "caller", caller)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSignals returns and clears the caller's queued Completed signals.
//
// URL format: GET /api/signals
func (h *Handler) HandleSignals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.SignalsResponse{Signals: h.signals.Drain(callerFrom(r.Context()))})
}

// HandleCollections lists collections and item metadata.
//
// URL format: GET /api/collections
func (h *Handler) HandleCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CollectionsResponse{Collections: h.svc.Collections()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if err != nil {
		h.writeFault(w, interfaces.InvalidArgs("invalid request body: %v", err))
		return false
	}
	return true
}

// StatusForFault maps a fault kind to its HTTP status code.
func StatusForFault(kind interfaces.FaultKind) int {
	switch kind {
	case interfaces.FaultNotSupported:
		return http.StatusNotImplemented
	case interfaces.FaultInvalidArgs:
		return http.StatusBadRequest
	case interfaces.FaultIsLocked:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFault(w http.ResponseWriter, err error) {
	var fault *interfaces.Fault
	if errors.As(err, &fault) {
		writeJSON(w, StatusForFault(fault.Kind), api.FaultResponse{Name: fault.Kind.Name(), Message: fault.Error()})
		return
	}

	h.log.Error("Request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, api.FaultResponse{Name: failedErrorName, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
