package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/application"
)

type clientService interface {
	ListClients(ctx context.Context, principal application.Principal, params application.ListClientsParams) ([]application.Client, error)
	GetClient(ctx context.Context, principal application.Principal, clientID string) (application.Client, error)
	ProvisionClient(ctx context.Context, principal application.Principal, input application.ProvisionClientInput) (application.Client, error)
	DeleteClient(ctx context.Context, principal application.Principal, clientID string) error
	AddWeight(ctx context.Context, principal application.Principal, clientID string, input application.AddWeightInput) (application.WeightEntry, error)
	ListWeights(ctx context.Context, principal application.Principal, clientID string) ([]application.WeightEntry, error)
}

// ClientHandler serves the coach's client list and weight logs.
type ClientHandler struct {
	service   clientService
	validator requestValidator
	responder responder
	logger    *slog.Logger
}

func NewClientHandler(service clientService, logger *slog.Logger) *ClientHandler {
	base := defaultLogger(logger)
	return &ClientHandler{service: service, validator: newRequestValidator(), responder: newResponder(base), logger: base}
}

func (h *ClientHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ClientHandler", operation, attrs...)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	clients, err := h.service.ListClients(r.Context(), principal, application.ListClientsParams{
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	})
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "client listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]api.Client, 0, len(clients))
	for _, client := range clients {
		out = append(out, toClientDTO(client))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.ClientsResponse{Clients: out})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create")

	var req api.ProvisionClientRequest
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid client request", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	client, err := h.service.ProvisionClient(r.Context(), principal, application.ProvisionClientInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "client provisioning failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("client_id", client.ID).InfoContext(r.Context(), "client provisioned")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, api.ClientResponse{Client: toClientDTO(client)})
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	clientID := r.PathValue("clientID")
	client, err := h.service.GetClient(r.Context(), principal, clientID)
	if err != nil {
		h.log(r.Context(), "Get", "client_id", clientID).ErrorContext(r.Context(), "client lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.ClientResponse{Client: toClientDTO(client)})
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	clientID := r.PathValue("clientID")
	if err := h.service.DeleteClient(r.Context(), principal, clientID); err != nil {
		h.log(r.Context(), "Delete", "client_id", clientID).ErrorContext(r.Context(), "client deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ClientHandler) ListWeights(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	clientID := r.PathValue("clientID")
	entries, err := h.service.ListWeights(r.Context(), principal, clientID)
	if err != nil {
		h.log(r.Context(), "ListWeights", "client_id", clientID).ErrorContext(r.Context(), "weight listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]api.WeightEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toWeightDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, api.WeightsResponse{Weights: out})
}

func (h *ClientHandler) AddWeight(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	clientID := r.PathValue("clientID")
	logger := h.log(r.Context(), "AddWeight", "client_id", clientID)

	var req api.AddWeightRequest
	if err := h.validator.decode(r, &req); err != nil {
		logger.WarnContext(r.Context(), "invalid weight request", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	input := application.AddWeightInput{WeightKg: req.WeightKg}
	if req.Date != nil {
		input.Date = *req.Date
	}
	entry, err := h.service.AddWeight(r.Context(), principal, clientID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "weight logging failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWeightDTO(entry))
}

func toClientDTO(client application.Client) api.Client {
	return api.Client{
		ID:              client.ID,
		Email:           client.Email,
		FullName:        client.FullName,
		CreatedAt:       client.CreatedAt,
		CurrentWeightKg: client.CurrentWeightKg,
	}
}

func toWeightDTO(entry application.WeightEntry) api.WeightEntry {
	return api.WeightEntry{
		ID:        entry.ID,
		ClientID:  entry.ClientID,
		WeightKg:  entry.WeightKg,
		Date:      entry.Date,
		CreatedAt: entry.CreatedAt,
	}
}
