package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/metrics"
	"classroomhub/internal/service"
)

// MessageHandler serves broadcast messages
type MessageHandler struct {
	messageService *service.MessageService
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *service.MessageService, m *metrics.Metrics, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		metrics:        m,
		logger:         logger,
	}
}

// RegisterRoutes mounts the message endpoints
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Get("/", h.ListMessages)
		r.Post("/", h.SendMessage)
		r.Get("/{id}", h.GetMessage)
		r.Delete("/{id}", h.DeleteMessage)
	})
}

type sendMessageRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ListMessages returns every message, newest first
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ListMessages(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// SendMessage broadcasts a message from the signed-in user
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	message, err := h.messageService.SendMessage(r.Context(), actorFrom(r), service.MessageInput{
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.metrics.MessagesSent.Inc()
	respondJSON(w, http.StatusCreated, message)
}

// GetMessage returns a single message
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	message, err := h.messageService.GetMessage(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, message)
}

// DeleteMessage removes a message; only its sender or an admin may do so
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.messageService.DeleteMessage(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
