package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/service"
)

// DashboardHandler serves the signed-in landing data and the class directory
type DashboardHandler struct {
	dashboardService *service.DashboardService
	authService      *service.AuthService
	guardianService  *service.GuardianService
	registryService  *service.RegistryService
	logger           *zap.Logger
	now              func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	dashboardService *service.DashboardService,
	authService *service.AuthService,
	guardianService *service.GuardianService,
	registryService *service.RegistryService,
	logger *zap.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		authService:      authService,
		guardianService:  guardianService,
		registryService:  registryService,
		logger:           logger,
		now:              time.Now,
	}
}

// RegisterRoutes mounts the dashboard and directory endpoints
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/parents", h.ListParents)
	r.Get("/classrooms", h.ListClassrooms)
	r.Get("/children/mine", h.MyChildren)
}

// Dashboard returns upcoming events, recent messages and the parent count
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboardService.Dashboard(r.Context(), h.now())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// ListParents returns every registered user ordered by name
func (h *DashboardHandler) ListParents(w http.ResponseWriter, r *http.Request) {
	parents, err := h.authService.ListParents(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, parents)
}

// ListClassrooms returns every classroom, most recent school year first
func (h *DashboardHandler) ListClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.registryService.ListClassrooms(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, classrooms)
}

// MyChildren returns the children linked to the signed-in user
func (h *DashboardHandler) MyChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.guardianService.ListChildrenOf(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}
