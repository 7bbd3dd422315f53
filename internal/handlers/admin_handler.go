package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/models"
	"classroomhub/internal/service"
	"classroomhub/internal/validation"
)

// AdminHandler manages classrooms, children, guardian links and users.
// Every route is mounted behind Middleware.RequireAdmin; the services
// check the admin flag again.
type AdminHandler struct {
	registryService *service.RegistryService
	guardianService *service.GuardianService
	authService     *service.AuthService
	logger          *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(registryService *service.RegistryService, guardianService *service.GuardianService, authService *service.AuthService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		registryService: registryService,
		guardianService: guardianService,
		authService:     authService,
		logger:          logger,
	}
}

// RegisterRoutes mounts the admin endpoints
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/classrooms", func(r chi.Router) {
		r.Get("/", h.ListClassrooms)
		r.Post("/", h.CreateClassroom)
		r.Get("/{id}", h.GetClassroom)
		r.Put("/{id}", h.RenameClassroom)
		r.Delete("/{id}", h.DeleteClassroom)
		r.Get("/{id}/children", h.ListClassroomChildren)
		r.Post("/{id}/children", h.EnrollChild)
	})

	r.Route("/children", func(r chi.Router) {
		r.Get("/", h.ListChildren)
		r.Get("/{id}", h.GetChild)
		r.Delete("/{id}", h.DeleteChild)
		r.Post("/{id}/transfer", h.TransferChild)
		r.Get("/{id}/guardians", h.ListGuardians)
		r.Post("/{id}/guardians", h.LinkGuardian)
		r.Put("/{id}/guardians/{userID}", h.UpdateGuardian)
		r.Delete("/{id}/guardians/{userID}", h.UnlinkGuardian)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/{id}/children", h.ListUserChildren)
		r.Post("/{id}/admin", h.SetAdmin)
		r.Delete("/{id}", h.DeleteUser)
	})
}

type classroomRequest struct {
	SchoolYearStart int    `json:"school_year_start"`
	Name            string `json:"name"`
}

type enrollChildRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birthdate string `json:"birthdate"`
}

type transferRequest struct {
	ClassroomID int64 `json:"classroom_id"`
}

type guardianRequest struct {
	UserID           int64                   `json:"user_id"`
	RelationshipType models.RelationshipKind `json:"relationship_type"`
	IsPrimaryContact bool                    `json:"is_primary_contact"`
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// CreateClassroom adds a classroom for a school year
func (h *AdminHandler) CreateClassroom(w http.ResponseWriter, r *http.Request) {
	var req classroomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	classroom, err := h.registryService.CreateClassroom(r.Context(), actorFrom(r), service.ClassroomInput{
		SchoolYearStart: req.SchoolYearStart,
		Name:            req.Name,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, classroom)
}

// ListClassrooms returns every classroom, most recent school year first
func (h *AdminHandler) ListClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.registryService.ListClassrooms(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, classrooms)
}

// GetClassroom returns a single classroom
func (h *AdminHandler) GetClassroom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	classroom, err := h.registryService.GetClassroom(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, classroom)
}

// RenameClassroom changes a classroom's display name
func (h *AdminHandler) RenameClassroom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req classroomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	if err := h.registryService.RenameClassroom(r.Context(), actorFrom(r), id, req.Name); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteClassroom removes an empty classroom
func (h *AdminHandler) DeleteClassroom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.registryService.DeleteClassroom(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClassroomChildren returns the children enrolled in a classroom
func (h *AdminHandler) ListClassroomChildren(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	children, err := h.registryService.ListChildrenInClassroom(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// EnrollChild adds a child to the classroom in the URL
func (h *AdminHandler) EnrollChild(w http.ResponseWriter, r *http.Request) {
	classroomID, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req enrollChildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	birthdate, err := models.ParseDate(req.Birthdate)
	if err != nil {
		respondWithServiceError(w, h.logger, validation.ValidationError{Field: "birthdate", Message: "must be a date in YYYY-MM-DD format"})
		return
	}

	child, err := h.registryService.EnrollChild(r.Context(), actorFrom(r), service.ChildInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Birthdate:   birthdate,
		ClassroomID: classroomID,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, child)
}

// ListChildren returns every enrolled child
func (h *AdminHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.registryService.ListChildren(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// GetChild returns a single child
func (h *AdminHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	child, err := h.registryService.GetChild(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// DeleteChild removes a child together with its guardian links
func (h *AdminHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.registryService.DeleteChild(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferChild moves a child to another classroom
func (h *AdminHandler) TransferChild(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	if err := h.registryService.TransferChild(r.Context(), actorFrom(r), id, req.ClassroomID); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGuardians returns the users linked to a child
func (h *AdminHandler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	guardians, err := h.guardianService.ListGuardiansOf(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, guardians)
}

// LinkGuardian links a user to a child
func (h *AdminHandler) LinkGuardian(w http.ResponseWriter, r *http.Request) {
	childID, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req guardianRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	rel, err := h.guardianService.LinkGuardian(r.Context(), actorFrom(r), req.UserID, childID, req.RelationshipType, req.IsPrimaryContact)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, rel)
}

// UpdateGuardian changes the kind or primary flag of an existing link
func (h *AdminHandler) UpdateGuardian(w http.ResponseWriter, r *http.Request) {
	childID, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req guardianRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	if err := h.guardianService.UpdateGuardian(r.Context(), actorFrom(r), userID, childID, req.RelationshipType, req.IsPrimaryContact); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlinkGuardian removes a link; removing a missing link is not an error
func (h *AdminHandler) UnlinkGuardian(w http.ResponseWriter, r *http.Request) {
	childID, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.guardianService.UnlinkGuardian(r.Context(), actorFrom(r), userID, childID); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns every user ordered by name
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListParents(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// ListUserChildren returns the children linked to a user
func (h *AdminHandler) ListUserChildren(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if _, err := h.authService.GetUser(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	children, err := h.guardianService.ListChildrenOf(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// SetAdmin grants or revokes the admin flag
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	var req setAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	if err := h.authService.SetAdmin(r.Context(), actorFrom(r), id, req.IsAdmin); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("admin flag changed", zap.Int64("user_id", id), zap.Bool("is_admin", req.IsAdmin), zap.Int64("by", actorFrom(r).UserID))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser removes a user who has not authored events or messages
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.authService.DeleteUser(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
