package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classroomhub/internal/metrics"
	"classroomhub/internal/models"
	"classroomhub/internal/service"
	"classroomhub/internal/validation"
)

// CalendarHandler serves the shared class calendar
type CalendarHandler struct {
	calendarService *service.CalendarService
	metrics         *metrics.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendarService *service.CalendarService, m *metrics.Metrics, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
		metrics:         m,
		logger:          logger,
		now:             time.Now,
	}
}

// RegisterRoutes mounts the calendar endpoints
func (h *CalendarHandler) RegisterRoutes(r chi.Router) {
	r.Get("/calendar", h.MonthView)
	r.Get("/snack-duty", h.UpcomingSnackDuty)
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Delete("/{id}", h.DeleteEvent)
	})
}

type createEventRequest struct {
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Date              string           `json:"date"`
	EventType         models.EventType `json:"event_type"`
	SnackDutyParentID *int64           `json:"snack_duty_parent_id"`
}

// MonthView returns one month of the calendar. Year and month default to
// the current month and out-of-range months roll over.
func (h *CalendarHandler) MonthView(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	year, err := intQuery(r, "year", today.Year())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	month, err := intQuery(r, "month", int(today.Month()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	view, err := h.calendarService.MonthView(r.Context(), year, month)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// ListEvents returns events with start <= date <= end
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	start, err := dateQuery(r, "start")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	end, err := dateQuery(r, "end")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	events, err := h.calendarService.ListEventsInRange(r.Context(), start, end)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// CreateEvent adds an event authored by the signed-in user
func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest, nil)
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := models.ParseDate(req.Date)
		if err != nil {
			respondWithServiceError(w, h.logger, validation.ValidationError{Field: "date", Message: "must be a date in YYYY-MM-DD format"})
			return
		}
		date = parsed
	}

	event, err := h.calendarService.CreateEvent(r.Context(), actorFrom(r), service.EventInput{
		Title:             req.Title,
		Description:       req.Description,
		Date:              date,
		Type:              req.EventType,
		SnackDutyParentID: req.SnackDutyParentID,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.metrics.EventsCreated.Inc()
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent returns a single event
func (h *CalendarHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	event, err := h.calendarService.GetEvent(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// DeleteEvent removes an event; only its creator or an admin may do so
func (h *CalendarHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if err := h.calendarService.DeleteEvent(r.Context(), actorFrom(r), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpcomingSnackDuty lists snack-duty events from the given date (default today)
func (h *CalendarHandler) UpcomingSnackDuty(w http.ResponseWriter, r *http.Request) {
	from := h.now()
	if r.URL.Query().Get("from") != "" {
		parsed, err := dateQuery(r, "from")
		if err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		from = parsed
	}

	events, err := h.calendarService.ListUpcomingSnackDuty(r.Context(), from)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func dateQuery(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, validation.ValidationError{Field: name, Message: "is required"}
	}
	t, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, validation.ValidationError{Field: name, Message: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, validation.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}
