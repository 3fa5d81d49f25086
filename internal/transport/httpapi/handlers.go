package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
	"apptflow/internal/service/booking"
	"apptflow/internal/store"
)

// bookingService is the slice of the booking engine the front door uses.
type bookingService interface {
	Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in booking.UpdateInput) (domain.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAll(ctx context.Context) ([]domain.Appointment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error)
	ListUpcomingByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	ListUpcomingByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error)
	ListPastByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	ListPastByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error)
	ListTodayByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error)
	Search(ctx context.Context, keyword string) ([]domain.Appointment, error)
	Statistics(ctx context.Context) (booking.Statistics, error)
	StatsByProvider(ctx context.Context, providerID uuid.UUID) (booking.Statistics, error)
}

// cleanupService triggers an on-demand sweep from the boundary.
type cleanupService interface {
	Sweep(ctx context.Context) (int, error)
}

// participantDirectory resolves display info for response projections.
type participantDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Participant, error)
}

type Handler struct {
	svc          bookingService
	cleanup      cleanupService
	participants participantDirectory
	log          *slog.Logger
}

func NewHandler(svc bookingService, cleanup cleanupService, participants participantDirectory, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc:          svc,
		cleanup:      cleanup,
		participants: participants,
		log:          log.With(slog.String("component", "httpapi")),
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/appointments", h.createAppointment)
	mux.HandleFunc("GET /api/v1/appointments", h.listAll)
	mux.HandleFunc("GET /api/v1/appointments/statistics", h.statistics)
	mux.HandleFunc("GET /api/v1/appointments/search", h.search)
	mux.HandleFunc("GET /api/v1/appointments/date-range", h.listByDateRange)
	mux.HandleFunc("GET /api/v1/appointments/status/{status}", h.listByStatus)
	mux.HandleFunc("GET /api/v1/appointments/customer/{id}", h.listByCustomer)
	mux.HandleFunc("GET /api/v1/appointments/customer/{id}/upcoming", h.listUpcomingByCustomer)
	mux.HandleFunc("GET /api/v1/appointments/customer/{id}/past", h.listPastByCustomer)
	mux.HandleFunc("GET /api/v1/appointments/provider/{id}", h.listByProvider)
	mux.HandleFunc("GET /api/v1/appointments/provider/{id}/upcoming", h.listUpcomingByProvider)
	mux.HandleFunc("GET /api/v1/appointments/provider/{id}/past", h.listPastByProvider)
	mux.HandleFunc("GET /api/v1/appointments/provider/{id}/today", h.listTodayByProvider)
	mux.HandleFunc("GET /api/v1/appointments/provider/{id}/stats", h.statsByProvider)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.getAppointment)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", h.updateAppointment)
	mux.HandleFunc("PATCH /api/v1/appointments/{id}/status", h.setStatus)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.deleteAppointment)

	mux.HandleFunc("POST /api/v1/cleanup/run", h.runCleanup)

	return mux
}

type createRequest struct {
	CustomerID  string `json:"customer_id"`
	ProviderID  string `json:"provider_id"`
	ServiceType string `json:"service_type"`
	ScheduledAt string `json:"scheduled_at"`
	Notes       string `json:"notes"`
}

type updateRequest struct {
	ServiceType *string `json:"service_type"`
	ScheduledAt *string `json:"scheduled_at"`
	Notes       *string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "customer_id must be a UUID")
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "provider_id must be a UUID")
		return
	}
	serviceType, err := domain.ParseServiceType(req.ServiceType)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "scheduled_at must be RFC 3339")
		return
	}

	appt, err := h.svc.Create(r.Context(), booking.CreateInput{
		CustomerID:  customerID,
		ProviderID:  providerID,
		ServiceType: serviceType,
		ScheduledAt: scheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	h.log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", appt.ProviderID.String()),
		slog.Time("scheduled_at", appt.ScheduledAt),
	)
	h.writeJSON(r.Context(), w, http.StatusCreated, h.toResponse(r.Context(), appt))
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	var in booking.UpdateInput
	if req.ServiceType != nil {
		serviceType, err := domain.ParseServiceType(*req.ServiceType)
		if err != nil {
			h.writeError(r.Context(), w, http.StatusBadRequest, err.Error())
			return
		}
		in.ServiceType = &serviceType
	}
	if req.ScheduledAt != nil {
		scheduledAt, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			h.writeError(r.Context(), w, http.StatusBadRequest, "scheduled_at must be RFC 3339")
			return
		}
		in.ScheduledAt = &scheduledAt
	}
	in.Notes = req.Notes

	appt, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, h.toResponse(r.Context(), appt))
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.svc.SetStatus(r.Context(), id, status)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	h.log.Info(
		"appointment status updated",
		slog.String("appointment_id", id.String()),
		slog.String("status", string(status)),
	)
	h.writeJSON(r.Context(), w, http.StatusOK, h.toResponse(r.Context(), appt))
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, h.toResponse(r.Context(), appt))
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListAll(ctx)
	})
}

func (h *Handler) listByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListByCustomer(ctx, id)
	})
}

func (h *Handler) listUpcomingByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListUpcomingByCustomer(ctx, id)
	})
}

func (h *Handler) listPastByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListPastByCustomer(ctx, id)
	})
}

func (h *Handler) listByProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListByProvider(ctx, id)
	})
}

func (h *Handler) listUpcomingByProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListUpcomingByProvider(ctx, id)
	})
}

func (h *Handler) listPastByProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListPastByProvider(ctx, id)
	})
}

func (h *Handler) listTodayByProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListTodayByProvider(ctx, id)
	})
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(r.PathValue("status"))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListByStatus(ctx, status)
	})
}

func (h *Handler) listByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.ListByDateRange(ctx, start, end)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	h.writeList(w, r, func(ctx context.Context) ([]domain.Appointment, error) {
		return h.svc.Search(ctx, keyword)
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, stats)
}

func (h *Handler) statsByProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.StatsByProvider(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, stats)
}

// runCleanup is the on-demand sweep trigger for trust boundary events
// such as logins; callers get a pruned view without waiting for the
// next timer tick.
func (h *Handler) runCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cleanup.Sweep(r.Context())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context) ([]domain.Appointment, error)) {
	rows, err := list(r.Context())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]appointmentResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, h.toResponse(r.Context(), a))
	}
	h.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusBadRequest, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		h.writeError(ctx, w, http.StatusConflict, "the provider already has an appointment at this time")
	default:
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			h.writeError(ctx, w, http.StatusBadRequest, vErr.Error())
			return
		}
		// Internal detail stays in the log; the caller sees a generic
		// message.
		h.log.Error("request failed", slog.Any("err", err))
		h.writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.writeJSON(ctx, w, status, errorResponse{Message: message})
		return
	}
	h.log.Warn("request rejected", slog.Int("status", status), slog.String("reason", message))
	h.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("response encode failed", slog.Any("err", err))
	}
}
