package httpapi

import (
	"context"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
)

type appointmentResponse struct {
	ID            uuid.UUID     `json:"id"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	ProviderID    uuid.UUID     `json:"provider_id"`
	ProviderName  string        `json:"provider_name,omitempty"`
	ProviderEmail string        `json:"provider_email,omitempty"`
	ServiceType   string        `json:"service_type"`
	ScheduledAt   time.Time     `json:"scheduled_at"`
	Status        domain.Status `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// toResponse enriches a record with participant display fields. A lookup
// miss leaves the names blank rather than failing the whole response.
func (h *Handler) toResponse(ctx context.Context, appt domain.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:          appt.ID,
		CustomerID:  appt.CustomerID,
		ProviderID:  appt.ProviderID,
		ServiceType: string(appt.ServiceType),
		ScheduledAt: appt.ScheduledAt,
		Status:      appt.Status,
		Notes:       appt.Notes,
		CreatedAt:   appt.CreatedAt,
		UpdatedAt:   appt.UpdatedAt,
	}
	if customer, err := h.participants.Get(ctx, appt.CustomerID); err == nil {
		resp.CustomerName = customer.Name
		resp.CustomerEmail = customer.Email
	}
	if provider, err := h.participants.Get(ctx, appt.ProviderID); err == nil {
		resp.ProviderName = provider.Name
		resp.ProviderEmail = provider.Email
	}
	return resp
}
