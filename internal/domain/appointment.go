package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status tracks an appointment through its lifecycle. Values travel as
// plain strings at the boundary.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus maps a boundary string onto a Status. Unknown values are an
// error, never a default.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// ServiceType is the fixed set of bookable service categories.
type ServiceType string

const (
	ServiceDoctor     ServiceType = "DOCTOR"
	ServiceDentist    ServiceType = "DENTIST"
	ServiceBarber     ServiceType = "BARBER"
	ServiceSalon      ServiceType = "SALON"
	ServiceConsultant ServiceType = "CONSULTANT"
	ServiceTherapist  ServiceType = "THERAPIST"
	ServiceLawyer     ServiceType = "LAWYER"
	ServiceMechanic   ServiceType = "MECHANIC"
	ServiceOther      ServiceType = "OTHER"
)

func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(s) {
	case ServiceDoctor, ServiceDentist, ServiceBarber, ServiceSalon,
		ServiceConsultant, ServiceTherapist, ServiceLawyer, ServiceMechanic,
		ServiceOther:
		return ServiceType(s), nil
	}
	return "", fmt.Errorf("unknown service type %q", s)
}

func (t ServiceType) Valid() bool {
	_, err := ParseServiceType(string(t))
	return err == nil
}

// Appointment links one customer and one provider at a specific time.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID          uuid.UUID   `bun:"id,pk,type:uuid"`
	CustomerID  uuid.UUID   `bun:"customer_id,notnull,type:uuid"`
	ProviderID  uuid.UUID   `bun:"provider_id,notnull,type:uuid"`
	ServiceType ServiceType `bun:"service_type,notnull"`
	ScheduledAt time.Time   `bun:"scheduled_at,notnull"`
	Status      Status      `bun:"status,notnull"`
	Notes       string      `bun:"notes"`
	CreatedAt   time.Time   `bun:"created_at,notnull"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
