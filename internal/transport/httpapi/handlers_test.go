package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
	"apptflow/internal/service/booking"
	"apptflow/internal/store"
)

var refTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeBooking satisfies bookingService; only the funcs a test sets are
// callable.
type fakeBooking struct {
	bookingService

	createFn    func(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	getFn       func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	setStatusFn func(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
	listAllFn   func(ctx context.Context) ([]domain.Appointment, error)
	statsFn     func(ctx context.Context) (booking.Statistics, error)
}

func (f *fakeBooking) Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error) {
	return f.createFn(ctx, in)
}

func (f *fakeBooking) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return f.getFn(ctx, id)
}

func (f *fakeBooking) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error) {
	return f.setStatusFn(ctx, id, status)
}

func (f *fakeBooking) Delete(ctx context.Context, id uuid.UUID) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeBooking) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return f.listAllFn(ctx)
}

func (f *fakeBooking) Statistics(ctx context.Context) (booking.Statistics, error) {
	return f.statsFn(ctx)
}

type fakeCleanup struct {
	sweepFn func(ctx context.Context) (int, error)
}

func (f *fakeCleanup) Sweep(ctx context.Context) (int, error) {
	return f.sweepFn(ctx)
}

type fakeDirectory map[uuid.UUID]domain.Participant

func (d fakeDirectory) Get(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	p, ok := d[id]
	if !ok {
		return domain.Participant{}, store.ErrNotFound
	}
	return p, nil
}

func newTestHandler(svc bookingService, cleanup cleanupService, dir participantDirectory) *Handler {
	if dir == nil {
		dir = fakeDirectory{}
	}
	return NewHandler(svc, cleanup, dir, nil)
}

func sampleAppointment(customerID, providerID uuid.UUID) domain.Appointment {
	return domain.Appointment{
		ID:          uuid.Must(uuid.NewV7()),
		CustomerID:  customerID,
		ProviderID:  providerID,
		ServiceType: domain.ServiceDoctor,
		ScheduledAt: refTime.Add(24 * time.Hour),
		Status:      domain.StatusPending,
		Notes:       "checkup",
		CreatedAt:   refTime,
		UpdatedAt:   refTime,
	}
}

func TestCreateAppointment(t *testing.T) {
	customerID := uuid.Must(uuid.NewV7())
	providerID := uuid.Must(uuid.NewV7())
	want := sampleAppointment(customerID, providerID)

	svc := &fakeBooking{
		createFn: func(ctx context.Context, in booking.CreateInput) (domain.Appointment, error) {
			if in.CustomerID != customerID || in.ProviderID != providerID {
				t.Fatalf("unexpected input: %+v", in)
			}
			return want, nil
		},
	}
	dir := fakeDirectory{
		customerID: {ID: customerID, Name: "John Doe", Email: "john@example.com"},
		providerID: {ID: providerID, Name: "Dr. Smith", Email: "smith@example.com", ServiceProvider: true},
	}
	h := newTestHandler(svc, nil, dir)

	body := `{
		"customer_id": "` + customerID.String() + `",
		"provider_id": "` + providerID.String() + `",
		"service_type": "DOCTOR",
		"scheduled_at": "2026-03-02T12:00:00Z",
		"notes": "checkup"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var got appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("id = %s, want %s", got.ID, want.ID)
	}
	if got.CustomerName != "John Doe" || got.ProviderName != "Dr. Smith" {
		t.Errorf("names = (%q, %q), want (John Doe, Dr. Smith)", got.CustomerName, got.ProviderName)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %q, want %q", got.Status, domain.StatusPending)
	}
}

func TestCreateAppointment_BadInputs(t *testing.T) {
	h := newTestHandler(&fakeBooking{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"customer_id": `},
		{"bad customer id", `{"customer_id": "nope", "provider_id": "` + uuid.Nil.String() + `"}`},
		{"bad service type", `{"customer_id": "` + uuid.Nil.String() + `", "provider_id": "` + uuid.Nil.String() + `", "service_type": "WIZARD"}`},
		{"bad timestamp", `{"customer_id": "` + uuid.Nil.String() + `", "provider_id": "` + uuid.Nil.String() + `", "service_type": "DOCTOR", "scheduled_at": "tomorrow"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	customerID := uuid.Must(uuid.NewV7())
	providerID := uuid.Must(uuid.NewV7())
	body := `{
		"customer_id": "` + customerID.String() + `",
		"provider_id": "` + providerID.String() + `",
		"service_type": "DOCTOR",
		"scheduled_at": "2026-03-02T12:00:00Z"
	}`

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"validation", &booking.ValidationError{}, http.StatusBadRequest},
		{"internal", errors.New("pg: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeBooking{
				createFn: func(ctx context.Context, in booking.CreateInput) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			h := newTestHandler(svc, nil, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusInternalServerError &&
				strings.Contains(rec.Body.String(), "connection reset") {
				t.Fatalf("internal detail leaked to client: %s", rec.Body.String())
			}
		})
	}
}

func TestGetAppointment(t *testing.T) {
	appt := sampleAppointment(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()))
	svc := &fakeBooking{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
			if id != appt.ID {
				return domain.Appointment{}, store.ErrNotFound
			}
			return appt, nil
		},
	}
	h := newTestHandler(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+appt.ID.String(), nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+uuid.Must(uuid.NewV7()).String(), nil)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appointments/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetStatus_UnknownStatusRejected(t *testing.T) {
	h := newTestHandler(&fakeBooking{}, nil, nil)

	id := uuid.Must(uuid.NewV7())
	req := httptest.NewRequest(
		http.MethodPatch,
		"/api/v1/appointments/"+id.String()+"/status",
		strings.NewReader(`{"status": "SNOOZED"}`),
	)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteAppointment(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	svc := &fakeBooking{
		deleteFn: func(ctx context.Context, got uuid.UUID) error {
			if got != id {
				t.Fatalf("id = %s, want %s", got, id)
			}
			return nil
		},
	}
	h := newTestHandler(svc, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/"+id.String(), nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

// The statistics route must win over the {id} wildcard.
func TestStatisticsRoute(t *testing.T) {
	svc := &fakeBooking{
		statsFn: func(ctx context.Context) (booking.Statistics, error) {
			return booking.Statistics{Total: 4, Pending: 1, Confirmed: 2, Completed: 1}, nil
		},
	}
	h := newTestHandler(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/statistics", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got booking.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 4 || got.Confirmed != 2 {
		t.Fatalf("stats = %+v", got)
	}
}

func TestListByStatus_InvalidStatus(t *testing.T) {
	h := newTestHandler(&fakeBooking{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/status/SNOOZED", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRunCleanup(t *testing.T) {
	cleanup := &fakeCleanup{
		sweepFn: func(ctx context.Context) (int, error) { return 3, nil },
	}
	h := newTestHandler(&fakeBooking{}, cleanup, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cleanup/run", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["removed"] != 3 {
		t.Fatalf("removed = %d, want 3", got["removed"])
	}
}
