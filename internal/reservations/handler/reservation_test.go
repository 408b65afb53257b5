package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"labslot/pkg/client"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/logger"
	"labslot/pkg/middleware"
	"labslot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	createFunc        func(ctx context.Context, reservation *model.Reservation) error
	checkConflictFunc func(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error)
	searchFunc        func(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error)
}

func (m *mockReservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, reservation)
	}
	return nil
}

func (m *mockReservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return nil, nil
}

func (m *mockReservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return []*model.Reservation{}, 0, nil
}

func (m *mockReservationService) Update(ctx context.Context, id string, updates *model.ReservationUpdate) error {
	return nil
}

func (m *mockReservationService) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockReservationService) SearchByResource(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, resourceID, start, end, limit, offset)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationService) Window(ctx context.Context, from, to *int64) ([]*model.Reservation, error) {
	return []*model.Reservation{}, nil
}

func (m *mockReservationService) CheckConflict(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error) {
	if m.checkConflictFunc != nil {
		return m.checkConflictFunc(ctx, resourceID, start, end, excludeID)
	}
	return nil, nil
}

func testHandler(service *mockReservationService) *ReservationHandler {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return NewReservationHandler(service, log)
}

func TestCheckConflict_RequiresBounds(t *testing.T) {
	handler := testHandler(&mockReservationService{})

	tests := []struct {
		name        string
		queryString string
	}{
		{name: "missing start", queryString: "?resource_id=r1&end=7200000"},
		{name: "missing end", queryString: "?resource_id=r1&start=3600000"},
		{name: "missing both", queryString: "?resource_id=r1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/conflict"+tt.queryString, nil)
			w := httptest.NewRecorder()

			handler.CheckConflict(w, req, httprouter.Params{})

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestCheckConflict_ReportsConflictingReservation(t *testing.T) {
	conflicting := &model.Reservation{
		ID:         "b1",
		ResourceID: "r1",
		Start:      3600000,
		End:        7200000,
	}
	service := &mockReservationService{
		checkConflictFunc: func(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error) {
			return conflicting, nil
		},
	}
	handler := testHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/conflict?resource_id=r1&start=3600000&end=7200000", nil)
	w := httptest.NewRecorder()

	handler.CheckConflict(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var wrapper struct {
		Data struct {
			Conflict    bool               `json:"conflict"`
			Reservation *model.Reservation `json:"reservation"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &wrapper); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if !wrapper.Data.Conflict {
		t.Error("expected conflict to be reported")
	}
	if wrapper.Data.Reservation == nil || wrapper.Data.Reservation.ID != "b1" {
		t.Error("expected the conflicting reservation in the response")
	}
}

func TestCheckConflict_FreeSlot(t *testing.T) {
	handler := testHandler(&mockReservationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/conflict?resource_id=r1&start=0&end=3600000", nil)
	w := httptest.NewRecorder()

	handler.CheckConflict(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var wrapper struct {
		Data struct {
			Conflict bool `json:"conflict"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &wrapper); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if wrapper.Data.Conflict {
		t.Error("expected no conflict for a free slot")
	}
}

func TestCreate_StampsAuthenticatedUser(t *testing.T) {
	var received *model.Reservation
	service := &mockReservationService{
		createFunc: func(ctx context.Context, reservation *model.Reservation) error {
			received = reservation
			return nil
		},
	}
	handler := testHandler(service)

	body := `{"resource_id":"r1","start":0,"end":3600000,"purpose_of_use":"calibration","user_id":"spoofed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "alice")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if received == nil {
		t.Fatal("expected the service to receive the reservation")
	}
	if received.UserID != "alice" {
		t.Errorf("user id must come from the session, got %q", received.UserID)
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	handler := testHandler(&mockReservationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

type stubVerifier struct{}

func (stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if token != "session-token" {
		return "", apperrors.Unauthorized("Invalid session")
	}
	return "alice", nil
}

// clientServer runs the reservation routes behind the auth middleware over a
// real listener, so the typed client goes through the full request path.
func clientServer(t *testing.T, service *mockReservationService) *client.ReservationClient {
	t.Helper()

	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	router := httprouter.New()
	testHandler(service).RegisterRoutes(router)

	server := httptest.NewServer(middleware.Authentication(stubVerifier{}, log)(router))
	t.Cleanup(server.Close)
	return client.NewReservationClient(server.URL).WithToken("session-token")
}

func TestReservationClient_CreateCarriesSessionUser(t *testing.T) {
	var received *model.Reservation
	service := &mockReservationService{
		createFunc: func(ctx context.Context, reservation *model.Reservation) error {
			received = reservation
			reservation.ID = "65f000000000000000000ccc"
			return nil
		},
	}
	reservations := clientServer(t, service)

	resp, err := reservations.Create(map[string]any{
		"resource_id":    "65f000000000000000000aaa",
		"start":          3600000,
		"end":            7200000,
		"purpose_of_use": "calibration",
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	created, err := reservations.DecodeReservation(resp)
	if err != nil {
		t.Fatalf("failed to decode reservation: %v", err)
	}
	if created.ID != "65f000000000000000000ccc" {
		t.Errorf("expected assigned id, got %q", created.ID)
	}
	if received == nil || received.UserID != "alice" {
		t.Error("user id must come from the session token")
	}
}

func TestReservationClient_SearchForwardsBounds(t *testing.T) {
	var gotStart, gotEnd *int64
	service := &mockReservationService{
		searchFunc: func(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error) {
			gotStart, gotEnd = start, end
			return []*model.Reservation{
				{ID: "b1", ResourceID: resourceID, Start: 3600000, End: 7200000},
			}, nil
		},
	}
	reservations := clientServer(t, service)

	start := int64(3600000)
	resp, err := reservations.Search("65f000000000000000000aaa", &start, nil, 10, 0)
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var wrapper struct {
		Data []*model.Reservation `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		t.Fatalf("failed to decode search results: %v", err)
	}
	if len(wrapper.Data) != 1 || wrapper.Data[0].ID != "b1" {
		t.Errorf("unexpected results %+v", wrapper.Data)
	}
	if gotStart == nil || *gotStart != start {
		t.Error("start bound not forwarded")
	}
	if gotEnd != nil {
		t.Error("omitted end bound must reach the service as nil")
	}
}

func TestReservationClient_ConflictRoundTrip(t *testing.T) {
	service := &mockReservationService{
		checkConflictFunc: func(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error) {
			if excludeID == "b1" {
				return nil, nil
			}
			return &model.Reservation{ID: "b1", ResourceID: resourceID, Start: start, End: end}, nil
		},
	}
	reservations := clientServer(t, service)

	resp, err := reservations.CheckConflict("65f000000000000000000aaa", 3600000, 7200000, "")
	if err != nil {
		t.Fatalf("conflict request failed: %v", err)
	}

	var wrapper struct {
		Data struct {
			Conflict    bool               `json:"conflict"`
			Reservation *model.Reservation `json:"reservation"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		t.Fatalf("failed to decode conflict response: %v", err)
	}
	if !wrapper.Data.Conflict || wrapper.Data.Reservation == nil {
		t.Error("expected the conflicting reservation to be reported")
	}

	resp, err = reservations.CheckConflict("65f000000000000000000aaa", 3600000, 7200000, "b1")
	if err != nil {
		t.Fatalf("conflict request failed: %v", err)
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		t.Fatalf("failed to decode conflict response: %v", err)
	}
	if wrapper.Data.Conflict {
		t.Error("excluding the hit must report a free slot")
	}
}
