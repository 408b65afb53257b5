package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"labslot/pkg/client"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/logger"
	"labslot/pkg/middleware"
	"labslot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockResourceService struct {
	createFunc  func(ctx context.Context, resource *model.Resource) error
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error)
	getByIDFunc func(ctx context.Context, id string) (*model.Resource, error)
	deleteFunc  func(ctx context.Context, id string) error
}

func (m *mockResourceService) Create(ctx context.Context, resource *model.Resource) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, resource)
	}
	resource.ID = "65f000000000000000000aaa"
	return nil
}

func (m *mockResourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Resource{ID: id, Name: "scope-1"}, nil
}

func (m *mockResourceService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Resource{}, 0, nil
}

func (m *mockResourceService) Catalog(ctx context.Context) ([]*model.Resource, error) {
	return []*model.Resource{}, nil
}

func (m *mockResourceService) Update(ctx context.Context, id string, updates *model.ResourceUpdate) error {
	return nil
}

func (m *mockResourceService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockResourceService) PaletteEntries() []model.PaletteEntry {
	return []model.PaletteEntry{{Index: 0, Color: "#aa4433"}, {Index: 1, Color: "#44aa33"}}
}

func (m *mockResourceService) FreeColors(ctx context.Context) ([]model.PaletteEntry, error) {
	return []model.PaletteEntry{{Index: 1, Color: "#44aa33"}}, nil
}

func (m *mockResourceService) ColorOf(resource *model.Resource) string {
	return "#aa4433"
}

type stubVerifier struct{}

func (stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if token != "session-token" {
		return "", apperrors.Unauthorized("Invalid session")
	}
	return "alice", nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

// testServer runs the resource routes behind the auth middleware, the way the
// server wires them, so the typed client is exercised over a real listener.
func testServer(t *testing.T, service *mockResourceService) *httptest.Server {
	t.Helper()

	log := testLogger()
	router := httprouter.New()
	NewResourceHandler(service, log).RegisterRoutes(router)

	server := httptest.NewServer(middleware.Authentication(stubVerifier{}, log)(router))
	t.Cleanup(server.Close)
	return server
}

func TestResourceClient_CreateAndFetch(t *testing.T) {
	var created *model.Resource
	service := &mockResourceService{
		createFunc: func(ctx context.Context, resource *model.Resource) error {
			created = resource
			resource.ID = "65f000000000000000000aaa"
			return nil
		},
	}
	server := testServer(t, service)
	resources := client.NewResourceClient(server.URL).WithToken("session-token")

	resp, err := resources.Create(map[string]any{
		"name":       "scope-1",
		"type":       "oscilloscope",
		"generation": "gen2",
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	resource, err := resources.DecodeResource(resp)
	if err != nil {
		t.Fatalf("failed to decode resource: %v", err)
	}
	if resource.ID != "65f000000000000000000aaa" || resource.Name != "scope-1" {
		t.Errorf("unexpected resource %+v", resource)
	}
	if created == nil || created.Type != "oscilloscope" {
		t.Error("service did not receive the decoded body")
	}

	resp, err = resources.GetByID(resource.ID)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	fetched, err := resources.DecodeResource(resp)
	if err != nil {
		t.Fatalf("failed to decode resource: %v", err)
	}
	if fetched.ID != resource.ID {
		t.Errorf("expected resource %s, got %s", resource.ID, fetched.ID)
	}
}

func TestResourceClient_ListForwardsPagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	service := &mockResourceService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Resource{
				{ID: "65f000000000000000000aaa", Name: "scope-1"},
			}, 7, nil
		},
	}
	server := testServer(t, service)
	resources := client.NewResourceClient(server.URL).WithToken("session-token")

	resp, err := resources.GetAll(5, 10)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}

	list, metadata, err := resources.DecodeResources(resp)
	if err != nil {
		t.Fatalf("failed to decode resource list: %v", err)
	}
	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("pagination not forwarded, got limit=%d offset=%d", gotLimit, gotOffset)
	}
	if len(list) != 1 || metadata.TotalCount != 7 {
		t.Errorf("unexpected page: %d rows, total %d", len(list), metadata.TotalCount)
	}
}

func TestResourceClient_DeleteReferencedResource(t *testing.T) {
	service := &mockResourceService{
		deleteFunc: func(ctx context.Context, id string) error {
			return apperrors.Conflict("Resource has active reservations")
		},
	}
	server := testServer(t, service)
	resources := client.NewResourceClient(server.URL).WithToken("session-token")

	resp, err := resources.Delete("65f000000000000000000aaa")
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestResourceClient_FreeColors(t *testing.T) {
	server := testServer(t, &mockResourceService{})
	resources := client.NewResourceClient(server.URL).WithToken("session-token")

	resp, err := resources.GetFreeColors()
	if err != nil {
		t.Fatalf("free colors request failed: %v", err)
	}

	var wrapper struct {
		Data []model.PaletteEntry `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		t.Fatalf("failed to decode palette: %v", err)
	}
	if len(wrapper.Data) != 1 || wrapper.Data[0].Index != 1 {
		t.Errorf("expected the single free entry, got %+v", wrapper.Data)
	}
}

func TestResourceClient_RejectedWithoutToken(t *testing.T) {
	server := testServer(t, &mockResourceService{})
	resources := client.NewResourceClient(server.URL)

	resp, err := resources.GetPalette()
	if err != nil {
		t.Fatalf("palette request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
}
