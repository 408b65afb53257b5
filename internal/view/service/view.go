package service

import (
	"context"
	"fmt"

	"labslot/internal/facets"
	reservationsvc "labslot/internal/reservations/service"
	resourcesvc "labslot/internal/resources/service"
	"labslot/pkg/config"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/model"
)

// ViewService composes the calendar payload the browser renders: reservations
// in a window, narrowed to the resources the user's facet filters admit, with
// resource names and live palette colors stamped on.
type ViewService interface {
	Calendar(ctx context.Context, userID string, from, to *int64) ([]model.CalendarEntry, error)
	Facets(ctx context.Context, userID string) (model.FacetState, error)
	ToggleFacet(ctx context.Context, userID, dimension, value string) (model.FacetState, error)
	ReconcileAll(ctx context.Context) error
}

type viewService struct {
	store        *FacetStore
	resources    resourcesvc.ResourceService
	reservations reservationsvc.ReservationService
	cfg          *config.Config
}

func NewViewService(
	store *FacetStore,
	resources resourcesvc.ResourceService,
	reservations reservationsvc.ReservationService,
	cfg *config.Config,
) ViewService {
	return &viewService{
		store:        store,
		resources:    resources,
		reservations: reservations,
		cfg:          cfg,
	}
}

func (s *viewService) Calendar(ctx context.Context, userID string, from, to *int64) ([]model.CalendarEntry, error) {
	catalog, err := s.resources.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	state := facets.Reconcile(s.store.Get(userID), catalog)
	s.store.Put(userID, state)

	visible := facets.VisibleIDs(state, catalog)
	byID := make(map[string]*model.Resource, len(catalog))
	for _, res := range catalog {
		byID[res.ID] = res
	}

	reservations, err := s.reservations.Window(ctx, from, to)
	if err != nil {
		return nil, err
	}

	entries := make([]model.CalendarEntry, 0, len(reservations))
	for _, reservation := range reservations {
		if _, ok := visible[reservation.ResourceID]; !ok {
			continue
		}
		resource, ok := byID[reservation.ResourceID]
		if !ok {
			// Reservation referencing a deleted resource; the delete guard
			// makes this unreachable, but a stale row must not kill the view.
			s.cfg.Log.Warn("Reservation references unknown resource",
				"reservation_id", reservation.ID,
				"resource_id", reservation.ResourceID,
			)
			continue
		}

		entries = append(entries, model.CalendarEntry{
			ID:       reservation.ID,
			Title:    resource.Name,
			Subtitle: reservation.PurposeOfUse,
			Start:    reservation.Start,
			End:      reservation.End,
			Color:    s.resources.ColorOf(resource),
		})
	}

	return entries, nil
}

func (s *viewService) Facets(ctx context.Context, userID string) (model.FacetState, error) {
	catalog, err := s.resources.Catalog(ctx)
	if err != nil {
		return model.FacetState{}, err
	}

	state := facets.Reconcile(s.store.Get(userID), catalog)
	s.store.Put(userID, state)
	return state, nil
}

func (s *viewService) ToggleFacet(ctx context.Context, userID, dimension, value string) (model.FacetState, error) {
	if dimension != model.FacetTypes && dimension != model.FacetGenerations {
		return model.FacetState{}, apperrors.FieldValidation("dimension",
			"dimension must be 'types' or 'generations'")
	}
	if value == "" {
		return model.FacetState{}, apperrors.FieldValidation("value", "value cannot be empty")
	}

	catalog, err := s.resources.Catalog(ctx)
	if err != nil {
		return model.FacetState{}, err
	}

	state := facets.Reconcile(s.store.Get(userID), catalog)

	known := false
	switch dimension {
	case model.FacetTypes:
		_, known = state.Types[value]
	case model.FacetGenerations:
		_, known = state.Generations[value]
	}
	if !known {
		// Stale client toggling a value the catalog no longer carries.
		return model.FacetState{}, apperrors.FieldValidation("value",
			fmt.Sprintf("%q is not a known %s value", value, dimension))
	}

	state = facets.Toggle(state, dimension, value)
	s.store.Put(userID, state)

	s.cfg.Log.Debug("Facet toggled",
		"user_id", userID,
		"dimension", dimension,
		"value", value,
	)
	return state, nil
}

// ReconcileAll refreshes every stored facet state against the current
// catalog. Invoked when a catalog change event arrives.
func (s *viewService) ReconcileAll(ctx context.Context) error {
	catalog, err := s.resources.Catalog(ctx)
	if err != nil {
		return err
	}

	s.store.UpdateAll(func(state model.FacetState) model.FacetState {
		return facets.Reconcile(state, catalog)
	})
	return nil
}
