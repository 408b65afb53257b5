package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"labslot/internal/events"
	resourceserrors "labslot/internal/resources/errors"
	"labslot/internal/resources/repository"
	"labslot/internal/resources/validator"
	"labslot/pkg/config"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/model"
	"labslot/pkg/palette"
	"labslot/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// ReservationCounter reports how many reservations reference a resource.
// Implemented by the reservations repository; kept as an interface here so
// the catalog does not depend on the reservations package.
type ReservationCounter interface {
	CountByResource(ctx context.Context, resourceID string) (int64, error)
}

type ResourceService interface {
	Create(ctx context.Context, resource *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error)
	Catalog(ctx context.Context) ([]*model.Resource, error)
	Update(ctx context.Context, id string, updates *model.ResourceUpdate) error
	Delete(ctx context.Context, id string) error
	PaletteEntries() []model.PaletteEntry
	FreeColors(ctx context.Context) ([]model.PaletteEntry, error)
	ColorOf(resource *model.Resource) string
}

type resourceService struct {
	repo      repository.ResourceRepository
	validator *validator.ResourceValidator
	palette   palette.Palette
	counter   ReservationCounter
	publisher events.Publisher
	cfg       *config.Config
}

func NewResourceService(
	repo repository.ResourceRepository,
	validator *validator.ResourceValidator,
	pal palette.Palette,
	counter ReservationCounter,
	publisher events.Publisher,
	cfg *config.Config,
) ResourceService {
	return &resourceService{
		repo:      repo,
		validator: validator,
		palette:   pal,
		counter:   counter,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *resourceService) Create(ctx context.Context, resource *model.Resource) error {
	s.sanitize(resource)

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.assignColor(sessCtx, resource); err != nil {
			return err
		}

		if err := s.validate(resource); err != nil {
			return err
		}

		if err := s.repo.Create(sessCtx, resource); err != nil {
			return apperrors.Internal("Failed to create resource", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create resource", "name", resource.Name, "error", err)
		return err
	}

	s.cfg.Log.Info("Resource created successfully",
		"id", resource.ID,
		"name", resource.Name,
		"type", resource.Type,
		"generation", resource.Generation,
		"display_color", resource.DisplayColor,
	)
	s.publishChange(ctx, events.EventResourceCreated, resource)
	return nil
}

func (s *resourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid resource ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}

	return resource, nil
}

func (s *resourceService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error) {
	var count int64
	var resources []*model.Resource
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count resources", "error", errCount)
			errCount = apperrors.Internal("Failed to count resources", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		resources, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list resources", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve resources", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return resources, count, nil
}

func (s *resourceService) Catalog(ctx context.Context) ([]*model.Resource, error) {
	resources, err := s.repo.FindEntireCatalog(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load catalog", "error", err)
		return nil, apperrors.Internal("Failed to load catalog", err)
	}
	return resources, nil
}

func (s *resourceService) Update(ctx context.Context, id string, updates *model.ResourceUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Resource ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid resource ID format")
		}
		return apperrors.Internal("Failed to check resource existence", err)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Resource update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeResourceUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if updates.DisplayColor != nil {
			if err := s.verifyColorFree(sessCtx, merged.DisplayColor, id); err != nil {
				return err
			}
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update resource", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update resource", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Resource updated successfully", "id", id)
	merged.ID = id
	s.publishChange(ctx, events.EventResourceUpdated, merged)
	return nil
}

// Delete refuses to remove a resource that still has reservations. The
// referential guard runs inside the transaction so a reservation created
// concurrently cannot slip past it.
func (s *resourceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Resource ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		refs, err := s.counter.CountByResource(sessCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to count reservations for resource", err)
		}
		if refs > 0 {
			return apperrors.Conflict(
				fmt.Sprintf("Resource has %d reservation(s) and cannot be deleted", refs),
			).WithDetails(map[string]any{
				"resource_id":       id,
				"reservation_count": refs,
			})
		}

		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, resourceserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Resource", id)
			}
			return apperrors.Internal("Failed to delete resource", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Resource deleted successfully", "id", id, "name", existing.Name)
	s.publishChange(ctx, events.EventResourceDeleted, existing)
	return nil
}

func (s *resourceService) PaletteEntries() []model.PaletteEntry {
	return s.palette.Entries()
}

func (s *resourceService) FreeColors(ctx context.Context) ([]model.PaletteEntry, error) {
	used, err := s.repo.UsedColors(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list used colors", "error", err)
		return nil, apperrors.Internal("Failed to list free colors", err)
	}
	return s.palette.Free(used), nil
}

// ColorOf renders the hex color for a resource's palette index. Out-of-range
// indices fall back to the first palette entry rather than failing a read.
func (s *resourceService) ColorOf(resource *model.Resource) string {
	if color, ok := s.palette.Color(resource.DisplayColor); ok {
		return color
	}
	color, _ := s.palette.Color(0)
	return color
}

// --- Helpers ---

func (s *resourceService) sanitize(r *model.Resource) {
	r.Name = sanitizer.NormalizeName(r.Name)
	r.Type = sanitizer.NormalizeFacetValue(r.Type)
	r.Generation = sanitizer.NormalizeFacetValue(r.Generation)
	r.Note = sanitizer.NormalizeNote(r.Note)
}

func (s *resourceService) validate(resource *model.Resource) error {
	if err := s.validator.Validate(resource); err != nil {
		s.cfg.Log.Warn("Resource validation failed", "error", err)
		return apperrors.Validation("Resource validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *resourceService) mergeResourceUpdates(existing *model.Resource, updates *model.ResourceUpdate) *model.Resource {
	merged := *existing

	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Type != nil {
		merged.Type = *updates.Type
	}
	if updates.Generation != nil {
		merged.Generation = *updates.Generation
	}
	if updates.Note != nil {
		merged.Note = *updates.Note
	}
	if updates.DisplayColor != nil {
		merged.DisplayColor = *updates.DisplayColor
	}

	return &merged
}

// assignColor resolves the resource's palette index. A negative index asks
// for automatic assignment of the first free color; an explicit index must be
// in range and unclaimed.
func (s *resourceService) assignColor(ctx context.Context, resource *model.Resource) error {
	if resource.DisplayColor < 0 {
		used, err := s.repo.UsedColors(ctx)
		if err != nil {
			return apperrors.Internal("Failed to list used colors", err)
		}
		free := s.palette.Free(used)
		if len(free) == 0 {
			return apperrors.Validation(
				"All display colors are in use",
				map[string]any{"palette_size": s.palette.Size()},
			)
		}
		resource.DisplayColor = free[0].Index
		return nil
	}

	if resource.DisplayColor >= s.palette.Size() {
		return apperrors.FieldValidation("display_color",
			fmt.Sprintf("display_color must be below %d", s.palette.Size()))
	}

	return s.verifyColorFree(ctx, resource.DisplayColor, "")
}

func (s *resourceService) verifyColorFree(ctx context.Context, colorIndex int, excludeID string) error {
	if colorIndex < 0 || colorIndex >= s.palette.Size() {
		return apperrors.FieldValidation("display_color",
			fmt.Sprintf("display_color must be in [0, %d)", s.palette.Size()))
	}

	count, err := s.repo.CountByColor(ctx, colorIndex, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check color availability", err)
	}
	if count > 0 {
		return apperrors.Conflict("Display color is already assigned to another resource").
			WithDetails(map[string]any{"display_color": colorIndex})
	}
	return nil
}

func (s *resourceService) publishChange(ctx context.Context, eventType string, resource *model.Resource) {
	err := events.PublishCatalogChanged(ctx, s.publisher, eventType, events.CatalogChanged{
		ResourceID: resource.ID,
		Name:       resource.Name,
		Type:       resource.Type,
		Generation: resource.Generation,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish catalog change",
			"event_type", eventType,
			"resource_id", resource.ID,
			"error", err,
		)
	}
}
