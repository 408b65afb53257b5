package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"labslot/internal/events"
	reservationserrors "labslot/internal/reservations/errors"
	"labslot/internal/reservations/repository"
	"labslot/internal/reservations/validator"
	"labslot/pkg/config"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/model"
	"labslot/pkg/sanitizer"
	"labslot/pkg/timeutil"

	"go.mongodb.org/mongo-driver/mongo"
)

// ResourceCatalog is the slice of the catalog service reservations need:
// existence checks and color resolution for stored reservations.
type ResourceCatalog interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	ColorOf(resource *model.Resource) string
}

type ReservationService interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	Update(ctx context.Context, id string, updates *model.ReservationUpdate) error
	Delete(ctx context.Context, id string) error
	SearchByResource(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error)
	Window(ctx context.Context, from, to *int64) ([]*model.Reservation, error)
	CheckConflict(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	lockRepo  repository.SlotLockRepository
	validator *validator.ReservationValidator
	catalog   ResourceCatalog
	publisher events.Publisher
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.ReservationValidator,
	catalog ResourceCatalog,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		catalog:   catalog,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	s.sanitize(reservation)
	if err := s.validate(reservation); err != nil {
		return err
	}

	resource, err := s.catalog.GetByID(ctx, reservation.ResourceID)
	if err != nil {
		return err
	}
	reservation.Color = s.catalog.ColorOf(resource)

	// Advisory lock on the (resource, start) slot closes the window between
	// the conflict check and the insert.
	lockID, err := s.acquireSlotLock(ctx, reservation.ResourceID, reservation.Start)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, reservation); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"resource_id", reservation.ResourceID,
		"start", timeutil.FormatTimestamp(reservation.Start),
		"end", timeutil.FormatTimestamp(reservation.End),
	)
	s.publishChange(ctx, events.EventReservationCreated, reservation)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) Update(ctx context.Context, id string, updates *model.ReservationUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid reservation ID format")
		}
		return apperrors.Internal("Failed to check reservation existence", err)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeReservationUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	if merged.ResourceID != existing.ResourceID {
		resource, err := s.catalog.GetByID(ctx, merged.ResourceID)
		if err != nil {
			return err
		}
		merged.Color = s.catalog.ColorOf(resource)
	}

	// Same advisory lock as Create: the snapshot transaction alone does not
	// stop two writers from passing the conflict check concurrently.
	lockID, err := s.acquireSlotLock(ctx, merged.ResourceID, merged.Start)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, merged); err != nil {
			return err
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation updated successfully", "id", id)
	merged.ID = id
	s.publishChange(ctx, events.EventReservationUpdated, merged)
	return nil
}

func (s *reservationService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Reservation", id)
			}
			return apperrors.Internal("Failed to delete reservation", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Reservation deleted successfully", "id", id)
	s.publishChange(ctx, events.EventReservationDeleted, existing)
	return nil
}

func (s *reservationService) SearchByResource(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error) {
	if resourceID == "" {
		return nil, apperrors.InvalidInput("resource_id is required")
	}

	reservations, err := s.repo.FindByResource(ctx, resourceID, start, end, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to search reservations",
			"resource_id", resourceID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to search reservations", err)
	}

	return reservations, nil
}

func (s *reservationService) Window(ctx context.Context, from, to *int64) ([]*model.Reservation, error) {
	reservations, err := s.repo.FindWindow(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load reservation window", "error", err)
		return nil, apperrors.Internal("Failed to load reservations", err)
	}
	return reservations, nil
}

// CheckConflict reports the first reservation on the resource overlapping
// [start, end), excluding excludeID. Returns nil when the slot is free.
func (s *reservationService) CheckConflict(ctx context.Context, resourceID string, start, end int64, excludeID string) (*model.Reservation, error) {
	if resourceID == "" {
		return nil, apperrors.InvalidInput("resource_id is required")
	}
	if end <= start {
		return nil, apperrors.FieldValidation("end", "end must be after start")
	}

	existing, err := s.repo.FindByResource(ctx, resourceID, &start, &end, maxOverlapCheck, 0)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing reservations", err)
	}

	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if overlaps(other.Start, other.End, start, end) {
			return other, nil
		}
	}
	return nil, nil
}

// --- Helpers ---

// Checking up to 50 overlapping reservations per slot is plenty; a single
// resource cannot hold more concurrent rows over one interval.
const maxOverlapCheck = 50

func (s *reservationService) sanitize(r *model.Reservation) {
	r.PurposeOfUse = sanitizer.NormalizePurpose(r.PurposeOfUse)
}

func (s *reservationService) validate(reservation *model.Reservation) error {
	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *reservationService) mergeReservationUpdates(existing *model.Reservation, updates *model.ReservationUpdate) *model.Reservation {
	merged := *existing

	if updates.ResourceID != nil {
		merged.ResourceID = *updates.ResourceID
	}
	if updates.Start != nil {
		merged.Start = *updates.Start
	}
	if updates.End != nil {
		merged.End = *updates.End
	}
	if updates.PurposeOfUse != nil {
		merged.PurposeOfUse = *updates.PurposeOfUse
	}

	return &merged
}

func (s *reservationService) verifyNoConflict(ctx context.Context, reservation *model.Reservation) error {
	existing, err := s.repo.FindByResource(ctx, reservation.ResourceID, &reservation.Start, &reservation.End, maxOverlapCheck, 0)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	for _, other := range existing {
		if other.ID == reservation.ID {
			continue
		}
		if overlaps(other.Start, other.End, reservation.Start, reservation.End) {
			return apperrors.Conflict(fmt.Sprintf(
				"Reservation overlaps an existing reservation (%s - %s)",
				timeutil.FormatTimestamp(other.Start),
				timeutil.FormatTimestamp(other.End),
			)).WithDetails(map[string]any{
				"conflicting_id": other.ID,
				"resource_id":    reservation.ResourceID,
			})
		}
	}
	return nil
}

// overlaps tests two half-open intervals [start1, end1) and [start2, end2).
// Touching endpoints do not conflict.
func overlaps(start1, end1, start2, end2 int64) bool {
	return start1 < end2 && start2 < end1
}

// acquireSlotLock creates an advisory lock to prevent concurrent reservation
// creation on the same slot. Returns the lock ID if successful.
func (s *reservationService) acquireSlotLock(ctx context.Context, resourceID string, start int64) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s_%d", resourceID, start)

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This time slot is currently being reserved by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func (s *reservationService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func (s *reservationService) publishChange(ctx context.Context, eventType string, reservation *model.Reservation) {
	err := events.PublishReservationChanged(ctx, s.publisher, eventType, events.ReservationChanged{
		ReservationID: reservation.ID,
		ResourceID:    reservation.ResourceID,
		Start:         reservation.Start,
		End:           reservation.End,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish reservation change",
			"event_type", eventType,
			"reservation_id", reservation.ID,
			"error", err,
		)
	}
}
