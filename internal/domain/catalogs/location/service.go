package location

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/tx"
	"stocktake/internal/domain"
	"stocktake/pkg/logger"
	"stocktake/pkg/numerator"
)

// Service provides business logic for the Location catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new Location service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: gen,
	}
}

// Create validates and persists a new location.
func (s *Service) Create(ctx context.Context, l *Location) error {
	if err := l.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if l.Code == "" {
			code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("LOC"), time.Now())
			if err != nil {
				return fmt.Errorf("generate location code: %w", err)
			}
			l.Code = code
		}

		exists, err := s.repo.ExistsByCode(ctx, l.Code, id.Nil())
		if err != nil {
			return fmt.Errorf("check location code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("location", "code", l.Code)
		}

		if err := s.repo.Create(ctx, l); err != nil {
			return fmt.Errorf("create location: %w", err)
		}

		logger.Info(ctx, "location created", "id", l.ID, "code", l.Code)
		return nil
	})
}

// Update validates and saves changes to an existing location.
func (s *Service) Update(ctx context.Context, l *Location) error {
	if err := l.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, l.ID)
		if err != nil {
			return err
		}

		if current.Version != l.Version {
			return apperror.NewConcurrentModification("location", l.ID.String())
		}

		exists, err := s.repo.ExistsByCode(ctx, l.Code, l.ID)
		if err != nil {
			return fmt.Errorf("check location code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("location", "code", l.Code)
		}

		if err := s.repo.Update(ctx, l); err != nil {
			return fmt.Errorf("update location: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a location by its identifier.
func (s *Service) GetByID(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetByID(ctx, locationID)
}

// GetByCode retrieves a location by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Location, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns locations matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Location], error) {
	return s.repo.List(ctx, filter)
}

// ListActive returns all active locations.
func (s *Service) ListActive(ctx context.Context) ([]*Location, error) {
	return s.repo.ListActive(ctx)
}

// Delete marks a location as deleted.
func (s *Service) Delete(ctx context.Context, locationID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.GetByID(ctx, locationID)
		if err != nil {
			return err
		}

		l.MarkDeleted()
		if err := s.repo.Update(ctx, l); err != nil {
			return fmt.Errorf("delete location: %w", err)
		}

		logger.Info(ctx, "location deleted", "id", locationID)
		return nil
	})
}
